package proxy

import (
	"time"

	"github.com/papercomputeco/devproxy/pkg/rules"
)

const (
	DefaultListenAddr = ":4200"
	DefaultTimeout    = 30 * time.Second
)

// Config is the dev server configuration.
type Config struct {
	// Address to listen on (e.g., ":4200")
	ListenAddr string

	// StaticDir is served for requests no rule matches. Empty disables it.
	StaticDir string

	// Rules decides which requests are forwarded and where. Nil means
	// rules.Default().
	Rules *rules.Set

	// Timeout bounds a single upstream round trip.
	Timeout time.Duration

	// Debug logs every rule at debug level, whatever its own level says.
	// Silent rules stay silent.
	Debug bool
}
