package proxy

import (
	"github.com/valyala/fasthttp"

	"github.com/papercomputeco/devproxy/pkg/rules"
)

// requestHeaders exposes a fasthttp request header to rule hooks.
// fasthttp normalizes names, so lookups are case-insensitive.
type requestHeaders struct {
	h *fasthttp.RequestHeader
}

var _ rules.Headers = requestHeaders{}

func (r requestHeaders) Get(name string) string {
	return string(r.h.Peek(name))
}

func (r requestHeaders) Set(name, value string) {
	r.h.Set(name, value)
}
