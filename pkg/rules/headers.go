package rules

import (
	"net/http"
	"net/url"
)

// Headers is the request header collection a pre-forward hook mutates.
// Implementations must treat names case-insensitively. http.Header satisfies it.
type Headers interface {
	Get(name string) string
	Set(name, value string)
}

// HeaderOverride is a single header assignment applied to a matched request.
type HeaderOverride struct {
	Name  string `json:"name" toml:"name"`
	Value string `json:"value" toml:"value"`
}

var _ Headers = http.Header{}

// Authority returns the host[:port] of target exactly as it was configured.
func Authority(target *url.URL) string {
	return target.Host
}

// Origin returns scheme://authority for target.
func Origin(target *url.URL) string {
	return target.Scheme + "://" + Authority(target)
}

// ApplyOverrides points Host, Referer and Origin at target, overwriting any
// values already present. Every other header is left alone.
func ApplyOverrides(h Headers, target *url.URL) {
	for _, o := range targetOverrides(target) {
		h.Set(o.Name, o.Value)
	}
}

func targetOverrides(target *url.URL) []HeaderOverride {
	origin := Origin(target)
	return []HeaderOverride{
		{Name: "Host", Value: Authority(target)},
		{Name: "Referer", Value: origin},
		{Name: "Origin", Value: origin},
	}
}

// isTargetHeader reports whether name is one of the headers owned by
// ApplyOverrides.
func isTargetHeader(name string) bool {
	switch http.CanonicalHeaderKey(name) {
	case "Host", "Referer", "Origin":
		return true
	}
	return false
}
