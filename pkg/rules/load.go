package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// fileRule is one [[rule]] table in a TOML rule file.
type fileRule struct {
	Path     string           `toml:"path"`
	Target   string           `toml:"target"`
	Secure   *bool            `toml:"secure"`
	LogLevel string           `toml:"log_level"`
	Headers  []HeaderOverride `toml:"header"`
}

type tomlFile struct {
	Rules []fileRule `toml:"rule"`
}

// jsonRule is a single entry in a dev-server proxy config, e.g.
//
//	{"/api/*": {"target": "http://127.0.0.1:7220", "secure": false, "logLevel": "debug"}}
type jsonRule struct {
	Target   string            `json:"target"`
	Secure   *bool             `json:"secure"`
	LogLevel string            `json:"logLevel"`
	Headers  map[string]string `json:"headers"`
}

// Load reads a rule file once and builds a Set from it. The format is chosen
// by extension: .toml, or .json/.js for the dev-server proxy config shape.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var specs []Spec
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		specs, err = parseTOML(data)
	case ".json":
		specs, err = parseJSON(data)
	case ".js":
		specs, err = parseJS(data)
	default:
		return nil, fmt.Errorf("rule file %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}

	set, err := New(specs...)
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	return set, nil
}

func parseTOML(data []byte) ([]Spec, error) {
	var f tomlFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}

	specs := make([]Spec, 0, len(f.Rules))
	for _, r := range f.Rules {
		specs = append(specs, Spec{
			Pattern:  r.Path,
			Target:   r.Target,
			Secure:   secureOrDefault(r.Secure),
			LogLevel: r.LogLevel,
			Headers:  r.Headers,
		})
	}
	return specs, nil
}

// jsHook finds function values such as `"bypass": function (req) {` or
// `bypass: (req) => {`, which JSON cannot carry.
var jsHook = regexp.MustCompile(`"?(\w+)"?\s*:\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>|\w+\s*=>)`)

func parseJS(data []byte) ([]Spec, error) {
	if m := jsHook.FindSubmatch(data); m != nil {
		return nil, fmt.Errorf("%s: hooks in JS proxy configs are not supported; only plain object values can be loaded", m[1])
	}
	return parseJSON(trimModuleExports(data))
}

func parseJSON(data []byte) ([]Spec, error) {
	var m map[string]jsonRule
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	specs := make([]Spec, 0, len(m))
	for pattern, r := range m {
		// map order is random; keep extra headers stable
		names := make([]string, 0, len(r.Headers))
		for name := range r.Headers {
			names = append(names, name)
		}
		slices.Sort(names)

		headers := make([]HeaderOverride, 0, len(names))
		for _, name := range names {
			headers = append(headers, HeaderOverride{Name: name, Value: r.Headers[name]})
		}

		specs = append(specs, Spec{
			Pattern:  pattern,
			Target:   r.Target,
			Secure:   secureOrDefault(r.Secure),
			LogLevel: r.LogLevel,
			Headers:  headers,
		})
	}
	return specs, nil
}

// trimModuleExports strips a "const X = " prefix and a trailing
// "module.exports = X;" so a .js proxy config holding a plain object literal
// can be read as JSON.
func trimModuleExports(data []byte) []byte {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "{") {
		if i := strings.Index(s, "{"); i >= 0 {
			s = s[i:]
		}
	}
	if i := strings.LastIndex(s, "}"); i >= 0 {
		s = s[:i+1]
	}
	return []byte(s)
}

func secureOrDefault(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}
