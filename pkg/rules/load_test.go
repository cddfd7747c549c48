package rules_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/devproxy/pkg/rules"
)

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		Expect(os.WriteFile(p, []byte(content), 0o644)).To(Succeed())
		return p
	}

	describeRules := func(set *rules.Set) []map[string]any {
		var out []map[string]any
		for _, r := range set.Rules() {
			out = append(out, map[string]any{
				"pattern": r.Pattern(),
				"target":  r.Target().String(),
				"secure":  r.Secure(),
				"level":   r.LogLevel(),
				"headers": r.HeaderOverrides(),
			})
		}
		return out
	}

	It("reads a TOML rule file", func() {
		p := write("proxy.toml", `
[[rule]]
path = "/api/*"
target = "http://127.0.0.1:7220"
secure = false
log_level = "debug"

  [[rule.header]]
  name = "X-Dev"
  value = "1"

[[rule]]
path = "/auth/*"
target = "https://auth.local:8443"
`)
		set, err := rules.Load(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(set.Len()).To(Equal(2))

		r, ok := set.Match("/api/users")
		Expect(ok).To(BeTrue())
		Expect(r.Secure()).To(BeFalse())
		Expect(r.LogLevel()).To(Equal(rules.LevelDebug))
		Expect(r.HeaderOverrides()).To(ContainElement(rules.HeaderOverride{Name: "X-Dev", Value: "1"}))

		r, ok = set.Match("/auth/login")
		Expect(ok).To(BeTrue())
		Expect(r.Secure()).To(BeTrue())
		Expect(r.LogLevel()).To(Equal(rules.LevelInfo))
	})

	It("reads a dev-server JSON proxy config", func() {
		p := write("proxy.conf.json", `{
  "/api/*": {
    "target": "http://127.0.0.1:7220",
    "secure": false,
    "logLevel": "debug"
  }
}`)
		set, err := rules.Load(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(describeRules(set)).To(Equal(describeRules(rules.Default())))
	})

	It("reads a JS proxy config holding a plain object", func() {
		p := write("e2e-proxy.config.js", `const PROXY_CONFIG = {
  "/api/*": {
    "target": "http://127.0.0.1:7220",
    "secure": false,
    "logLevel": "debug"
  }
};

module.exports = PROXY_CONFIG;
`)
		set, err := rules.Load(p)
		Expect(err).NotTo(HaveOccurred())
		Expect(describeRules(set)).To(Equal(describeRules(rules.Default())))
	})

	It("explains that hook functions in a JS config cannot be loaded", func() {
		p := write("e2e-proxy.config.js", `const PROXY_CONFIG = {
  "/api/*": {
    "target": "http://127.0.0.1:7220",
    "secure": false,
    "logLevel": "debug",
    "bypass": function (req) {
      req.headers["host"] = '127.0.0.1:7220';
      req.headers["referer"] = 'http://127.0.0.1:7220';
      req.headers["origin"] = 'http://127.0.0.1:7220';
    }
  }
};

module.exports = PROXY_CONFIG;
`)
		_, err := rules.Load(p)
		Expect(err).To(MatchError(ContainSubstring("bypass: hooks in JS proxy configs are not supported")))
	})

	It("rejects arrow function hooks too", func() {
		p := write("proxy.config.js", `module.exports = {
  "/api/*": {
    target: "http://127.0.0.1:7220",
    bypass: (req) => { req.headers.host = "x"; }
  }
};
`)
		_, err := rules.Load(p)
		Expect(err).To(MatchError(ContainSubstring("hooks in JS proxy configs are not supported")))
	})

	It("builds the same set from equivalent TOML and JSON", func() {
		tomlPath := write("proxy.toml", `
[[rule]]
path = "/api/*"
target = "http://127.0.0.1:7220"
log_level = "warn"

  [[rule.header]]
  name = "X-A"
  value = "a"

  [[rule.header]]
  name = "X-B"
  value = "b"
`)
		jsonPath := write("proxy.json", `{
  "/api/*": {
    "target": "http://127.0.0.1:7220",
    "logLevel": "warn",
    "headers": {"X-B": "b", "X-A": "a"}
  }
}`)
		fromTOML, err := rules.Load(tomlPath)
		Expect(err).NotTo(HaveOccurred())
		fromJSON, err := rules.Load(jsonPath)
		Expect(err).NotTo(HaveOccurred())

		Expect(describeRules(fromJSON)).To(Equal(describeRules(fromTOML)))
	})

	It("fails on a missing file", func() {
		_, err := rules.Load(filepath.Join(dir, "nope.toml"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})

	It("fails on an unsupported extension", func() {
		p := write("proxy.yaml", "rule: []")
		_, err := rules.Load(p)
		Expect(err).To(MatchError(ContainSubstring("unsupported extension")))
	})

	It("fails on unknown TOML keys", func() {
		p := write("proxy.toml", `
[[rule]]
path = "/api/*"
target = "http://127.0.0.1:7220"
change_origin = true
`)
		_, err := rules.Load(p)
		Expect(err).To(MatchError(ContainSubstring("change_origin")))
	})

	It("fails on malformed JSON", func() {
		p := write("proxy.json", `{"/api/*": {"target": }`)
		_, err := rules.Load(p)
		Expect(err).To(MatchError(ContainSubstring("decode json")))
	})

	It("surfaces validation errors", func() {
		p := write("proxy.json", `{"/api/*": {"target": "127.0.0.1:7220"}}`)
		_, err := rules.Load(p)

		Expect(err).To(HaveOccurred())

		var invalid *rules.InvalidRuleError
		Expect(errors.As(err, &invalid)).To(BeTrue())
		Expect(invalid.Pattern).To(Equal("/api/*"))
	})
})
