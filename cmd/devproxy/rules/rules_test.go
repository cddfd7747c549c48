package rulescmder

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Rules Command", func() {
	var (
		out    *bytes.Buffer
		tmpDir string
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		tmpDir = GinkgoT().TempDir()
	})

	execute := func(args ...string) error {
		cmd := NewRulesCmd()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	It("prints the built-in rule set", func() {
		Expect(execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("/api/*"))
		Expect(out.String()).To(ContainSubstring("http://127.0.0.1:7220"))
		Expect(out.String()).To(ContainSubstring("debug"))
		Expect(out.String()).To(ContainSubstring("Host=127.0.0.1:7220"))
		Expect(out.String()).To(ContainSubstring("1 rule(s)"))
	})

	It("prints rules from a config file in match order", func() {
		p := filepath.Join(tmpDir, "proxy.toml")
		Expect(os.WriteFile(p, []byte(`
[[rule]]
path = "/api/*"
target = "http://127.0.0.1:7220"

[[rule]]
path = "/api/auth/*"
target = "http://127.0.0.1:7221"
`), 0o644)).To(Succeed())

		Expect(execute("--config", p, "--json")).To(Succeed())

		var got []struct {
			Pattern string `json:"pattern"`
			Target  string `json:"target"`
		}
		Expect(json.Unmarshal(out.Bytes(), &got)).To(Succeed())
		Expect(got).To(HaveLen(2))
		Expect(got[0].Pattern).To(Equal("/api/auth/*"))
		Expect(got[1].Pattern).To(Equal("/api/*"))
	})

	It("fails when the config file is invalid", func() {
		p := filepath.Join(tmpDir, "proxy.json")
		Expect(os.WriteFile(p, []byte(`{"/api/*": {"target": "not a url"}}`), 0o644)).To(Succeed())

		err := execute("--config", p)
		Expect(err).To(MatchError(ContainSubstring("could not load rules")))
	})

	It("rejects positional arguments", func() {
		Expect(execute("extra")).NotTo(Succeed())
	})
})
