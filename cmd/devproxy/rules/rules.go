package rulescmder

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/devproxy/pkg/rules"
)

const rulesLongDesc string = `Print the proxy rules in the order requests are matched.

Without --config the built-in rule set is shown. The most specific
pattern is listed first; a request goes to the first rule it matches.

Examples:
  devproxy rules
  devproxy rules --config proxy.toml
  devproxy rules --config proxy.conf.json --json`

const rulesShortDesc string = "Show the loaded proxy rules"

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

type rulesCommander struct {
	configPath string
	asJSON     bool
}

func NewRulesCmd() *cobra.Command {
	cmder := &rulesCommander{}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: rulesShortDesc,
		Long:  rulesLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a rule file (.toml, .json or .js)")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print rules as JSON")

	return cmd
}

func (c *rulesCommander) run(cmd *cobra.Command) error {
	set := rules.Default()
	if c.configPath != "" {
		var err error
		set, err = rules.Load(c.configPath)
		if err != nil {
			return fmt.Errorf("could not load rules: %w", err)
		}
	}

	if c.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(set.Rules())
	}

	if set.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No proxy rules.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PATTERN", "TARGET", "SECURE", "LEVEL", "HEADERS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range set.Rules() {
		t.Row(
			r.Pattern().String(),
			r.Target().String(),
			strconv.FormatBool(r.Secure()),
			string(r.LogLevel()),
			formatHeaders(r.HeaderOverrides()),
		)
	}

	fmt.Fprintln(cmd.OutOrStdout(), t.String())
	fmt.Fprintf(cmd.OutOrStdout(), "%d rule(s)\n", set.Len())
	return nil
}

func formatHeaders(hs []rules.HeaderOverride) string {
	parts := make([]string, 0, len(hs))
	for _, h := range hs {
		parts = append(parts, h.Name+"="+h.Value)
	}
	return strings.Join(parts, "\n")
}
