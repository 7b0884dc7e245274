package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconf/internal/cli/config"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
)

// NewFieldsCommand creates the fields command.
func NewFieldsCommand() *cobra.Command {
	var base bool

	cmd := &cobra.Command{
		Use:   "fields <kind>",
		Short: "List the config fields of a resource kind",
		Long: `List every config field the kind declares with its default and how it
behaves when scopes are merged, when configs are compared for changes, and in
generated documentation.`,
		Example: `  leapconf fields model
  leapconf fields snapshot --base`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(cmd, args[0], base)
		},
	}

	cmd.Flags().BoolVar(&base, "base", false, "Show the variant used while folding scopes")
	return cmd
}

func runFields(cmd *cobra.Command, arg string, base bool) error {
	kind, err := parseKind(arg)
	if err != nil {
		return err
	}
	t := nodeconfig.ConfigFor(kind, base)
	defaults := t.Defaults()

	format := config.OutputText
	if cfg := config.GetConfig(cmd.Context()); cfg != nil {
		format = cfg.Output
	}
	if format != config.OutputText {
		rows := make([]map[string]any, 0, t.Fields.Len())
		for _, f := range t.Fields.All() {
			rows = append(rows, map[string]any{
				"name":    f.Name,
				"key":     f.Key(),
				"merge":   f.Behavior.Merge.String(),
				"compare": f.Behavior.Compare.String(),
				"show":    f.Behavior.Show.String(),
				"default": defaults[f.Key()],
			})
		}
		return writeStructured(cmd.OutOrStdout(), format, map[string]any{"type": t.Name, "fields": rows})
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(fmt.Sprintf("%s config (%s)", kindTitle(kind), t.Name))
	tw.AppendHeader(table.Row{"Field", "Key", "Merge", "Compare", "Show", "Default"})
	for _, f := range t.Fields.All() {
		key := f.Key()
		if key == f.Name {
			key = ""
		}
		tw.AppendRow(table.Row{
			f.Name, key,
			f.Behavior.Merge, f.Behavior.Compare, f.Behavior.Show,
			formatValue(defaults[f.Key()]),
		})
	}
	tw.Render()
	return nil
}
