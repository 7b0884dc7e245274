package commands

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconf/internal/cli/config"
	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
)

// ListEntry is one resource in the list output.
type ListEntry struct {
	UniqueID     string `json:"unique_id" yaml:"unique_id"`
	Kind         string `json:"kind" yaml:"kind"`
	Path         string `json:"path" yaml:"path"`
	ConfigType   string `json:"config_type" yaml:"config_type"`
	Materialized string `json:"materialized,omitempty" yaml:"materialized,omitempty"`
	Enabled      bool   `json:"enabled" yaml:"enabled"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [kind...]",
		Short: "List the resources in the project",
		Long: `List every resource file in the project with its config type, materialization
and whether it is enabled. Pass kinds to narrow the listing.`,
		Example: `  # List every resource
  leapconf list

  # List models and seeds as JSON
  leapconf list model seed --output json`,
		RunE: runList,
	}

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	kinds := fileKinds
	if len(args) > 0 {
		kinds = make([]core.ResourceKind, 0, len(args))
		for _, a := range args {
			k, err := parseKind(a)
			if err != nil {
				return err
			}
			kinds = append(kinds, k)
		}
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	reqs, err := cmdCtx.Discover(kinds...)
	if err != nil {
		return err
	}
	results, err := cmdCtx.Resolver().ResolveAll(cmd.Context(), reqs)
	if err != nil {
		return err
	}

	entries := make([]ListEntry, 0, len(results))
	for _, res := range results {
		n := res.Resource.Base()
		entry := ListEntry{
			UniqueID:   n.UniqueID,
			Kind:       string(n.ResourceType),
			Path:       n.Path,
			ConfigType: res.Config().Type().Name,
		}
		if nr, ok := res.Config().(nodeconfig.NodeRecord); ok {
			entry.Materialized = nr.Node().Materialized
			entry.Enabled = nr.Node().Enabled
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UniqueID < entries[j].UniqueID })

	out := cmd.OutOrStdout()
	if cmdCtx.Cfg.Output != config.OutputText {
		return writeStructured(out, cmdCtx.Cfg.Output, entries)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(fmt.Sprintf("Resources (%d total)", len(entries)))
	tw.AppendHeader(table.Row{"Resource", "Path", "Config", "Materialized", "Enabled"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.UniqueID, e.Path, e.ConfigType, e.Materialized, e.Enabled})
	}
	tw.Render()
	return nil
}
