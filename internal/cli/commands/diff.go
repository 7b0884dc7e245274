package commands

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconf/internal/cli/config"
	"github.com/leapstack-labs/leapconf/internal/resolver"
	"github.com/leapstack-labs/leapconf/internal/state"
)

// Config change statuses reported by diff.
const (
	StatusNew       = "new"
	StatusChanged   = "changed"
	StatusUnchanged = "unchanged"
)

// DiffEntry is the change status of one resource's config.
type DiffEntry struct {
	UniqueID   string `json:"unique_id" yaml:"unique_id"`
	ConfigType string `json:"config_type" yaml:"config_type"`
	Status     string `json:"status" yaml:"status"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show which resource configs changed since the last save",
		Long: `Resolve every resource in the project and compare each effective config with
the one stored in the state database. Fields excluded from comparison, such as
tags and schema, never make a resource count as changed.

With --save the resolved configs are written to the state database so the next
diff compares against them.`,
		Example: `  leapconf diff
  leapconf diff --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiff(cmd, save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Store the resolved configs")
	return cmd
}

func runDiff(cmd *cobra.Command, save bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	reqs, err := cmdCtx.Discover(fileKinds...)
	if err != nil {
		return err
	}
	results, err := cmdCtx.Resolver().ResolveAll(cmd.Context(), reqs)
	if err != nil {
		return err
	}

	store, closeStore, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := diffResults(store, results)
	if err != nil {
		return err
	}

	if save {
		if err := saveResults(store, cmdCtx.packageName(), results); err != nil {
			return err
		}
		cmdCtx.Logger.Info("saved resolved configs", "resources", len(results))
	}

	out := cmd.OutOrStdout()
	if cmdCtx.Cfg.Output != config.OutputText {
		return writeStructured(out, cmdCtx.Cfg.Output, entries)
	}

	var changed int
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Resource", "Config", "Status"})
	for _, e := range entries {
		if e.Status != StatusUnchanged {
			changed++
		}
		tw.AppendRow(table.Row{e.UniqueID, e.ConfigType, e.Status})
	}
	tw.Render()
	_, _ = fmt.Fprintf(out, "%d of %d resources changed\n", changed, len(entries))
	return nil
}

func diffResults(store *state.SQLiteStore, results []*resolver.Result) ([]DiffEntry, error) {
	entries := make([]DiffEntry, 0, len(results))
	for _, res := range results {
		n := res.Resource.Base()
		entry := DiffEntry{UniqueID: n.UniqueID, ConfigType: res.Config().Type().Name}

		_, err := store.GetConfig(n.UniqueID)
		switch {
		case errors.Is(err, state.ErrNotFound):
			entry.Status = StatusNew
		case err != nil:
			return nil, err
		default:
			changed, err := store.ConfigChanged(res.Resource)
			if err != nil {
				return nil, err
			}
			entry.Status = StatusUnchanged
			if changed {
				entry.Status = StatusChanged
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func saveResults(store *state.SQLiteStore, project string, results []*resolver.Result) error {
	inv, err := store.BeginInvocation(project)
	if err != nil {
		return err
	}
	for _, res := range results {
		if _, err := store.SaveConfig(inv.ID, res.Resource); err != nil {
			return fmt.Errorf("failed to save %s: %w", res.Resource.Base().UniqueID, err)
		}
	}
	return nil
}
