package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconf/internal/cli/config"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <unique_id>",
		Short: "Show how a resource's config changed across saves",
		Long: `Show every saved invocation that recorded the resource's config, oldest
first, and whether the config changed in it. Configs are recorded with
'leapconf diff --save'.`,
		Example: `  leapconf history model.shop.orders`,
		Args:    cobra.ExactArgs(1),
		RunE:    runHistory,
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := store.History(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cmdCtx.Cfg.Output != config.OutputText {
		rows := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, map[string]any{
				"invocation_id": e.InvocationID,
				"compare_hash":  e.CompareHash,
				"changed":       e.Changed,
				"recorded_at":   e.RecordedAt.Format(time.RFC3339),
			})
		}
		return writeStructured(out, cmdCtx.Cfg.Output, rows)
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintf(out, "No saved configs for %s\n", args[0])
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(args[0])
	tw.AppendHeader(table.Row{"Invocation", "Recorded", "Changed", "Hash"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.InvocationID, e.RecordedAt.Format(time.RFC3339), e.Changed, shortHash(e.CompareHash)})
	}
	tw.Render()
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
