package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconf/internal/cli/config"
	"github.com/leapstack-labs/leapconf/internal/resolver"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "resolve <kind> [path...]",
		Short: "Show the effective config of resources",
		Long: `Resolve the effective config of resources of one kind.

The config of each resource is folded from the project file's section for the
kind, every directory level down to the resource, and the resource file's own
frontmatter, then checked against the kind's rules.

Without paths every resource file of the kind is resolved.`,
		Example: `  # Effective config of one model
  leapconf resolve model models/marts/orders.sql

  # Every snapshot, including defaults, as YAML
  leapconf resolve snapshot --all --output yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include fields left at their defaults")
	return cmd
}

func runResolve(cmd *cobra.Command, args []string, all bool) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	var reqs []resolver.Request
	if len(args) > 1 {
		for _, p := range args[1:] {
			req, err := cmdCtx.RequestForPath(kind, p)
			if err != nil {
				return err
			}
			reqs = append(reqs, req)
		}
	} else if reqs, err = cmdCtx.Discover(kind); err != nil {
		return err
	}

	results, err := cmdCtx.Resolver().ResolveAll(cmd.Context(), reqs)
	if err != nil {
		return err
	}

	configs := make(map[string]map[string]any, len(results))
	for _, res := range results {
		rec := res.Config()
		m := nodeconfig.ToRaw(rec)
		if all {
			m = nodeconfig.Documented(rec)
		}
		configs[res.Resource.Base().UniqueID] = m
	}

	out := cmd.OutOrStdout()
	if cmdCtx.Cfg.Output != config.OutputText {
		return writeStructured(out, cmdCtx.Cfg.Output, configs)
	}
	if len(results) == 0 {
		_, _ = fmt.Fprintf(out, "No %s resources found\n", kind)
		return nil
	}
	for _, res := range results {
		id := res.Resource.Base().UniqueID
		writeKeyValues(out, fmt.Sprintf("%s (%s)", id, res.Config().Type().Name), configs[id])
	}
	return nil
}
