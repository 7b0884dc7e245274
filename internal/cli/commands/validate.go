package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrInvalidProject is returned by validate when any resource fails.
var ErrInvalidProject = errors.New("project has invalid configs")

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config of every resource in the project",
		Long: `Resolve the config of every model, seed, snapshot, test and analysis file in
the project and report every resource whose config is malformed or breaks a rule
of its kind.`,
		Example: `  leapconf validate
  leapconf validate --project-dir ./shop`,
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	reqs, err := cmdCtx.Discover(fileKinds...)
	if err != nil {
		return err
	}

	_, resolveErr := cmdCtx.Resolver().ResolveAll(cmd.Context(), reqs)
	out := cmd.OutOrStdout()
	if resolveErr == nil {
		_, _ = fmt.Fprintf(out, "All %d resources valid\n", len(reqs))
		return nil
	}

	failures := unwrapJoined(resolveErr)
	for _, e := range failures {
		_, _ = fmt.Fprintf(out, "✗ %v\n", e)
	}
	_, _ = fmt.Fprintf(out, "%d of %d resources invalid\n", len(failures), len(reqs))
	return fmt.Errorf("%w: %d invalid", ErrInvalidProject, len(failures))
}

// unwrapJoined splits an errors.Join result into its parts.
func unwrapJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
