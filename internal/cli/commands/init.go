package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconf/internal/scope"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leapconf project",
		Long: `Initialize a new project with a project file and resource directories.

This creates:
  - project.yaml with the configs of each resource section
  - leapconf.yaml with the tool settings
  - models/ directory for model files

Use --example to create a shop project with seeds, staging and mart models,
and a snapshot whose configs are spread over several scopes.`,
		Example: `  # Initialize in current directory
  leapconf init

  # Initialize a new directory with the example project
  leapconf init shop --example

  # Force overwrite existing files
  leapconf init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			name := "minimal"
			if example {
				name = "example"
			}
			return runInit(cmd.OutOrStdout(), name, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Create the example shop project")

	return cmd
}

func runInit(out io.Writer, templateName, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	projectPath := filepath.Join(dir, scope.ProjectFileName)
	if _, err := os.Stat(projectPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", scope.ProjectFileName)
	}

	files, err := templateFiles(templateName)
	if err != nil {
		return err
	}
	skipped, err := writeScaffold(dir, files, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	groups := groupTemplateFiles(paths)
	for _, group := range append([]string{"config"}, resourceDirs...) {
		if len(groups[group]) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\n", titleCaser.String(group))
		for _, p := range groups[group] {
			if skipped[p] {
				_, _ = fmt.Fprintf(out, "  - %s (exists)\n", p)
				continue
			}
			_, _ = fmt.Fprintf(out, "  ✓ %s\n", p)
		}
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Project initialized!")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Next steps:")
	_, _ = fmt.Fprintln(out, "  leapconf validate          Check every resource config")
	_, _ = fmt.Fprintln(out, "  leapconf resolve model     Show the effective model configs")
	_, _ = fmt.Fprintln(out, "  leapconf diff --save       Record the configs for change detection")
	return nil
}
