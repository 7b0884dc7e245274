package config

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/leapconf/internal/scope"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputText, OutputYAML, OutputJSON:
	default:
		return fmt.Errorf("invalid output format %q, must be one of: text, yaml, json", c.Output)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}

// ValidateProject checks that the project directory holds a project file.
func (c *Config) ValidateProject() error {
	for _, name := range []string{scope.ProjectFileName, scope.ProjectFileNameAlt} {
		if _, err := os.Stat(resolvePathRelativeTo(name, c.ProjectDir)); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no %s in %s\nHint: run from inside a project or use --project-dir", scope.ProjectFileName, c.ProjectDir)
}
