// Package config provides configuration management for the leapconf CLI.
package config

import (
	"path/filepath"

	"github.com/leapstack-labs/leapconf/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	// ProjectDir is the directory holding project.yaml. Set by the loader.
	ProjectDir  string `koanf:"project_dir"`
	StatePath   string `koanf:"state_path"`
	Output      string `koanf:"output"`
	Verbose     bool   `koanf:"verbose"`
	Concurrency int    `koanf:"concurrency"`
	// Dirs maps a project section (e.g. "models") to the directory holding
	// resources of that kind, relative to ProjectDir.
	Dirs map[string]string `koanf:"dirs"`
}

// Default configuration values.
const (
	ConfigFileName    = "leapconf.yaml"
	ConfigFileNameAlt = "leapconf.yml"
	DefaultStateFile  = ".leapconf/state.db"
	DefaultOutput     = "text"
)

// Output formats.
const (
	OutputText = "text"
	OutputYAML = "yaml"
	OutputJSON = "json"
)

// DefaultDirs returns the default resource directory of every file-based kind.
func DefaultDirs() map[string]string {
	return map[string]string{
		core.KindModel.Section():    "models",
		core.KindSeed.Section():     "seeds",
		core.KindSnapshot.Section(): "snapshots",
		core.KindTest.Section():     "tests",
		core.KindAnalysis.Section(): "analyses",
	}
}

// Dir returns the absolute resource directory of kind, or "" if the kind is
// not file-based.
func (c *Config) Dir(kind core.ResourceKind) string {
	d, ok := c.Dirs[kind.Section()]
	if !ok || d == "" {
		return ""
	}
	return resolvePathRelativeTo(d, c.ProjectDir)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(baseDir, path)
}
