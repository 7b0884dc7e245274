// Package commands implements the leapconf subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconf/internal/cli/config"
	"github.com/leapstack-labs/leapconf/internal/resolver"
	"github.com/leapstack-labs/leapconf/internal/scope"
	"github.com/leapstack-labs/leapconf/internal/state"
	"github.com/leapstack-labs/leapconf/pkg/core"
)

// CommandContext holds what a command needs from the loaded configuration.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Project *scope.Project
}

// NewCommandContext loads the project the command runs against.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.GetConfig(ctx)
	if cfg == nil {
		var err error
		if cfg, err = config.LoadConfig("", nil); err != nil {
			return nil, err
		}
	}
	if err := cfg.ValidateProject(); err != nil {
		return nil, err
	}

	proj, err := scope.LoadProject(cfg.ProjectDir)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Cfg:     cfg,
		Logger:  config.GetLogger(ctx),
		Project: proj,
	}, nil
}

// Resolver returns a resolver over the command's project.
func (c *CommandContext) Resolver() *resolver.Resolver {
	return resolver.New(resolver.Config{
		Project:     c.Project,
		Concurrency: c.Cfg.Concurrency,
		Logger:      c.Logger,
	})
}

// packageName is the project name used in unique ids.
func (c *CommandContext) packageName() string {
	if c.Project.Name != "" {
		return c.Project.Name
	}
	return filepath.Base(c.Cfg.ProjectDir)
}

// Discover builds requests for every resource file of kinds. Kinds whose
// directory does not exist are skipped.
func (c *CommandContext) Discover(kinds ...core.ResourceKind) ([]resolver.Request, error) {
	var reqs []resolver.Request
	for _, kind := range kinds {
		dir := c.Cfg.Dir(kind)
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			c.Logger.Debug("skipping missing resource directory", "kind", kind, "dir", dir)
			continue
		}
		found, err := resolver.Discover(kind, c.packageName(), dir)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, found...)
	}
	return reqs, nil
}

// RequestForPath builds the request for one resource file of kind.
func (c *CommandContext) RequestForPath(kind core.ResourceKind, path string) (resolver.Request, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return resolver.Request{}, err
	}
	root := c.Cfg.Dir(kind)
	if root == "" {
		return resolver.Request{}, fmt.Errorf("%s resources are not read from files", kind)
	}
	return resolver.RequestForFile(kind, c.packageName(), root, abs)
}

// OpenStore opens and migrates the state store. The returned func closes it.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, func(), error) {
	stateDir := filepath.Dir(c.Cfg.StatePath)
	if c.Cfg.StatePath != ":memory:" && stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// fileKinds are the kinds discovered from resource files.
var fileKinds = []core.ResourceKind{
	core.KindModel, core.KindSeed, core.KindSnapshot, core.KindTest, core.KindAnalysis,
}

// parseKind parses a kind argument.
func parseKind(arg string) (core.ResourceKind, error) {
	kind, ok := core.ParseResourceKind(arg)
	if !ok {
		return "", fmt.Errorf("unknown resource kind %q", arg)
	}
	return kind, nil
}
