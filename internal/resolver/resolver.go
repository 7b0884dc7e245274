// Package resolver computes the effective config of resources. For each
// resource it collects the scope chain, folds it into the kind's base config,
// upgrades the result to the full config type, finalizes it, and embeds it in
// the resource record.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/mitchellh/copystructure"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapconf/internal/scope"
	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
	"github.com/leapstack-labs/leapconf/pkg/resource"
)

// Config holds resolver configuration.
type Config struct {
	// Project supplies directory scopes. Optional.
	Project *scope.Project
	// Concurrency bounds ResolveAll. Zero means GOMAXPROCS.
	Concurrency int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Resolver resolves resource configs against a project.
type Resolver struct {
	project     *scope.Project
	concurrency int
	logger      *slog.Logger
}

// Request describes one resource to resolve.
type Request struct {
	Kind core.ResourceKind
	// Dir is the resource's directory relative to the kind's root, used to pick
	// project scopes.
	Dir string
	// Scopes are applied after the project scopes, least specific first.
	Scopes []map[string]any
	// Inline is the resource's own scope and is applied last.
	Inline map[string]any
	// Resource is the raw form of the resource without its config.
	Resource map[string]any
}

// ID returns the resource's unique id, falling back to its name.
func (r Request) ID() string {
	if id, ok := r.Resource["unique_id"].(string); ok && id != "" {
		return id
	}
	name, _ := r.Resource["name"].(string)
	return name
}

// chain returns the scopes the request folds, least specific first.
func (r Request) chain(p *scope.Project) []map[string]any {
	var chain []map[string]any
	if p != nil {
		chain = append(chain, p.Chain(r.Kind, r.Dir)...)
	}
	chain = append(chain, r.Scopes...)
	if len(r.Inline) > 0 {
		chain = append(chain, r.Inline)
	}
	return chain
}

// Result is a resolved resource.
type Result struct {
	Resource resource.Resource
	// Scopes is the number of scopes that contributed to the config.
	Scopes int
}

// Config returns the resource's effective config.
func (r *Result) Config() nodeconfig.Record { return r.Resource.Base().Config }

// New creates a resolver.
func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	n := cfg.Concurrency
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &Resolver{project: cfg.Project, concurrency: n, logger: logger}
}

// Resolve computes the effective config of one resource and returns the
// resource record with it embedded.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind, ok := core.ParseResourceKind(string(req.Kind))
	if !ok {
		return nil, fmt.Errorf("%w: %q", resource.ErrUnknownKind, req.Kind)
	}
	req.Kind = kind
	id := req.ID()
	chain := req.chain(r.project)

	rec, err := EffectiveConfig(kind, chain...)
	if err != nil {
		return nil, nodeconfig.WithResource(err, id)
	}

	raw := map[string]any{}
	if req.Resource != nil {
		raw = copystructure.Must(copystructure.Copy(req.Resource)).(map[string]any)
	}
	raw["config"] = nodeconfig.ToRaw(rec)
	if _, ok := raw["unrendered_config"]; !ok && len(req.Inline) > 0 {
		raw["unrendered_config"] = req.Inline
	}

	res, err := resource.FromRaw(kind, raw)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("resolved config",
		"kind", kind,
		"resource", id,
		"scopes", len(chain),
		"config_type", rec.Type().Name)

	return &Result{Resource: res, Scopes: len(chain)}, nil
}

// ResolveAll resolves reqs concurrently. Results are in request order. A
// failed request leaves a nil result; every failure is reported in the joined
// error. Cancelling ctx stops requests that have not started.
func (r *Resolver) ResolveAll(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.concurrency)
	for i, req := range reqs {
		eg.Go(func() error {
			res, err := r.Resolve(egctx, req)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = eg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		r.logger.Warn("config resolution failed", "requests", len(reqs), "error", err)
	} else {
		r.logger.Info("resolved configs", "requests", len(reqs))
	}
	return results, err
}

// EffectiveConfig folds scopes into kind's base config, upgrades the result to
// the kind's full config type and finalizes it.
func EffectiveConfig(kind core.ResourceKind, scopes ...map[string]any) (nodeconfig.Record, error) {
	base := nodeconfig.ConfigFor(kind, true)
	rec, err := nodeconfig.Fold(base, scopes...)
	if err != nil {
		return nil, err
	}
	if full := nodeconfig.ConfigFor(kind, false); full != base {
		if rec, err = nodeconfig.Convert(rec, full); err != nil {
			return nil, err
		}
	}
	return nodeconfig.Finalize(rec)
}
