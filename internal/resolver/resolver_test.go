package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconf/internal/scope"
	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
	"github.com/leapstack-labs/leapconf/pkg/resource"
)

func testProject(t *testing.T) *scope.Project {
	t.Helper()
	proj, err := scope.ParseProject(map[string]any{
		"name": "shop",
		"models": map[string]any{
			"+materialized": "view",
			"+tags":         []any{"shop"},
			"marts": map[string]any{
				"+materialized": "table",
				"+grants":       map[string]any{"select": []any{"analyst"}},
				"+meta":         map[string]any{"owner": "data"},
			},
		},
		"snapshots": map[string]any{
			"+target_schema": "snapshots",
			"+strategy":      "timestamp",
			"+unique_key":    "id",
		},
	})
	require.NoError(t, err)
	return proj
}

func TestResolve_FoldsScopesInOrder(t *testing.T) {
	r := New(Config{Project: testProject(t)})

	res, err := r.Resolve(context.Background(), Request{
		Kind:   core.KindModel,
		Dir:    "marts",
		Scopes: []map[string]any{{"+grants": map[string]any{"+select": []any{"finance"}}}},
		Inline: map[string]any{"tags": []any{"orders"}, "meta": map[string]any{"tier": 1}},
		Resource: map[string]any{
			"name":      "orders",
			"unique_id": "model.shop.orders",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Scopes)

	cfg, ok := res.Config().(*nodeconfig.ModelConfig)
	require.True(t, ok)
	assert.Equal(t, "table", cfg.Materialized)
	assert.Equal(t, []string{"shop", "orders"}, cfg.Tags)
	assert.Equal(t, map[string][]string{"select": {"analyst", "finance"}}, cfg.Grants)
	assert.Equal(t, map[string]any{"owner": "data", "tier": 1}, cfg.Meta)

	m, ok := res.Resource.(*resource.ModelNode)
	require.True(t, ok)
	assert.Equal(t, "model.shop.orders", m.UniqueID)
	assert.Equal(t, map[string]any{"tags": []any{"orders"}, "meta": map[string]any{"tier": 1}}, m.UnrenderedConfig)
}

func TestResolve_NoProject(t *testing.T) {
	r := New(Config{})

	res, err := r.Resolve(context.Background(), Request{Kind: core.KindSeed, Resource: map[string]any{"name": "countries"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Scopes)
	assert.Equal(t, nodeconfig.SeedConfigType, res.Config().Type())
}

func TestResolve_SnapshotUpgradedToFullConfig(t *testing.T) {
	r := New(Config{Project: testProject(t)})

	res, err := r.Resolve(context.Background(), Request{
		Kind:     core.KindSnapshot,
		Inline:   map[string]any{"updated_at": "updated_at"},
		Resource: map[string]any{"name": "orders_snapshot"},
	})
	require.NoError(t, err)

	snap, ok := res.Resource.(*resource.SnapshotNode)
	require.True(t, ok)
	cfg := snap.SnapshotConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "timestamp", cfg.Strategy)
	assert.Equal(t, "snapshots", cfg.TargetSchema)
	assert.Equal(t, "updated_at", cfg.UpdatedAt)
}

func TestResolve_SnapshotRulesApplyAfterFolding(t *testing.T) {
	r := New(Config{Project: testProject(t)})

	_, err := r.Resolve(context.Background(), Request{
		Kind:     core.KindSnapshot,
		Resource: map[string]any{"name": "orders_snapshot", "unique_id": "snapshot.shop.orders_snapshot"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, nodeconfig.ErrInvalidConfig)

	var ve *nodeconfig.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "snapshot.shop.orders_snapshot", ve.Resource)
}

func TestResolve_CrossScopeRule(t *testing.T) {
	r := New(Config{})

	_, err := r.Resolve(context.Background(), Request{
		Kind: core.KindModel,
		Scopes: []map[string]any{
			{"contract": map[string]any{"enforced": true}},
			{"materialized": "incremental"},
		},
		Resource: map[string]any{"name": "events"},
	})
	assert.ErrorIs(t, err, nodeconfig.ErrInvalidConfig)

	_, err = r.Resolve(context.Background(), Request{
		Kind: core.KindModel,
		Scopes: []map[string]any{
			{"contract": map[string]any{"enforced": true}},
			{"materialized": "incremental", "on_schema_change": "fail"},
		},
		Resource: map[string]any{"name": "events"},
	})
	assert.NoError(t, err)
}

func TestResolve_Errors(t *testing.T) {
	r := New(Config{})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), Request{Kind: "dashboard"})
		assert.ErrorIs(t, err, resource.ErrUnknownKind)
	})

	t.Run("malformed scope", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), Request{
			Kind:     core.KindModel,
			Scopes:   []map[string]any{{"materialized": []any{"table"}}},
			Resource: map[string]any{"name": "x", "unique_id": "model.shop.x"},
		})
		assert.ErrorIs(t, err, nodeconfig.ErrMalformedValue)
		assert.Contains(t, err.Error(), "model.shop.x")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Resolve(ctx, Request{Kind: core.KindModel})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestResolveAll(t *testing.T) {
	r := New(Config{Project: testProject(t), Concurrency: 2})

	reqs := []Request{
		{Kind: core.KindModel, Dir: "marts", Resource: map[string]any{"name": "a"}},
		{Kind: core.KindModel, Resource: map[string]any{"name": "b"}},
		{Kind: core.KindSeed, Scopes: []map[string]any{{"materialized": "view"}}, Resource: map[string]any{"name": "c"}},
		{Kind: core.KindModel, Dir: "marts/finance", Resource: map[string]any{"name": "d"}},
	}

	results, err := r.ResolveAll(context.Background(), reqs)
	require.Error(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "table", results[0].Config().(*nodeconfig.ModelConfig).Materialized)
	assert.Equal(t, "view", results[1].Config().(*nodeconfig.ModelConfig).Materialized)
	assert.Nil(t, results[2])
	assert.Equal(t, "table", results[3].Config().(*nodeconfig.ModelConfig).Materialized)
	assert.True(t, errors.Is(err, nodeconfig.ErrInvalidConfig))
}

func TestEffectiveConfig_DefaultsOnly(t *testing.T) {
	rec, err := EffectiveConfig(core.KindModel)
	require.NoError(t, err)
	assert.True(t, nodeconfig.Equal(nodeconfig.ModelConfigType.New(), rec))
}

func TestRequestForFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "marts", "finance")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "revenue.sql")
	require.NoError(t, os.WriteFile(path, []byte("/*---\ndescription: Revenue\nmaterialized: table\n---*/\nselect 1"), 0o600))

	req, err := RequestForFile(core.KindModel, "shop", root, path)
	require.NoError(t, err)

	assert.Equal(t, "marts/finance", req.Dir)
	assert.Equal(t, map[string]any{"materialized": "table"}, req.Inline)
	assert.Equal(t, "revenue", req.Resource["name"])
	assert.Equal(t, "model.shop.revenue", req.Resource["unique_id"])
	assert.Equal(t, []any{"shop", "marts", "finance", "revenue"}, req.Resource["fqn"])
	assert.Equal(t, "marts/finance/revenue.sql", req.Resource["path"])
	assert.Equal(t, "select 1", req.Resource["raw_code"])
	assert.Equal(t, "sql", req.Resource["language"])
	assert.Equal(t, "Revenue", req.Resource["description"])

	res, err := New(Config{}).Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, resource.HashSHA256, res.Resource.Base().Checksum.Name)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.sql":             "select 1",
		"staging/b.sql":     "select 2",
		"staging/notes.md":  "# notes",
		"staging/c.py":      "def model(dbt, session): pass",
		"marts/broken.yaml": "x: 1",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}

	reqs, err := Discover(core.KindModel, "shop", root)
	require.NoError(t, err)

	var names []string
	for _, r := range reqs {
		names = append(names, r.Resource["name"].(string))
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, "python", reqs[2].Resource["language"])
}

func TestDiscover_Seeds(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "countries.csv"), []byte("code,name\nNL,Netherlands\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "query.sql"), []byte("select 1"), 0o600))

	reqs, err := Discover(core.KindSeed, "shop", root)
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	res, err := New(Config{}).Resolve(context.Background(), reqs[0])
	require.NoError(t, err)
	seed := res.Resource.(*resource.SeedNode)
	assert.Equal(t, resource.HashPath, seed.Checksum.Name)
	assert.Equal(t, filepath.ToSlash(root), seed.RootPath)
}
