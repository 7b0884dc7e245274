package nodeconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconf/pkg/core"
)

func mustFromRaw(t *testing.T, typ *RecordType, raw map[string]any) Record {
	t.Helper()
	rec, err := FromRaw(typ, raw)
	require.NoError(t, err)
	return rec
}

func TestMerge_Clobber(t *testing.T) {
	base := mustFromRaw(t, NodeConfigType, map[string]any{"materialized": "table", "alias": "orders"})

	merged, err := Merge(base, mustFromRaw(t, NodeConfigType, map[string]any{"materialized": "incremental"}))
	require.NoError(t, err)
	c := merged.(*NodeConfig)
	assert.Equal(t, core.MaterializationIncremental, c.Materialized)
	assert.Equal(t, "orders", c.Alias)

	// an explicit value equal to the default still wins
	merged, err = Merge(base, mustFromRaw(t, NodeConfigType, map[string]any{"materialized": "view"}))
	require.NoError(t, err)
	assert.Equal(t, core.MaterializationView, merged.(*NodeConfig).Materialized)
}

func TestMerge_UnsetInBothIsDefault(t *testing.T) {
	merged, err := Merge(NewNodeConfig(), NewNodeConfig())
	require.NoError(t, err)
	c := merged.(*NodeConfig)

	assert.Equal(t, core.MaterializationView, c.Materialized)
	assert.Equal(t, core.OnSchemaChangeIgnore, c.OnSchemaChange)
	assert.True(t, c.Enabled)
	assert.True(t, c.Docs.Show)
	assert.True(t, c.Contract.AliasTypes)
	assert.Empty(t, c.Tags)
}

func TestMerge_Append(t *testing.T) {
	base := mustFromRaw(t, NodeConfigType, map[string]any{
		"tags":      []any{"a", "b"},
		"post-hook": []any{"select 1"},
	})
	override := mustFromRaw(t, NodeConfigType, map[string]any{
		"tags":      []any{"b", "c"},
		"post-hook": []any{"select 2", "select 3"},
	})

	merged, err := Merge(base, override)
	require.NoError(t, err)
	c := merged.(*NodeConfig)

	assert.Equal(t, []string{"a", "b", "b", "c"}, c.Tags)
	var sqls []string
	for _, h := range c.PostHook {
		sqls = append(sqls, h.SQL)
	}
	assert.Equal(t, []string{"select 1", "select 2", "select 3"}, sqls)
}

func TestMerge_Update(t *testing.T) {
	base := mustFromRaw(t, NodeConfigType, map[string]any{
		"meta":     map[string]any{"owner": "a", "tier": 1},
		"docs":     map[string]any{"show": false},
		"contract": map[string]any{"enforced": true},
	})
	override := mustFromRaw(t, NodeConfigType, map[string]any{
		"meta": map[string]any{"tier": 2, "pii": true},
		"docs": map[string]any{"node_color": "red"},
	})

	merged, err := Merge(base, override)
	require.NoError(t, err)
	c := merged.(*NodeConfig)

	assert.Equal(t, map[string]any{"owner": "a", "tier": 2, "pii": true}, c.Meta)
	assert.Equal(t, Docs{Show: false, NodeColor: "red"}, c.Docs)
	assert.Equal(t, ContractConfig{Enforced: true, AliasTypes: true}, c.Contract)
}

func TestMerge_DictKeyAppend(t *testing.T) {
	base := mustFromRaw(t, NodeConfigType, map[string]any{
		"grants": map[string]any{"select": []any{"analyst"}, "insert": []any{"loader"}},
	})
	override := mustFromRaw(t, NodeConfigType, map[string]any{
		"grants": map[string]any{"+select": []any{"reporter"}, "update": "loader"},
	})

	merged, err := Merge(base, override)
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"select": {"analyst", "reporter"},
		"insert": {"loader"},
		"update": {"loader"},
	}, merged.(*NodeConfig).Grants)
}

func TestMerge_Extras(t *testing.T) {
	base := mustFromRaw(t, NodeConfigType, map[string]any{"partition_by": "day", "cluster_by": []any{"a"}})
	override := mustFromRaw(t, NodeConfigType, map[string]any{"cluster_by": []any{"b"}})

	merged, err := Merge(base, override)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"partition_by": "day", "cluster_by": []any{"b"}}, merged.Extras())
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := mustFromRaw(t, ModelConfigType, map[string]any{
		"tags":   []any{"a"},
		"meta":   map[string]any{"owner": "a"},
		"grants": map[string]any{"select": []any{"r1"}},
	})
	override := mustFromRaw(t, ModelConfigType, map[string]any{
		"tags":   []any{"b"},
		"meta":   map[string]any{"owner": "b"},
		"grants": map[string]any{"select": []any{"r2"}},
	})
	baseBefore, overrideBefore := ToRaw(base), ToRaw(override)

	merged, err := Merge(base, override)
	require.NoError(t, err)
	merged.(*ModelConfig).Meta["owner"] = "changed"
	merged.(*ModelConfig).Grants["select"][0] = "changed"

	assert.Equal(t, baseBefore, ToRaw(base))
	assert.Equal(t, overrideBefore, ToRaw(override))
}

func TestMerge_TypeMismatch(t *testing.T) {
	_, err := Merge(NewNodeConfig(), NewModelConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMergeMismatch)

	_, err = Merge(NewEmptySnapshotConfig(), NewSnapshotConfig())
	assert.ErrorIs(t, err, ErrMergeMismatch)
}

func TestFold_LeastToMostSpecific(t *testing.T) {
	rec, err := Fold(ModelConfigType,
		map[string]any{"+materialized": "view", "+tags": "project", "+meta": map[string]any{"owner": "core"}},
		map[string]any{"+materialized": "table", "+tags": []any{"finance"}},
		map[string]any{"materialized": "incremental", "unique_key": "id", "meta": map[string]any{"owner": "fin"}},
	)
	require.NoError(t, err)
	c := rec.(*ModelConfig)

	assert.Equal(t, core.MaterializationIncremental, c.Materialized)
	assert.Equal(t, []string{"project", "finance"}, c.Tags)
	assert.Equal(t, map[string]any{"owner": "fin"}, c.Meta)
	assert.Equal(t, []string{"id"}, c.UniqueKey.Values())
}

func TestFold_ReportsScope(t *testing.T) {
	_, err := Fold(NodeConfigType,
		map[string]any{"enabled": true},
		map[string]any{"enabled": "sometimes"},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedValue)
	assert.Contains(t, err.Error(), "scope 1")
}

func TestFold_DefersRecordRules(t *testing.T) {
	rec, err := Fold(ModelConfigType,
		map[string]any{"+materialized": "incremental", "+on_schema_change": "ignore"},
		map[string]any{"contract": map[string]any{"enforced": true}},
	)
	require.NoError(t, err)

	_, err = Finalize(rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFinalize_Idempotent(t *testing.T) {
	rec := mustFromRaw(t, ModelConfigType, map[string]any{
		"materialized": "table",
		"pre-hook":     []any{"select 1"},
		"docs":         map[string]any{"show": false},
	})

	once, err := Finalize(rec)
	require.NoError(t, err)
	twice, err := Finalize(once)
	require.NoError(t, err)

	assert.True(t, Equal(rec, once))
	assert.True(t, Equal(once, twice))
	assert.NotSame(t, rec, once)
}

func TestConvert_BaseSnapshotToFull(t *testing.T) {
	base, err := Fold(ConfigFor(core.KindSnapshot, true),
		map[string]any{"+target_schema": "snapshots", "+strategy": "timestamp"},
		map[string]any{"unique_key": "id", "updated_at": "updated_at", "tags": []any{"scd"}},
	)
	require.NoError(t, err)
	assert.Contains(t, base.Extras(), "strategy")

	full, err := Convert(base, ConfigFor(core.KindSnapshot, false))
	require.NoError(t, err)
	snap := full.(*SnapshotConfig)
	assert.Empty(t, snap.Extras())
	assert.Equal(t, "timestamp", snap.Strategy)
	assert.Equal(t, "snapshots", snap.TargetSchema)
	assert.Equal(t, []string{"scd"}, snap.Tags)
	assert.Equal(t, core.MaterializationSnapshot, snap.Materialized)

	final, err := snap.FinalizeAndValidate()
	require.NoError(t, err)
	assert.True(t, Equal(snap, final))
}
