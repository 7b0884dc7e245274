package merge

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapconf/pkg/behavior"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFields = behavior.NewFields([]behavior.Field{
	{Name: "materialized"},
	{Name: "tags", Behavior: behavior.Of(behavior.Hidden, behavior.Merging(behavior.Append), behavior.ExcludeFromCompare)},
	{Name: "post_hook", Alias: "post-hook", Behavior: behavior.Of(behavior.Merging(behavior.Append))},
	{Name: "meta", Behavior: behavior.Of(behavior.Merging(behavior.Update))},
	{Name: "grants", Behavior: behavior.Of(behavior.Merging(behavior.DictKeyAppend))},
})

func TestRaw_Clobber(t *testing.T) {
	tests := []struct {
		name     string
		base     map[string]any
		override map[string]any
		want     any
		present  bool
	}{
		{"override wins", map[string]any{"materialized": "view"}, map[string]any{"materialized": "table"}, "table", true},
		{"base kept when override unset", map[string]any{"materialized": "view"}, map[string]any{}, "view", true},
		{"override only", nil, map[string]any{"materialized": "table"}, "table", true},
		{"unset in both stays absent", map[string]any{}, map[string]any{}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Raw(testFields, tt.base, tt.override)
			require.NoError(t, err)
			v, ok := got["materialized"]
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestRaw_AppendPreservesOrderAndDuplicates(t *testing.T) {
	base := map[string]any{"tags": []any{"a", "b"}}
	override := map[string]any{"tags": []any{"b", "c"}}

	got, err := Raw(testFields, base, override)
	require.NoError(t, err)

	assert.Equal(t, []any{"a", "b", "b", "c"}, got["tags"])
}

func TestRaw_AppendListifiesScalars(t *testing.T) {
	got, err := Raw(testFields, map[string]any{"tags": "nightly"}, map[string]any{"tags": []string{"pii"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"nightly", "pii"}, got["tags"])

	got, err = Raw(testFields, map[string]any{"tags": "nightly"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"nightly"}, got["tags"], "base-only append fields are normalized to sequences")
}

func TestRaw_AppendUsesWireKey(t *testing.T) {
	base := map[string]any{"post-hook": []any{map[string]any{"sql": "grant 1"}}}
	override := map[string]any{"post-hook": []any{map[string]any{"sql": "grant 2"}}}

	got, err := Raw(testFields, base, override)
	require.NoError(t, err)

	hooks := got["post-hook"].([]any)
	require.Len(t, hooks, 2)
	assert.Equal(t, "grant 1", hooks[0].(map[string]any)["sql"])
	assert.Equal(t, "grant 2", hooks[1].(map[string]any)["sql"])
}

func TestRaw_Update(t *testing.T) {
	base := map[string]any{"meta": map[string]any{"owner": "core", "tier": 1}}
	override := map[string]any{"meta": map[string]any{"owner": "finance", "pii": true}}

	got, err := Raw(testFields, base, override)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"owner": "finance", "tier": 1, "pii": true}, got["meta"])
}

func TestRaw_DictKeyAppend(t *testing.T) {
	base := map[string]any{"grants": map[string]any{"select": []any{"reporter"}, "insert": "loader"}}
	override := map[string]any{"grants": map[string]any{"+select": []any{"bi"}, "delete": []any{"admin"}}}

	got, err := Raw(testFields, base, override)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"select": []any{"reporter", "bi"},
		"insert": []any{"loader"},
		"delete": []any{"admin"},
	}, got["grants"])
}

func TestRaw_ExtraKeysClobber(t *testing.T) {
	got, err := Raw(testFields, map[string]any{"custom": []any{1}}, map[string]any{"custom": []any{2}})
	require.NoError(t, err)
	assert.Equal(t, []any{2}, got["custom"])
}

func TestRaw_DoesNotMutateInputs(t *testing.T) {
	base := map[string]any{
		"tags": []any{"a"},
		"meta": map[string]any{"nested": map[string]any{"k": "v"}},
	}
	override := map[string]any{
		"tags": []any{"b"},
		"meta": map[string]any{"owner": "x"},
	}

	got, err := Raw(testFields, base, override)
	require.NoError(t, err)

	got["meta"].(map[string]any)["nested"].(map[string]any)["k"] = "changed"
	got["tags"].([]any)[0] = "changed"

	assert.Equal(t, map[string]any{
		"tags": []any{"a"},
		"meta": map[string]any{"nested": map[string]any{"k": "v"}},
	}, base)
	assert.Equal(t, map[string]any{
		"tags": []any{"b"},
		"meta": map[string]any{"owner": "x"},
	}, override)
}

func TestRaw_ShapeErrors(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]any
		field    string
	}{
		{"dict under append", map[string]any{"tags": map[string]any{"a": 1}}, "tags"},
		{"list under update", map[string]any{"meta": []any{"a"}}, "meta"},
		{"scalar under dict key append", map[string]any{"grants": "select"}, "grants"},
		{"dict value under dict key append", map[string]any{"grants": map[string]any{"select": map[string]any{}}}, "grants"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Raw(testFields, nil, tt.override)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShape))

			var se *ShapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.field, se.Field)
		})
	}
}

func TestFold_LeastToMostSpecific(t *testing.T) {
	project := map[string]any{"materialized": "view", "tags": []any{"project"}}
	directory := map[string]any{"materialized": "table", "tags": []any{"staging"}}
	inline := map[string]any{"tags": "inline", "meta": map[string]any{"owner": "me"}}

	got, err := Fold(testFields, project, directory, inline)
	require.NoError(t, err)

	assert.Equal(t, "table", got["materialized"])
	assert.Equal(t, []any{"project", "staging", "inline"}, got["tags"])
	assert.Equal(t, map[string]any{"owner": "me"}, got["meta"])
}

func TestFold_ReportsScopeIndex(t *testing.T) {
	_, err := Fold(testFields, map[string]any{}, map[string]any{"meta": "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scope 1")
	assert.ErrorIs(t, err, ErrShape)
}
