package scope

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconf/pkg/core"
)

const projectYAML = `name: shop
vars:
  start_date: "2024-01-01"
models:
  +materialized: view
  tags: [shop]
  staging:
    +schema: staging
  marts:
    materialized: table
    docs:
      node_color: "#ff0000"
    finance:
      +tags: [finance]
      +grants:
        select: [analyst]
  empty_dir:
snapshots:
  +target_schema: snapshots
`

func writeProject(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(content), 0o600))
	return dir
}

func TestLoadProject(t *testing.T) {
	dir := writeProject(t, projectYAML)

	proj, err := LoadProject(dir)
	require.NoError(t, err)

	assert.Equal(t, "shop", proj.Name)
	assert.Equal(t, filepath.Join(dir, ProjectFileName), proj.Path)
	assert.Equal(t, "2024-01-01", proj.Vars["start_date"])
	assert.Equal(t, []core.ResourceKind{core.KindModel, core.KindSnapshot}, proj.Sections())
}

func TestLoadProject_FilePathAndErrors(t *testing.T) {
	dir := writeProject(t, projectYAML)

	proj, err := LoadProject(filepath.Join(dir, ProjectFileName))
	require.NoError(t, err)
	assert.Equal(t, "shop", proj.Name)

	_, err = LoadProject(t.TempDir())
	assert.Error(t, err)

	bad := writeProject(t, "models: [a, b]\n")
	_, err = LoadProject(bad)
	assert.ErrorContains(t, err, "must be a mapping")
}

func TestProject_Chain(t *testing.T) {
	proj, err := LoadProject(writeProject(t, projectYAML))
	require.NoError(t, err)

	tests := []struct {
		name string
		kind core.ResourceKind
		dir  string
		want []map[string]any
	}{
		{
			name: "section root",
			kind: core.KindModel,
			dir:  "",
			want: []map[string]any{
				{"+materialized": "view", "tags": []any{"shop"}},
			},
		},
		{
			name: "nested directories",
			kind: core.KindModel,
			dir:  "marts/finance",
			want: []map[string]any{
				{"+materialized": "view", "tags": []any{"shop"}},
				{"materialized": "table", "docs": map[string]any{"node_color": "#ff0000"}},
				{"+tags": []any{"finance"}, "+grants": map[string]any{"select": []any{"analyst"}}},
			},
		},
		{
			name: "unknown directory stops descent",
			kind: core.KindModel,
			dir:  "staging/deeper/more",
			want: []map[string]any{
				{"+materialized": "view", "tags": []any{"shop"}},
				{"+schema": "staging"},
			},
		},
		{
			name: "empty directory adds nothing",
			kind: core.KindModel,
			dir:  "empty_dir",
			want: []map[string]any{
				{"+materialized": "view", "tags": []any{"shop"}},
			},
		},
		{
			name: "other kind",
			kind: core.KindSnapshot,
			dir:  "marts",
			want: []map[string]any{
				{"+target_schema": "snapshots"},
			},
		},
		{
			name: "kind without section",
			kind: core.KindSeed,
			dir:  "marts",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, proj.Chain(tt.kind, tt.dir))
		})
	}
}

func TestProject_ChainReturnsCopies(t *testing.T) {
	proj, err := ParseProject(map[string]any{
		"models": map[string]any{"+tags": []any{"a"}},
	})
	require.NoError(t, err)

	first := proj.Chain(core.KindModel, "")
	first[0]["+tags"].([]any)[0] = "changed"

	assert.Equal(t, []any{"a"}, proj.Chain(core.KindModel, "")[0]["+tags"])
}

func TestFindProjectRoot(t *testing.T) {
	root := writeProject(t, "name: shop\n")
	nested := filepath.Join(root, "models", "marts")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, "", FindProjectRoot(t.TempDir()))
}
