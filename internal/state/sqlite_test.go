package state

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconf/pkg/core"
	"github.com/leapstack-labs/leapconf/pkg/nodeconfig"
	"github.com/leapstack-labs/leapconf/pkg/resource"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func model(t *testing.T, config map[string]any) resource.Resource {
	t.Helper()
	r, err := resource.FromRaw(core.KindModel, map[string]any{
		"name":      "orders",
		"unique_id": "model.shop.orders",
		"config":    config,
	})
	require.NoError(t, err)
	return r
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Close())
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	for _, table := range []string{"invocations", "resource_configs", "config_history"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		if assert.NoError(t, err, "table %s", table) {
			_ = rows.Close()
		}
	}

	// running again is a no-op
	require.NoError(t, store.Migrate())
}

func TestSQLiteStore_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.Migrate())
	inv, err := store.BeginInvocation("shop")
	require.NoError(t, err)
	_, err = store.SaveConfig(inv.ID, model(t, map[string]any{"materialized": "table"}))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer reopened.Close()

	stored, err := reopened.GetConfig("model.shop.orders")
	require.NoError(t, err)
	assert.Equal(t, "table", stored.Config["materialized"])
}

func TestSQLiteStore_NotOpen(t *testing.T) {
	store := NewSQLiteStore(nil)

	_, err := store.BeginInvocation("shop")
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = store.GetConfig("x")
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = store.SaveConfig("inv", model(t, nil))
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = store.History("x")
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, store.Migrate(), ErrNotOpen)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	inv, err := store.BeginInvocation("shop")
	require.NoError(t, err)
	assert.Equal(t, "shop", inv.Project)
	assert.Len(t, inv.ID, 36)

	r := model(t, map[string]any{"materialized": "table", "tags": []any{"finance"}})
	changed, err := store.SaveConfig(inv.ID, r)
	require.NoError(t, err)
	assert.True(t, changed, "first save counts as changed")

	stored, err := store.GetConfig("model.shop.orders")
	require.NoError(t, err)
	assert.Equal(t, core.KindModel, stored.ResourceType)
	assert.Equal(t, "ModelConfig", stored.ConfigType)
	assert.Equal(t, inv.ID, stored.InvocationID)
	assert.Equal(t, "table", stored.Config["materialized"])
	assert.Equal(t, []any{"finance"}, stored.Config["tags"])
	assert.False(t, stored.UpdatedAt.IsZero())

	_, err = store.GetConfig("model.shop.missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ConfigChanged(t *testing.T) {
	store := setupTestStore(t)
	inv, err := store.BeginInvocation("shop")
	require.NoError(t, err)

	base := model(t, map[string]any{"materialized": "table", "tags": []any{"a"}})

	changed, err := store.ConfigChanged(base)
	require.NoError(t, err)
	assert.True(t, changed, "unknown resource has changed")

	_, err = store.SaveConfig(inv.ID, base)
	require.NoError(t, err)

	tests := []struct {
		name    string
		config  map[string]any
		changed bool
	}{
		{"identical", map[string]any{"materialized": "table", "tags": []any{"a"}}, false},
		{"compare-excluded tags differ", map[string]any{"materialized": "table", "tags": []any{"b"}}, false},
		{"compare-excluded schema differs", map[string]any{"materialized": "table", "tags": []any{"a"}, "schema": "other"}, false},
		{"materialization differs", map[string]any{"materialized": "view", "tags": []any{"a"}}, true},
		{"meta differs", map[string]any{"materialized": "table", "meta": map[string]any{"owner": "x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := store.ConfigChanged(model(t, tt.config))
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestSQLiteStore_History(t *testing.T) {
	store := setupTestStore(t)

	first, err := store.BeginInvocation("shop")
	require.NoError(t, err)
	_, err = store.SaveConfig(first.ID, model(t, map[string]any{"materialized": "table"}))
	require.NoError(t, err)

	second, err := store.BeginInvocation("shop")
	require.NoError(t, err)
	changed, err := store.SaveConfig(second.ID, model(t, map[string]any{"materialized": "table"}))
	require.NoError(t, err)
	assert.False(t, changed)

	third, err := store.BeginInvocation("shop")
	require.NoError(t, err)
	changed, err = store.SaveConfig(third.ID, model(t, map[string]any{"materialized": "incremental"}))
	require.NoError(t, err)
	assert.True(t, changed)

	history, err := store.History("model.shop.orders")
	require.NoError(t, err)
	require.Len(t, history, 3)

	var flags []bool
	for _, h := range history {
		flags = append(flags, h.Changed)
	}
	assert.ElementsMatch(t, []bool{true, false, true}, flags)
}

func TestSQLiteStore_SaveConfigErrors(t *testing.T) {
	store := setupTestStore(t)

	t.Run("unknown invocation", func(t *testing.T) {
		_, err := store.SaveConfig("no-such-invocation", model(t, nil))
		assert.Error(t, err)
	})

	t.Run("missing unique id", func(t *testing.T) {
		r, err := resource.FromRaw(core.KindModel, map[string]any{"name": "x"})
		require.NoError(t, err)
		_, err = store.SaveConfig("inv", r)
		assert.ErrorContains(t, err, "no unique_id")
	})

	t.Run("missing config", func(t *testing.T) {
		r := model(t, nil)
		r.Base().Config = nil

		_, err := store.SaveConfig("inv", r)
		assert.ErrorContains(t, err, "has no config")

		_, err = store.ConfigChanged(r)
		assert.ErrorContains(t, err, "has no config")
	})
}

func TestSQLiteStore_DatabaseErrors(t *testing.T) {
	newMock := func(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
		t.Helper()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		store := NewSQLiteStore(nil)
		store.OpenDB(db)
		return store, mock
	}
	boom := errors.New("disk I/O error")

	t.Run("begin invocation", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectExec("INSERT INTO invocations").WillReturnError(boom)

		_, err := store.BeginInvocation("shop")
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get config", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectQuery("SELECT resource_type").WillReturnError(boom)

		_, err := store.GetConfig("model.shop.orders")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("get config not found", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectQuery("SELECT resource_type").WillReturnError(sql.ErrNoRows)

		_, err := store.GetConfig("model.shop.orders")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save rolls back", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT compare_hash").WillReturnError(sql.ErrNoRows)
		mock.ExpectExec("INSERT INTO resource_configs").WillReturnError(boom)
		mock.ExpectRollback()

		_, err := store.SaveConfig("inv", model(t, nil))
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("save commits", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT compare_hash").WillReturnRows(sqlmock.NewRows([]string{"compare_hash"}).AddRow("old"))
		mock.ExpectExec("INSERT INTO resource_configs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO config_history").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		changed, err := store.SaveConfig("inv", model(t, nil))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCompareHash(t *testing.T) {
	a, err := CompareHash(nodeconfig.ModelConfigType.New())
	require.NoError(t, err)
	b, err := CompareHash(nodeconfig.NodeConfigType.New())
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b, "record type is part of the hash")
}
