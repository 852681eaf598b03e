package database

import (
	"context"
	"path/filepath"
	"testing"

	"ai-grocery-checklist/internal/shopping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "grocery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grocery.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"saved_lists", "execution_metrics"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestSavedListKV(t *testing.T) {
	ctx := context.Background()
	kv := NewSavedListKV(newTestDB(t).SQL)

	_, err := kv.Get(ctx, "slot")
	assert.ErrorIs(t, err, shopping.ErrNotFound)

	has, err := kv.Has(ctx, "slot")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, kv.Put(ctx, "slot", []byte(`{"a":1}`)))
	require.NoError(t, kv.Put(ctx, "slot", []byte(`{"a":2}`)))

	data, err := kv.Get(ctx, "slot")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(data))

	has, err = kv.Has(ctx, "slot")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, kv.Delete(ctx, "slot"))
	require.NoError(t, kv.Delete(ctx, "slot"))
	has, _ = kv.Has(ctx, "slot")
	assert.False(t, has)
}

func TestSavedListKV_WithRepository(t *testing.T) {
	ctx := context.Background()
	kv := NewSavedListKV(newTestDB(t).SQL)
	repo := shopping.NewRepository(kv, "")

	list := shopping.List{{Category: "Pantry", Items: []string{"Rice", "Salsa"}}}
	require.NoError(t, repo.Save(ctx, list, "stir-fry with rice"))

	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, saved.List)
	assert.Equal(t, "stir-fry with rice", saved.UserInput)

	require.NoError(t, kv.Put(ctx, shopping.DefaultSlotKey, []byte("garbage")))
	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, shopping.ErrCorrupted)
	exists, err := repo.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}
