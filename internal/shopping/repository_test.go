package shopping

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleList() List {
	return List{
		{Category: "Produce", Items: []string{"Lettuce", "Tomato"}},
		{Category: "Dairy & Eggs", Items: []string{"Milk", "Eggs"}},
	}
}

func TestRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveThenLoad", func(t *testing.T) {
		repo := NewRepository(NewMemoryKV(), "")
		require.NoError(t, repo.Save(ctx, sampleList(), "tacos on tuesday"))

		saved, err := repo.Load(ctx)
		require.NoError(t, err)

		want := &SavedListData{List: sampleList(), UserInput: "tacos on tuesday"}
		if diff := cmp.Diff(want, saved); diff != "" {
			t.Errorf("loaded data mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		repo := NewRepository(NewMemoryKV(), "")
		require.NoError(t, repo.Save(ctx, sampleList(), "first"))
		require.NoError(t, repo.Save(ctx, List{{Category: "Bakery", Items: []string{"Bread"}}}, "second"))

		saved, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "second", saved.UserInput)
		assert.Len(t, saved.List, 1)
	})

	t.Run("LoadNotFound", func(t *testing.T) {
		repo := NewRepository(NewMemoryKV(), "")
		_, err := repo.Load(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("LoadCorruptedRemovesEntry", func(t *testing.T) {
		kv := NewMemoryKV()
		repo := NewRepository(kv, "")
		require.NoError(t, kv.Put(ctx, DefaultSlotKey, []byte("{not json")))

		_, err := repo.Load(ctx)
		assert.ErrorIs(t, err, ErrCorrupted)

		exists, err := repo.Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists, "corrupted entry should be removed")

		// A corrupt save must not block the next one.
		require.NoError(t, repo.Save(ctx, sampleList(), "again"))
		_, err = repo.Load(ctx)
		assert.NoError(t, err)
	})

	t.Run("LoadWrongShapeIsCorrupted", func(t *testing.T) {
		for name, doc := range map[string]string{
			"BareArray":     `[{"category":"Produce","items":["Kale"]}]`,
			"MissingInput":  `{"list":[]}`,
			"ItemsNotArray": `{"list":[{"category":"Produce","items":"Kale"}],"userInput":""}`,
			"NullItems":     `{"list":[{"category":"Produce"}],"userInput":""}`,
		} {
			t.Run(name, func(t *testing.T) {
				kv := NewMemoryKV()
				repo := NewRepository(kv, "slot")
				require.NoError(t, kv.Put(ctx, "slot", []byte(doc)))

				_, err := repo.Load(ctx)
				assert.ErrorIs(t, err, ErrCorrupted)
				has, _ := kv.Has(ctx, "slot")
				assert.False(t, has)
			})
		}
	})

	t.Run("ClearIsIdempotent", func(t *testing.T) {
		repo := NewRepository(NewMemoryKV(), "")
		require.NoError(t, repo.Clear(ctx))
		require.NoError(t, repo.Save(ctx, sampleList(), "x"))
		require.NoError(t, repo.Clear(ctx))
		require.NoError(t, repo.Clear(ctx))

		_, err := repo.Load(ctx)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("SavedJSONShape", func(t *testing.T) {
		kv := NewMemoryKV()
		repo := NewRepository(kv, "")
		require.NoError(t, repo.Save(ctx, List{{Category: "Bakery", Items: []string{"Bread"}}}, "bread"))

		data, err := kv.Get(ctx, DefaultSlotKey)
		require.NoError(t, err)
		assert.JSONEq(t, `{"list":[{"category":"Bakery","items":["Bread"]}],"userInput":"bread"}`, string(data))
	})
}

func TestListHelpers(t *testing.T) {
	t.Run("ItemCount", func(t *testing.T) {
		assert.Equal(t, 4, sampleList().ItemCount())
	})
}
