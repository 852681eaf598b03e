package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ai-grocery-checklist/internal/generator"
	"ai-grocery-checklist/internal/shopping"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu     sync.Mutex
	calls  []string
	list   shopping.List
	err    error
	block  chan struct{}
	called chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, rawText string) (generator.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawText)
	f.mu.Unlock()

	if f.called != nil {
		f.called <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return generator.Result{}, f.err
	}
	return generator.Result{List: f.list}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sampleList() shopping.List {
	return shopping.List{
		{Category: "Produce", Items: []string{"Lettuce", "Tomatoes"}},
		{Category: "Dairy & Eggs", Items: []string{"Milk"}},
	}
}

func newTestSession(gen ListGenerator) (*Session, *shopping.MemoryKV) {
	kv := shopping.NewMemoryKV()
	return NewSession(gen, shopping.NewRepository(kv, ""), nil, nil), kv
}

func TestSession_NewHasExampleInput(t *testing.T) {
	s, _ := newTestSession(&fakeGenerator{})
	v := s.Snapshot()
	assert.Equal(t, ExampleInput, v.Input)
	assert.True(t, v.IsEmpty())
	assert.False(t, v.Generating)
}

func TestSession_SnapshotDoesNotBlockGenerate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSession(&fakeGenerator{list: sampleList()})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					s.Snapshot()
				}
			}
		}()
	}

	rejected := 0
	for i := 0; i < 2000; i++ {
		if errors.Is(s.Generate(ctx, "milk"), ErrGenerationInProgress) {
			rejected++
		}
	}
	close(stop)
	wg.Wait()

	assert.Zero(t, rejected, "sequential generations must never be refused")
	assert.False(t, s.Snapshot().Generating)
}

func TestSession_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("BlankInputMakesNoRequest", func(t *testing.T) {
		gen := &fakeGenerator{list: sampleList()}
		s, _ := newTestSession(gen)

		err := s.Generate(ctx, "   \n\t")
		require.ErrorIs(t, err, ErrBlankInput)
		assert.Equal(t, "Please enter some text to generate a list.", Message(err))
		assert.Equal(t, 0, gen.callCount())
	})

	t.Run("ReplacesListAndResetsChecks", func(t *testing.T) {
		gen := &fakeGenerator{list: sampleList()}
		s, _ := newTestSession(gen)

		require.NoError(t, s.Generate(ctx, "tacos"))
		first := s.Snapshot().Categories[0].Items[0].ID
		checked, ok := s.ToggleItem(first)
		require.True(t, ok)
		require.True(t, checked)

		require.NoError(t, s.Generate(ctx, "tacos again"))
		v := s.Snapshot()
		assert.Empty(t, v.Checked)
		assert.Equal(t, "tacos again", v.Input)
		if diff := cmp.Diff(sampleList(), s.List().List); diff != "" {
			t.Errorf("List mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"tacos", "tacos again"}, gen.calls)
	})

	t.Run("FailureClearsListKeepsInput", func(t *testing.T) {
		gen := &fakeGenerator{list: sampleList()}
		s, _ := newTestSession(gen)
		require.NoError(t, s.Generate(ctx, "first"))

		gen.err = &generator.GenerationError{Err: generator.ErrEmptyResponse}
		err := s.Generate(ctx, "second")
		require.Error(t, err)
		assert.Equal(t, "Failed to generate grocery list: received an empty response from the AI", Message(err))

		v := s.Snapshot()
		assert.True(t, v.IsEmpty())
		assert.Equal(t, "second", v.Input)
	})

	t.Run("SecondConcurrentRequestFailsFast", func(t *testing.T) {
		gen := &fakeGenerator{list: sampleList(), block: make(chan struct{}), called: make(chan struct{}, 1)}
		s, _ := newTestSession(gen)

		done := make(chan error, 1)
		go func() { done <- s.Generate(ctx, "slow") }()
		<-gen.called

		assert.True(t, s.Snapshot().Generating)
		err := s.Generate(ctx, "impatient")
		require.ErrorIs(t, err, ErrGenerationInProgress)

		close(gen.block)
		require.NoError(t, <-done)
		assert.Equal(t, 1, gen.callCount())
		assert.False(t, s.Snapshot().Generating)
	})
}

func TestSession_SaveLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyListIsNotSaved", func(t *testing.T) {
		s, _ := newTestSession(&fakeGenerator{})
		saved, err := s.Save(ctx)
		require.NoError(t, err)
		assert.False(t, saved)
		assert.False(t, s.HasSaved(ctx))
	})

	t.Run("RoundTripRestoresListAndInput", func(t *testing.T) {
		s, _ := newTestSession(&fakeGenerator{list: sampleList()})
		require.NoError(t, s.Generate(ctx, "my notes"))

		cats := s.Snapshot().Categories
		require.True(t, s.RenameCategory(cats[0].ID, "Veggies"))
		_, _ = s.ToggleItem(cats[1].Items[0].ID)

		saved, err := s.Save(ctx)
		require.NoError(t, err)
		require.True(t, saved)
		require.True(t, s.HasSaved(ctx))

		s.Clear()
		s.SetInput("something else")
		require.NoError(t, s.Load(ctx))

		v := s.Snapshot()
		assert.Equal(t, "my notes", v.Input)
		assert.Empty(t, v.Checked)
		want := shopping.List{
			{Category: "Veggies", Items: []string{"Lettuce", "Tomatoes"}},
			{Category: "Dairy & Eggs", Items: []string{"Milk"}},
		}
		if diff := cmp.Diff(want, s.List().List); diff != "" {
			t.Errorf("Loaded list mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("CorruptedSaveIsRemoved", func(t *testing.T) {
		s, kv := newTestSession(&fakeGenerator{})
		require.NoError(t, kv.Put(ctx, shopping.DefaultSlotKey, []byte("{not json")))

		err := s.Load(ctx)
		require.ErrorIs(t, err, shopping.ErrCorrupted)
		assert.Equal(t, "Could not load the saved list. It might be corrupted.", Message(err))
		assert.False(t, s.HasSaved(ctx))
	})

	t.Run("LoadWithoutSave", func(t *testing.T) {
		s, _ := newTestSession(&fakeGenerator{})
		err := s.Load(ctx)
		require.ErrorIs(t, err, shopping.ErrNotFound)
		assert.Equal(t, ExampleInput, s.Snapshot().Input)
	})

	t.Run("ClearSavedRestoresExample", func(t *testing.T) {
		s, _ := newTestSession(&fakeGenerator{list: sampleList()})
		require.NoError(t, s.Generate(ctx, "my notes"))
		_, err := s.Save(ctx)
		require.NoError(t, err)

		require.NoError(t, s.ClearSaved(ctx))
		v := s.Snapshot()
		assert.True(t, v.IsEmpty())
		assert.Equal(t, ExampleInput, v.Input)
		assert.False(t, s.HasSaved(ctx))
	})

	t.Run("ClearKeepsSaveAndInput", func(t *testing.T) {
		s, _ := newTestSession(&fakeGenerator{list: sampleList()})
		require.NoError(t, s.Generate(ctx, "my notes"))
		_, err := s.Save(ctx)
		require.NoError(t, err)

		s.Clear()
		assert.True(t, s.Snapshot().IsEmpty())
		assert.Equal(t, "my notes", s.Snapshot().Input)
		assert.True(t, s.HasSaved(ctx))
	})
}

func TestSession_Edits(t *testing.T) {
	s, _ := newTestSession(&fakeGenerator{list: sampleList()})
	require.NoError(t, s.Generate(context.Background(), "notes"))

	cats := s.Snapshot().Categories
	milk := cats[1].Items[0].ID

	assert.True(t, s.EditItem(milk, "  Oat milk "))
	assert.False(t, s.EditItem(milk, "   "))
	assert.False(t, s.EditItem("missing", "x"))

	checked, ok := s.ToggleItem(milk)
	assert.True(t, ok)
	assert.True(t, checked)
	_, ok = s.ToggleItem("missing")
	assert.False(t, ok)

	assert.True(t, s.DeleteItem(milk))
	v := s.Snapshot()
	require.Len(t, v.Categories, 1)
	assert.Equal(t, "Produce", v.Categories[0].Label)
	assert.NotContains(t, v.Checked, milk)
	assert.False(t, s.DeleteItem(milk))
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"Nil", nil, ""},
		{"Blank", ErrBlankInput, "Please enter some text to generate a list."},
		{"InProgress", ErrGenerationInProgress, "A list is already being generated. Please wait for it to finish."},
		{"Generation", &generator.GenerationError{Err: errors.New("quota exceeded")}, "Failed to generate grocery list: quota exceeded"},
		{"Corrupted", errors.Join(shopping.ErrCorrupted, errors.New("eof")), "Could not load the saved list. It might be corrupted."},
		{"NotFound", shopping.ErrNotFound, "There is no saved list yet."},
		{"Other", errors.New("disk on fire"), "An unexpected error occurred."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}
