package shopping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// DefaultSlotKey is the key the single save slot lives under.
const DefaultSlotKey = "intelligentGroceryList"

var (
	// ErrNotFound is returned when the save slot is empty.
	ErrNotFound = errors.New("no saved list found")
	// ErrCorrupted is returned when the save slot holds data that does not
	// decode as SavedListData. The entry is removed before it is returned.
	ErrCorrupted = errors.New("saved list is corrupted")
)

// KV is the storage medium behind the save slot. Get must return ErrNotFound
// (possibly wrapped) for a missing key and Delete must succeed for one.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
}

// Repository is the save slot for one checklist. It only ever holds a
// serialized copy of the list, never a live reference.
type Repository struct {
	kv  KV
	key string
}

// NewRepository binds a save slot to key in kv. An empty key selects DefaultSlotKey.
func NewRepository(kv KV, key string) *Repository {
	if key == "" {
		key = DefaultSlotKey
	}
	return &Repository{kv: kv, key: key}
}

// Key returns the storage key of the slot.
func (r *Repository) Key() string {
	return r.key
}

// Save overwrites the slot with the list and the input text that produced it.
func (r *Repository) Save(ctx context.Context, list List, userInput string) error {
	if list == nil {
		list = List{}
	}
	data, err := json.Marshal(SavedListData{List: list, UserInput: userInput})
	if err != nil {
		return fmt.Errorf("failed to marshal saved list: %w", err)
	}
	if err := r.kv.Put(ctx, r.key, data); err != nil {
		return fmt.Errorf("failed to write saved list: %w", err)
	}
	return nil
}

// Load reads the slot. A corrupted entry is deleted so later saves and loads
// are not blocked by it.
func (r *Repository) Load(ctx context.Context) (*SavedListData, error) {
	data, err := r.kv.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read saved list: %w", err)
	}

	saved, decodeErr := decodeSaved(data)
	if decodeErr != nil {
		if err := r.kv.Delete(ctx, r.key); err != nil {
			return nil, fmt.Errorf("%w (and failed to remove it: %v)", ErrCorrupted, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, decodeErr)
	}
	return saved, nil
}

// Clear removes the slot. Clearing an empty slot is not an error.
func (r *Repository) Clear(ctx context.Context) error {
	if err := r.kv.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("failed to clear saved list: %w", err)
	}
	return nil
}

// Exists reports whether something is stored in the slot without decoding it.
func (r *Repository) Exists(ctx context.Context) (bool, error) {
	ok, err := r.kv.Has(ctx, r.key)
	if err != nil {
		return false, fmt.Errorf("failed to check saved list: %w", err)
	}
	return ok, nil
}

// decodeSaved rejects documents that are valid JSON but not the saved shape,
// such as a bare array or an object whose list is missing.
func decodeSaved(data []byte) (*SavedListData, error) {
	var raw struct {
		List      *List   `json:"list"`
		UserInput *string `json:"userInput"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.List == nil || raw.UserInput == nil {
		return nil, errors.New("missing list or userInput")
	}
	for i, c := range *raw.List {
		if c.Items == nil {
			return nil, fmt.Errorf("category %d has no items array", i)
		}
	}
	return &SavedListData{List: *raw.List, UserInput: *raw.UserInput}, nil
}

// MemoryKV is an in-process KV. It backs the "memory" storage backend and tests.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Has(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}
