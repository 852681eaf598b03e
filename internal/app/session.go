package app

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"ai-grocery-checklist/internal/checklist"
	"ai-grocery-checklist/internal/generator"
	"ai-grocery-checklist/internal/metrics"
	"ai-grocery-checklist/internal/shopping"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ExampleInput pre-fills the input of a fresh session.
const ExampleInput = "Next week's meals:\n" +
	"- Monday: Spaghetti bolognese with garlic bread and a side salad.\n" +
	"- Tuesday: Tacos with ground beef, lettuce, tomato, cheese, and salsa.\n" +
	"- Wednesday: Chicken stir-fry with bell peppers, broccoli, and rice.\n" +
	"Also need to pick up some milk, eggs, coffee, and paper towels."

// ListGenerator produces a grocery list from free-form notes.
type ListGenerator interface {
	Generate(ctx context.Context, rawText string) (generator.Result, error)
}

// Session is one user's working checklist, its check marks and its save
// slot. All methods are safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	list   *checklist.Checklist
	checks checklist.CheckState

	slot     *shopping.Repository
	gen      ListGenerator
	inflight *semaphore.Weighted
	// generating is set while the inflight slot is held. Readers check it
	// instead of probing the semaphore.
	generating atomic.Bool
	recorder *metrics.Recorder
	logger   *zap.Logger
}

// NewSession creates a session with the example input and an empty list.
// recorder and logger may be nil.
func NewSession(gen ListGenerator, slot *shopping.Repository, recorder *metrics.Recorder, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	list := checklist.New()
	list.SetInput(ExampleInput)
	return &Session{
		list:     list,
		checks:   make(checklist.CheckState),
		slot:     slot,
		gen:      gen,
		inflight: semaphore.NewWeighted(1),
		recorder: recorder,
		logger:   logger.With(zap.String("slot", slot.Key())),
	}
}

// View is a consistent snapshot of a session for rendering.
type View struct {
	Input      string
	Categories []checklist.Category
	Checked    map[string]bool
	Generating bool
}

// IsEmpty reports whether the snapshot has no categories.
func (v View) IsEmpty() bool {
	return len(v.Categories) == 0
}

// Snapshot returns the current state.
func (s *Session) Snapshot() View {
	generating := s.generating.Load()

	s.mu.Lock()
	defer s.mu.Unlock()
	checked := make(map[string]bool, len(s.checks))
	for id, v := range s.checks {
		checked[id] = v
	}
	return View{
		Input:      s.list.Input(),
		Categories: s.list.Categories(),
		Checked:    checked,
		Generating: generating,
	}
}

// List returns a copy of the working list in its stored shape.
func (s *Session) List() shopping.SavedListData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return shopping.SavedListData{List: s.list.List(), UserInput: s.list.Input()}
}

// SetInput replaces the input text without generating.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.SetInput(text)
}

// Generate stores rawText as the input and replaces the list with a freshly
// generated one. Blank input is rejected without contacting the model. The
// working list is cleared before the request, so a failure leaves it empty
// with the input kept. Only one generation per session runs at a time.
func (s *Session) Generate(ctx context.Context, rawText string) error {
	s.SetInput(rawText)
	if strings.TrimSpace(rawText) == "" {
		return ErrBlankInput
	}

	if !s.inflight.TryAcquire(1) {
		return ErrGenerationInProgress
	}
	s.generating.Store(true)
	defer func() {
		s.generating.Store(false)
		s.inflight.Release(1)
	}()

	s.mu.Lock()
	s.list.ClearWorking()
	s.checks.Reset()
	s.mu.Unlock()

	res, err := s.gen.Generate(ctx, rawText)
	s.recorder.ObserveGeneration(ctx, res.Meta, err)
	if err != nil {
		s.logger.Warn("list generation failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.ReplaceList(res.List)
	s.checks.Reset()
	s.logger.Info("list generated",
		zap.Int("categories", s.list.Len()),
		zap.Int("items", res.List.ItemCount()),
		zap.Duration("latency", res.Meta.Latency),
		zap.Int("prompt_tokens", res.Meta.Usage.PromptTokens))
	return nil
}

// Save writes the list and its input to the save slot. An empty list is not
// saved and Save reports false.
func (s *Session) Save(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.list.IsEmpty() {
		s.mu.Unlock()
		return false, nil
	}
	list, input := s.list.List(), s.list.Input()
	s.mu.Unlock()

	err := s.slot.Save(ctx, list, input)
	s.recorder.ObserveSlot("save", err)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Load replaces the list and input with the saved copy. A corrupted save is
// discarded by the slot and reported as shopping.ErrCorrupted.
func (s *Session) Load(ctx context.Context) error {
	saved, err := s.slot.Load(ctx)
	s.recorder.ObserveSlot("load", err)
	if err != nil {
		if !isNotFound(err) {
			s.logger.Warn("failed to load saved list", zap.Error(err))
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.ReplaceList(saved.List)
	s.list.SetInput(saved.UserInput)
	s.checks.Reset()
	return nil
}

// HasSaved reports whether the save slot holds anything. Backend errors are
// logged and reported as false.
func (s *Session) HasSaved(ctx context.Context) bool {
	ok, err := s.slot.Exists(ctx)
	if err != nil {
		s.logger.Warn("failed to check save slot", zap.Error(err))
		return false
	}
	return ok
}

// Clear empties the working list and keeps the input and the save slot.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.ClearWorking()
	s.checks.Reset()
}

// ClearSaved deletes the save slot, empties the working list and restores
// the example input.
func (s *Session) ClearSaved(ctx context.Context) error {
	err := s.slot.Clear(ctx)
	s.recorder.ObserveSlot("clear", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.ClearWorking()
	s.list.SetInput(ExampleInput)
	s.checks.Reset()
	return nil
}

// RenameCategory relabels a category by identifier.
func (s *Session) RenameCategory(categoryID, label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.RenameCategoryByID(categoryID, label)
}

// EditItem replaces an item's text by identifier.
func (s *Session) EditItem(itemID, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.EditItemByID(itemID, text)
}

// DeleteItem removes an item by identifier, along with its check mark.
func (s *Session) DeleteItem(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.list.DeleteItemByID(itemID) {
		return false
	}
	s.checks.Forget(itemID)
	return true
}

// ToggleItem flips the check mark of an existing item. ok is false when the
// item does not exist.
func (s *Session) ToggleItem(itemID string) (checked, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.list.ItemText(itemID); !exists {
		return false, false
	}
	return s.checks.Toggle(itemID), true
}
