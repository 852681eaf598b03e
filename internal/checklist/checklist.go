// Package checklist holds the live, editable grocery checklist.
//
// Every category and item gets an opaque identifier when a list is loaded, so
// shells can target entries without relying on display text. The label and
// index based operations keep their text-matching contracts for callers that
// only know what is on screen.
package checklist

import (
	"strings"

	"ai-grocery-checklist/internal/shopping"

	"github.com/google/uuid"
)

// Item is a single entry as seen by a renderer.
type Item struct {
	ID   string
	Text string
}

// Category is a labeled group of items as seen by a renderer.
type Category struct {
	ID    string
	Label string
	Items []Item
}

type item struct {
	id   string
	text string
}

type category struct {
	id    string
	label string
	items []*item
}

// Checklist is the editable list plus the text it was generated from.
// It is not safe for concurrent use; callers serialize access.
type Checklist struct {
	input      string
	categories []*category
	newID      func() string
}

// New returns an empty checklist.
func New() *Checklist {
	return &Checklist{newID: uuid.NewString}
}

// SetInput replaces the working text.
func (c *Checklist) SetInput(text string) {
	c.input = text
}

// Input returns the working text.
func (c *Checklist) Input() string {
	return c.input
}

// ReplaceList swaps in a whole new list with fresh identifiers.
func (c *Checklist) ReplaceList(list shopping.List) {
	cats := make([]*category, 0, len(list))
	for _, lc := range list {
		cat := &category{id: c.newID(), label: lc.Category, items: make([]*item, 0, len(lc.Items))}
		for _, text := range lc.Items {
			cat.items = append(cat.items, &item{id: c.newID(), text: text})
		}
		cats = append(cats, cat)
	}
	c.categories = cats
}

// ClearWorking empties the list and keeps the input text.
func (c *Checklist) ClearWorking() {
	c.categories = nil
}

// List returns a deep copy of the list in its stored shape.
func (c *Checklist) List() shopping.List {
	out := make(shopping.List, 0, len(c.categories))
	for _, cat := range c.categories {
		items := make([]string, len(cat.items))
		for i, it := range cat.items {
			items[i] = it.text
		}
		out = append(out, shopping.Category{Category: cat.label, Items: items})
	}
	return out
}

// Categories returns a snapshot of the list with identifiers for rendering.
func (c *Checklist) Categories() []Category {
	out := make([]Category, 0, len(c.categories))
	for _, cat := range c.categories {
		items := make([]Item, len(cat.items))
		for i, it := range cat.items {
			items[i] = Item{ID: it.id, Text: it.text}
		}
		out = append(out, Category{ID: cat.id, Label: cat.label, Items: items})
	}
	return out
}

// Len returns the number of categories.
func (c *Checklist) Len() int {
	return len(c.categories)
}

// IsEmpty reports whether there is nothing to show.
func (c *Checklist) IsEmpty() bool {
	return len(c.categories) == 0
}

// RenameCategory relabels every category currently labeled oldLabel.
// A blank new label, or one equal to the old label, changes nothing.
func (c *Checklist) RenameCategory(oldLabel, newLabel string) bool {
	newLabel = strings.TrimSpace(newLabel)
	if newLabel == "" || newLabel == strings.TrimSpace(oldLabel) {
		return false
	}
	changed := false
	for _, cat := range c.categories {
		if cat.label == oldLabel {
			cat.label = newLabel
			changed = true
		}
	}
	return changed
}

// EditItem replaces the item at index in the first category labeled
// categoryLabel. Out of range indexes and blank or unchanged text are ignored.
func (c *Checklist) EditItem(categoryLabel string, index int, newText string) bool {
	cat := c.findByLabel(categoryLabel)
	if cat == nil || index < 0 || index >= len(cat.items) {
		return false
	}
	return setItemText(cat.items[index], newText)
}

// DeleteItem removes the item at index from the first category labeled
// categoryLabel, dropping the category if it ends up empty.
func (c *Checklist) DeleteItem(categoryLabel string, index int) bool {
	cat := c.findByLabel(categoryLabel)
	if cat == nil || index < 0 || index >= len(cat.items) {
		return false
	}
	c.removeItem(cat, index)
	return true
}

// RenameCategoryByID relabels the category with the given identifier.
func (c *Checklist) RenameCategoryByID(categoryID, newLabel string) bool {
	cat := c.findByID(categoryID)
	if cat == nil {
		return false
	}
	newLabel = strings.TrimSpace(newLabel)
	if newLabel == "" || newLabel == strings.TrimSpace(cat.label) {
		return false
	}
	cat.label = newLabel
	return true
}

// EditItemByID replaces the text of the item with the given identifier.
func (c *Checklist) EditItemByID(itemID, newText string) bool {
	_, idx, cat := c.findItem(itemID)
	if cat == nil {
		return false
	}
	return setItemText(cat.items[idx], newText)
}

// DeleteItemByID removes the item with the given identifier, dropping its
// category if it ends up empty.
func (c *Checklist) DeleteItemByID(itemID string) bool {
	_, idx, cat := c.findItem(itemID)
	if cat == nil {
		return false
	}
	c.removeItem(cat, idx)
	return true
}

// ItemText returns the text of the item with the given identifier.
func (c *Checklist) ItemText(itemID string) (string, bool) {
	it, _, _ := c.findItem(itemID)
	if it == nil {
		return "", false
	}
	return it.text, true
}

func setItemText(it *item, newText string) bool {
	newText = strings.TrimSpace(newText)
	if newText == "" || newText == strings.TrimSpace(it.text) {
		return false
	}
	it.text = newText
	return true
}

func (c *Checklist) removeItem(cat *category, index int) {
	cat.items = append(cat.items[:index:index], cat.items[index+1:]...)
	c.prune()
}

// prune keeps the only structural invariant: no category without items.
func (c *Checklist) prune() {
	kept := c.categories[:0]
	for _, cat := range c.categories {
		if len(cat.items) > 0 {
			kept = append(kept, cat)
		}
	}
	for i := len(kept); i < len(c.categories); i++ {
		c.categories[i] = nil
	}
	c.categories = kept
}

func (c *Checklist) findByLabel(label string) *category {
	for _, cat := range c.categories {
		if cat.label == label {
			return cat
		}
	}
	return nil
}

func (c *Checklist) findByID(id string) *category {
	for _, cat := range c.categories {
		if cat.id == id {
			return cat
		}
	}
	return nil
}

func (c *Checklist) findItem(id string) (*item, int, *category) {
	for _, cat := range c.categories {
		for i, it := range cat.items {
			if it.id == id {
				return it, i, cat
			}
		}
	}
	return nil, -1, nil
}
