package checklist

// CheckState tracks which items are ticked off. It is keyed by item
// identifier and is never persisted with the list.
type CheckState map[string]bool

// Toggle flips the check mark of an item and returns the new value.
func (s CheckState) Toggle(itemID string) bool {
	s[itemID] = !s[itemID]
	if !s[itemID] {
		delete(s, itemID)
	}
	return s[itemID]
}

// IsChecked reports whether the item is ticked off.
func (s CheckState) IsChecked(itemID string) bool {
	return s[itemID]
}

// Reset unticks everything.
func (s CheckState) Reset() {
	for id := range s {
		delete(s, id)
	}
}

// Forget drops the mark of an item that no longer exists.
func (s CheckState) Forget(itemID string) {
	delete(s, itemID)
}
