package shopping

// Category is a named group of grocery items, e.g. "Produce".
// Labels are display text and are not guaranteed to be unique within a List.
type Category struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

// List is the full checklist in the order the generator returned it.
type List []Category

// SavedListData is the snapshot kept in the save slot: the checklist plus the
// text it was generated from.
type SavedListData struct {
	List      List   `json:"list"`
	UserInput string `json:"userInput"`
}

// ItemCount returns the number of items across all categories.
func (l List) ItemCount() int {
	n := 0
	for _, c := range l {
		n += len(c.Items)
	}
	return n
}
