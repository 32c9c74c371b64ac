package shopping

// Checklist tracks which shopping list entries the user has ticked off.
// It is pure UI-layer state: never persisted, and independent of the
// derived list itself, so recomputing the list leaves ticks in place.
type Checklist struct {
	checked map[string]struct{}
}

// NewChecklist returns an empty checklist.
func NewChecklist() *Checklist {
	return &Checklist{checked: make(map[string]struct{})}
}

// Toggle flips the checked state of an entry id and reports the new state.
func (c *Checklist) Toggle(id string) bool {
	if _, ok := c.checked[id]; ok {
		delete(c.checked, id)
		return false
	}
	c.checked[id] = struct{}{}
	return true
}

// Checked reports whether an entry id is ticked.
func (c *Checklist) Checked(id string) bool {
	_, ok := c.checked[id]
	return ok
}

// Reset clears all ticks.
func (c *Checklist) Reset() {
	c.checked = make(map[string]struct{})
}
