package selection

import (
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// Change captures a selection transition so it can ride along in an
// undo batch. Execute and Undo restore the after and before states; a
// Change built from snapshots taken around an already-applied mutation
// is a no-op on first Execute.
type Change struct {
	set    *Set
	before State
	after  State
	name   string
}

// NewChange builds a change for the given set from two snapshots.
func NewChange(set *Set, name string, before, after State) *Change {
	return &Change{set: set, before: before, after: after, name: name}
}

// Execute restores the after state.
func (c *Change) Execute(m *timeline.Model) error {
	c.set.Restore(c.after)
	c.set.Prune(m)
	return nil
}

// Undo restores the before state.
func (c *Change) Undo(m *timeline.Model) error {
	c.set.Restore(c.before)
	c.set.Prune(m)
	return nil
}

// Description returns a human-readable description.
func (c *Change) Description() string {
	return c.name
}

// Coalesce folds a later change into this one when both act on the same
// set. Rapid selection adjustments then collapse to a single undo step.
func (c *Change) Coalesce(next *Change) bool {
	if next.set != c.set {
		return false
	}
	c.after = next.after
	c.name = next.name
	return true
}
