package history

import (
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// BatchScope provides a convenient way to batch commands using defer.
// Usage:
//
//	func doComplexEdit(h *History, m *timeline.Model) {
//	    defer h.BatchScope("Complex Edit").End(m)
//	    // ... multiple edits ...
//	}
type BatchScope struct {
	history *History
	active  bool
}

// BatchScope starts a new batch scope.
// Call End() or use with defer to properly close the batch.
func (h *History) BatchScope(name string) *BatchScope {
	h.BeginBatch(name)
	return &BatchScope{
		history: h,
		active:  true,
	}
}

// End ends the batch scope.
// Safe to call multiple times; only the first call has effect.
func (s *BatchScope) End(m *timeline.Model) {
	if s.active {
		s.history.EndBatch(m)
		s.active = false
	}
}

// Cancel abandons the batch scope, undoing its commands.
func (s *BatchScope) Cancel(m *timeline.Model) error {
	if !s.active {
		return nil
	}
	s.active = false
	return s.history.CancelBatch(m)
}

// Transaction executes a function within a batched undo context.
// If the function returns an error, the batch is cancelled and its
// commands undone, leaving the model as it was.
func (h *History) Transaction(name string, m *timeline.Model, fn func() error) error {
	h.BeginBatch(name)

	if err := fn(); err != nil {
		if cerr := h.CancelBatch(m); cerr != nil {
			return cerr
		}
		return err
	}

	h.EndBatch(m)
	return nil
}

// ExecuteBatched executes multiple commands as a single undo unit.
// A failing command rolls back the ones before it.
func (h *History) ExecuteBatched(name string, m *timeline.Model, cmds ...Command) error {
	if len(cmds) == 0 {
		return nil
	}

	if len(cmds) == 1 {
		// Single command doesn't need batching
		return h.Execute(cmds[0], m)
	}

	return h.Transaction(name, m, func() error {
		for _, cmd := range cmds {
			if err := h.Execute(cmd, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// Checkpoint represents a point in history that can be returned to.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint creates a checkpoint at the current history position.
func (h *History) CreateCheckpoint() Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Checkpoint{undoDepth: len(h.undoStack)}
}

// UndoToCheckpoint undoes all batches since the checkpoint.
func (h *History) UndoToCheckpoint(cp Checkpoint, m *timeline.Model) error {
	for h.UndoCount() > cp.undoDepth {
		ok, err := h.Undo(m)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return nil
}

// RedoToCheckpoint redoes batches up to the checkpoint depth.
// Note: This only works if the redo stack has the batches.
func (h *History) RedoToCheckpoint(cp Checkpoint, m *timeline.Model) error {
	for h.UndoCount() < cp.undoDepth && h.CanRedo() {
		ok, err := h.Redo(m)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return nil
}
