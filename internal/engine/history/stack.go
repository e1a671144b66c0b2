package history

import (
	"sync"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// History manages undo/redo state for a timeline.
type History struct {
	mu sync.Mutex

	undoStack []*Batch
	redoStack []*Batch

	// Batching state
	batching  bool
	batchName string
	batchCmds []Command

	// Configuration
	maxBatches int
}

// NewHistory creates a new history manager.
func NewHistory(maxBatches int) *History {
	if maxBatches <= 0 {
		maxBatches = 1000 // Default
	}
	return &History{
		maxBatches: maxBatches,
	}
}

// Execute runs a command and adds it to the undo stack.
func (h *History) Execute(cmd Command, m *timeline.Model) error {
	if err := cmd.Execute(m); err != nil {
		return err
	}
	h.Push(cmd, m)
	return nil
}

// Push adds an already-executed command to the undo stack.
// Clears the redo stack.
func (h *History) Push(cmd Command, m *timeline.Model) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.batching {
		h.batchCmds = append(h.batchCmds, cmd)
		return
	}

	h.pushLocked(NewBatch("", cmd), m.Store())
}

// pushLocked adds a batch without acquiring the lock. The batch pins
// its referenced entities; batches dropped from either stack unpin
// theirs.
func (h *History) pushLocked(b *Batch, s *store.Store) {
	b.retain(s)
	h.undoStack = append(h.undoStack, b)

	// A new edit invalidates the redo branch.
	for _, rb := range h.redoStack {
		rb.release(s)
	}
	h.redoStack = nil

	// Enforce max batches, oldest first.
	if len(h.undoStack) > h.maxBatches {
		excess := len(h.undoStack) - h.maxBatches
		for _, eb := range h.undoStack[:excess] {
			eb.release(s)
		}
		h.undoStack = append([]*Batch(nil), h.undoStack[excess:]...)
	}
}

// Undo undoes the most recent batch. Returns false, with the model
// untouched, when there is nothing to undo.
// The lock is released during command execution to avoid holding it
// during long-running edits.
func (h *History) Undo(m *timeline.Model) (bool, error) {
	h.mu.Lock()
	if len(h.undoStack) == 0 {
		h.mu.Unlock()
		return false, nil
	}

	b := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.mu.Unlock()

	if err := b.Undo(m); err != nil {
		// Restore the batch on failure
		h.mu.Lock()
		h.undoStack = append(h.undoStack, b)
		h.mu.Unlock()
		return false, err
	}

	h.mu.Lock()
	h.redoStack = append(h.redoStack, b)
	h.mu.Unlock()
	return true, nil
}

// Redo re-applies the most recently undone batch. Returns false, with
// the model untouched, when there is nothing to redo.
func (h *History) Redo(m *timeline.Model) (bool, error) {
	h.mu.Lock()
	if len(h.redoStack) == 0 {
		h.mu.Unlock()
		return false, nil
	}

	b := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.mu.Unlock()

	if err := b.Execute(m); err != nil {
		h.mu.Lock()
		h.redoStack = append(h.redoStack, b)
		h.mu.Unlock()
		return false, err
	}

	h.mu.Lock()
	h.undoStack = append(h.undoStack, b)
	h.mu.Unlock()
	return true, nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo batches available.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo batches available.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// BeginBatch starts a command batch.
// Commands pushed while batching will be combined into a single undo
// unit. Nested calls are ignored.
func (h *History) BeginBatch(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.batching {
		return
	}

	h.batching = true
	h.batchName = name
	h.batchCmds = nil
}

// EndBatch finishes a command batch.
// All commands since BeginBatch become one undo unit. An empty batch
// leaves the history untouched.
func (h *History) EndBatch(m *timeline.Model) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.batching {
		return
	}

	h.batching = false

	if len(h.batchCmds) == 0 {
		h.batchCmds = nil
		return
	}

	h.pushLocked(NewBatch(h.batchName, h.batchCmds...), m.Store())
	h.batchCmds = nil
}

// CancelBatch abandons the open batch and undoes its commands in
// reverse order, as if the batch never ran.
func (h *History) CancelBatch(m *timeline.Model) error {
	h.mu.Lock()
	if !h.batching {
		h.mu.Unlock()
		return nil
	}
	cmds := h.batchCmds
	h.batching = false
	h.batchCmds = nil
	h.mu.Unlock()

	for i := len(cmds) - 1; i >= 0; i-- {
		if err := cmds[i].Undo(m); err != nil {
			return err
		}
	}
	return nil
}

// IsBatching returns true if currently in a command batch.
func (h *History) IsBatching() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.batching
}

// Coalesce offers the top of the undo stack to merge. Returns false
// when the top cannot absorb the change; the caller should Push
// normally. Used for rapid selection adjustments.
func (h *History) Coalesce(merge func(top Command) bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.batching || len(h.undoStack) == 0 || len(h.redoStack) > 0 {
		return false
	}
	top := h.undoStack[len(h.undoStack)-1]
	if len(top.Commands) != 1 {
		return false
	}
	return merge(top.Commands[0])
}

// Clear removes all undo/redo history and reclaims entities that were
// only kept alive for it.
func (h *History) Clear(m *timeline.Model) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := m.Store()
	for _, b := range h.undoStack {
		b.release(s)
	}
	for _, b := range h.redoStack {
		b.release(s)
	}
	h.undoStack = nil
	h.redoStack = nil
	h.batching = false
	h.batchCmds = nil
	s.ReclaimOrphans()
}

// UndoInfo returns info about available undo batches, oldest first.
func (h *History) UndoInfo() []BatchInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return batchInfos(h.undoStack)
}

// RedoInfo returns info about available redo batches.
func (h *History) RedoInfo() []BatchInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return batchInfos(h.redoStack)
}

func batchInfos(batches []*Batch) []BatchInfo {
	result := make([]BatchInfo, len(batches))
	for i, b := range batches {
		result[i] = BatchInfo{
			Description: b.Description(),
			Timestamp:   b.Timestamp,
			Commands:    len(b.Commands),
		}
	}
	return result
}
