package history

import (
	"fmt"
	"time"

	"github.com/dshills/cutlist/internal/engine/edit"
	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// Command is an alias for edit.Command for convenience.
type Command = edit.Command

// Batch groups one or more commands as a single undo unit. A batch
// retains the entities its commands reference so tombstoned clips
// survive until every batch that could revive them is gone.
type Batch struct {
	Name      string
	Commands  []Command
	Timestamp time.Time

	refs []store.ID
}

// NewBatch creates a batch from already-executed commands.
func NewBatch(name string, commands ...Command) *Batch {
	return &Batch{
		Name:      name,
		Commands:  commands,
		Timestamp: time.Now(),
	}
}

// Add appends a command to the batch.
func (b *Batch) Add(cmd Command) {
	b.Commands = append(b.Commands, cmd)
}

// IsEmpty returns true if the batch has no commands.
func (b *Batch) IsEmpty() bool {
	return len(b.Commands) == 0
}

// Execute runs all commands in order. On error, commands already run
// are undone so the model is left untouched.
func (b *Batch) Execute(m *timeline.Model) error {
	for i, cmd := range b.Commands {
		if err := cmd.Execute(m); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = b.Commands[j].Undo(m)
			}
			return fmt.Errorf("batch '%s' step %d: %w", b.Name, i, err)
		}
	}
	return nil
}

// Undo reverses all commands in reverse order.
func (b *Batch) Undo(m *timeline.Model) error {
	for i := len(b.Commands) - 1; i >= 0; i-- {
		if err := b.Commands[i].Undo(m); err != nil {
			return fmt.Errorf("undo batch '%s' step %d: %w", b.Name, i, err)
		}
	}
	return nil
}

// Description returns the batch name, or a summary when unnamed.
func (b *Batch) Description() string {
	if b.Name != "" {
		return b.Name
	}
	if len(b.Commands) == 1 {
		return b.Commands[0].Description()
	}
	return fmt.Sprintf("%d operations", len(b.Commands))
}

// references collects the entity IDs the batch's commands hold,
// deduplicated, InvalidID dropped.
func (b *Batch) references() []store.ID {
	seen := make(map[store.ID]bool)
	var ids []store.ID
	for _, cmd := range b.Commands {
		ref, ok := cmd.(edit.Referencer)
		if !ok {
			continue
		}
		for _, id := range ref.References() {
			if id == store.InvalidID || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// retain pins the batch's referenced entities in the store.
func (b *Batch) retain(s *store.Store) {
	b.refs = b.references()
	for _, id := range b.refs {
		s.Retain(id)
	}
}

// release drops the batch's pins. Tombstoned entities with no other
// retainers are reclaimed.
func (b *Batch) release(s *store.Store) {
	for _, id := range b.refs {
		s.Release(id)
	}
	b.refs = nil
}

// BatchInfo provides read-only info about a batch.
// Used for displaying undo/redo history to users.
type BatchInfo struct {
	Description string
	Timestamp   time.Time
	Commands    int
}
