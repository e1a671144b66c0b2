// Package edit implements the timeline edit operations as undoable
// commands.
//
// Every command follows the same discipline: validate all preconditions
// against the model, compute the complete new state, then apply it.
// Nothing mutates on a failed validation, so a returned error always
// leaves the model untouched. Execute records the before-state each
// command needs so Undo can restore it exactly.
package edit

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// Command is a single undoable edit against the timeline model.
type Command interface {
	// Execute performs the command. On error the model is unchanged.
	Execute(m *timeline.Model) error

	// Undo reverses a previously executed command.
	Undo(m *timeline.Model) error

	// Description returns a human-readable description for history UIs.
	Description() string
}

// Referencer is implemented by commands whose undo/redo closures hold
// entity references. History retains those entities until the batch is
// evicted, which defers their reclamation (tombstone rule).
type Referencer interface {
	References() []store.ID
}

// MediaDurations resolves a media identifier to its total duration,
// used to keep source ranges within media bounds during trims and
// slips. A nil MediaDurations (or an unknown ID) means unbounded media.
type MediaDurations interface {
	MediaDuration(id uuid.UUID) (timecode.TimePoint, bool)
}

// Compound groups multiple commands into one undo unit. On a failed
// step, already executed steps are rolled back in reverse order.
type Compound struct {
	Name     string
	Commands []Command
}

// NewCompound creates a compound command.
func NewCompound(name string, commands ...Command) *Compound {
	return &Compound{Name: name, Commands: commands}
}

// Add appends a command.
func (c *Compound) Add(cmd Command) {
	c.Commands = append(c.Commands, cmd)
}

// IsEmpty returns true if the compound holds no commands.
func (c *Compound) IsEmpty() bool {
	return len(c.Commands) == 0
}

// Execute runs all commands in order, rolling back on failure.
func (c *Compound) Execute(m *timeline.Model) error {
	for i, cmd := range c.Commands {
		if err := cmd.Execute(m); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c.Commands[j].Undo(m)
			}
			return fmt.Errorf("%s step %d: %w", c.Description(), i, err)
		}
	}
	return nil
}

// Undo reverses all commands in reverse order.
func (c *Compound) Undo(m *timeline.Model) error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].Undo(m); err != nil {
			return fmt.Errorf("undo %s step %d: %w", c.Description(), i, err)
		}
	}
	return nil
}

// Description returns the compound's name.
func (c *Compound) Description() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Commands) == 1 {
		return c.Commands[0].Description()
	}
	return fmt.Sprintf("%d operations", len(c.Commands))
}

// References collects references from all member commands.
func (c *Compound) References() []store.ID {
	var ids []store.ID
	for _, cmd := range c.Commands {
		if r, ok := cmd.(Referencer); ok {
			ids = append(ids, r.References()...)
		}
	}
	return ids
}

// clipState is a (clip ID, attribute snapshot) pair used for undo.
type clipState struct {
	id   store.ID
	clip timeline.Clip
}

// transitionState is a (transition ID, attribute snapshot) pair.
type transitionState struct {
	id store.ID
	tr timeline.Transition
}

// removedClip records everything needed to revive a removed clip: its
// attributes plus the transitions its removal invalidated.
type removedClip struct {
	id          store.ID
	clip        timeline.Clip
	transitions []transitionState
}

// captureTransitions snapshots the transitions anchoring a clip.
func captureTransitions(m *timeline.Model, clip store.ID) []transitionState {
	var out []transitionState
	for _, id := range m.TransitionsOn(clip) {
		if tr, ok := m.Transition(id); ok {
			out = append(out, transitionState{id: id, tr: tr.Clone()})
		}
	}
	return out
}

// removeClip removes a clip, recording what revival needs.
func removeClip(m *timeline.Model, id store.ID) (removedClip, error) {
	c, ok := m.Clip(id)
	if !ok {
		return removedClip{}, fmt.Errorf("clip %d: %w", id, store.ErrInvalidEntity)
	}
	rec := removedClip{id: id, clip: c.Clone(), transitions: captureTransitions(m, id)}
	if _, err := m.RemoveClip(id); err != nil {
		return removedClip{}, err
	}
	return rec, nil
}

// reviveClip restores a removed clip and its invalidated transitions.
func reviveClip(m *timeline.Model, rec removedClip) error {
	if err := m.ReviveClip(rec.id, rec.clip); err != nil {
		return err
	}
	for _, ts := range rec.transitions {
		if err := m.ReviveTransition(ts.id, ts.tr); err != nil {
			return err
		}
	}
	return nil
}

// checkUnlocked rejects edits to locked clips or clips on locked tracks.
func checkUnlocked(m *timeline.Model, id store.ID) error {
	c, ok := m.Clip(id)
	if !ok {
		return fmt.Errorf("clip %d: %w", id, store.ErrInvalidEntity)
	}
	if c.Locked {
		return fmt.Errorf("clip %d: %w", id, timeline.ErrLocked)
	}
	if t, ok := m.Track(c.Track); ok && t.Locked {
		return fmt.Errorf("track %d: %w", c.Track, timeline.ErrLocked)
	}
	return nil
}
