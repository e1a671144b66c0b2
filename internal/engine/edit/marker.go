package edit

import (
	"fmt"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// AddMarkerCommand places a marker on the timeline.
type AddMarkerCommand struct {
	Marker timeline.Marker

	created store.ID
	done    bool
}

// NewAddMarker creates an add-marker command.
func NewAddMarker(mk timeline.Marker) *AddMarkerCommand {
	return &AddMarkerCommand{Marker: mk}
}

// Execute places the marker, reviving the original entity on redo.
func (c *AddMarkerCommand) Execute(m *timeline.Model) error {
	if c.created != store.InvalidID && m.Store().Exists(c.created) {
		return m.ReviveMarker(c.created, c.Marker)
	}
	c.created = m.AddMarker(c.Marker.Clone())
	c.done = true
	return nil
}

// Undo removes the marker.
func (c *AddMarkerCommand) Undo(m *timeline.Model) error {
	if c.created == store.InvalidID {
		return nil
	}
	return m.RemoveMarker(c.created)
}

// Description returns a human-readable description.
func (c *AddMarkerCommand) Description() string {
	return fmt.Sprintf("Add marker %q", c.Marker.Name)
}

// References reports the entities this command's closures hold.
func (c *AddMarkerCommand) References() []store.ID {
	return []store.ID{c.created}
}

// Created returns the marker's entity ID after Execute.
func (c *AddMarkerCommand) Created() store.ID {
	return c.created
}

// RemoveMarkerCommand deletes a marker.
type RemoveMarkerCommand struct {
	ID store.ID

	before timeline.Marker
	done   bool
}

// NewRemoveMarker creates a remove-marker command.
func NewRemoveMarker(id store.ID) *RemoveMarkerCommand {
	return &RemoveMarkerCommand{ID: id}
}

// Execute removes the marker.
func (c *RemoveMarkerCommand) Execute(m *timeline.Model) error {
	mk, ok := m.Marker(c.ID)
	if !ok {
		return fmt.Errorf("remove marker %d: %w", c.ID, store.ErrInvalidEntity)
	}
	c.before = mk.Clone()
	if err := m.RemoveMarker(c.ID); err != nil {
		return err
	}
	c.done = true
	return nil
}

// Undo revives the marker.
func (c *RemoveMarkerCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	return m.ReviveMarker(c.ID, c.before)
}

// Description returns a human-readable description.
func (c *RemoveMarkerCommand) Description() string {
	return fmt.Sprintf("Remove marker %q", c.before.Name)
}

// References reports the entities this command's closures hold.
func (c *RemoveMarkerCommand) References() []store.ID {
	return []store.ID{c.ID}
}

// SetMarkerCommand replaces a marker's attributes.
type SetMarkerCommand struct {
	ID     store.ID
	Marker timeline.Marker

	before timeline.Marker
	done   bool
}

// NewSetMarker creates a set-marker command.
func NewSetMarker(id store.ID, mk timeline.Marker) *SetMarkerCommand {
	return &SetMarkerCommand{ID: id, Marker: mk}
}

// Execute applies the new attributes.
func (c *SetMarkerCommand) Execute(m *timeline.Model) error {
	before, ok := m.Marker(c.ID)
	if !ok {
		return fmt.Errorf("set marker %d: %w", c.ID, store.ErrInvalidEntity)
	}
	if err := m.SetMarker(c.ID, c.Marker.Clone()); err != nil {
		return err
	}
	c.before = before.Clone()
	c.done = true
	return nil
}

// Undo restores the prior attributes.
func (c *SetMarkerCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	return m.SetMarker(c.ID, c.before)
}

// Description returns a human-readable description.
func (c *SetMarkerCommand) Description() string {
	return fmt.Sprintf("Edit marker %q", c.Marker.Name)
}

// References reports the entities this command's closures hold.
func (c *SetMarkerCommand) References() []store.ID {
	return []store.ID{c.ID}
}

// AddTransitionCommand creates a cross-blend between two clips.
type AddTransitionCommand struct {
	Transition timeline.Transition

	created store.ID
	done    bool
}

// NewAddTransition creates an add-transition command.
func NewAddTransition(tr timeline.Transition) *AddTransitionCommand {
	return &AddTransitionCommand{Transition: tr}
}

// Execute validates and creates the transition.
func (c *AddTransitionCommand) Execute(m *timeline.Model) error {
	if c.created != store.InvalidID && m.Store().Exists(c.created) {
		return m.ReviveTransition(c.created, c.Transition)
	}
	id, err := m.AddTransition(c.Transition.Clone())
	if err != nil {
		return err
	}
	c.created = id
	c.done = true
	return nil
}

// Undo removes the transition.
func (c *AddTransitionCommand) Undo(m *timeline.Model) error {
	if c.created == store.InvalidID {
		return nil
	}
	return m.RemoveTransition(c.created)
}

// Description returns a human-readable description.
func (c *AddTransitionCommand) Description() string {
	return fmt.Sprintf("Add %s transition", c.Transition.Kind)
}

// References reports the entities this command's closures hold.
func (c *AddTransitionCommand) References() []store.ID {
	return []store.ID{c.created, c.Transition.From, c.Transition.To}
}

// Created returns the transition's entity ID after Execute.
func (c *AddTransitionCommand) Created() store.ID {
	return c.created
}

// RemoveTransitionCommand deletes a transition.
type RemoveTransitionCommand struct {
	ID store.ID

	before timeline.Transition
	done   bool
}

// NewRemoveTransition creates a remove-transition command.
func NewRemoveTransition(id store.ID) *RemoveTransitionCommand {
	return &RemoveTransitionCommand{ID: id}
}

// Execute removes the transition.
func (c *RemoveTransitionCommand) Execute(m *timeline.Model) error {
	tr, ok := m.Transition(c.ID)
	if !ok {
		return fmt.Errorf("remove transition %d: %w", c.ID, store.ErrInvalidEntity)
	}
	c.before = tr.Clone()
	if err := m.RemoveTransition(c.ID); err != nil {
		return err
	}
	c.done = true
	return nil
}

// Undo revives the transition.
func (c *RemoveTransitionCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	return m.ReviveTransition(c.ID, c.before)
}

// Description returns a human-readable description.
func (c *RemoveTransitionCommand) Description() string {
	return fmt.Sprintf("Remove %s transition", c.before.Kind)
}

// References reports the entities this command's closures hold.
func (c *RemoveTransitionCommand) References() []store.ID {
	return []store.ID{c.ID}
}
