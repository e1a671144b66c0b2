package edit

import (
	"fmt"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// CreateTrackCommand adds a track to the timeline.
type CreateTrackCommand struct {
	Name  string
	Type  timeline.TrackType
	Index int

	created store.ID
	track   timeline.Track
	done    bool
}

// NewCreateTrack creates a create-track command.
func NewCreateTrack(name string, typ timeline.TrackType, index int) *CreateTrackCommand {
	return &CreateTrackCommand{Name: name, Type: typ, Index: index}
}

// Execute adds the track, reviving the original entity on redo.
func (c *CreateTrackCommand) Execute(m *timeline.Model) error {
	if c.created != store.InvalidID && m.Store().Exists(c.created) {
		return m.ReviveTrack(c.created, c.track)
	}
	c.created = m.CreateTrack(c.Name, c.Type, c.Index)
	t, _ := m.Track(c.created)
	c.track = t
	c.done = true
	return nil
}

// Undo removes the created track.
func (c *CreateTrackCommand) Undo(m *timeline.Model) error {
	if c.created == store.InvalidID {
		return nil
	}
	t, _ := m.Track(c.created)
	c.track = t
	_, _, err := m.RemoveTrack(c.created)
	return err
}

// Description returns a human-readable description.
func (c *CreateTrackCommand) Description() string {
	return fmt.Sprintf("Create %s track %q", c.Type, c.Name)
}

// References reports the entities this command's closures hold.
func (c *CreateTrackCommand) References() []store.ID {
	return []store.ID{c.created}
}

// Created returns the new track's entity ID after Execute.
func (c *CreateTrackCommand) Created() store.ID {
	return c.created
}

// RemoveTrackCommand removes a track, cascading to its clips and
// invalidating transitions touching them.
type RemoveTrackCommand struct {
	ID store.ID

	track       timeline.Track
	clips       []clipState
	transitions []transitionState
	done        bool
}

// NewRemoveTrack creates a remove-track command.
func NewRemoveTrack(id store.ID) *RemoveTrackCommand {
	return &RemoveTrackCommand{ID: id}
}

// Execute snapshots and removes the track.
func (c *RemoveTrackCommand) Execute(m *timeline.Model) error {
	t, ok := m.Track(c.ID)
	if !ok {
		return fmt.Errorf("remove track %d: %w", c.ID, store.ErrInvalidEntity)
	}
	if t.Locked {
		return fmt.Errorf("remove track %d: %w", c.ID, timeline.ErrLocked)
	}
	c.track = t

	c.clips = nil
	c.transitions = nil
	for _, clipID := range m.ClipsOnTrack(c.ID) {
		clip, _ := m.Clip(clipID)
		c.clips = append(c.clips, clipState{id: clipID, clip: clip.Clone()})
		for _, ts := range captureTransitions(m, clipID) {
			c.transitions = append(c.transitions, ts)
		}
	}
	c.transitions = dedupeTransitions(c.transitions)

	if _, _, err := m.RemoveTrack(c.ID); err != nil {
		return err
	}
	c.done = true
	return nil
}

// Undo revives the track, its clips, and their transitions.
func (c *RemoveTrackCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	if err := m.ReviveTrack(c.ID, c.track); err != nil {
		return err
	}
	for _, cs := range c.clips {
		if err := m.ReviveClip(cs.id, cs.clip); err != nil {
			return err
		}
	}
	for _, ts := range c.transitions {
		if err := m.ReviveTransition(ts.id, ts.tr); err != nil {
			return err
		}
	}
	c.done = false
	return nil
}

// Description returns a human-readable description.
func (c *RemoveTrackCommand) Description() string {
	return fmt.Sprintf("Remove track %q", c.track.Name)
}

// References reports the entities this command's closures hold.
func (c *RemoveTrackCommand) References() []store.ID {
	ids := []store.ID{c.ID}
	for _, cs := range c.clips {
		ids = append(ids, cs.id)
	}
	for _, ts := range c.transitions {
		ids = append(ids, ts.id)
	}
	return ids
}

// SetTrackCommand replaces a track's attributes (name, flags, index,
// parent, display hints).
type SetTrackCommand struct {
	ID    store.ID
	Track timeline.Track

	before timeline.Track
	done   bool
}

// NewSetTrack creates a set-track command.
func NewSetTrack(id store.ID, t timeline.Track) *SetTrackCommand {
	return &SetTrackCommand{ID: id, Track: t}
}

// Execute applies the new attributes.
func (c *SetTrackCommand) Execute(m *timeline.Model) error {
	before, ok := m.Track(c.ID)
	if !ok {
		return fmt.Errorf("set track %d: %w", c.ID, store.ErrInvalidEntity)
	}
	if err := m.SetTrack(c.ID, c.Track); err != nil {
		return err
	}
	c.before = before
	c.done = true
	return nil
}

// Undo restores the prior attributes.
func (c *SetTrackCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	return m.SetTrack(c.ID, c.before)
}

// Description returns a human-readable description.
func (c *SetTrackCommand) Description() string {
	return fmt.Sprintf("Edit track %q", c.Track.Name)
}

// References reports the entities this command's closures hold.
func (c *SetTrackCommand) References() []store.ID {
	return []store.ID{c.ID}
}

func dedupeTransitions(in []transitionState) []transitionState {
	seen := make(map[store.ID]bool, len(in))
	out := in[:0]
	for _, ts := range in {
		if !seen[ts.id] {
			seen[ts.id] = true
			out = append(out, ts)
		}
	}
	return out
}
