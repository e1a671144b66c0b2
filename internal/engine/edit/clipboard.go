package edit

import (
	"fmt"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// ClipboardItem is one copied clip: a value snapshot plus the track
// type it came from, used to find a compatible target on paste.
type ClipboardItem struct {
	Clip      timeline.Clip
	TrackType timeline.TrackType
}

// Clipboard holds value snapshots of copied clips relative to a
// reference origin (the earliest copied start time). It references no
// live entities, so copied content survives any later edit.
type Clipboard struct {
	items  []ClipboardItem
	origin timecode.TimePoint
}

// Copy snapshots the given clips. Unknown IDs are skipped; copying
// nothing clears the clipboard.
func (cb *Clipboard) Copy(m *timeline.Model, ids []store.ID) {
	cb.items = nil
	cb.origin = 0

	first := true
	for _, id := range ids {
		c, ok := m.Clip(id)
		if !ok {
			continue
		}
		t, ok := m.Track(c.Track)
		if !ok {
			continue
		}
		cb.items = append(cb.items, ClipboardItem{Clip: c.Clone(), TrackType: t.Type})
		if first || c.Timeline.Start < cb.origin {
			cb.origin = c.Timeline.Start
			first = false
		}
	}
}

// IsEmpty returns true if nothing is copied.
func (cb *Clipboard) IsEmpty() bool {
	return len(cb.items) == 0
}

// Len returns the number of copied clips.
func (cb *Clipboard) Len() int {
	return len(cb.items)
}

// Items returns a copy of the clipboard contents.
func (cb *Clipboard) Items() []ClipboardItem {
	out := make([]ClipboardItem, len(cb.items))
	for i, it := range cb.items {
		out[i] = ClipboardItem{Clip: it.Clip.Clone(), TrackType: it.TrackType}
	}
	return out
}

// PasteCommand re-instantiates clipboard contents as new entities,
// offset so the copy origin lands at At. With Track set, every item is
// re-targeted there and must match its type; otherwise items return to
// their original tracks. Either way a type conflict fails with a type
// mismatch and an occupied span fails with an overlap.
type PasteCommand struct {
	Items  []ClipboardItem
	Origin timecode.TimePoint
	At     timecode.TimePoint
	Track  store.ID // InvalidID pastes to each item's original track

	created []store.ID
	done    bool
}

// NewPaste creates a paste of the clipboard contents at a target time.
func NewPaste(cb *Clipboard, at timecode.TimePoint, track store.ID) *PasteCommand {
	return &PasteCommand{
		Items:   cb.Items(),
		Origin:  cb.origin,
		At:      at,
		Track:   track,
		created: make([]store.ID, cb.Len()),
	}
}

// NewDuplicate creates a paste that re-instantiates the given clips
// immediately after the span they occupy, on their own tracks.
func NewDuplicate(m *timeline.Model, ids []store.ID) *PasteCommand {
	var cb Clipboard
	cb.Copy(m, ids)

	end := cb.origin
	for _, it := range cb.items {
		if it.Clip.Timeline.End > end {
			end = it.Clip.Timeline.End
		}
	}
	return NewPaste(&cb, end, store.InvalidID)
}

// Execute validates targets and places the copies.
func (c *PasteCommand) Execute(m *timeline.Model) error {
	if len(c.Items) == 0 {
		return ErrEmptyClipboard
	}

	delta := c.At - c.Origin

	// Resolve and validate every target before placing anything.
	targets := make([]store.ID, len(c.Items))
	for i, it := range c.Items {
		target := c.Track
		if target == store.InvalidID {
			target = it.Clip.Track
		}
		t, ok := m.Track(target)
		if !ok {
			return fmt.Errorf("paste target track %d: %w", target, store.ErrInvalidEntity)
		}
		if t.Type != it.TrackType {
			return fmt.Errorf("paste %s clip to %s track: %w", it.TrackType, t.Type, timeline.ErrTypeMismatch)
		}
		if t.Locked {
			return fmt.Errorf("paste to track %d: %w", target, timeline.ErrLocked)
		}
		targets[i] = target
	}

	placed := 0
	for i, it := range c.Items {
		clip := it.Clip.Clone()
		clip.Track = targets[i]
		clip.Timeline = it.Clip.Timeline.Shift(delta)
		if err := placeClip(m, &c.created[i], clip); err != nil {
			for j := placed - 1; j >= 0; j-- {
				_, _ = m.RemoveClip(c.created[j])
			}
			return err
		}
		placed++
	}
	c.done = true
	return nil
}

// Undo removes the pasted clips.
func (c *PasteCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	for i := len(c.created) - 1; i >= 0; i-- {
		if _, err := m.RemoveClip(c.created[i]); err != nil {
			return err
		}
	}
	c.done = false
	return nil
}

// Description returns a human-readable description.
func (c *PasteCommand) Description() string {
	if len(c.Items) == 1 {
		return fmt.Sprintf("Paste clip at %s", c.At)
	}
	return fmt.Sprintf("Paste %d clips at %s", len(c.Items), c.At)
}

// References reports the entities this command's closures hold.
func (c *PasteCommand) References() []store.ID {
	return append([]store.ID(nil), c.created...)
}

// Created returns the entity IDs of the pasted clips after Execute.
func (c *PasteCommand) Created() []store.ID {
	return append([]store.ID(nil), c.created...)
}
