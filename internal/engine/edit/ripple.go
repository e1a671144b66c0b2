package edit

import (
	"fmt"
	"sort"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// rippleShift moves every clip starting at or after from on the given
// tracks later by delta (> 0), applying right-to-left so no transient
// overlap occurs. A clip straddling the shift point is a conflict.
// Returns the prior clip states for unshift.
func rippleShift(m *timeline.Model, tracks []store.ID, from timecode.TimePoint, delta timecode.TimePoint) ([]clipState, error) {
	if delta <= 0 {
		return nil, nil
	}

	var toShift []store.ID
	for _, track := range tracks {
		if t, ok := m.Track(track); ok && t.Locked {
			return nil, fmt.Errorf("ripple on track %d: %w", track, timeline.ErrLocked)
		}
		for _, id := range m.ClipsOnTrack(track) {
			c, _ := m.Clip(id)
			if c.Timeline.Start < from && c.Timeline.End > from {
				return nil, fmt.Errorf("clip %d straddles %s: %w", id, from, timeline.ErrOverlap)
			}
			if c.Timeline.Start >= from {
				if c.Locked {
					return nil, fmt.Errorf("ripple clip %d: %w", id, timeline.ErrLocked)
				}
				toShift = append(toShift, id)
			}
		}
	}

	// Right to left.
	sort.Slice(toShift, func(i, j int) bool {
		a, _ := m.Clip(toShift[i])
		b, _ := m.Clip(toShift[j])
		return a.Timeline.Start > b.Timeline.Start
	})

	var shifted []clipState
	for _, id := range toShift {
		c, _ := m.Clip(id)
		before := c.Clone()
		c.Timeline = c.Timeline.Shift(delta)
		if err := m.SetClip(id, c); err != nil {
			_ = unshift(m, shifted)
			return nil, err
		}
		shifted = append(shifted, clipState{id: id, clip: before})
	}
	return shifted, nil
}

// unshift restores clips recorded by rippleShift, left-to-right.
func unshift(m *timeline.Model, shifted []clipState) error {
	for i := len(shifted) - 1; i >= 0; i-- {
		if err := m.SetClip(shifted[i].id, shifted[i].clip); err != nil {
			return err
		}
	}
	return nil
}

// RippleDeleteCommand removes clips and closes the gaps they leave:
// every later clip shifts earlier by the total duration of the removed
// clips before it, preserving relative gaps. With CrossTrack the same
// shifts apply to every track not explicitly excluded.
type RippleDeleteCommand struct {
	IDs           []store.ID
	CrossTrack    bool
	ExcludeTracks []store.ID

	removed []removedClip
	shifted []clipState
	done    bool
}

// NewRippleDelete creates a ripple delete of the given clips.
func NewRippleDelete(ids ...store.ID) *RippleDeleteCommand {
	return &RippleDeleteCommand{IDs: ids}
}

// Execute validates and applies the ripple delete.
func (c *RippleDeleteCommand) Execute(m *timeline.Model) error {
	if len(c.IDs) == 0 {
		return nil
	}

	removing := make(map[store.ID]bool, len(c.IDs))
	for _, id := range c.IDs {
		if err := checkUnlocked(m, id); err != nil {
			return err
		}
		removing[id] = true
	}

	excluded := make(map[store.ID]bool, len(c.ExcludeTracks))
	for _, id := range c.ExcludeTracks {
		excluded[id] = true
	}

	// Removed spans, per source track.
	type span struct {
		track    store.ID
		start    timecode.TimePoint
		duration timecode.TimePoint
	}
	var spans []span
	removedTracks := make(map[store.ID]bool)
	for _, id := range c.IDs {
		clip, _ := m.Clip(id)
		spans = append(spans, span{track: clip.Track, start: clip.Timeline.Start, duration: clip.Timeline.Duration()})
		removedTracks[clip.Track] = true
	}

	// shiftFor is the total removed duration before a given start time
	// as seen from a given track.
	shiftFor := func(track store.ID, start timecode.TimePoint) timecode.TimePoint {
		var total timecode.TimePoint
		for _, sp := range spans {
			if !c.CrossTrack && sp.track != track {
				continue
			}
			if sp.start < start {
				total += sp.duration
			}
		}
		return total
	}

	// Affected tracks.
	var tracks []store.ID
	for _, id := range m.Tracks() {
		if excluded[id] {
			continue
		}
		if c.CrossTrack || removedTracks[id] {
			tracks = append(tracks, id)
		}
	}

	// Plan and validate final placements per track before mutating.
	type planned struct {
		id    store.ID
		after timecode.TimeRange
	}
	var plan []planned
	for _, track := range tracks {
		if t, ok := m.Track(track); ok && t.Locked {
			return fmt.Errorf("ripple on track %d: %w", track, timeline.ErrLocked)
		}
		var final []planned
		for _, id := range m.ClipsOnTrack(track) {
			if removing[id] {
				continue
			}
			clip, _ := m.Clip(id)
			delta := shiftFor(track, clip.Timeline.Start)
			if delta > 0 && clip.Locked {
				return fmt.Errorf("ripple clip %d: %w", id, timeline.ErrLocked)
			}
			final = append(final, planned{id: id, after: clip.Timeline.Shift(-delta)})
		}
		sort.Slice(final, func(i, j int) bool { return final[i].after.Start < final[j].after.Start })
		for i := 1; i < len(final); i++ {
			if final[i-1].after.Overlaps(final[i].after) {
				return fmt.Errorf("ripple would collide clips %d and %d: %w",
					final[i-1].id, final[i].id, timeline.ErrOverlap)
			}
		}
		for _, p := range final {
			clip, _ := m.Clip(p.id)
			if p.after != clip.Timeline {
				plan = append(plan, p)
			}
		}
	}

	// Apply: remove, then shift left-to-right.
	c.removed = nil
	for _, id := range c.IDs {
		rec, err := removeClip(m, id)
		if err != nil {
			c.rollback(m)
			return err
		}
		c.removed = append(c.removed, rec)
	}

	sort.Slice(plan, func(i, j int) bool { return plan[i].after.Start < plan[j].after.Start })
	c.shifted = nil
	for _, p := range plan {
		clip, _ := m.Clip(p.id)
		before := clip.Clone()
		clip.Timeline = p.after
		if err := m.SetClip(p.id, clip); err != nil {
			c.rollback(m)
			return err
		}
		c.shifted = append(c.shifted, clipState{id: p.id, clip: before})
	}
	c.done = true
	return nil
}

// rollback reverses a partially applied execute.
func (c *RippleDeleteCommand) rollback(m *timeline.Model) {
	for i := len(c.shifted) - 1; i >= 0; i-- {
		_ = m.SetClip(c.shifted[i].id, c.shifted[i].clip)
	}
	for i := len(c.removed) - 1; i >= 0; i-- {
		_ = reviveClip(m, c.removed[i])
	}
	c.shifted = nil
	c.removed = nil
}

// Undo shifts clips back and revives the removed ones.
func (c *RippleDeleteCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	// Shift back right-to-left, then revive.
	for i := len(c.shifted) - 1; i >= 0; i-- {
		if err := m.SetClip(c.shifted[i].id, c.shifted[i].clip); err != nil {
			return err
		}
	}
	for i := len(c.removed) - 1; i >= 0; i-- {
		if err := reviveClip(m, c.removed[i]); err != nil {
			return err
		}
	}
	c.shifted = nil
	c.removed = nil
	c.done = false
	return nil
}

// Description returns a human-readable description.
func (c *RippleDeleteCommand) Description() string {
	if len(c.IDs) == 1 {
		return "Ripple delete clip"
	}
	return fmt.Sprintf("Ripple delete %d clips", len(c.IDs))
}

// References reports the entities this command's closures hold.
func (c *RippleDeleteCommand) References() []store.ID {
	ids := append([]store.ID(nil), c.IDs...)
	for _, r := range c.removed {
		for _, ts := range r.transitions {
			ids = append(ids, ts.id)
		}
	}
	for _, ts := range c.shifted {
		ids = append(ids, ts.id)
	}
	return ids
}

// RippleInsertCommand inserts a clip and shifts everything at or after
// its start later by its duration, the inverse of a ripple delete.
type RippleInsertCommand struct {
	Clip          timeline.Clip
	CrossTrack    bool
	ExcludeTracks []store.ID

	created store.ID
	shifted []clipState
	done    bool
}

// NewRippleInsert creates a ripple insert command.
func NewRippleInsert(c timeline.Clip) *RippleInsertCommand {
	return &RippleInsertCommand{Clip: c}
}

// Execute validates and applies the ripple insert.
func (c *RippleInsertCommand) Execute(m *timeline.Model) error {
	t, ok := m.Track(c.Clip.Track)
	if !ok {
		return fmt.Errorf("ripple insert on track %d: %w", c.Clip.Track, store.ErrInvalidEntity)
	}
	if t.Locked {
		return fmt.Errorf("ripple insert on track %d: %w", c.Clip.Track, timeline.ErrLocked)
	}

	excluded := make(map[store.ID]bool, len(c.ExcludeTracks))
	for _, id := range c.ExcludeTracks {
		excluded[id] = true
	}
	var tracks []store.ID
	if c.CrossTrack {
		for _, id := range m.Tracks() {
			if !excluded[id] {
				tracks = append(tracks, id)
			}
		}
	} else {
		tracks = []store.ID{c.Clip.Track}
	}

	shifted, err := rippleShift(m, tracks, c.Clip.Timeline.Start, c.Clip.Timeline.Duration())
	if err != nil {
		return err
	}
	c.shifted = shifted

	if err := placeClip(m, &c.created, c.Clip); err != nil {
		_ = unshift(m, c.shifted)
		c.shifted = nil
		return err
	}
	c.done = true
	return nil
}

// Undo removes the inserted clip and closes the gap.
func (c *RippleInsertCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	if _, err := m.RemoveClip(c.created); err != nil {
		return err
	}
	if err := unshift(m, c.shifted); err != nil {
		return err
	}
	c.shifted = nil
	c.done = false
	return nil
}

// Description returns a human-readable description.
func (c *RippleInsertCommand) Description() string {
	return fmt.Sprintf("Ripple insert at %s", c.Clip.Timeline.Start)
}

// References reports the entities this command's closures hold.
func (c *RippleInsertCommand) References() []store.ID {
	ids := []store.ID{c.created}
	for _, ts := range c.shifted {
		ids = append(ids, ts.id)
	}
	return ids
}

// Created returns the inserted clip's entity ID after Execute.
func (c *RippleInsertCommand) Created() store.ID {
	return c.created
}
