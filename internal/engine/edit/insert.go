package edit

import (
	"fmt"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// InsertMode selects how Insert treats existing clips in its target span.
type InsertMode uint8

// Insert modes.
const (
	// InsertReject fails with an overlap error if the span is occupied.
	InsertReject InsertMode = iota
	// InsertOverwrite trims or removes whatever occupies the span.
	InsertOverwrite
	// InsertRipple shifts later clips right to make room.
	InsertRipple
)

// String returns the mode name.
func (m InsertMode) String() string {
	switch m {
	case InsertReject:
		return "reject"
	case InsertOverwrite:
		return "overwrite"
	case InsertRipple:
		return "ripple"
	default:
		return "unknown"
	}
}

// carvePlan lists the trims and removals that clear a span for an
// overwrite. Overlapped clips are processed in ascending start order; a
// clip strictly containing the span keeps its head and loses its tail.
type carvePlan struct {
	trims    []clipState // new values
	removals []store.ID
}

// planCarve computes the carve without mutating anything.
func planCarve(m *timeline.Model, track store.ID, span timecode.TimeRange, ignore store.ID, media MediaDurations) (carvePlan, error) {
	var plan carvePlan
	for _, id := range m.ClipsOnTrack(track) {
		if id == ignore {
			continue
		}
		c, _ := m.Clip(id)
		if !c.Timeline.Overlaps(span) {
			continue
		}
		if c.Locked {
			return carvePlan{}, fmt.Errorf("overwrite clip %d: %w", id, timeline.ErrLocked)
		}

		switch {
		case span.ContainsRange(c.Timeline):
			plan.removals = append(plan.removals, id)
		case c.Timeline.Start < span.Start:
			trimmed, err := trimmedEnd(c, span.Start, media)
			if err != nil {
				return carvePlan{}, err
			}
			plan.trims = append(plan.trims, clipState{id: id, clip: trimmed})
		default:
			trimmed, err := trimmedStart(c, span.End, media)
			if err != nil {
				return carvePlan{}, err
			}
			plan.trims = append(plan.trims, clipState{id: id, clip: trimmed})
		}
	}
	return plan, nil
}

// appliedCarve records the undo state of an executed carve.
type appliedCarve struct {
	trimmed []clipState // prior values
	removed []removedClip
}

// apply executes the plan, recording undo state.
func (p carvePlan) apply(m *timeline.Model) (appliedCarve, error) {
	var done appliedCarve
	for _, id := range p.removals {
		rec, err := removeClip(m, id)
		if err != nil {
			return done, err
		}
		done.removed = append(done.removed, rec)
	}
	for _, ts := range p.trims {
		before, _ := m.Clip(ts.id)
		if err := m.SetClip(ts.id, ts.clip); err != nil {
			return done, err
		}
		done.trimmed = append(done.trimmed, clipState{id: ts.id, clip: before.Clone()})
	}
	return done, nil
}

// undo reverses an applied carve.
func (a appliedCarve) undo(m *timeline.Model) error {
	for i := len(a.trimmed) - 1; i >= 0; i-- {
		if err := m.SetClip(a.trimmed[i].id, a.trimmed[i].clip); err != nil {
			return err
		}
	}
	for i := len(a.removed) - 1; i >= 0; i-- {
		if err := reviveClip(m, a.removed[i]); err != nil {
			return err
		}
	}
	return nil
}

// references lists entities the carve's undo state holds.
func (a appliedCarve) references() []store.ID {
	var ids []store.ID
	for _, r := range a.removed {
		ids = append(ids, r.id)
		for _, ts := range r.transitions {
			ids = append(ids, ts.id)
		}
	}
	for _, ts := range a.trimmed {
		ids = append(ids, ts.id)
	}
	return ids
}

// placeClip adds a clip, reviving the previously created entity on
// redo so IDs stay stable across undo/redo cycles.
func placeClip(m *timeline.Model, id *store.ID, c timeline.Clip) error {
	if *id != store.InvalidID && m.Store().Exists(*id) {
		if err := m.CheckPlacement(c.Track, *id, c.Timeline); err != nil {
			return err
		}
		return m.ReviveClip(*id, c)
	}
	created, err := m.AddClip(c)
	if err != nil {
		return err
	}
	*id = created
	return nil
}

// InsertCommand places a new clip on a track.
type InsertCommand struct {
	Clip  timeline.Clip
	Mode  InsertMode
	Media MediaDurations

	created store.ID
	carve   appliedCarve
	shifted []clipState // prior values of ripple-shifted clips
	done    bool
}

// NewInsert creates an insert command for a fully specified clip.
func NewInsert(c timeline.Clip, mode InsertMode, media MediaDurations) *InsertCommand {
	return &InsertCommand{Clip: c, Mode: mode, Media: media}
}

// Execute validates and places the clip according to the mode.
func (c *InsertCommand) Execute(m *timeline.Model) error {
	t, ok := m.Track(c.Clip.Track)
	if !ok {
		return fmt.Errorf("insert on track %d: %w", c.Clip.Track, store.ErrInvalidEntity)
	}
	if t.Locked {
		return fmt.Errorf("insert on track %d: %w", c.Clip.Track, timeline.ErrLocked)
	}

	switch c.Mode {
	case InsertOverwrite:
		plan, err := planCarve(m, c.Clip.Track, c.Clip.Timeline, store.InvalidID, c.Media)
		if err != nil {
			return err
		}
		carve, err := plan.apply(m)
		if err != nil {
			_ = carve.undo(m)
			return err
		}
		c.carve = carve
	case InsertRipple:
		shifted, err := rippleShift(m, []store.ID{c.Clip.Track}, c.Clip.Timeline.Start, c.Clip.Timeline.Duration())
		if err != nil {
			return err
		}
		c.shifted = shifted
	}

	if err := placeClip(m, &c.created, c.Clip); err != nil {
		_ = c.carve.undo(m)
		_ = unshift(m, c.shifted)
		c.carve = appliedCarve{}
		c.shifted = nil
		return err
	}
	c.done = true
	return nil
}

// Undo removes the inserted clip and restores displaced neighbors.
func (c *InsertCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	if _, err := m.RemoveClip(c.created); err != nil {
		return err
	}
	if err := c.carve.undo(m); err != nil {
		return err
	}
	if err := unshift(m, c.shifted); err != nil {
		return err
	}
	c.carve = appliedCarve{}
	c.shifted = nil
	c.done = false
	return nil
}

// Description returns a human-readable description.
func (c *InsertCommand) Description() string {
	return fmt.Sprintf("Insert clip at %s", c.Clip.Timeline.Start)
}

// References reports the entities this command's closures hold.
func (c *InsertCommand) References() []store.ID {
	ids := []store.ID{c.created}
	ids = append(ids, c.carve.references()...)
	for _, ts := range c.shifted {
		ids = append(ids, ts.id)
	}
	return ids
}

// Created returns the inserted clip's entity ID after Execute.
func (c *InsertCommand) Created() store.ID {
	return c.created
}

// RemoveCommand deletes clips without shifting anything.
type RemoveCommand struct {
	IDs []store.ID

	removed []removedClip
	done    bool
}

// NewRemove creates a remove command.
func NewRemove(ids ...store.ID) *RemoveCommand {
	return &RemoveCommand{IDs: ids}
}

// Execute removes the clips.
func (c *RemoveCommand) Execute(m *timeline.Model) error {
	for _, id := range c.IDs {
		if err := checkUnlocked(m, id); err != nil {
			return err
		}
	}

	c.removed = nil
	for _, id := range c.IDs {
		rec, err := removeClip(m, id)
		if err != nil {
			for i := len(c.removed) - 1; i >= 0; i-- {
				_ = reviveClip(m, c.removed[i])
			}
			c.removed = nil
			return err
		}
		c.removed = append(c.removed, rec)
	}
	c.done = true
	return nil
}

// Undo revives the removed clips and their transitions.
func (c *RemoveCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	for i := len(c.removed) - 1; i >= 0; i-- {
		if err := reviveClip(m, c.removed[i]); err != nil {
			return err
		}
	}
	c.done = false
	return nil
}

// Description returns a human-readable description.
func (c *RemoveCommand) Description() string {
	if len(c.IDs) == 1 {
		return "Remove clip"
	}
	return fmt.Sprintf("Remove %d clips", len(c.IDs))
}

// References reports the entities this command's closures hold.
func (c *RemoveCommand) References() []store.ID {
	ids := append([]store.ID(nil), c.IDs...)
	for _, r := range c.removed {
		for _, ts := range r.transitions {
			ids = append(ids, ts.id)
		}
	}
	return ids
}

// MoveCommand repositions a clip, optionally across tracks. Without
// Overwrite a conflicting placement fails; with it, overlapped portions
// of other clips are trimmed or removed, processed in ascending start
// order.
type MoveCommand struct {
	ID        store.ID
	Track     store.ID // InvalidID keeps the current track
	To        timecode.TimePoint
	Overwrite bool
	Media     MediaDurations

	before clipState
	carve  appliedCarve
	done   bool
}

// NewMove creates a move command.
func NewMove(id store.ID, track store.ID, to timecode.TimePoint, overwrite bool, media MediaDurations) *MoveCommand {
	return &MoveCommand{ID: id, Track: track, To: to, Overwrite: overwrite, Media: media}
}

// Execute validates and applies the move.
func (c *MoveCommand) Execute(m *timeline.Model) error {
	if err := checkUnlocked(m, c.ID); err != nil {
		return err
	}
	clip, _ := m.Clip(c.ID)

	target := c.Track
	if target == store.InvalidID {
		target = clip.Track
	}
	targetTrack, ok := m.Track(target)
	if !ok {
		return fmt.Errorf("move to track %d: %w", target, store.ErrInvalidEntity)
	}
	if targetTrack.Locked {
		return fmt.Errorf("move to track %d: %w", target, timeline.ErrLocked)
	}
	if target != clip.Track {
		from, _ := m.Track(clip.Track)
		if from.Type != targetTrack.Type {
			return fmt.Errorf("move %s clip to %s track: %w", from.Type, targetTrack.Type, timeline.ErrTypeMismatch)
		}
	}

	moved := clip.Clone()
	moved.Track = target
	moved.Timeline = timecode.RangeAt(c.To, clip.Timeline.Duration())

	if c.Overwrite {
		plan, err := planCarve(m, target, moved.Timeline, c.ID, c.Media)
		if err != nil {
			return err
		}
		carve, err := plan.apply(m)
		if err != nil {
			_ = carve.undo(m)
			return err
		}
		c.carve = carve
	} else if err := m.CheckPlacement(target, c.ID, moved.Timeline); err != nil {
		return err
	}

	c.before = clipState{id: c.ID, clip: clip.Clone()}
	if err := m.SetClip(c.ID, moved); err != nil {
		_ = c.carve.undo(m)
		c.carve = appliedCarve{}
		return err
	}
	c.done = true
	return nil
}

// Undo restores the clip and whatever the overwrite displaced.
func (c *MoveCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	if err := m.SetClip(c.before.id, c.before.clip); err != nil {
		return err
	}
	if err := c.carve.undo(m); err != nil {
		return err
	}
	c.carve = appliedCarve{}
	c.done = false
	return nil
}

// Description returns a human-readable description.
func (c *MoveCommand) Description() string {
	return fmt.Sprintf("Move clip to %s", c.To)
}

// References reports the entities this command's closures hold.
func (c *MoveCommand) References() []store.ID {
	ids := []store.ID{c.ID}
	ids = append(ids, c.carve.references()...)
	return ids
}
