package edit

import (
	"fmt"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// sourceBounds returns the legal source range for a clip's media.
// Unknown media is unbounded.
func sourceBounds(media MediaDurations, c timeline.Clip) (timecode.TimeRange, bool) {
	if media == nil {
		return timecode.TimeRange{}, false
	}
	d, ok := media.MediaDuration(c.Media)
	if !ok {
		return timecode.TimeRange{}, false
	}
	return timecode.NewRange(0, d), true
}

// trimmedStart returns the clip with its timeline start moved to
// newStart. The source range start moves proportionally (speed-scaled)
// so that source duration stays timeline duration times |speed|.
// Keyframe times, which are relative to the clip start, shift to keep
// their absolute positions.
func trimmedStart(c timeline.Clip, newStart timecode.TimePoint, media MediaDurations) (timeline.Clip, error) {
	delta := newStart - c.Timeline.Start
	out := c.Clone()
	out.Timeline.Start = newStart
	if out.Timeline.Duration() < timecode.Unit {
		return timeline.Clip{}, fmt.Errorf("trim start to %s leaves %s: %w", newStart, out.Timeline.Duration(), ErrInvalidTrim)
	}

	out.Source.Start += c.SourceForTimeline(delta)
	if out.Source.Duration() < 0 {
		return timeline.Clip{}, fmt.Errorf("trim start to %s empties source: %w", newStart, ErrInvalidTrim)
	}
	if bounds, ok := sourceBounds(media, c); ok && !bounds.ContainsRange(out.Source) {
		return timeline.Clip{}, fmt.Errorf("trim start to %s exceeds media %s: %w", newStart, bounds, ErrInvalidTrim)
	}

	for i := range out.Keyframes {
		out.Keyframes[i].Time -= delta
	}
	return out, nil
}

// trimmedEnd returns the clip with its timeline end moved to newEnd,
// source end adjusted proportionally.
func trimmedEnd(c timeline.Clip, newEnd timecode.TimePoint, media MediaDurations) (timeline.Clip, error) {
	delta := newEnd - c.Timeline.End
	out := c.Clone()
	out.Timeline.End = newEnd
	if out.Timeline.Duration() < timecode.Unit {
		return timeline.Clip{}, fmt.Errorf("trim end to %s leaves %s: %w", newEnd, out.Timeline.Duration(), ErrInvalidTrim)
	}

	out.Source.End += c.SourceForTimeline(delta)
	if out.Source.Duration() < 0 {
		return timeline.Clip{}, fmt.Errorf("trim end to %s empties source: %w", newEnd, ErrInvalidTrim)
	}
	if bounds, ok := sourceBounds(media, c); ok && !bounds.ContainsRange(out.Source) {
		return timeline.Clip{}, fmt.Errorf("trim end to %s exceeds media %s: %w", newEnd, bounds, ErrInvalidTrim)
	}
	return out, nil
}

// TrimStartCommand moves a clip's timeline start, adjusting its source
// range to stay speed-consistent.
type TrimStartCommand struct {
	ID       store.ID
	NewStart timecode.TimePoint
	Media    MediaDurations

	before clipState
	done   bool
}

// NewTrimStart creates a trim-start command.
func NewTrimStart(id store.ID, newStart timecode.TimePoint, media MediaDurations) *TrimStartCommand {
	return &TrimStartCommand{ID: id, NewStart: newStart, Media: media}
}

// Execute applies the trim.
func (c *TrimStartCommand) Execute(m *timeline.Model) error {
	if err := checkUnlocked(m, c.ID); err != nil {
		return err
	}
	clip, _ := m.Clip(c.ID)

	trimmed, err := trimmedStart(clip, c.NewStart, c.Media)
	if err != nil {
		return err
	}
	if err := m.CheckPlacement(clip.Track, c.ID, trimmed.Timeline); err != nil {
		return err
	}

	c.before = clipState{id: c.ID, clip: clip.Clone()}
	if err := m.SetClip(c.ID, trimmed); err != nil {
		return err
	}
	c.done = true
	return nil
}

// Undo restores the clip's prior ranges.
func (c *TrimStartCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	return m.SetClip(c.before.id, c.before.clip)
}

// Description returns a human-readable description.
func (c *TrimStartCommand) Description() string {
	return fmt.Sprintf("Trim clip start to %s", c.NewStart)
}

// References reports the entities this command's closures hold.
func (c *TrimStartCommand) References() []store.ID {
	return []store.ID{c.ID}
}

// TrimEndCommand moves a clip's timeline end, adjusting its source
// range to stay speed-consistent.
type TrimEndCommand struct {
	ID     store.ID
	NewEnd timecode.TimePoint
	Media  MediaDurations

	before clipState
	done   bool
}

// NewTrimEnd creates a trim-end command.
func NewTrimEnd(id store.ID, newEnd timecode.TimePoint, media MediaDurations) *TrimEndCommand {
	return &TrimEndCommand{ID: id, NewEnd: newEnd, Media: media}
}

// Execute applies the trim.
func (c *TrimEndCommand) Execute(m *timeline.Model) error {
	if err := checkUnlocked(m, c.ID); err != nil {
		return err
	}
	clip, _ := m.Clip(c.ID)

	trimmed, err := trimmedEnd(clip, c.NewEnd, c.Media)
	if err != nil {
		return err
	}
	if err := m.CheckPlacement(clip.Track, c.ID, trimmed.Timeline); err != nil {
		return err
	}

	c.before = clipState{id: c.ID, clip: clip.Clone()}
	if err := m.SetClip(c.ID, trimmed); err != nil {
		return err
	}
	c.done = true
	return nil
}

// Undo restores the clip's prior ranges.
func (c *TrimEndCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	return m.SetClip(c.before.id, c.before.clip)
}

// Description returns a human-readable description.
func (c *TrimEndCommand) Description() string {
	return fmt.Sprintf("Trim clip end to %s", c.NewEnd)
}

// References reports the entities this command's closures hold.
func (c *TrimEndCommand) References() []store.ID {
	return []store.ID{c.ID}
}

// RollCommand moves the shared edit point between two adjacent clips:
// one clip's end and the other's start move together by equal and
// opposite amounts.
type RollCommand struct {
	Left        store.ID
	Right       store.ID
	NewBoundary timecode.TimePoint
	Media       MediaDurations

	beforeLeft  clipState
	beforeRight clipState
	done        bool
}

// NewRoll creates a roll command over the boundary between two clips.
func NewRoll(left, right store.ID, newBoundary timecode.TimePoint, media MediaDurations) *RollCommand {
	return &RollCommand{Left: left, Right: right, NewBoundary: newBoundary, Media: media}
}

// Execute applies the roll.
func (c *RollCommand) Execute(m *timeline.Model) error {
	if err := checkUnlocked(m, c.Left); err != nil {
		return err
	}
	if err := checkUnlocked(m, c.Right); err != nil {
		return err
	}
	left, _ := m.Clip(c.Left)
	right, _ := m.Clip(c.Right)

	if left.Track != right.Track || left.Timeline.End != right.Timeline.Start {
		return fmt.Errorf("clips %d and %d do not share an edit point: %w", c.Left, c.Right, ErrInvalidRoll)
	}

	newLeft, err := trimmedEnd(left, c.NewBoundary, c.Media)
	if err != nil {
		return fmt.Errorf("roll to %s: %w", c.NewBoundary, ErrInvalidRoll)
	}
	newRight, err := trimmedStart(right, c.NewBoundary, c.Media)
	if err != nil {
		return fmt.Errorf("roll to %s: %w", c.NewBoundary, ErrInvalidRoll)
	}

	c.beforeLeft = clipState{id: c.Left, clip: left.Clone()}
	c.beforeRight = clipState{id: c.Right, clip: right.Clone()}

	// Shrink first so the boundary region is free for the growing side.
	if c.NewBoundary < left.Timeline.End {
		if err := m.SetClip(c.Left, newLeft); err != nil {
			return err
		}
		if err := m.SetClip(c.Right, newRight); err != nil {
			_ = m.SetClip(c.Left, c.beforeLeft.clip)
			return err
		}
	} else {
		if err := m.SetClip(c.Right, newRight); err != nil {
			return err
		}
		if err := m.SetClip(c.Left, newLeft); err != nil {
			_ = m.SetClip(c.Right, c.beforeRight.clip)
			return err
		}
	}
	c.done = true
	return nil
}

// Undo restores both clips.
func (c *RollCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	// Restore in shrink-first order for the reverse direction.
	cur, _ := m.Clip(c.Left)
	if c.beforeLeft.clip.Timeline.End < cur.Timeline.End {
		if err := m.SetClip(c.Left, c.beforeLeft.clip); err != nil {
			return err
		}
		return m.SetClip(c.Right, c.beforeRight.clip)
	}
	if err := m.SetClip(c.Right, c.beforeRight.clip); err != nil {
		return err
	}
	return m.SetClip(c.Left, c.beforeLeft.clip)
}

// Description returns a human-readable description.
func (c *RollCommand) Description() string {
	return fmt.Sprintf("Roll edit to %s", c.NewBoundary)
}

// References reports the entities this command's closures hold.
func (c *RollCommand) References() []store.ID {
	return []store.ID{c.Left, c.Right}
}
