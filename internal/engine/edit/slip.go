package edit

import (
	"fmt"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// SlipCommand shifts which portion of the source media a clip shows
// without moving the clip on the timeline. The offset is in source
// units and is rejected if it would leave the media bounds.
type SlipCommand struct {
	ID     store.ID
	Offset timecode.TimePoint
	Media  MediaDurations

	before clipState
	done   bool
}

// NewSlip creates a slip command.
func NewSlip(id store.ID, offset timecode.TimePoint, media MediaDurations) *SlipCommand {
	return &SlipCommand{ID: id, Offset: offset, Media: media}
}

// Execute applies the slip.
func (c *SlipCommand) Execute(m *timeline.Model) error {
	if err := checkUnlocked(m, c.ID); err != nil {
		return err
	}
	clip, _ := m.Clip(c.ID)

	slipped := clip.Clone()
	slipped.Source = clip.Source.Shift(c.Offset)
	if slipped.Source.Start < 0 {
		return fmt.Errorf("slip by %s before media start: %w", c.Offset, ErrInvalidSlip)
	}
	if bounds, ok := sourceBounds(c.Media, clip); ok && !bounds.ContainsRange(slipped.Source) {
		return fmt.Errorf("slip by %s exceeds media %s: %w", c.Offset, bounds, ErrInvalidSlip)
	}

	c.before = clipState{id: c.ID, clip: clip.Clone()}
	if err := m.SetClip(c.ID, slipped); err != nil {
		return err
	}
	c.done = true
	return nil
}

// Undo restores the prior source range.
func (c *SlipCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	return m.SetClip(c.before.id, c.before.clip)
}

// Description returns a human-readable description.
func (c *SlipCommand) Description() string {
	return fmt.Sprintf("Slip clip by %s", c.Offset)
}

// References reports the entities this command's closures hold.
func (c *SlipCommand) References() []store.ID {
	return []store.ID{c.ID}
}

// SlideCommand moves a clip along its track while the immediately
// adjacent neighbors absorb the change: sliding right extends the
// previous clip and trims the next one, so the span occupied by the
// three-clip group is preserved. A neighbor that cannot absorb the
// compensation without emptying fails the slide.
type SlideCommand struct {
	ID     store.ID
	Offset timecode.TimePoint
	Media  MediaDurations

	before []clipState
	done   bool
}

// NewSlide creates a slide command.
func NewSlide(id store.ID, offset timecode.TimePoint, media MediaDurations) *SlideCommand {
	return &SlideCommand{ID: id, Offset: offset, Media: media}
}

// neighbors finds the clips immediately adjacent to the given clip on
// its track: prev ends where the clip starts, next starts where it
// ends. Either may be absent.
func neighbors(m *timeline.Model, id store.ID) (prev, next store.ID) {
	clip, _ := m.Clip(id)
	prev, next = store.InvalidID, store.InvalidID
	for _, other := range m.ClipsOnTrack(clip.Track) {
		if other == id {
			continue
		}
		oc, _ := m.Clip(other)
		if oc.Timeline.End == clip.Timeline.Start {
			prev = other
		}
		if oc.Timeline.Start == clip.Timeline.End {
			next = other
		}
	}
	return prev, next
}

// Execute applies the slide.
func (c *SlideCommand) Execute(m *timeline.Model) error {
	if c.Offset == 0 {
		return nil
	}
	if err := checkUnlocked(m, c.ID); err != nil {
		return err
	}
	clip, _ := m.Clip(c.ID)
	prev, next := neighbors(m, c.ID)

	// Compute every new value up front; nothing mutates on failure.
	moved := clip.Clone()
	moved.Timeline = clip.Timeline.Shift(c.Offset)
	if moved.Timeline.Start < 0 {
		return fmt.Errorf("slide by %s before timeline start: %w", c.Offset, ErrInvalidSlide)
	}

	var newPrev, newNext timeline.Clip
	if prev != store.InvalidID {
		if err := checkUnlocked(m, prev); err != nil {
			return err
		}
		pc, _ := m.Clip(prev)
		adjusted, err := trimmedEnd(pc, pc.Timeline.End+c.Offset, c.Media)
		if err != nil {
			return fmt.Errorf("slide by %s: previous clip cannot absorb: %w", c.Offset, ErrInvalidSlide)
		}
		newPrev = adjusted
	}
	if next != store.InvalidID {
		if err := checkUnlocked(m, next); err != nil {
			return err
		}
		nc, _ := m.Clip(next)
		adjusted, err := trimmedStart(nc, nc.Timeline.Start+c.Offset, c.Media)
		if err != nil {
			return fmt.Errorf("slide by %s: next clip cannot absorb: %w", c.Offset, ErrInvalidSlide)
		}
		newNext = adjusted
	}

	// Apply shrink-first so no transient overlap trips validation.
	type step struct {
		id   store.ID
		clip timeline.Clip
	}
	var steps []step
	if c.Offset > 0 {
		if next != store.InvalidID {
			steps = append(steps, step{next, newNext})
		}
		steps = append(steps, step{c.ID, moved})
		if prev != store.InvalidID {
			steps = append(steps, step{prev, newPrev})
		}
	} else {
		if prev != store.InvalidID {
			steps = append(steps, step{prev, newPrev})
		}
		steps = append(steps, step{c.ID, moved})
		if next != store.InvalidID {
			steps = append(steps, step{next, newNext})
		}
	}

	c.before = nil
	for _, s := range steps {
		cur, _ := m.Clip(s.id)
		if err := m.SetClip(s.id, s.clip); err != nil {
			for i := len(c.before) - 1; i >= 0; i-- {
				_ = m.SetClip(c.before[i].id, c.before[i].clip)
			}
			c.before = nil
			return err
		}
		c.before = append(c.before, clipState{id: s.id, clip: cur.Clone()})
	}
	c.done = true
	return nil
}

// Undo restores the clip and both neighbors.
func (c *SlideCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	for i := len(c.before) - 1; i >= 0; i-- {
		if err := m.SetClip(c.before[i].id, c.before[i].clip); err != nil {
			return err
		}
	}
	c.before = nil
	c.done = false
	return nil
}

// Description returns a human-readable description.
func (c *SlideCommand) Description() string {
	return fmt.Sprintf("Slide clip by %s", c.Offset)
}

// References reports the entities this command's closures hold.
func (c *SlideCommand) References() []store.ID {
	ids := []store.ID{c.ID}
	for _, s := range c.before {
		ids = append(ids, s.id)
	}
	return ids
}
