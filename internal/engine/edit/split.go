package edit

import (
	"fmt"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// SplitCommand cuts a clip in two at an instant strictly inside its
// range. The timeline and source ranges partition at that instant
// (source proportionally to speed); keyframes partition by time and
// effects are carried by both halves.
type SplitCommand struct {
	ID store.ID
	At timecode.TimePoint

	before clipState
	tail   store.ID
	done   bool
}

// NewSplit creates a split command.
func NewSplit(id store.ID, at timecode.TimePoint) *SplitCommand {
	return &SplitCommand{ID: id, At: at}
}

// Execute applies the split.
func (c *SplitCommand) Execute(m *timeline.Model) error {
	if err := checkUnlocked(m, c.ID); err != nil {
		return err
	}
	clip, _ := m.Clip(c.ID)

	if c.At <= clip.Timeline.Start || c.At >= clip.Timeline.End {
		return fmt.Errorf("split at %s outside clip %s: %w", c.At, clip.Timeline, ErrInvalidSplit)
	}

	offset := c.At - clip.Timeline.Start
	sourceCut := clip.Source.Start + clip.SourceForTimeline(offset)

	head := clip.Clone()
	head.Timeline.End = c.At
	head.Source.End = sourceCut
	head.Keyframes = nil
	for _, kf := range clip.Keyframes {
		if kf.Time < offset {
			head.Keyframes = append(head.Keyframes, kf)
		}
	}

	tail := clip.Clone()
	tail.Timeline.Start = c.At
	tail.Source.Start = sourceCut
	tail.Keyframes = nil
	for _, kf := range clip.Keyframes {
		if kf.Time >= offset {
			kf.Time -= offset
			tail.Keyframes = append(tail.Keyframes, kf)
		}
	}

	if head.Timeline.Duration() < timecode.Unit || tail.Timeline.Duration() < timecode.Unit {
		return fmt.Errorf("split at %s leaves a zero-length side: %w", c.At, ErrInvalidSplit)
	}

	c.before = clipState{id: c.ID, clip: clip.Clone()}
	if err := m.SetClip(c.ID, head); err != nil {
		return err
	}
	if err := placeClip(m, &c.tail, tail); err != nil {
		_ = m.SetClip(c.ID, c.before.clip)
		return err
	}
	c.done = true
	return nil
}

// Undo removes the tail clip and restores the original.
func (c *SplitCommand) Undo(m *timeline.Model) error {
	if !c.done {
		return nil
	}
	if _, err := m.RemoveClip(c.tail); err != nil {
		return err
	}
	if err := m.SetClip(c.before.id, c.before.clip); err != nil {
		return err
	}
	c.done = false
	return nil
}

// Description returns a human-readable description.
func (c *SplitCommand) Description() string {
	return fmt.Sprintf("Split clip at %s", c.At)
}

// References reports the entities this command's closures hold.
func (c *SplitCommand) References() []store.ID {
	return []store.ID{c.ID, c.tail}
}

// Tail returns the entity ID of the clip created to the right of the
// cut, valid after Execute.
func (c *SplitCommand) Tail() store.ID {
	return c.tail
}
