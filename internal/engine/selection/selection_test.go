package selection

import (
	"testing"

	"github.com/google/uuid"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

func sec(s float64) timecode.TimePoint {
	return timecode.FromSeconds(s)
}

func addClip(t *testing.T, m *timeline.Model, track store.ID, start, end float64) store.ID {
	t.Helper()
	c := timeline.NewClip(uuid.New(), timecode.NewRange(sec(0), sec(end-start)), sec(start))
	c.Track = track
	id, err := m.AddClip(c)
	if err != nil {
		t.Fatalf("add clip: %v", err)
	}
	return id
}

func setup(t *testing.T) (*timeline.Model, store.ID, [3]store.ID) {
	t.Helper()
	m := timeline.New()
	track := m.CreateTrack("V1", timeline.TrackVideo, 0)
	var clips [3]store.ID
	clips[0] = addClip(t, m, track, 0, 5)
	clips[1] = addClip(t, m, track, 5, 10)
	clips[2] = addClip(t, m, track, 12, 15)
	return m, track, clips
}

func TestModes(t *testing.T) {
	m, _, clips := setup(t)
	s := New()

	s.Apply(m, ModeNormal, clips[0])
	if s.Len() != 1 || !s.Contains(clips[0]) {
		t.Fatalf("normal select: len=%d", s.Len())
	}

	s.Apply(m, ModeAdditive, clips[1])
	if s.Len() != 2 {
		t.Errorf("additive: len = %d, want 2", s.Len())
	}

	s.Apply(m, ModeSubtractive, clips[0])
	if s.Contains(clips[0]) || !s.Contains(clips[1]) {
		t.Error("subtractive should remove only the target")
	}

	s.Apply(m, ModeToggle, clips[1], clips[2])
	if s.Contains(clips[1]) || !s.Contains(clips[2]) {
		t.Error("toggle should flip membership of each target")
	}

	// Normal replaces everything.
	s.Apply(m, ModeNormal, clips[0])
	if s.Len() != 1 || !s.Contains(clips[0]) {
		t.Error("normal should replace the selection")
	}
}

func TestFocusFollowsLastSelection(t *testing.T) {
	m, _, clips := setup(t)
	s := New()

	s.Apply(m, ModeNormal, clips[0])
	s.Apply(m, ModeAdditive, clips[1])
	if s.Focus() != clips[1] {
		t.Errorf("focus = %d, want last-selected %d", s.Focus(), clips[1])
	}

	s.Apply(m, ModeSubtractive, clips[1])
	if s.Focus() != store.InvalidID {
		t.Errorf("focus = %d, want InvalidID after deselecting the anchor", s.Focus())
	}
}

func TestTracksSelectSeparately(t *testing.T) {
	m, track, clips := setup(t)
	s := New()

	s.Apply(m, ModeNormal, clips[0])
	s.Apply(m, ModeAdditive, track)

	if !s.Contains(track) || !s.Contains(clips[0]) {
		t.Fatal("both clip and track should be selected")
	}
	if s.Len() != 1 {
		t.Errorf("entity count = %d, want 1 (tracks counted separately)", s.Len())
	}
	if got := s.Tracks(); len(got) != 1 || got[0] != track {
		t.Errorf("Tracks() = %v", got)
	}
}

func TestTrackSelectionLeavesFocusAlone(t *testing.T) {
	m, track, clips := setup(t)
	s := New()

	s.Apply(m, ModeNormal, clips[0])
	s.Apply(m, ModeAdditive, track)
	if s.Focus() != clips[0] {
		t.Errorf("focus = %d after track select, want %d", s.Focus(), clips[0])
	}

	s.Apply(m, ModeToggle, track)
	if s.Contains(track) {
		t.Error("toggle should deselect the track")
	}
	if s.Focus() != clips[0] {
		t.Errorf("focus = %d after track toggle, want %d", s.Focus(), clips[0])
	}
}

func TestDeadEntitiesIgnored(t *testing.T) {
	m, _, clips := setup(t)
	s := New()

	s.Apply(m, ModeNormal, clips[:]...)
	if _, err := m.RemoveClip(clips[1]); err != nil {
		t.Fatalf("remove: %v", err)
	}

	s.Prune(m)
	if s.Contains(clips[1]) {
		t.Error("pruned selection should drop the dead clip")
	}
	if s.Len() != 2 {
		t.Errorf("len = %d, want 2", s.Len())
	}

	// Selecting a dead ID is silently ignored.
	s.Apply(m, ModeAdditive, clips[1])
	if s.Contains(clips[1]) {
		t.Error("dead clip should not be selectable")
	}
}

func TestRegion(t *testing.T) {
	m, _, clips := setup(t)
	other := m.CreateTrack("V2", timeline.TrackVideo, 1)
	far := addClip(t, m, other, 0, 5)

	s := New()
	s.Region(m, timecode.NewRange(sec(4), sec(13)), 0, 0, ModeNormal)

	if !s.Contains(clips[0]) || !s.Contains(clips[1]) || !s.Contains(clips[2]) {
		t.Errorf("region should hit all three overlapping clips, got %v", s.IDs())
	}
	if s.Contains(far) {
		t.Error("clip on excluded track index should not be selected")
	}

	// A span touching only the boundary selects nothing new.
	s.Region(m, timecode.NewRange(sec(10), sec(12)), 0, 0, ModeNormal)
	if s.Len() != 0 {
		t.Errorf("gap region selected %v", s.IDs())
	}
}

func TestExtend(t *testing.T) {
	m, _, clips := setup(t)
	s := New()

	s.Apply(m, ModeNormal, clips[0])
	s.Extend(m, clips[2])

	// The sweep from [0,5) to [12,15) covers the middle clip too.
	if !s.Contains(clips[0]) || !s.Contains(clips[1]) || !s.Contains(clips[2]) {
		t.Errorf("extend should cover the span, got %v", s.IDs())
	}
	if s.Focus() != clips[0] {
		t.Errorf("focus = %d, want anchored at %d", s.Focus(), clips[0])
	}
}

func TestExtendWithoutFocusSelectsTarget(t *testing.T) {
	m, _, clips := setup(t)
	s := New()

	s.Extend(m, clips[1])
	if s.Len() != 1 || !s.Contains(clips[1]) {
		t.Errorf("extend with no focus should select the target, got %v", s.IDs())
	}
}

func TestLasso(t *testing.T) {
	m, _, clips := setup(t)
	s := New()

	// Rectangle over [1s,11s) x track 0: centers of clips[0] (2.5s) and
	// clips[1] (7.5s) fall inside; clips[2] center (13.5s) does not.
	poly := []Point{
		{Time: sec(1), Track: 0},
		{Time: sec(11), Track: 0},
		{Time: sec(11), Track: 1},
		{Time: sec(1), Track: 1},
	}
	s.Lasso(m, poly, ModeNormal)

	if !s.Contains(clips[0]) || !s.Contains(clips[1]) {
		t.Errorf("lasso missed clips, got %v", s.IDs())
	}
	if s.Contains(clips[2]) {
		t.Error("lasso should not reach clip at [12,15)")
	}

	// Degenerate polygon selects nothing.
	s.Lasso(m, poly[:2], ModeNormal)
	if s.Len() != 0 {
		t.Errorf("degenerate lasso selected %v", s.IDs())
	}
}

func TestChangeUndoRedo(t *testing.T) {
	m, _, clips := setup(t)
	s := New()

	before := s.Snapshot()
	s.Apply(m, ModeNormal, clips[0])
	ch := NewChange(s, "select clip", before, s.Snapshot())

	if err := ch.Undo(m); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("undo left %v selected", s.IDs())
	}
	if err := ch.Execute(m); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if !s.Contains(clips[0]) {
		t.Error("redo should restore the selection")
	}
}

func TestChangeCoalesce(t *testing.T) {
	m, _, clips := setup(t)
	s := New()

	b1 := s.Snapshot()
	s.Apply(m, ModeNormal, clips[0])
	ch := NewChange(s, "select", b1, s.Snapshot())

	b2 := s.Snapshot()
	s.Apply(m, ModeAdditive, clips[1])
	next := NewChange(s, "extend selection", b2, s.Snapshot())

	if !ch.Coalesce(next) {
		t.Fatal("changes on the same set should coalesce")
	}
	if err := ch.Undo(m); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("coalesced undo should return to empty, got %v", s.IDs())
	}

	other := NewChange(New(), "other", State{}, State{})
	if ch.Coalesce(other) {
		t.Error("changes on different sets must not coalesce")
	}
}
