package timeline

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
)

func sec(s float64) timecode.TimePoint {
	return timecode.FromSeconds(s)
}

func srange(start, end float64) timecode.TimeRange {
	return timecode.NewRange(sec(start), sec(end))
}

// newTestModel creates a model with one video track.
func newTestModel(t *testing.T) (*Model, store.ID) {
	t.Helper()
	m := New()
	track := m.CreateTrack("V1", TrackVideo, 0)
	return m, track
}

// addClip places a clip spanning [start, end) seconds, sourced from the
// same span of a fresh media ID.
func addClip(t *testing.T, m *Model, track store.ID, start, end float64) store.ID {
	t.Helper()
	c := NewClip(uuid.New(), srange(start, end), sec(start))
	c.Track = track
	id, err := m.AddClip(c)
	if err != nil {
		t.Fatalf("AddClip [%v,%v): %v", start, end, err)
	}
	return id
}

func TestAddClipUpdatesDuration(t *testing.T) {
	m, track := newTestModel(t)

	addClip(t, m, track, 0, 5)
	addClip(t, m, track, 5, 12)

	if got := m.Duration(); got != sec(12) {
		t.Errorf("Duration = %v, want 12s", got)
	}
}

func TestAddClipOverlapRejected(t *testing.T) {
	m, track := newTestModel(t)
	addClip(t, m, track, 0, 5)

	c := NewClip(uuid.New(), srange(0, 3), sec(4))
	c.Track = track
	if _, err := m.AddClip(c); !errors.Is(err, ErrOverlap) {
		t.Errorf("overlapping AddClip: err = %v, want ErrOverlap", err)
	}
}

func TestTouchingClipsDoNotOverlap(t *testing.T) {
	m, track := newTestModel(t)
	addClip(t, m, track, 0, 5)
	addClip(t, m, track, 5, 10) // fails the test via t.Fatal if rejected
}

func TestRemoveClipDoesNotShiftOthers(t *testing.T) {
	m, track := newTestModel(t)
	a := addClip(t, m, track, 0, 5)
	b := addClip(t, m, track, 5, 10)

	if _, err := m.RemoveClip(a); err != nil {
		t.Fatalf("RemoveClip: %v", err)
	}

	c, ok := m.Clip(b)
	if !ok {
		t.Fatal("clip B should survive")
	}
	if c.Timeline != srange(5, 10) {
		t.Errorf("clip B moved to %v after plain remove", c.Timeline)
	}
	if got := m.Duration(); got != sec(10) {
		t.Errorf("Duration = %v, want 10s", got)
	}
}

func TestClipsOnTrackOrdering(t *testing.T) {
	m, track := newTestModel(t)
	b := addClip(t, m, track, 8, 10)
	a := addClip(t, m, track, 0, 5)
	c := addClip(t, m, track, 5, 8)

	got := m.ClipsOnTrack(track)
	want := []store.ID{a, c, b}
	if len(got) != 3 {
		t.Fatalf("ClipsOnTrack returned %d clips, want 3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ClipsOnTrack[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestClipsInRange(t *testing.T) {
	m, track := newTestModel(t)
	a := addClip(t, m, track, 0, 5)
	addClip(t, m, track, 10, 15)

	got := m.ClipsInRange(srange(2, 8))
	if len(got) != 1 || got[0] != a {
		t.Fatalf("ClipsInRange = %v, want [%d]", got, a)
	}

	// Cached result must not go stale after a mutation.
	c := addClip(t, m, track, 6, 8)
	got = m.ClipsInRange(srange(2, 8))
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Fatalf("ClipsInRange after mutation = %v, want [%d %d]", got, a, c)
	}
}

func TestPlayheadClamping(t *testing.T) {
	m, track := newTestModel(t)
	addClip(t, m, track, 0, 10)

	m.SetPlayhead(sec(25))
	if got := m.Playhead(); got != sec(10) {
		t.Errorf("playhead = %v, want clamped to 10s", got)
	}

	m.SetPlayhead(sec(-5))
	if got := m.Playhead(); got != 0 {
		t.Errorf("playhead = %v, want clamped to 0", got)
	}
}

func TestTrackOrderAndRenumbering(t *testing.T) {
	m := New()
	v1 := m.CreateTrack("V1", TrackVideo, 0)
	a1 := m.CreateTrack("A1", TrackAudio, 1)
	v2 := m.CreateTrack("V2", TrackVideo, 0) // inserted above V1

	order := m.Tracks()
	want := []store.ID{v2, v1, a1}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("track order[%d] = %d, want %d", i, order[i], want[i])
		}
	}

	for i, id := range order {
		tr, _ := m.Track(id)
		if tr.Index != i {
			t.Errorf("track %d index = %d, want %d", id, tr.Index, i)
		}
	}
}

func TestRemoveTrackCascades(t *testing.T) {
	m, track := newTestModel(t)
	a := addClip(t, m, track, 0, 5)
	b := addClip(t, m, track, 5, 10)

	clips, _, err := m.RemoveTrack(track)
	if err != nil {
		t.Fatalf("RemoveTrack: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("RemoveTrack destroyed %d clips, want 2", len(clips))
	}
	if _, ok := m.Clip(a); ok {
		t.Error("clip A should be destroyed with its track")
	}
	if _, ok := m.Clip(b); ok {
		t.Error("clip B should be destroyed with its track")
	}
	if got := m.Duration(); got != 0 {
		t.Errorf("Duration = %v, want 0 after cascade", got)
	}
}

func TestTrackCycleRejected(t *testing.T) {
	m := New()
	parent := m.CreateTrack("group", TrackVideo, 0)
	child := m.CreateTrack("V1", TrackVideo, 1)

	ct, _ := m.Track(child)
	ct.Parent = parent
	if err := m.SetTrack(child, ct); err != nil {
		t.Fatalf("SetTrack parent: %v", err)
	}

	pt, _ := m.Track(parent)
	pt.Parent = child
	if err := m.SetTrack(parent, pt); !errors.Is(err, ErrTrackCycle) {
		t.Errorf("cycle SetTrack: err = %v, want ErrTrackCycle", err)
	}
}

func TestTransitionSanctionsOverlap(t *testing.T) {
	m, track := newTestModel(t)
	a := addClip(t, m, track, 0, 5)
	b := addClip(t, m, track, 5, 10)

	// Sanction an overlap of [4s, 6s) between the two clips.
	trID, err := m.AddTransition(Transition{
		Kind:  "crossfade",
		Range: srange(4, 6),
		From:  a,
		To:    b,
	})
	if err != nil {
		t.Fatalf("AddTransition: %v", err)
	}

	// Extend A into B's head: only legal because of the transition.
	ca, _ := m.Clip(a)
	ca.Timeline.End = sec(6)
	ca.Source.End = ca.Source.Start + ca.SourceForTimeline(ca.Timeline.Duration())
	if err := m.SetClip(a, ca); err != nil {
		t.Fatalf("SetClip with sanctioned overlap: %v", err)
	}

	// An overlap reaching past the transition range stays illegal.
	ca.Timeline.End = sec(7)
	if err := m.SetClip(a, ca); !errors.Is(err, ErrOverlap) {
		t.Errorf("overlap past transition: err = %v, want ErrOverlap", err)
	}

	_ = trID
}

func TestTransitionOutsideClipsRejected(t *testing.T) {
	m, track := newTestModel(t)
	a := addClip(t, m, track, 0, 5)
	b := addClip(t, m, track, 5, 10)

	_, err := m.AddTransition(Transition{Kind: "wipe", Range: srange(9, 12), From: a, To: b})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("out-of-bounds transition: err = %v, want ErrInvalidTransition", err)
	}
}

func TestRemoveClipInvalidatesTransitions(t *testing.T) {
	m, track := newTestModel(t)
	a := addClip(t, m, track, 0, 5)
	b := addClip(t, m, track, 5, 10)
	trID, err := m.AddTransition(Transition{Kind: "crossfade", Range: srange(4, 6), From: a, To: b})
	if err != nil {
		t.Fatalf("AddTransition: %v", err)
	}

	invalidated, err := m.RemoveClip(a)
	if err != nil {
		t.Fatalf("RemoveClip: %v", err)
	}
	if len(invalidated) != 1 || invalidated[0] != trID {
		t.Fatalf("invalidated = %v, want [%d]", invalidated, trID)
	}
	if _, ok := m.Transition(trID); ok {
		t.Error("transition should not dangle after its clip is removed")
	}
}

func TestMarkersSortedByTime(t *testing.T) {
	m := New()
	late := m.AddMarker(NewMarker("late", sec(10)))
	early := m.AddMarker(NewMarker("early", sec(1)))

	got := m.Markers()
	if len(got) != 2 || got[0] != early || got[1] != late {
		t.Fatalf("Markers() = %v, want [%d %d]", got, early, late)
	}
}

func TestSpeedConsistency(t *testing.T) {
	c := NewClip(uuid.New(), srange(0, 10), 0)
	c.Speed = 2
	c.Timeline = timecode.RangeAt(0, c.Source.Duration()/2)

	if !c.SpeedConsistent() {
		t.Errorf("2x clip with halved timeline should be consistent: src %v tl %v",
			c.Source.Duration(), c.Timeline.Duration())
	}

	c.Timeline = timecode.RangeAt(0, c.Source.Duration())
	if c.SpeedConsistent() {
		t.Error("2x clip with full-length timeline should be inconsistent")
	}
}

func TestTrackColorStableAndValid(t *testing.T) {
	for i := 0; i < 8; i++ {
		c := TrackColor(i)
		if !c.Valid() {
			t.Errorf("TrackColor(%d) = %q is not a valid hex color", i, c)
		}
		if c != TrackColor(i) {
			t.Errorf("TrackColor(%d) is not stable", i)
		}
	}
	if TrackColor(0) == TrackColor(1) {
		t.Error("adjacent track colors should differ")
	}
}
