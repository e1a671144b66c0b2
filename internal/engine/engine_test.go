package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
	"github.com/dshills/cutlist/internal/event"
)

func sec(n int64) timecode.TimePoint {
	return timecode.TimePoint(n) * timecode.PerSecond
}

func newClipOn(track ID, start, end int64) Clip {
	c := timeline.NewClip(uuid.New(), timecode.NewRange(0, sec(end-start)), sec(start))
	c.Track = track
	return c
}

func TestCreateTrackAndInsert(t *testing.T) {
	e := New()
	defer e.Close()

	v1, err := e.CreateTrack("V1", TrackVideo, 0)
	if err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}

	id, err := e.InsertClip(newClipOn(v1, 0, 5), InsertReject)
	if err != nil {
		t.Fatalf("InsertClip: %v", err)
	}
	if _, ok := e.Clip(id); !ok {
		t.Fatal("inserted clip not found")
	}
	if got := e.ClipsOnTrack(v1); len(got) != 1 || got[0] != id {
		t.Fatalf("ClipsOnTrack = %v, want [%d]", got, id)
	}
	if e.Duration() != sec(5) {
		t.Fatalf("Duration = %s, want %s", e.Duration(), sec(5))
	}
}

func TestInsertRejectsOverlap(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	if _, err := e.InsertClip(newClipOn(v1, 0, 5), InsertReject); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := e.InsertClip(newClipOn(v1, 3, 8), InsertReject)
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("err = %v, want ErrOverlap", err)
	}
}

func TestUndoRedo(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	id, _ := e.InsertClip(newClipOn(v1, 0, 5), InsertReject)

	done, err := e.Undo()
	if err != nil || !done {
		t.Fatalf("Undo = %v, %v", done, err)
	}
	if _, ok := e.Clip(id); ok {
		t.Fatal("clip still present after undo")
	}

	done, err = e.Redo()
	if err != nil || !done {
		t.Fatalf("Redo = %v, %v", done, err)
	}
	if _, ok := e.Clip(id); !ok {
		t.Fatal("clip not restored by redo")
	}
}

func TestUndoAtBottomIsSilent(t *testing.T) {
	e := New()
	defer e.Close()

	done, err := e.Undo()
	if err != nil || done {
		t.Fatalf("Undo on empty history = %v, %v, want false, nil", done, err)
	}
	done, err = e.Redo()
	if err != nil || done {
		t.Fatalf("Redo on empty history = %v, %v, want false, nil", done, err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	boom := errors.New("boom")

	err := e.Transaction("doomed", func() error {
		if _, err := e.InsertClip(newClipOn(v1, 0, 5), InsertReject); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction err = %v, want boom", err)
	}
	if got := e.ClipsOnTrack(v1); len(got) != 0 {
		t.Fatalf("clips after rollback = %v, want none", got)
	}
	// The track creation preceded the transaction and stays undoable.
	if e.UndoCount() != 1 {
		t.Fatalf("UndoCount = %d, want 1", e.UndoCount())
	}
}

func TestTransactionRecordsOneEntry(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	before := e.UndoCount()

	err := e.Transaction("two inserts", func() error {
		if _, err := e.InsertClip(newClipOn(v1, 0, 2), InsertReject); err != nil {
			return err
		}
		_, err := e.InsertClip(newClipOn(v1, 2, 4), InsertReject)
		return err
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if e.UndoCount() != before+1 {
		t.Fatalf("UndoCount = %d, want %d", e.UndoCount(), before+1)
	}

	if done, _ := e.Undo(); !done {
		t.Fatal("undo did nothing")
	}
	if got := e.ClipsOnTrack(v1); len(got) != 0 {
		t.Fatalf("clips after undo = %v, want none", got)
	}
}

func TestTrimAndSplit(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	id, _ := e.InsertClip(newClipOn(v1, 0, 10), InsertReject)

	if err := e.TrimEnd(id, sec(8)); err != nil {
		t.Fatalf("TrimEnd: %v", err)
	}
	tail, err := e.Split(id, sec(4))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	head, _ := e.Clip(id)
	tc, _ := e.Clip(tail)
	if head.Timeline.End != sec(4) || tc.Timeline.Start != sec(4) || tc.Timeline.End != sec(8) {
		t.Fatalf("split ranges = %s / %s", head.Timeline, tc.Timeline)
	}
}

func TestSelectionCoalesces(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	a, _ := e.InsertClip(newClipOn(v1, 0, 2), InsertReject)
	b, _ := e.InsertClip(newClipOn(v1, 2, 4), InsertReject)

	before := e.UndoCount()
	e.Select(SelectNormal, a)
	e.Select(SelectAdditive, b)

	if !e.IsSelected(a) || !e.IsSelected(b) {
		t.Fatal("both clips should be selected")
	}
	// Consecutive selection changes merge into one history entry.
	if e.UndoCount() != before+1 {
		t.Fatalf("UndoCount = %d, want %d", e.UndoCount(), before+1)
	}

	if done, _ := e.Undo(); !done {
		t.Fatal("undo did nothing")
	}
	if e.SelectionLen() != 0 {
		t.Fatalf("SelectionLen after undo = %d, want 0", e.SelectionLen())
	}
}

func TestSelectRegion(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	a, _ := e.InsertClip(newClipOn(v1, 0, 2), InsertReject)
	_, _ = e.InsertClip(newClipOn(v1, 5, 8), InsertReject)

	e.SelectRegion(timecode.NewRange(0, sec(3)), 0, 0, SelectNormal)
	if got := e.SelectedIDs(); len(got) != 1 || got[0] != a {
		t.Fatalf("SelectedIDs = %v, want [%d]", got, a)
	}
}

func TestCutPaste(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	id, _ := e.InsertClip(newClipOn(v1, 0, 3), InsertReject)

	if err := e.Cut(id); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	if _, ok := e.Clip(id); ok {
		t.Fatal("clip still on timeline after cut")
	}

	pasted, err := e.Paste(sec(10), InvalidID)
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if len(pasted) != 1 {
		t.Fatalf("pasted %d clips, want 1", len(pasted))
	}
	c, ok := e.Clip(pasted[0])
	if !ok {
		t.Fatal("pasted clip not found")
	}
	if c.Timeline.Start != sec(10) || c.Track != v1 {
		t.Fatalf("pasted clip at %s on track %d", c.Timeline.Start, c.Track)
	}
}

func TestPasteEmptyClipboard(t *testing.T) {
	e := New()
	defer e.Close()

	_, err := e.Paste(0, InvalidID)
	if !errors.Is(err, ErrEmptyClipboard) {
		t.Fatalf("err = %v, want ErrEmptyClipboard", err)
	}
}

func TestSnap(t *testing.T) {
	e := New(WithSnapThreshold(sec(1) / 2))
	defer e.Close()

	if _, err := e.AddMarker(timeline.NewMarker("beat", sec(10))); err != nil {
		t.Fatalf("AddMarker: %v", err)
	}

	got, ok := e.Snap(sec(10) + sec(1)/4)
	if !ok || got != sec(10) {
		t.Fatalf("Snap = %s, %v, want %s, true", got, ok, sec(10))
	}
	if _, ok := e.Snap(sec(20)); ok {
		t.Fatal("snap found far from any target")
	}
}

func TestSaveLoadFile(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	_, _ = e.InsertClip(newClipOn(v1, 0, 5), InsertReject)
	e.SetPlayhead(sec(2))

	path := filepath.Join(t.TempDir(), "proj.clp")
	if err := e.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	e2 := New()
	defer e2.Close()
	if err := e2.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(e2.Tracks()) != 1 {
		t.Fatalf("tracks = %d, want 1", len(e2.Tracks()))
	}
	tracks := e2.Tracks()
	if got := e2.ClipsOnTrack(tracks[0]); len(got) != 1 {
		t.Fatalf("clips = %d, want 1", len(got))
	}
	if e2.Playhead() != sec(2) {
		t.Fatalf("playhead = %s, want %s", e2.Playhead(), sec(2))
	}
	// Loading resets history: nothing to undo into the previous project.
	if e2.CanUndo() {
		t.Fatal("loaded engine should have empty history")
	}
}

// A project whose clips legally overlap under a crossfade must load
// back the way it was saved.
func TestSaveLoadKeepsTransitionOverlap(t *testing.T) {
	e := New()
	defer e.Close()

	v1, err := e.CreateTrack("V1", TrackVideo, 0)
	if err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}
	a, err := e.InsertClip(newClipOn(v1, 0, 10), InsertReject)
	if err != nil {
		t.Fatalf("InsertClip: %v", err)
	}
	bc := timeline.NewClip(uuid.New(), timecode.NewRange(sec(2), sec(14)), sec(10))
	bc.Track = v1
	b, err := e.InsertClip(bc, InsertReject)
	if err != nil {
		t.Fatalf("InsertClip: %v", err)
	}
	if _, err := e.AddTransition(Transition{
		Kind:  "crossfade",
		Range: timecode.NewRange(sec(8), sec(12)),
		From:  a,
		To:    b,
	}); err != nil {
		t.Fatalf("AddTransition: %v", err)
	}
	if err := e.TrimStart(b, sec(8)); err != nil {
		t.Fatalf("TrimStart under transition: %v", err)
	}

	path := filepath.Join(t.TempDir(), "overlap.clp")
	if err := e.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	e2 := New()
	defer e2.Close()
	if err := e2.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	tracks := e2.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("tracks = %d, want 1", len(tracks))
	}
	clips := e2.ClipsOnTrack(tracks[0])
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	loaded, _ := e2.Clip(clips[1])
	if loaded.Timeline != timecode.NewRange(sec(8), sec(22)) {
		t.Errorf("incoming clip = %v, want [8s, 22s)", loaded.Timeline)
	}
	if len(e2.Transitions()) != 1 {
		t.Errorf("transitions = %d, want 1", len(e2.Transitions()))
	}
}

func TestLoadCorruptLeavesStateIntact(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	id, _ := e.InsertClip(newClipOn(v1, 0, 5), InsertReject)

	path := filepath.Join(t.TempDir(), "garbage.clp")
	if err := os.WriteFile(path, []byte("not a project"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.LoadFile(path); err == nil {
		t.Fatal("expected load error")
	}
	if _, ok := e.Clip(id); !ok {
		t.Fatal("failed load disturbed the current timeline")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	e := New()
	defer e.Close()

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	_, _ = e.InsertClip(newClipOn(v1, 0, 5), InsertReject)

	data, err := e.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	e2 := New()
	defer e2.Close()
	if err := e2.ImportJSON(data); err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if len(e2.Tracks()) != 1 {
		t.Fatalf("tracks = %d, want 1", len(e2.Tracks()))
	}
}

func TestEventsPublished(t *testing.T) {
	e := New()
	defer e.Close()

	var topics []event.Topic
	e.Subscribe("edit.*", func(ev event.Event) {
		topics = append(topics, ev.Topic)
	})

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	_, _ = e.InsertClip(newClipOn(v1, 0, 5), InsertReject)
	_, _ = e.Undo()
	_, _ = e.Redo()

	want := []event.Topic{
		event.TopicEditApplied, // create track
		event.TopicEditApplied, // insert
		event.TopicEditUndone,
		event.TopicEditRedone,
	}
	if len(topics) != len(want) {
		t.Fatalf("topics = %v, want %v", topics, want)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Fatalf("topics[%d] = %s, want %s", i, topics[i], want[i])
		}
	}
}

func TestSelectionEventCarriesCount(t *testing.T) {
	e := New()
	defer e.Close()

	var counts []int
	e.Subscribe(event.TopicSelectionChanged, func(ev event.Event) {
		counts = append(counts, ev.Payload.(int))
	})

	v1, _ := e.CreateTrack("V1", TrackVideo, 0)
	a, _ := e.InsertClip(newClipOn(v1, 0, 2), InsertReject)
	b, _ := e.InsertClip(newClipOn(v1, 2, 4), InsertReject)

	e.Select(SelectNormal, a)
	e.Select(SelectAdditive, b)
	e.ClearSelection()

	want := []int{1, 2, 0}
	if len(counts) != len(want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("counts[%d] = %d, want %d", i, counts[i], want[i])
		}
	}
}
