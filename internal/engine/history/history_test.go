package history

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/dshills/cutlist/internal/engine/edit"
	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

func sec(s float64) timecode.TimePoint {
	return timecode.FromSeconds(s)
}

func videoTrack(t *testing.T) (*timeline.Model, store.ID) {
	t.Helper()
	m := timeline.New()
	return m, m.CreateTrack("V1", timeline.TrackVideo, 0)
}

func insertCmd(track store.ID, start, end float64) *edit.InsertCommand {
	c := timeline.NewClip(uuid.New(), timecode.NewRange(sec(0), sec(end-start)), sec(start))
	c.Track = track
	return edit.NewInsert(c, edit.InsertReject, nil)
}

func clipCount(m *timeline.Model) int {
	n := 0
	m.EachClip(func(store.ID, timeline.Clip) bool {
		n++
		return true
	})
	return n
}

func TestExecuteUndoRedo(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(10)

	if err := h.Execute(insertCmd(track, 0, 5), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if clipCount(m) != 1 {
		t.Fatalf("clip count = %d, want 1", clipCount(m))
	}

	ok, err := h.Undo(m)
	if err != nil || !ok {
		t.Fatalf("undo = %v, %v; want true, nil", ok, err)
	}
	if clipCount(m) != 0 {
		t.Errorf("clip count after undo = %d, want 0", clipCount(m))
	}

	ok, err = h.Redo(m)
	if err != nil || !ok {
		t.Fatalf("redo = %v, %v; want true, nil", ok, err)
	}
	if clipCount(m) != 1 {
		t.Errorf("clip count after redo = %d, want 1", clipCount(m))
	}
}

func TestUndoRedoAtEndsAreSilent(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(10)

	if ok, err := h.Undo(m); ok || err != nil {
		t.Errorf("undo of empty history = %v, %v; want false, nil", ok, err)
	}
	if ok, err := h.Redo(m); ok || err != nil {
		t.Errorf("redo of empty history = %v, %v; want false, nil", ok, err)
	}

	if err := h.Execute(insertCmd(track, 0, 5), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if ok, err := h.Redo(m); ok || err != nil {
		t.Errorf("redo with empty redo stack = %v, %v; want false, nil", ok, err)
	}
	if clipCount(m) != 1 {
		t.Error("silent no-op must not touch the model")
	}
}

func TestRedoStableClipID(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(10)

	cmd := insertCmd(track, 0, 5)
	if err := h.Execute(cmd, m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	before := cmd.References()[0]

	if _, err := h.Undo(m); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if _, err := h.Redo(m); err != nil {
		t.Fatalf("redo: %v", err)
	}

	if _, ok := m.Clip(before); !ok {
		t.Errorf("redo should revive clip %d under the same ID", before)
	}
}

func TestPushClearsRedo(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(10)

	if err := h.Execute(insertCmd(track, 0, 5), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, err := h.Undo(m); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !h.CanRedo() {
		t.Fatal("redo should be available after undo")
	}

	if err := h.Execute(insertCmd(track, 10, 15), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if h.CanRedo() {
		t.Error("new edit should clear the redo stack")
	}
}

func TestBatchUndoesAsOne(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(10)

	h.BeginBatch("insert pair")
	if err := h.Execute(insertCmd(track, 0, 5), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := h.Execute(insertCmd(track, 5, 10), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	h.EndBatch(m)

	if h.UndoCount() != 1 {
		t.Fatalf("undo count = %d, want 1 batch", h.UndoCount())
	}
	if _, err := h.Undo(m); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if clipCount(m) != 0 {
		t.Errorf("clip count = %d, want 0 after batched undo", clipCount(m))
	}
}

func TestCancelBatchRollsBack(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(10)

	h.BeginBatch("doomed")
	if err := h.Execute(insertCmd(track, 0, 5), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := h.CancelBatch(m); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if clipCount(m) != 0 {
		t.Errorf("clip count = %d, want 0 after cancel", clipCount(m))
	}
	if h.UndoCount() != 0 {
		t.Errorf("undo count = %d, want 0", h.UndoCount())
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(10)

	boom := errors.New("boom")
	err := h.Transaction("failing edit", m, func() error {
		if err := h.Execute(insertCmd(track, 0, 5), m); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if clipCount(m) != 0 {
		t.Errorf("clip count = %d, want 0 after failed transaction", clipCount(m))
	}
}

func TestEvictionReclaimsEntities(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(1)

	ins := insertCmd(track, 0, 5)
	if err := ins.Execute(m); err != nil {
		t.Fatalf("insert: %v", err)
	}
	id := ins.References()[0]

	// Removing the clip tombstones it; the remove batch keeps it alive.
	if err := h.Execute(edit.NewRemove(id), m); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !m.Store().Exists(id) {
		t.Fatal("tombstoned clip should still exist while undoable")
	}

	// A second batch evicts the first from a depth-1 history.
	if err := h.Execute(insertCmd(track, 10, 15), m); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if m.Store().Exists(id) {
		t.Error("evicted batch should release its entities for reclaim")
	}
	if h.UndoCount() != 1 {
		t.Errorf("undo count = %d, want 1", h.UndoCount())
	}
}

func TestClearReclaims(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(10)

	ins := insertCmd(track, 0, 5)
	if err := ins.Execute(m); err != nil {
		t.Fatalf("insert: %v", err)
	}
	id := ins.References()[0]
	if err := h.Execute(edit.NewRemove(id), m); err != nil {
		t.Fatalf("remove: %v", err)
	}

	h.Clear(m)
	if h.CanUndo() || h.CanRedo() {
		t.Error("clear should empty both stacks")
	}
	if m.Store().Exists(id) {
		t.Error("clear should reclaim entities only the history kept")
	}
}

func TestUndoInfo(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(10)

	h.BeginBatch("Insert Pair")
	if err := h.Execute(insertCmd(track, 0, 5), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := h.Execute(insertCmd(track, 5, 10), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	h.EndBatch(m)

	info := h.UndoInfo()
	if len(info) != 1 {
		t.Fatalf("len(info) = %d, want 1", len(info))
	}
	if info[0].Description != "Insert Pair" || info[0].Commands != 2 {
		t.Errorf("info = %+v", info[0])
	}
}

func TestCheckpoint(t *testing.T) {
	m, track := videoTrack(t)
	h := NewHistory(10)

	if err := h.Execute(insertCmd(track, 0, 5), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cp := h.CreateCheckpoint()

	if err := h.Execute(insertCmd(track, 5, 10), m); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := h.Execute(insertCmd(track, 10, 15), m); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if err := h.UndoToCheckpoint(cp, m); err != nil {
		t.Fatalf("undo to checkpoint: %v", err)
	}
	if clipCount(m) != 1 {
		t.Errorf("clip count = %d, want 1 at checkpoint", clipCount(m))
	}

	if err := h.RedoToCheckpoint(Checkpoint{undoDepth: 3}, m); err != nil {
		t.Fatalf("redo to checkpoint: %v", err)
	}
	if clipCount(m) != 3 {
		t.Errorf("clip count = %d, want 3", clipCount(m))
	}
}
