package store

import (
	"errors"
	"testing"
)

func TestCreateAssignsUniqueIDs(t *testing.T) {
	s := New()

	a := s.Create(KindClip)
	b := s.Create(KindTrack)

	if a == b {
		t.Fatal("IDs should be unique")
	}
	if a == InvalidID || b == InvalidID {
		t.Fatal("IDs should not be the invalid ID")
	}
	if !s.Alive(a) || !s.Alive(b) {
		t.Error("created entities should be alive")
	}
}

func TestKind(t *testing.T) {
	s := New()
	id := s.Create(KindMarker)

	k, err := s.Kind(id)
	if err != nil {
		t.Fatalf("Kind: %v", err)
	}
	if k != KindMarker {
		t.Errorf("Kind = %v, want marker", k)
	}

	if _, err := s.Kind(ID(999)); !errors.Is(err, ErrInvalidEntity) {
		t.Errorf("Kind of unknown entity: err = %v, want ErrInvalidEntity", err)
	}
}

func TestReclaimOrphans(t *testing.T) {
	s := New()
	id := s.Create(KindClip)

	if err := s.Destroy(id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if !s.Exists(id) {
		t.Fatal("tombstone should survive until reclaimed")
	}

	s.ReclaimOrphans()
	if s.Exists(id) {
		t.Error("unretained tombstone should be reclaimed by ReclaimOrphans")
	}
}

func TestDestroyTwiceFails(t *testing.T) {
	s := New()
	id := s.Create(KindClip)
	s.Retain(id)

	if err := s.Destroy(id); err != nil {
		t.Fatalf("first Destroy: %v", err)
	}
	if err := s.Destroy(id); !errors.Is(err, ErrInvalidEntity) {
		t.Errorf("second Destroy: err = %v, want ErrInvalidEntity", err)
	}
}

func TestDeferredReclaim(t *testing.T) {
	s := New()
	tbl := NewTable[string](s)
	id := s.Create(KindClip)
	if err := tbl.Attach(id, "payload"); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	s.Retain(id)
	if err := s.Destroy(id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	// Tombstoned: gone from the live table, snapshot retrievable.
	if s.Alive(id) {
		t.Error("destroyed entity should not be alive")
	}
	if tbl.Has(id) {
		t.Error("destroyed entity should leave the live table")
	}
	snap, ok := tbl.Snapshot(id)
	if !ok || snap != "payload" {
		t.Errorf("Snapshot = %q, %v; want %q, true", snap, ok, "payload")
	}

	// Last release reclaims.
	s.Release(id)
	if s.Exists(id) {
		t.Error("released tombstone should be reclaimed")
	}
	if _, ok := tbl.Snapshot(id); ok {
		t.Error("reclaimed entity should have no snapshot")
	}
}

func TestRevive(t *testing.T) {
	s := New()
	tbl := NewTable[int](s)
	id := s.Create(KindClip)
	_ = tbl.Attach(id, 42)

	s.Retain(id)
	_ = s.Destroy(id)

	if err := s.Revive(id); err != nil {
		t.Fatalf("Revive: %v", err)
	}
	if !s.Alive(id) {
		t.Error("revived entity should be alive")
	}
	// Attributes are re-attached by the caller.
	if tbl.Has(id) {
		t.Error("revive should not restore attributes by itself")
	}
	if err := tbl.Attach(id, 42); err != nil {
		t.Errorf("Attach after revive: %v", err)
	}
}

func TestAttachToDeadEntityFails(t *testing.T) {
	s := New()
	tbl := NewTable[int](s)
	id := s.Create(KindClip)
	_ = s.Destroy(id)

	if err := tbl.Attach(id, 1); !errors.Is(err, ErrInvalidEntity) {
		t.Errorf("Attach to dead entity: err = %v, want ErrInvalidEntity", err)
	}
}

func TestGenerationBumpsOnMutation(t *testing.T) {
	s := New()
	tbl := NewTable[int](s)

	g0 := s.Generation()
	id := s.Create(KindClip)
	g1 := s.Generation()
	if g1 <= g0 {
		t.Error("Create should bump the generation")
	}

	_ = tbl.Attach(id, 1)
	g2 := s.Generation()
	if g2 <= g1 {
		t.Error("Attach should bump the generation")
	}

	tbl.Detach(id)
	g3 := s.Generation()
	if g3 <= g2 {
		t.Error("Detach should bump the generation")
	}

	_ = s.Destroy(id)
	if s.Generation() <= g3 {
		t.Error("Destroy should bump the generation")
	}
}

func TestIDsNeverReused(t *testing.T) {
	s := New()
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := s.Create(KindClip)
		if seen[id] {
			t.Fatalf("ID %d reused", id)
		}
		seen[id] = true
		_ = s.Destroy(id)
	}
}

func TestCount(t *testing.T) {
	s := New()
	s.Create(KindClip)
	s.Create(KindClip)
	s.Create(KindTrack)

	if got := s.Count(KindClip); got != 2 {
		t.Errorf("Count(clip) = %d, want 2", got)
	}
	if got := s.Count(KindTransition); got != 0 {
		t.Errorf("Count(transition) = %d, want 0", got)
	}
}

func TestTableEach(t *testing.T) {
	s := New()
	tbl := NewTable[int](s)
	want := map[ID]int{}
	for i := 1; i <= 5; i++ {
		id := s.Create(KindMarker)
		_ = tbl.Attach(id, i)
		want[id] = i
	}

	got := map[ID]int{}
	tbl.Each(func(id ID, v int) bool {
		got[id] = v
		return true
	})

	if len(got) != len(want) {
		t.Fatalf("Each visited %d entries, want %d", len(got), len(want))
	}
	for id, v := range want {
		if got[id] != v {
			t.Errorf("Each[%d] = %d, want %d", id, got[id], v)
		}
	}
}
