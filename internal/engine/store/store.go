// Package store provides the entity store underlying the timeline model.
//
// An entity is an opaque stable identifier plus a declared kind. Typed
// attribute bundles are held in Tables registered against the store.
// Identifiers are never reused. Destroying an entity tombstones it: the
// entity leaves every table but its last attribute snapshot remains
// retrievable until all retainers (undo/redo history entries) release it,
// after which it is reclaimed.
//
// Every structural mutation increments a generation counter. Callers that
// cache query results key them by the generation; a mismatch forces a
// recompute, so stale reads are impossible by construction.
package store

import (
	"errors"
	"fmt"
)

// ErrInvalidEntity indicates a reference to a destroyed or nonexistent entity.
var ErrInvalidEntity = errors.New("invalid entity")

// ID is a stable entity identifier. IDs are never reused.
type ID uint64

// InvalidID is the zero ID; it never refers to an entity.
const InvalidID ID = 0

// Kind declares what an entity represents.
type Kind uint8

// Entity kinds.
const (
	KindClip Kind = iota + 1
	KindTrack
	KindMarker
	KindTransition
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindClip:
		return "clip"
	case KindTrack:
		return "track"
	case KindMarker:
		return "marker"
	case KindTransition:
		return "transition"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// record tracks one entity's lifecycle state.
type record struct {
	kind      Kind
	tombstone bool
	retains   int
}

// tableRef is the store's view of a registered attribute table.
type tableRef interface {
	entomb(id ID)
	reclaim(id ID)
}

// Store is the entity table. It is not safe for concurrent use; the
// engine facade serializes access (single-writer discipline).
type Store struct {
	nextID   ID
	entities map[ID]*record
	tables   []tableRef
	gen      uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:   1,
		entities: make(map[ID]*record),
	}
}

// Generation returns the structural mutation counter.
func (s *Store) Generation() uint64 {
	return s.gen
}

// bump records a structural mutation.
func (s *Store) bump() {
	s.gen++
}

// Create allocates a new entity of the given kind.
func (s *Store) Create(kind Kind) ID {
	id := s.nextID
	s.nextID++
	s.entities[id] = &record{kind: kind}
	s.bump()
	return id
}

// Alive returns true if the entity exists and has not been destroyed.
func (s *Store) Alive(id ID) bool {
	rec, ok := s.entities[id]
	return ok && !rec.tombstone
}

// Exists returns true if the entity exists, alive or tombstoned.
func (s *Store) Exists(id ID) bool {
	_, ok := s.entities[id]
	return ok
}

// Kind returns the entity's kind. Tombstoned entities keep their kind.
func (s *Store) Kind(id ID) (Kind, error) {
	rec, ok := s.entities[id]
	if !ok {
		return 0, fmt.Errorf("kind of %d: %w", id, ErrInvalidEntity)
	}
	return rec.kind, nil
}

// Destroy tombstones an entity: it leaves every table but its attribute
// snapshots stay retrievable. Reclamation is deferred until every
// retainer releases it (see Release), or until ReclaimOrphans for
// entities no history entry ever retained. Destruction and retention
// are decoupled because a destroy executes before the history batch
// that references it is recorded.
func (s *Store) Destroy(id ID) error {
	rec, ok := s.entities[id]
	if !ok || rec.tombstone {
		return fmt.Errorf("destroy %d: %w", id, ErrInvalidEntity)
	}

	rec.tombstone = true
	for _, t := range s.tables {
		t.entomb(id)
	}
	s.bump()
	return nil
}

// ReclaimOrphans reclaims every tombstoned entity with no retainers.
// Called when history is cleared or an entity's batch never recorded.
func (s *Store) ReclaimOrphans() {
	var dead []ID
	for id, rec := range s.entities {
		if rec.tombstone && rec.retains == 0 {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		s.reclaim(id)
	}
}

// Revive restores a tombstoned entity to the live set. Its attribute
// snapshots are re-attached by the caller (used by undo of a destroy).
func (s *Store) Revive(id ID) error {
	rec, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("revive %d: %w", id, ErrInvalidEntity)
	}
	if !rec.tombstone {
		return nil
	}
	rec.tombstone = false
	s.bump()
	return nil
}

// Retain marks the entity as referenced by a history entry, deferring
// reclamation. Unknown IDs are ignored.
func (s *Store) Retain(id ID) {
	if rec, ok := s.entities[id]; ok {
		rec.retains++
	}
}

// Release drops one retainer. A tombstoned entity with no remaining
// retainers is reclaimed.
func (s *Store) Release(id ID) {
	rec, ok := s.entities[id]
	if !ok {
		return
	}
	if rec.retains > 0 {
		rec.retains--
	}
	if rec.tombstone && rec.retains == 0 {
		s.reclaim(id)
	}
}

// reclaim removes a tombstoned entity and its snapshots for good.
func (s *Store) reclaim(id ID) {
	for _, t := range s.tables {
		t.reclaim(id)
	}
	delete(s.entities, id)
	s.bump()
}

// Each calls fn for every live entity, stopping if fn returns false.
// Iteration order is unspecified.
func (s *Store) Each(fn func(ID, Kind) bool) {
	for id, rec := range s.entities {
		if rec.tombstone {
			continue
		}
		if !fn(id, rec.kind) {
			return
		}
	}
}

// Count returns the number of live entities of the given kind.
func (s *Store) Count(kind Kind) int {
	n := 0
	for _, rec := range s.entities {
		if !rec.tombstone && rec.kind == kind {
			n++
		}
	}
	return n
}

// register adds a table to the store's cascade list.
func (s *Store) register(t tableRef) {
	s.tables = append(s.tables, t)
}

// Table holds one typed attribute bundle per entity. Attach and Detach
// count as structural mutations; value updates through Attach do too.
type Table[T any] struct {
	store *Store
	live  map[ID]T
	dead  map[ID]T
}

// NewTable creates a table and registers it with the store so that
// Destroy/Reclaim cascade into it.
func NewTable[T any](s *Store) *Table[T] {
	t := &Table[T]{
		store: s,
		live:  make(map[ID]T),
		dead:  make(map[ID]T),
	}
	s.register(t)
	return t
}

// Attach sets the entity's attribute value, replacing any prior value.
// Fails if the entity is not alive.
func (t *Table[T]) Attach(id ID, v T) error {
	if !t.store.Alive(id) {
		return fmt.Errorf("attach to %d: %w", id, ErrInvalidEntity)
	}
	t.live[id] = v
	t.store.bump()
	return nil
}

// Get returns the attribute value for a live entity.
func (t *Table[T]) Get(id ID) (T, bool) {
	v, ok := t.live[id]
	return v, ok
}

// Has returns true if the live entity carries this attribute.
func (t *Table[T]) Has(id ID) bool {
	_, ok := t.live[id]
	return ok
}

// Detach removes the attribute from a live entity.
// Returns false if the entity did not carry it.
func (t *Table[T]) Detach(id ID) bool {
	if _, ok := t.live[id]; !ok {
		return false
	}
	delete(t.live, id)
	t.store.bump()
	return true
}

// Snapshot returns the attribute value for a live or tombstoned entity.
// For tombstoned entities this is the value at destruction time.
func (t *Table[T]) Snapshot(id ID) (T, bool) {
	if v, ok := t.live[id]; ok {
		return v, true
	}
	v, ok := t.dead[id]
	return v, ok
}

// Each calls fn for every live (id, value) pair, stopping if fn returns
// false. Iteration order is unspecified.
func (t *Table[T]) Each(fn func(ID, T) bool) {
	for id, v := range t.live {
		if !fn(id, v) {
			return
		}
	}
}

// Len returns the number of live entities carrying this attribute.
func (t *Table[T]) Len() int {
	return len(t.live)
}

// entomb moves the entity's value into the tombstone snapshot set.
func (t *Table[T]) entomb(id ID) {
	if v, ok := t.live[id]; ok {
		t.dead[id] = v
		delete(t.live, id)
	}
}

// reclaim drops the tombstone snapshot.
func (t *Table[T]) reclaim(id ID) {
	delete(t.dead, id)
}
