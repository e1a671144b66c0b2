// Package selection tracks which timeline entities are selected.
//
// Clips, markers, and transitions share one selection set; tracks are
// selected independently so a track selection never conflicts with the
// clips on it. A focus anchor remembers the most recently selected
// entity, which range-based operations use as their pivot.
package selection

import (
	"sort"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// Mode controls how a selection operation combines with the current set.
type Mode int

const (
	// ModeNormal replaces the current selection.
	ModeNormal Mode = iota
	// ModeAdditive adds to the current selection.
	ModeAdditive
	// ModeSubtractive removes from the current selection.
	ModeSubtractive
	// ModeToggle flips membership of each target.
	ModeToggle
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeAdditive:
		return "additive"
	case ModeSubtractive:
		return "subtractive"
	case ModeToggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// Set holds the current selection state.
type Set struct {
	entities map[store.ID]bool
	tracks   map[store.ID]bool
	focus    store.ID
}

// New creates an empty selection.
func New() *Set {
	return &Set{
		entities: make(map[store.ID]bool),
		tracks:   make(map[store.ID]bool),
		focus:    store.InvalidID,
	}
}

// Apply combines the given entities with the selection under mode.
// Track IDs go to the track set, everything else to the entity set.
// Dead or unknown IDs are ignored. The last entity that ends up
// selected becomes the focus.
func (s *Set) Apply(m *timeline.Model, mode Mode, ids ...store.ID) {
	if mode == ModeNormal {
		s.entities = make(map[store.ID]bool)
		s.tracks = make(map[store.ID]bool)
		s.focus = store.InvalidID
	}
	for _, id := range ids {
		if !m.Store().Alive(id) {
			continue
		}
		k, _ := m.Store().Kind(id)
		isTrack := k == store.KindTrack
		target := s.entities
		if isTrack {
			target = s.tracks
		}
		switch mode {
		case ModeSubtractive:
			delete(target, id)
		case ModeToggle:
			if target[id] {
				delete(target, id)
			} else {
				target[id] = true
			}
		default:
			target[id] = true
		}
		if !isTrack {
			if s.entities[id] {
				s.focus = id
			} else if s.focus == id {
				s.focus = store.InvalidID
			}
		}
	}
}

// Region selects the clips whose timeline range overlaps span on
// tracks with index in [lo, hi], combined under mode.
func (s *Set) Region(m *timeline.Model, span timecode.TimeRange, lo, hi int, mode Mode) {
	var hits []store.ID
	for _, trackID := range m.Tracks() {
		t, ok := m.Track(trackID)
		if !ok || t.Index < lo || t.Index > hi {
			continue
		}
		for _, id := range m.ClipsOnTrack(trackID) {
			c, ok := m.Clip(id)
			if ok && c.Timeline.Overlaps(span) {
				hits = append(hits, id)
			}
		}
	}
	s.applyHits(mode, hits)
}

// Extend grows the selection from the focus clip to the target clip:
// every clip overlapping the time span between the two, on tracks with
// indices between theirs, becomes the entity selection. The focus
// stays anchored. Without a live focus it behaves as a normal select
// of the target.
func (s *Set) Extend(m *timeline.Model, target store.ID) {
	tc, ok := m.Clip(target)
	if !ok {
		return
	}
	fc, ok := m.Clip(s.focus)
	if !ok {
		s.Apply(m, ModeNormal, target)
		return
	}

	span := fc.Timeline.Union(tc.Timeline)
	lo, hi := trackIndex(m, fc.Track), trackIndex(m, tc.Track)
	if lo > hi {
		lo, hi = hi, lo
	}

	anchor := s.focus
	s.Region(m, span, lo, hi, ModeNormal)
	s.entities[anchor] = true
	s.focus = anchor
}

// trackIndex returns a track's composite index, -1 for a dead track.
func trackIndex(m *timeline.Model, id store.ID) int {
	t, ok := m.Track(id)
	if !ok {
		return -1
	}
	return t.Index
}

// Point is a position in time-by-track space. Track is fractional so a
// polygon can cut through the middle of a lane.
type Point struct {
	Time  timecode.TimePoint
	Track float64
}

// Lasso selects the clips whose center falls inside the polygon,
// combined under mode. A clip's center is the midpoint of its timeline
// range at its track index plus one half.
func (s *Set) Lasso(m *timeline.Model, polygon []Point, mode Mode) {
	if len(polygon) < 3 {
		if mode == ModeNormal {
			s.applyHits(mode, nil)
		}
		return
	}
	var hits []store.ID
	for _, trackID := range m.Tracks() {
		t, ok := m.Track(trackID)
		if !ok {
			continue
		}
		lane := float64(t.Index) + 0.5
		for _, id := range m.ClipsOnTrack(trackID) {
			c, ok := m.Clip(id)
			if !ok {
				continue
			}
			mid := c.Timeline.Start + c.Timeline.Duration()/2
			if insidePolygon(polygon, Point{Time: mid, Track: lane}) {
				hits = append(hits, id)
			}
		}
	}
	s.applyHits(mode, hits)
}

// applyHits is Apply for pre-validated clip hits; unlike Apply it
// replaces only the entity set under ModeNormal, leaving tracks alone.
func (s *Set) applyHits(mode Mode, hits []store.ID) {
	if mode == ModeNormal {
		s.entities = make(map[store.ID]bool)
		s.focus = store.InvalidID
	}
	for _, id := range hits {
		switch mode {
		case ModeSubtractive:
			delete(s.entities, id)
			if s.focus == id {
				s.focus = store.InvalidID
			}
		case ModeToggle:
			if s.entities[id] {
				delete(s.entities, id)
				if s.focus == id {
					s.focus = store.InvalidID
				}
			} else {
				s.entities[id] = true
				s.focus = id
			}
		default:
			s.entities[id] = true
			s.focus = id
		}
	}
}

// insidePolygon reports whether p lies inside the polygon, by ray
// casting along the time axis.
func insidePolygon(polygon []Point, p Point) bool {
	inside := false
	n := len(polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := polygon[i], polygon[j]
		if (a.Track > p.Track) != (b.Track > p.Track) {
			cross := float64(b.Time-a.Time)*(p.Track-a.Track)/(b.Track-a.Track) + float64(a.Time)
			if float64(p.Time) < cross {
				inside = !inside
			}
		}
	}
	return inside
}

// Contains reports whether the entity is selected.
func (s *Set) Contains(id store.ID) bool {
	return s.entities[id] || s.tracks[id]
}

// Focus returns the anchor entity, or InvalidID when none.
func (s *Set) Focus() store.ID {
	return s.focus
}

// SetFocus moves the anchor to an already-selected entity. A non-member
// is ignored.
func (s *Set) SetFocus(id store.ID) {
	if s.entities[id] {
		s.focus = id
	}
}

// IDs returns the selected entities in ascending order.
func (s *Set) IDs() []store.ID {
	ids := make([]store.ID, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Tracks returns the selected tracks in ascending order.
func (s *Set) Tracks() []store.ID {
	ids := make([]store.ID, 0, len(s.tracks))
	for id := range s.tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of selected entities, tracks excluded.
func (s *Set) Len() int {
	return len(s.entities)
}

// Clear empties the selection and the focus.
func (s *Set) Clear() {
	s.entities = make(map[store.ID]bool)
	s.tracks = make(map[store.ID]bool)
	s.focus = store.InvalidID
}

// Prune drops entities that are no longer alive. Deletion of a selected
// clip must not poison later selection reads.
func (s *Set) Prune(m *timeline.Model) {
	for id := range s.entities {
		if !m.Store().Alive(id) {
			delete(s.entities, id)
		}
	}
	for id := range s.tracks {
		if !m.Store().Alive(id) {
			delete(s.tracks, id)
		}
	}
	if s.focus != store.InvalidID && !s.entities[s.focus] {
		s.focus = store.InvalidID
	}
}

// Snapshot captures the selection for later Restore.
func (s *Set) Snapshot() State {
	st := State{Focus: s.focus}
	st.Entities = make([]store.ID, 0, len(s.entities))
	for id := range s.entities {
		st.Entities = append(st.Entities, id)
	}
	st.Tracks = make([]store.ID, 0, len(s.tracks))
	for id := range s.tracks {
		st.Tracks = append(st.Tracks, id)
	}
	return st
}

// Restore replaces the selection with a snapshot.
func (s *Set) Restore(st State) {
	s.entities = make(map[store.ID]bool, len(st.Entities))
	for _, id := range st.Entities {
		s.entities[id] = true
	}
	s.tracks = make(map[store.ID]bool, len(st.Tracks))
	for _, id := range st.Tracks {
		s.tracks[id] = true
	}
	s.focus = st.Focus
}

// State is a point-in-time copy of a selection.
type State struct {
	Entities []store.ID
	Tracks   []store.ID
	Focus    store.ID
}
