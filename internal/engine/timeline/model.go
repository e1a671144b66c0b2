package timeline

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
)

// rangeCacheSize bounds the number of cached range-query results.
const rangeCacheSize = 128

// rangeKey keys a cached range query by the store generation it was
// computed at. A structural mutation bumps the generation, so stale
// entries can never be returned.
type rangeKey struct {
	gen   uint64
	start timecode.TimePoint
	end   timecode.TimePoint
}

// Model is the timeline: tracks ordered by index, clips placed on
// tracks, markers and transitions anchored to time, a playhead, and a
// duration derived from content.
//
// The model enforces the structural invariants (per-track non-overlap
// outside transitions, clip/track type agreement, cycle-free track
// grouping) on every mutation. It is not safe for concurrent use; the
// engine facade serializes access.
type Model struct {
	store       *store.Store
	clips       *store.Table[Clip]
	tracks      *store.Table[Track]
	markers     *store.Table[Marker]
	transitions *store.Table[Transition]

	trackOrder []store.ID
	playhead   timecode.TimePoint
	duration   timecode.TimePoint

	rangeCache *lru.Cache[rangeKey, []store.ID]
}

// New creates an empty timeline model.
func New() *Model {
	s := store.New()
	cache, _ := lru.New[rangeKey, []store.ID](rangeCacheSize)
	return &Model{
		store:       s,
		clips:       store.NewTable[Clip](s),
		tracks:      store.NewTable[Track](s),
		markers:     store.NewTable[Marker](s),
		transitions: store.NewTable[Transition](s),
		rangeCache:  cache,
	}
}

// Store returns the underlying entity store.
func (m *Model) Store() *store.Store {
	return m.store
}

// Generation returns the structural mutation counter.
func (m *Model) Generation() uint64 {
	return m.store.Generation()
}

// Duration is the end of the last clip on the timeline.
func (m *Model) Duration() timecode.TimePoint {
	return m.duration
}

// Playhead returns the current playhead position.
func (m *Model) Playhead() timecode.TimePoint {
	return m.playhead
}

// SetPlayhead moves the playhead, clamped to [0, Duration].
func (m *Model) SetPlayhead(t timecode.TimePoint) {
	m.playhead = t.Clamp(0, m.duration)
}

// recompute refreshes the derived duration and re-clamps the playhead.
// Called after every clip mutation.
func (m *Model) recompute() {
	var max timecode.TimePoint
	m.clips.Each(func(_ store.ID, c Clip) bool {
		if c.Timeline.End > max {
			max = c.Timeline.End
		}
		return true
	})
	m.duration = max
	m.playhead = m.playhead.Clamp(0, m.duration)
}

// --- Tracks ---

// CreateTrack adds a track at the given index. Existing tracks at or
// after the index shift down; index is clamped to [0, len(tracks)].
func (m *Model) CreateTrack(name string, typ TrackType, index int) store.ID {
	if index < 0 {
		index = 0
	}
	if index > len(m.trackOrder) {
		index = len(m.trackOrder)
	}

	id := m.store.Create(store.KindTrack)
	_ = m.tracks.Attach(id, NewTrack(name, typ, index))

	m.trackOrder = append(m.trackOrder, store.InvalidID)
	copy(m.trackOrder[index+1:], m.trackOrder[index:])
	m.trackOrder[index] = id
	m.renumberTracks()
	return id
}

// RemoveTrack destroys a track and, cascading, every clip on it.
// Transitions touching those clips are invalidated. Returns the IDs of
// the destroyed clips and transitions so callers can record inverses.
func (m *Model) RemoveTrack(id store.ID) (clips, transitions []store.ID, err error) {
	if _, ok := m.tracks.Get(id); !ok {
		return nil, nil, fmt.Errorf("remove track %d: %w", id, store.ErrInvalidEntity)
	}

	clips = m.ClipsOnTrack(id)
	for _, clipID := range clips {
		transitions = append(transitions, m.TransitionsOn(clipID)...)
	}
	transitions = dedupeIDs(transitions)

	for _, trID := range transitions {
		_ = m.store.Destroy(trID)
	}
	for _, clipID := range clips {
		_ = m.store.Destroy(clipID)
	}

	// Detach children from the removed group parent.
	m.tracks.Each(func(tid store.ID, t Track) bool {
		if t.Parent == id {
			t.Parent = store.InvalidID
			_ = m.tracks.Attach(tid, t)
		}
		return true
	})

	_ = m.store.Destroy(id)
	m.trackOrder = removeID(m.trackOrder, id)
	m.renumberTracks()
	m.recompute()
	return clips, transitions, nil
}

// Track returns a track's attributes.
func (m *Model) Track(id store.ID) (Track, bool) {
	return m.tracks.Get(id)
}

// SetTrack replaces a track's attributes. Changing Index reorders the
// track list; changing Parent is checked for cycles.
func (m *Model) SetTrack(id store.ID, t Track) error {
	old, ok := m.tracks.Get(id)
	if !ok {
		return fmt.Errorf("set track %d: %w", id, store.ErrInvalidEntity)
	}
	if t.Parent != store.InvalidID {
		if err := m.checkTrackCycle(id, t.Parent); err != nil {
			return err
		}
	}

	if err := m.tracks.Attach(id, t); err != nil {
		return err
	}

	if t.Index != old.Index {
		m.trackOrder = removeID(m.trackOrder, id)
		idx := t.Index
		if idx < 0 {
			idx = 0
		}
		if idx > len(m.trackOrder) {
			idx = len(m.trackOrder)
		}
		m.trackOrder = append(m.trackOrder, store.InvalidID)
		copy(m.trackOrder[idx+1:], m.trackOrder[idx:])
		m.trackOrder[idx] = id
		m.renumberTracks()
	}
	return nil
}

// checkTrackCycle rejects a parent assignment that would make id its
// own ancestor.
func (m *Model) checkTrackCycle(id, parent store.ID) error {
	for cur := parent; cur != store.InvalidID; {
		if cur == id {
			return fmt.Errorf("track %d: %w", id, ErrTrackCycle)
		}
		t, ok := m.tracks.Get(cur)
		if !ok {
			return fmt.Errorf("track parent %d: %w", cur, store.ErrInvalidEntity)
		}
		cur = t.Parent
	}
	return nil
}

// Tracks returns all track IDs in index order.
func (m *Model) Tracks() []store.ID {
	return append([]store.ID(nil), m.trackOrder...)
}

// TrackByIndex returns the track at the given display index.
func (m *Model) TrackByIndex(index int) (store.ID, bool) {
	if index < 0 || index >= len(m.trackOrder) {
		return store.InvalidID, false
	}
	return m.trackOrder[index], true
}

// renumberTracks rewrites every track's Index from its position in the
// order list, keeping indexes dense and unique.
func (m *Model) renumberTracks() {
	for i, id := range m.trackOrder {
		if t, ok := m.tracks.Get(id); ok && t.Index != i {
			t.Index = i
			_ = m.tracks.Attach(id, t)
		}
	}
}

// ReviveTrack restores a tombstoned track with the given attributes at
// its recorded index. Used by undo.
func (m *Model) ReviveTrack(id store.ID, t Track) error {
	if err := m.store.Revive(id); err != nil {
		return err
	}
	idx := t.Index
	if idx < 0 {
		idx = 0
	}
	if idx > len(m.trackOrder) {
		idx = len(m.trackOrder)
	}
	m.trackOrder = append(m.trackOrder, store.InvalidID)
	copy(m.trackOrder[idx+1:], m.trackOrder[idx:])
	m.trackOrder[idx] = id
	if err := m.tracks.Attach(id, t); err != nil {
		return err
	}
	m.renumberTracks()
	return nil
}

// --- Clips ---

// AddClip places a new clip. The clip's Track must name a live track of
// matching type and the placement must honor the non-overlap invariant.
func (m *Model) AddClip(c Clip) (store.ID, error) {
	if err := m.CheckPlacement(c.Track, store.InvalidID, c.Timeline); err != nil {
		return store.InvalidID, err
	}
	id := m.store.Create(store.KindClip)
	_ = m.clips.Attach(id, c)
	m.recompute()
	return id, nil
}

// PlaceClip places a clip without the overlap check. Loaders use it
// because an overlap's legality can depend on a transition that is not
// attached yet; callers must revalidate every placement with
// CheckPlacement once all cross-references exist.
func (m *Model) PlaceClip(c Clip) store.ID {
	id := m.store.Create(store.KindClip)
	_ = m.clips.Attach(id, c)
	m.recompute()
	return id
}

// Clip returns a clip's attributes.
func (m *Model) Clip(id store.ID) (Clip, bool) {
	return m.clips.Get(id)
}

// ClipSnapshot returns a clip's attributes even if it is tombstoned.
func (m *Model) ClipSnapshot(id store.ID) (Clip, bool) {
	return m.clips.Snapshot(id)
}

// SetClip replaces a clip's attributes, revalidating placement.
func (m *Model) SetClip(id store.ID, c Clip) error {
	if _, ok := m.clips.Get(id); !ok {
		return fmt.Errorf("set clip %d: %w", id, store.ErrInvalidEntity)
	}
	if err := m.CheckPlacement(c.Track, id, c.Timeline); err != nil {
		return err
	}
	if err := m.clips.Attach(id, c); err != nil {
		return err
	}
	m.recompute()
	return nil
}

// RemoveClip destroys a clip and invalidates transitions referencing
// it. Returns the invalidated transition IDs.
func (m *Model) RemoveClip(id store.ID) ([]store.ID, error) {
	if _, ok := m.clips.Get(id); !ok {
		return nil, fmt.Errorf("remove clip %d: %w", id, store.ErrInvalidEntity)
	}
	invalidated := m.TransitionsOn(id)
	for _, trID := range invalidated {
		_ = m.store.Destroy(trID)
	}
	_ = m.store.Destroy(id)
	m.recompute()
	return invalidated, nil
}

// ReviveClip restores a tombstoned clip with the given attributes.
// Used by undo.
func (m *Model) ReviveClip(id store.ID, c Clip) error {
	if err := m.store.Revive(id); err != nil {
		return err
	}
	if err := m.clips.Attach(id, c); err != nil {
		return err
	}
	m.recompute()
	return nil
}

// ClipsOnTrack returns the clips on a track ordered by start time.
func (m *Model) ClipsOnTrack(track store.ID) []store.ID {
	var ids []store.ID
	m.clips.Each(func(id store.ID, c Clip) bool {
		if c.Track == track {
			ids = append(ids, id)
		}
		return true
	})
	m.sortClipsByStart(ids)
	return ids
}

// ClipsInRange returns the clips whose timeline range intersects r,
// ordered by start time. Results are cached keyed by the store
// generation; any structural mutation invalidates the cache entry by
// changing the key.
func (m *Model) ClipsInRange(r timecode.TimeRange) []store.ID {
	key := rangeKey{gen: m.store.Generation(), start: r.Start, end: r.End}
	if cached, ok := m.rangeCache.Get(key); ok {
		return append([]store.ID(nil), cached...)
	}

	var ids []store.ID
	m.clips.Each(func(id store.ID, c Clip) bool {
		if c.Timeline.Overlaps(r) {
			ids = append(ids, id)
		}
		return true
	})
	m.sortClipsByStart(ids)
	m.rangeCache.Add(key, ids)
	return append([]store.ID(nil), ids...)
}

// ClipAt returns the clip on a track containing the given instant.
func (m *Model) ClipAt(track store.ID, t timecode.TimePoint) (store.ID, bool) {
	for _, id := range m.ClipsOnTrack(track) {
		c, _ := m.clips.Get(id)
		if c.Timeline.Contains(t) {
			return id, true
		}
	}
	return store.InvalidID, false
}

// EachClip calls fn for every live clip. Iteration order is unspecified.
func (m *Model) EachClip(fn func(store.ID, Clip) bool) {
	m.clips.Each(fn)
}

func (m *Model) sortClipsByStart(ids []store.ID) {
	sort.Slice(ids, func(i, j int) bool {
		a, _ := m.clips.Get(ids[i])
		b, _ := m.clips.Get(ids[j])
		if a.Timeline.Start != b.Timeline.Start {
			return a.Timeline.Start < b.Timeline.Start
		}
		return ids[i] < ids[j]
	})
}

// CheckPlacement validates placing a clip span on a track, ignoring the
// clip with the given ID (InvalidID to ignore none). It checks track
// liveness and the per-track non-overlap invariant: an overlap is legal
// only where a transition anchors the two clips involved and the
// overlap lies within the transition's range, or the track type stacks.
func (m *Model) CheckPlacement(track store.ID, ignore store.ID, span timecode.TimeRange) error {
	t, ok := m.tracks.Get(track)
	if !ok {
		return fmt.Errorf("track %d: %w", track, store.ErrInvalidEntity)
	}
	if t.Stacking() {
		return nil
	}

	var conflict error
	m.clips.Each(func(id store.ID, c Clip) bool {
		if id == ignore || c.Track != track {
			return true
		}
		if !c.Timeline.Overlaps(span) {
			return true
		}
		if ignore != store.InvalidID && m.overlapSanctioned(ignore, id, c.Timeline.Intersect(span)) {
			return true
		}
		conflict = fmt.Errorf("span %s hits clip %d at %s: %w", span, id, c.Timeline, ErrOverlap)
		return false
	})
	return conflict
}

// overlapSanctioned returns true if a transition anchors the two clips
// and covers the overlapping region.
func (m *Model) overlapSanctioned(a, b store.ID, region timecode.TimeRange) bool {
	ok := false
	m.transitions.Each(func(_ store.ID, tr Transition) bool {
		if tr.Anchors(a, b) && tr.Range.ContainsRange(region) {
			ok = true
			return false
		}
		return true
	})
	return ok
}

// --- Markers ---

// AddMarker places a marker on the timeline.
func (m *Model) AddMarker(mk Marker) store.ID {
	id := m.store.Create(store.KindMarker)
	_ = m.markers.Attach(id, mk)
	return id
}

// Marker returns a marker's attributes.
func (m *Model) Marker(id store.ID) (Marker, bool) {
	return m.markers.Get(id)
}

// SetMarker replaces a marker's attributes.
func (m *Model) SetMarker(id store.ID, mk Marker) error {
	if _, ok := m.markers.Get(id); !ok {
		return fmt.Errorf("set marker %d: %w", id, store.ErrInvalidEntity)
	}
	return m.markers.Attach(id, mk)
}

// RemoveMarker destroys a marker.
func (m *Model) RemoveMarker(id store.ID) error {
	if _, ok := m.markers.Get(id); !ok {
		return fmt.Errorf("remove marker %d: %w", id, store.ErrInvalidEntity)
	}
	return m.store.Destroy(id)
}

// ReviveMarker restores a tombstoned marker. Used by undo.
func (m *Model) ReviveMarker(id store.ID, mk Marker) error {
	if err := m.store.Revive(id); err != nil {
		return err
	}
	return m.markers.Attach(id, mk)
}

// MarkerSnapshot returns a marker's attributes even if tombstoned.
func (m *Model) MarkerSnapshot(id store.ID) (Marker, bool) {
	return m.markers.Snapshot(id)
}

// Markers returns all marker IDs ordered by start time.
func (m *Model) Markers() []store.ID {
	var ids []store.ID
	m.markers.Each(func(id store.ID, _ Marker) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool {
		a, _ := m.markers.Get(ids[i])
		b, _ := m.markers.Get(ids[j])
		if a.Range.Start != b.Range.Start {
			return a.Range.Start < b.Range.Start
		}
		return ids[i] < ids[j]
	})
	return ids
}

// --- Transitions ---

// AddTransition creates a transition between two clips. Both clips must
// be live, on the same track, and the transition's range must lie
// within the union of their timeline ranges.
func (m *Model) AddTransition(tr Transition) (store.ID, error) {
	if err := m.checkTransition(tr); err != nil {
		return store.InvalidID, err
	}
	id := m.store.Create(store.KindTransition)
	_ = m.transitions.Attach(id, tr)
	return id, nil
}

func (m *Model) checkTransition(tr Transition) error {
	from, okFrom := m.clips.Get(tr.From)
	to, okTo := m.clips.Get(tr.To)
	if !okFrom || !okTo {
		return fmt.Errorf("transition clips %d/%d: %w", tr.From, tr.To, store.ErrInvalidEntity)
	}
	if from.Track != to.Track {
		return fmt.Errorf("transition clips on tracks %d and %d: %w", from.Track, to.Track, ErrInvalidTransition)
	}
	if !from.Timeline.Union(to.Timeline).ContainsRange(tr.Range) {
		return fmt.Errorf("transition range %s outside clips: %w", tr.Range, ErrInvalidTransition)
	}
	return nil
}

// Transition returns a transition's attributes.
func (m *Model) Transition(id store.ID) (Transition, bool) {
	return m.transitions.Get(id)
}

// TransitionSnapshot returns a transition's attributes even if tombstoned.
func (m *Model) TransitionSnapshot(id store.ID) (Transition, bool) {
	return m.transitions.Snapshot(id)
}

// SetTransition replaces a transition's attributes, revalidating it.
func (m *Model) SetTransition(id store.ID, tr Transition) error {
	if _, ok := m.transitions.Get(id); !ok {
		return fmt.Errorf("set transition %d: %w", id, store.ErrInvalidEntity)
	}
	if err := m.checkTransition(tr); err != nil {
		return err
	}
	return m.transitions.Attach(id, tr)
}

// RemoveTransition destroys a transition.
func (m *Model) RemoveTransition(id store.ID) error {
	if _, ok := m.transitions.Get(id); !ok {
		return fmt.Errorf("remove transition %d: %w", id, store.ErrInvalidEntity)
	}
	return m.store.Destroy(id)
}

// ReviveTransition restores a tombstoned transition. Used by undo.
func (m *Model) ReviveTransition(id store.ID, tr Transition) error {
	if err := m.store.Revive(id); err != nil {
		return err
	}
	return m.transitions.Attach(id, tr)
}

// TransitionsOn returns the transitions anchoring the given clip.
func (m *Model) TransitionsOn(clip store.ID) []store.ID {
	var ids []store.ID
	m.transitions.Each(func(id store.ID, tr Transition) bool {
		if tr.References(clip) {
			ids = append(ids, id)
		}
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Transitions returns all transition IDs ordered by range start.
func (m *Model) Transitions() []store.ID {
	var ids []store.ID
	m.transitions.Each(func(id store.ID, _ Transition) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool {
		a, _ := m.transitions.Get(ids[i])
		b, _ := m.transitions.Get(ids[j])
		if a.Range.Start != b.Range.Start {
			return a.Range.Start < b.Range.Start
		}
		return ids[i] < ids[j]
	})
	return ids
}

// --- helpers ---

func removeID(ids []store.ID, id store.ID) []store.ID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func dedupeIDs(ids []store.ID) []store.ID {
	seen := make(map[store.ID]bool, len(ids))
	out := ids[:0]
	for _, v := range ids {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
