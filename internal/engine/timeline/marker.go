package timeline

import (
	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
)

// Marker is a named anchor on the timeline. A marker with an empty
// Range is a point marker at Range.Start; otherwise it spans a
// duration. Markers are not owned by any track.
type Marker struct {
	Name     string
	Color    Color
	Range    timecode.TimeRange
	Metadata map[string]string
	Tags     []string
}

// NewMarker creates a point marker at the given time.
func NewMarker(name string, at timecode.TimePoint) Marker {
	return Marker{
		Name:  name,
		Color: TrackColor(0),
		Range: timecode.TimeRange{Start: at, End: at},
	}
}

// IsPoint returns true if the marker anchors a single instant.
func (m Marker) IsPoint() bool {
	return m.Range.IsEmpty()
}

// Clone deep-copies the marker.
func (m Marker) Clone() Marker {
	out := m
	if m.Metadata != nil {
		out.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	return out
}

// Transition is a timed cross-blend between two specific clips. Its
// range must lie within the union of the two clips' timeline ranges; it
// is the only sanctioned overlap between clips on one track.
//
// Transitions reference their clips weakly by entity ID: when either
// clip is destroyed the transition is invalidated, never left dangling.
type Transition struct {
	Kind   string
	Range  timecode.TimeRange
	From   store.ID
	To     store.ID
	Params map[string]Value
}

// References returns true if the transition anchors the given clip.
func (t Transition) References(clip store.ID) bool {
	return t.From == clip || t.To == clip
}

// Anchors returns true if the transition anchors exactly the given
// pair, in either orientation.
func (t Transition) Anchors(a, b store.ID) bool {
	return (t.From == a && t.To == b) || (t.From == b && t.To == a)
}

// Clone deep-copies the transition.
func (t Transition) Clone() Transition {
	out := t
	if t.Params != nil {
		out.Params = make(map[string]Value, len(t.Params))
		for k, v := range t.Params {
			out.Params[k] = v
		}
	}
	return out
}
