package edit

import (
	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// DefaultSnapThreshold is the default snap capture distance.
const DefaultSnapThreshold = timecode.PerSecond / 4

// Snapper finds the nearest snap target for a candidate time: clip
// boundaries, markers, and the playhead, within a threshold. Snapping
// biases user-facing moves and trims; programmatic callers only snap
// when they ask to.
type Snapper struct {
	Threshold timecode.TimePoint
}

// NewSnapper creates a snapper with the given capture distance.
func NewSnapper(threshold timecode.TimePoint) Snapper {
	if threshold <= 0 {
		threshold = DefaultSnapThreshold
	}
	return Snapper{Threshold: threshold}
}

// Snap returns the snap target nearest to t, and whether one was found
// within the threshold. Ties go to the earlier target.
func (s Snapper) Snap(m *timeline.Model, t timecode.TimePoint) (timecode.TimePoint, bool) {
	best := t
	bestDist := s.Threshold + 1
	consider := func(candidate timecode.TimePoint) {
		dist := candidate - t
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist || (dist == bestDist && candidate < best) {
			best = candidate
			bestDist = dist
		}
	}

	m.EachClip(func(_ store.ID, c timeline.Clip) bool {
		consider(c.Timeline.Start)
		consider(c.Timeline.End)
		return true
	})
	for _, id := range m.Markers() {
		mk, _ := m.Marker(id)
		consider(mk.Range.Start)
		if !mk.IsPoint() {
			consider(mk.Range.End)
		}
	}
	consider(m.Playhead())

	if bestDist > s.Threshold {
		return t, false
	}
	return best, true
}
