package timeline

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
)

// BlendMode selects how a clip composites over the tracks below it.
type BlendMode uint8

// Blend modes.
const (
	BlendNormal BlendMode = iota
	BlendAdd
	BlendMultiply
	BlendScreen
	BlendOverlay
)

// String returns the blend mode name.
func (b BlendMode) String() string {
	switch b {
	case BlendNormal:
		return "normal"
	case BlendAdd:
		return "add"
	case BlendMultiply:
		return "multiply"
	case BlendScreen:
		return "screen"
	case BlendOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// Point2 is a 2D coordinate used by clip transforms.
type Point2 struct {
	X float64
	Y float64
}

// Transform is the 2D placement of a clip's picture.
type Transform struct {
	Position Point2
	Scale    Point2
	Rotation float64 // degrees
	Anchor   Point2
}

// IdentityTransform returns the neutral transform.
func IdentityTransform() Transform {
	return Transform{Scale: Point2{X: 1, Y: 1}}
}

// InterpKind selects keyframe interpolation.
type InterpKind uint8

// Interpolation kinds.
const (
	InterpLinear InterpKind = iota
	InterpHold
	InterpEaseIn
	InterpEaseOut
	InterpBezier
)

// Keyframe is a timed parameter value on a clip. Time is relative to
// the clip's timeline start.
type Keyframe struct {
	Time   timecode.TimePoint
	Param  string
	Value  Value
	Interp InterpKind
}

// Effect is a reference to an externally-defined effect plus its
// parameter values. The engine treats the reference as opaque.
type Effect struct {
	Ref    string
	Params map[string]Value
}

// CloneEffects deep-copies an effect list.
func CloneEffects(effects []Effect) []Effect {
	if effects == nil {
		return nil
	}
	out := make([]Effect, len(effects))
	for i, e := range effects {
		out[i] = Effect{Ref: e.Ref}
		if e.Params != nil {
			out[i].Params = make(map[string]Value, len(e.Params))
			for k, v := range e.Params {
				out[i].Params[k] = v
			}
		}
	}
	return out
}

// Clip is the attribute bundle for a placed piece of media.
//
// Source is the consumed span in media coordinates; Timeline is where it
// plays on the timeline. The two stay consistent through
// Source.Duration() == Timeline.Duration() * |Speed|.
type Clip struct {
	Name     string
	Media    uuid.UUID
	Source   timecode.TimeRange
	Timeline timecode.TimeRange
	Speed    float64
	Reversed bool
	Muted    bool
	Locked   bool
	Volume   float64
	Opacity  float64

	Transform Transform
	Blend     BlendMode
	Effects   []Effect
	Keyframes []Keyframe

	Track store.ID
}

// NewClip creates a clip playing the given source span at position on
// the timeline, at speed 1 with neutral defaults.
func NewClip(media uuid.UUID, source timecode.TimeRange, position timecode.TimePoint) Clip {
	return Clip{
		Media:     media,
		Source:    source,
		Timeline:  timecode.RangeAt(position, source.Duration()),
		Speed:     1,
		Volume:    1,
		Opacity:   1,
		Transform: IdentityTransform(),
	}
}

// AbsSpeed returns |Speed|, treating 0 as 1.
func (c Clip) AbsSpeed() float64 {
	s := math.Abs(c.Speed)
	if s == 0 {
		return 1
	}
	return s
}

// SourceForTimeline returns the source duration consumed by a timeline
// duration at this clip's speed.
func (c Clip) SourceForTimeline(d timecode.TimePoint) timecode.TimePoint {
	return timecode.TimePoint(math.Round(float64(d) * c.AbsSpeed()))
}

// SpeedConsistent reports whether Source and Timeline durations agree
// with the clip's speed, within one unit of rounding.
func (c Clip) SpeedConsistent() bool {
	want := c.SourceForTimeline(c.Timeline.Duration())
	diff := c.Source.Duration() - want
	return diff >= -1 && diff <= 1
}

// Clone deep-copies the clip, including effects and keyframes.
func (c Clip) Clone() Clip {
	out := c
	out.Effects = CloneEffects(c.Effects)
	if c.Keyframes != nil {
		out.Keyframes = make([]Keyframe, len(c.Keyframes))
		copy(out.Keyframes, c.Keyframes)
	}
	return out
}

// SortKeyframes orders the clip's keyframes by time, then parameter name.
func (c *Clip) SortKeyframes() {
	sort.SliceStable(c.Keyframes, func(i, j int) bool {
		if c.Keyframes[i].Time != c.Keyframes[j].Time {
			return c.Keyframes[i].Time < c.Keyframes[j].Time
		}
		return c.Keyframes[i].Param < c.Keyframes[j].Param
	})
}
