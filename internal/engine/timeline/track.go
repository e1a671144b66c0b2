package timeline

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/dshills/cutlist/internal/engine/store"
)

// TrackType declares what kind of content a track holds.
type TrackType uint8

// Track types.
const (
	TrackVideo TrackType = iota + 1
	TrackAudio
	TrackSubtitle
	TrackEffect
	TrackMarker
)

// String returns the track type name.
func (t TrackType) String() string {
	switch t {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	case TrackSubtitle:
		return "subtitle"
	case TrackEffect:
		return "effect"
	case TrackMarker:
		return "marker"
	default:
		return fmt.Sprintf("track(%d)", uint8(t))
	}
}

// Color is an sRGB color in "#rrggbb" hex form.
type Color string

// RGB parses the color. Invalid colors come back as opaque black.
func (c Color) RGB() colorful.Color {
	col, err := colorful.Hex(string(c))
	if err != nil {
		return colorful.Color{}
	}
	return col
}

// Valid returns true if the color parses as "#rrggbb".
func (c Color) Valid() bool {
	_, err := colorful.Hex(string(c))
	return err == nil
}

// TrackColor returns a stable, visually distinct color for a track
// index. Hues step around the wheel by a golden-angle stride so
// neighboring tracks never look alike.
func TrackColor(index int) Color {
	if index < 0 {
		index = -index
	}
	hue := float64((index * 137) % 360)
	return Color(colorful.Hsv(hue, 0.55, 0.90).Hex())
}

// DefaultTrackHeight is the display height hint for new tracks.
const DefaultTrackHeight = 48

// Track is the attribute bundle for a timeline lane.
//
// Index defines the render/composite order and is unique among sibling
// tracks. Parent forms an optional grouping hierarchy; InvalidID means
// the track is a root.
type Track struct {
	Name   string
	Type   TrackType
	Index  int
	Height int

	Locked bool
	Muted  bool
	Soloed bool

	// Rendering hints.
	Color        Color
	ShowWaveform bool

	Parent store.ID
}

// NewTrack creates a track with default display hints.
func NewTrack(name string, typ TrackType, index int) Track {
	return Track{
		Name:         name,
		Type:         typ,
		Index:        index,
		Height:       DefaultTrackHeight,
		Color:        TrackColor(index),
		ShowWaveform: typ == TrackAudio,
	}
}

// Stacking returns true if the track type allows clips to composite on
// top of each other without a transition. Effect tracks stack; content
// tracks do not.
func (t Track) Stacking() bool {
	return t.Type == TrackEffect
}
