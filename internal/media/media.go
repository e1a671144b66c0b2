// Package media tracks the source files a timeline references. The
// engine itself never touches media bytes; it only needs durations and
// stream properties, which live in a small catalog keyed by media ID.
package media

import (
	"context"

	"github.com/google/uuid"

	"github.com/dshills/cutlist/internal/engine/timecode"
)

// Kind classifies a media source by its primary stream.
type Kind uint8

// Media kinds.
const (
	KindUnknown Kind = iota
	KindVideo
	KindAudio
	KindImage
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Info is the engine-relevant description of one media source.
type Info struct {
	ID       uuid.UUID
	Path     string
	Kind     Kind
	Duration timecode.TimePoint

	// Video stream, zero when absent.
	Width  int
	Height int
	FPS    float64

	// Audio stream, zero when absent.
	SampleRate int
	Channels   int
}

// Analyzer probes a media file for its stream properties. External
// probers (ffprobe wrappers, test fakes) implement this.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (Info, error)
}
