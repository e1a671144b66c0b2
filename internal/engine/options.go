package engine

import (
	"github.com/dshills/cutlist/internal/engine/edit"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/event"
)

// Default configuration values.
const (
	DefaultMaxUndoBatches = 1000
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithMaxUndoBatches sets the maximum number of history entries.
// Oldest entries are evicted past the limit.
func WithMaxUndoBatches(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxUndoBatches = max
		}
	}
}

// WithSnapThreshold sets the capture distance for Snap.
func WithSnapThreshold(threshold timecode.TimePoint) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.snapThreshold = threshold
		}
	}
}

// WithMediaDurations wires a media duration source. Trims, slips, and
// moves validate source ranges against it; without one, source bounds
// are unenforced.
func WithMediaDurations(media edit.MediaDurations) Option {
	return func(e *Engine) {
		e.media = media
	}
}

// WithBus attaches a shared event bus instead of an engine-owned one.
// The engine will not close an injected bus.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}
