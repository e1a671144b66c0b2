package engine

import (
	"github.com/dshills/cutlist/internal/engine/edit"
	"github.com/dshills/cutlist/internal/engine/persist"
	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// Errors returned by engine operations, re-exported from the packages
// that define them so callers can errors.Is against this package alone.
var (
	// ErrInvalidEntity indicates a reference to a destroyed or
	// nonexistent entity.
	ErrInvalidEntity = store.ErrInvalidEntity

	// ErrOverlap indicates a placement would make two clips on one
	// track overlap without a transition sanctioning it.
	ErrOverlap = timeline.ErrOverlap

	// ErrTypeMismatch indicates a clip was targeted at a track of a
	// different content type.
	ErrTypeMismatch = timeline.ErrTypeMismatch

	// ErrLocked indicates the target track or clip is locked.
	ErrLocked = timeline.ErrLocked

	// ErrInvalidTrim indicates a trim would produce a non-positive
	// duration or exceed the media's source bounds.
	ErrInvalidTrim = edit.ErrInvalidTrim

	// ErrInvalidSplit indicates a split time not strictly inside the
	// clip's span.
	ErrInvalidSplit = edit.ErrInvalidSplit

	// ErrInvalidSlip indicates a slip offset that would exceed the
	// media's source bounds.
	ErrInvalidSlip = edit.ErrInvalidSlip

	// ErrInvalidSlide indicates a slide a neighbor cannot absorb.
	ErrInvalidSlide = edit.ErrInvalidSlide

	// ErrInvalidRoll indicates a roll that would leave either clip
	// with a non-positive duration.
	ErrInvalidRoll = edit.ErrInvalidRoll

	// ErrEmptyClipboard indicates a paste with nothing copied.
	ErrEmptyClipboard = edit.ErrEmptyClipboard

	// ErrCorruptData indicates a project file that failed validation.
	ErrCorruptData = persist.ErrCorruptData

	// ErrVersionIncompatible indicates a project file written by a
	// newer major format version.
	ErrVersionIncompatible = persist.ErrVersionIncompatible
)
