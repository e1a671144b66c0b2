package timeline

import "errors"

// Errors returned by timeline model operations.
var (
	// ErrOverlap indicates a placement would make two clips on one track
	// overlap without a transition sanctioning it.
	ErrOverlap = errors.New("clips overlap without a transition")

	// ErrTypeMismatch indicates a clip was targeted at a track of a
	// different content type.
	ErrTypeMismatch = errors.New("clip and track types do not match")

	// ErrLocked indicates the target track or clip is locked.
	ErrLocked = errors.New("target is locked")

	// ErrTrackCycle indicates a parent assignment would create a cycle
	// in the track hierarchy.
	ErrTrackCycle = errors.New("track hierarchy cycle")

	// ErrInvalidTransition indicates a transition's range does not lie
	// within the union of its two clips' ranges, or its clips are not on
	// the same track.
	ErrInvalidTransition = errors.New("invalid transition")
)
