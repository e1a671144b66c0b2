package edit

import "errors"

// Errors returned by edit operations. Placement conflicts surface as
// timeline.ErrOverlap and type conflicts as timeline.ErrTypeMismatch;
// the kinds below are specific to the operations defined here.
var (
	// ErrInvalidTrim indicates a trim would produce a non-positive
	// duration or push the source range outside the media bounds.
	ErrInvalidTrim = errors.New("invalid trim")

	// ErrInvalidSplit indicates a split time not strictly inside the
	// clip's range.
	ErrInvalidSplit = errors.New("invalid split")

	// ErrInvalidSlip indicates a slip offset that would exceed the
	// source media bounds.
	ErrInvalidSlip = errors.New("invalid slip")

	// ErrInvalidSlide indicates a slide a neighbor cannot absorb
	// without underflowing to zero duration.
	ErrInvalidSlide = errors.New("invalid slide")

	// ErrInvalidRoll indicates a roll that would leave either clip with
	// a non-positive duration, or clips that do not share an edit point.
	ErrInvalidRoll = errors.New("invalid roll")

	// ErrEmptyClipboard indicates a paste with nothing copied.
	ErrEmptyClipboard = errors.New("clipboard is empty")
)
