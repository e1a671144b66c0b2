// Package history provides undo/redo functionality for the timeline engine.
//
// The history system records executed edit commands in batches --
// single undo units that may hold many commands. Key concepts:
//
// # Batches
//
// A Batch groups commands so a compound gesture (ripple delete across
// three tracks, paste of five clips) undoes in one step. Batches also
// retain the entities their commands reference, which keeps tombstoned
// clips alive for exactly as long as some batch could revive them.
//
// # History Stack
//
// The History type manages undo/redo stacks and command batching:
//
//	h := history.NewHistory(200) // Max 200 undo batches
//
//	// Execute commands
//	h.Execute(cmd, model)
//
//	// Undo/redo: false means nothing to do, the model is untouched
//	ok, err := h.Undo(model)
//	ok, err = h.Redo(model)
//
// # Command Batching
//
// Multiple commands can be batched as a single undo unit:
//
//	h.BeginBatch("Ripple Delete")
//	// ... multiple edits ...
//	h.EndBatch(model)
//
// CancelBatch undoes the commands executed since BeginBatch, so a
// failing compound gesture leaves the timeline as it was.
//
// # Eviction
//
// When the stack exceeds its maximum, the oldest batches are dropped
// and their entity references released. Clear releases everything and
// reclaims entities that only the history kept alive.
package history
