// Package engine provides the timeline editing engine for Cutlist.
//
// The engine package serves as the main facade, combining the timeline
// model, undoable edit operations, selection, clipboard, and project
// persistence into a unified, thread-safe API suitable for building
// non-linear editors.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - timecode: integer time points and half-open ranges
//   - store: entity identity with deferred destruction for undo safety
//   - timeline: tracks, clips, markers, transitions, placement rules
//   - edit: reversible edit commands (trim, split, ripple, slip, roll, ...)
//   - selection: entity/track selection with region and lasso hit tests
//   - history: batched undo/redo with entity retention
//   - persist: versioned binary project files and JSON interchange
//
// # Thread Safety
//
// All Engine operations are thread-safe. Mutation is serialized behind
// a write lock, so readers always observe the timeline between complete
// edits. The Generation counter identifies consistent snapshots: two
// reads under the same generation saw the same timeline.
//
// # Basic Usage
//
// Create an engine, lay out a track, and place a clip:
//
//	e := engine.New()
//	defer e.Close()
//
//	v1, _ := e.CreateTrack("V1", engine.TrackVideo, 0)
//
//	clip := timeline.NewClip(mediaID, timecode.NewRange(0, 5*timecode.PerSecond), 0)
//	clip.Track = v1
//	id, _ := e.InsertClip(clip, engine.InsertReject)
//
//	e.TrimEnd(id, 4*timecode.PerSecond)
//	e.Undo()
//
// # Undo/Redo
//
// Every edit lands on the history stack. Undo and Redo report whether
// anything happened; at the ends of the stack they are silent no-ops:
//
//	done, err := e.Undo()
//
// Group several edits into a single history entry:
//
//	e.Transaction("overwrite and patch", func() error {
//		if _, err := e.InsertClip(c, engine.InsertOverwrite); err != nil {
//			return err
//		}
//		return e.Roll(left, right, boundary)
//	})
//
// A failed transaction rolls back everything it applied.
//
// # Events
//
// The engine publishes to an event bus so UI and autosave collaborators
// can react without polling:
//
//	e.Subscribe(event.TopicEditApplied, func(ev event.Event) {
//		log.Printf("edit: %v", ev.Payload)
//	})
//
// Patterns like "edit.*" match a topic family; "*" matches everything.
//
// # Persistence
//
// Projects save to a versioned binary container with a checksum, and
// load all-or-nothing: a corrupt or future-major file leaves the
// current timeline untouched.
//
//	if err := e.SaveFile("cut.clp"); err != nil { ... }
//	if err := e.LoadFile("cut.clp"); err != nil { ... }
//
// ExportJSON and ImportJSON provide an interchange form with the same
// guarantees.
package engine
