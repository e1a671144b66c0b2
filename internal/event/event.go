// Package event provides the notification bus between the engine and
// its observers. The engine publishes after every state change; UI
// layers, autosave, and tests subscribe to the topics they care about.
package event

import (
	"strings"
	"time"
)

// Topic is a hierarchical event type (e.g. "edit.applied").
type Topic string

// Engine topics.
const (
	TopicEditApplied      Topic = "edit.applied"
	TopicEditUndone       Topic = "edit.undone"
	TopicEditRedone       Topic = "edit.redone"
	TopicHistoryCleared   Topic = "history.cleared"
	TopicSelectionChanged Topic = "selection.changed"
	TopicPlayheadMoved    Topic = "playhead.moved"
	TopicProjectLoaded    Topic = "project.loaded"
	TopicProjectSaved     Topic = "project.saved"
	TopicTrackChanged     Topic = "track.changed"
)

// Match reports whether the topic matches a subscription pattern.
// A pattern is either an exact topic or a prefix ending in ".*", so
// "edit.*" matches every edit topic.
func (t Topic) Match(pattern Topic) bool {
	if pattern == t || pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(string(pattern), ".*"); ok {
		return strings.HasPrefix(string(t), prefix+".")
	}
	return false
}

// Event is one notification. Events are immutable once published.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// NewEvent creates an event stamped with the current time.
func NewEvent(topic Topic, payload any) Event {
	return Event{
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
