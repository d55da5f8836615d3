package controller

// Event represents a controller lifecycle event.
// Minimal and stable: name + model name and optional fields via key/values.
type Event struct {
	Name   string
	Model  string
	RunID  string
	Fields map[string]any
}

// Event names published by the controller.
const (
	EventSpawn          = "spawn"
	EventExit           = "exit"
	EventTransition     = "transition"
	EventStartupTimeout = "startup_timeout"
)

// EventPublisher receives events from the controller. Implementations should be
// lightweight and non-blocking; Publish must not panic. Publish may be called
// with the controller lock held.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
