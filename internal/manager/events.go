package manager

// Event names published by the manager.
const (
	EventLoadStart  = "load_start"
	EventLoadReady  = "load_ready"
	EventLoadFailed = "load_failed"
	EventSwitch     = "switch"
	EventUnloaded   = "unloaded"
	EventUnloadDeny = "unload_rejected"
	EventTooBusy    = "too_busy"
)

// Event represents a manager lifecycle event.
// Minimal and stable: name + model name and optional fields via key/values.
type Event struct {
	Name   string
	Model  string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// SetEventPublisher replaces the publisher. A nil publisher drops events.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

func (m *Manager) publish(name, model string, fields map[string]any) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	p.Publish(Event{Name: name, Model: model, Fields: fields})
}
