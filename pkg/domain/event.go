package domain

// InitEventType is the synthetic event delivered to entry actions when a
// service starts.
const InitEventType = "statch.init"

// Event is a normalized machine event. Data carries the extra fields of
// object-form events; it is nil for plain string events.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// InitEvent returns the synthetic start event.
func InitEvent() Event { return Event{Type: InitEventType} }
