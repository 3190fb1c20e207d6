package domain

// Status is the service lifecycle state.
type Status int

const (
	StatusNotStarted Status = iota
	StatusRunning
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusStopped:
		return "Stopped"
	default:
		return "NotStarted"
	}
}

// StatusFromString parses a persisted status string. Unknown input maps to
// NotStarted.
func StatusFromString(s string) Status {
	switch s {
	case "Running":
		return StatusRunning
	case "Stopped":
		return StatusStopped
	default:
		return StatusNotStarted
	}
}

// StateResult is the immutable outcome of a pure transition computation.
//
// Context is a snapshot that already reflects the assign actions of the
// transition. Actions holds only the remaining non-assign actions, in
// composition order, for the interpreter to execute. Changed is true iff the
// target differs from the current value, the composed raw action list was
// non-empty, or an assign executed.
type StateResult struct {
	Value   string
	Context map[string]any
	Actions []ActionSpec
	Changed bool
}

// Matches reports whether the result is in the given state.
func (s StateResult) Matches(value string) bool { return s.Value == value }

// Unchanged builds the canonical unchanged result for a value/context pair:
// same value, snapshot of the same context, no actions, Changed=false.
func Unchanged(value string, ctx map[string]any) StateResult {
	return StateResult{
		Value:   value,
		Context: CopyContext(ctx),
		Actions: nil,
		Changed: false,
	}
}

// Listener receives state notifications from a service.
type Listener func(StateResult)

// Snapshot is the persistable projection of a service: enough to resume a
// session, nothing that cannot be serialized (no callables).
type Snapshot struct {
	Value   string         `json:"value"`
	Context map[string]any `json:"context,omitempty"`
	Status  string         `json:"status"`
}
