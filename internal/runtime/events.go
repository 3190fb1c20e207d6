package runtime

import (
	"github.com/statch/statch/pkg/domain"
)

// NormalizeEvent coerces the accepted event forms into a domain.Event.
//
// Strings become {Type: s}. Event values pass through. Maps keep their extra
// fields as Data; a missing or non-string "type" is coerced to "" and the
// coercion is written back into the caller's map. Anything else fails with
// ErrInvalidEvent.
func NormalizeEvent(input any) (domain.Event, error) {
	switch ev := input.(type) {
	case string:
		return domain.Event{Type: ev}, nil
	case domain.Event:
		return ev, nil
	case *domain.Event:
		if ev == nil {
			return domain.Event{}, domain.ErrInvalidEvent
		}
		return *ev, nil
	case map[string]any:
		t, ok := ev["type"].(string)
		if !ok {
			ev["type"] = ""
			t = ""
		}
		return domain.Event{Type: t, Data: ev}, nil
	default:
		return domain.Event{}, domain.ErrInvalidEvent
	}
}
