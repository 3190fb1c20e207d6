// Package graph renders machine configs as Mermaid diagrams for the CLI and
// docs.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/statch/statch/pkg/domain"
)

// Overlay marks dynamic state on the rendered graph.
type Overlay struct {
	Current string
}

// GenerateMermaid produces a Mermaid flowchart (graph TD) for a machine
// config:
//   - the initial state renders as a ((circle)), other states as rectangles
//   - targeted transitions are event-labelled arrows, with the guard name
//     appended when present
//   - targetless transitions render as dashed self-loops
//
// States and events are emitted in sorted order so output is stable.
func GenerateMermaid(cfg domain.Config, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	names := make([]string, 0, len(cfg.States))
	for name := range cfg.States {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		state := cfg.States[name]
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		if name == cfg.Initial {
			opener, closer = "((", "))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, name, closer))

		events := make([]string, 0, len(state.On))
		for event := range state.On {
			events = append(events, event)
		}
		sort.Strings(events)

		for _, event := range events {
			for _, t := range state.On[event] {
				label := event
				if t.Cond.Name != "" {
					label = fmt.Sprintf("%s [%s]", event, t.Cond.Name)
				} else if t.Cond.Fn != nil {
					label = fmt.Sprintf("%s [guarded]", event)
				}
				label = strings.ReplaceAll(label, "\"", "'")

				if t.Target == "" {
					// Targetless: actions only, no state change.
					sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", safeID, label, safeID))
					continue
				}
				sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, label, sanitizeMermaidID(t.Target)))
			}
		}
	}

	if overlay != nil && overlay.Current != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Current)))
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
