package graph

import (
	"fmt"
	"strings"
)

// Mermaid renders a map as a flowchart TD diagram. Nodes are numbered
// A0..An in abstraction order so relation indices line up with node
// IDs; labels are quoted with double quotes stripped to keep the
// diagram parseable.
func Mermaid(m *Map) string {
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")

	for i, a := range m.Abstractions {
		fmt.Fprintf(&sb, "    A%d[\"%s\"]\n", i, mermaidLabel(a.Name))
	}

	for _, r := range m.Relations {
		// Relations from the normalizer are already in range; guard
		// anyway so a hand-built map cannot emit dangling node refs.
		if r.From < 0 || r.From >= len(m.Abstractions) || r.To < 0 || r.To >= len(m.Abstractions) {
			continue
		}
		if label := mermaidLabel(r.Label); label != "" {
			fmt.Fprintf(&sb, "    A%d -->|\"%s\"| A%d\n", r.From, label, r.To)
		} else {
			fmt.Fprintf(&sb, "    A%d --> A%d\n", r.From, r.To)
		}
	}

	return sb.String()
}

func mermaidLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
