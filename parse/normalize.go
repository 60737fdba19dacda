package parse

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Relationship is one directed edge between two abstractions, referred
// to by their indices in the abstraction list.
type Relationship struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Label string `json:"label"`
}

// Graph is the normalized result of a relationship analysis: a project
// summary plus the edges that survived validation.
type Graph struct {
	Summary string         `json:"summary"`
	Details []Relationship `json:"details"`
}

// NormalizeAbstractions reduces a decoded abstraction-identification
// payload to a flat list of records. Accepted shapes, in order: a
// sequence of mappings (taken whole; a sequence containing anything
// else yields nil), or a mapping whose "abstractions" or "rules" key
// holds the sequence. Any other shape yields nil.
func NormalizeAbstractions(v any) []map[string]any {
	switch data := v.(type) {
	case []map[string]any:
		return data
	case []any:
		out := make([]map[string]any, 0, len(data))
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok {
				return nil
			}
			out = append(out, m)
		}
		return out
	case map[string]any:
		if raw, ok := data["abstractions"]; ok {
			return mappingSlice(raw)
		}
		if raw, ok := data["rules"]; ok {
			return mappingSlice(raw)
		}
	}
	return nil
}

// mappingSlice coerces a decoded sequence into records, dropping
// non-mapping elements.
func mappingSlice(v any) []map[string]any {
	switch items := v.(type) {
	case []map[string]any:
		return items
	case []any:
		out := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// NormalizeRelationships reduces a decoded relationship-analysis
// payload to a Graph. count is the number of known abstractions; edges
// referencing indices outside [0, count) are dropped.
//
// Accepted shapes: a mapping with "summary" and "relationships" keys, a
// mapping with "project_summary" (and optionally "connections"), or a
// sequence of mappings, from which a summary is lifted and consecutive
// elements are linked pairwise. Records missing any of
// "from_abstraction", "to_abstraction" or "label", or whose endpoints
// cannot be coerced to in-range indices, are silently dropped. When no
// edge survives and at least two abstractions exist, a single fallback
// edge 0 -> 1 labelled "Connected to" keeps the graph connected.
func NormalizeRelationships(v any, count int) Graph {
	var g Graph

	switch data := v.(type) {
	case map[string]any:
		summary, hasSummary := data["summary"]
		rels, hasRels := data["relationships"]
		if hasSummary && hasRels {
			g.Summary = stringify(summary)
			g.Details = collectEdges(rels, count)
		} else if ps, ok := data["project_summary"]; ok {
			g.Summary = stringify(ps)
			if conns, ok := data["connections"]; ok {
				g.Details = collectEdges(conns, count)
			}
		}
	case []any:
		records := make([]map[string]any, 0, len(data))
		allMappings := true
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok {
				allMappings = false
				break
			}
			records = append(records, m)
		}
		if !allMappings {
			break
		}
		for _, rec := range records {
			if d, ok := rec["description"]; ok {
				g.Summary = stringify(d)
				break
			}
		}
		if g.Summary == "" && len(records) > 0 {
			g.Summary = fmt.Sprintf("Project with %d key components", len(records))
		}
		for i := 0; i+1 < len(records); i++ {
			if i+1 < count {
				g.Details = append(g.Details, Relationship{From: i, To: i + 1, Label: "Relates to"})
			}
		}
	}

	if len(g.Details) == 0 && count > 1 {
		g.Details = []Relationship{{From: 0, To: 1, Label: "Connected to"}}
	}
	return g
}

// collectEdges validates raw relationship records into edges.
func collectEdges(v any, count int) []Relationship {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var edges []Relationship
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		from, hasFrom := rec["from_abstraction"]
		to, hasTo := rec["to_abstraction"]
		label, hasLabel := rec["label"]
		if !hasFrom || !hasTo || !hasLabel {
			continue
		}
		fromIdx, err := CoerceIndex(from)
		if err != nil {
			continue
		}
		toIdx, err := CoerceIndex(to)
		if err != nil {
			continue
		}
		if fromIdx < 0 || fromIdx >= count || toIdx < 0 || toIdx >= count {
			continue
		}
		edges = append(edges, Relationship{From: fromIdx, To: toIdx, Label: stringify(label)})
	}
	return edges
}

// CoerceIndex converts a loosely typed value to an abstraction index.
// Integers pass through; floats must be integral; strings may carry a
// "# Name" comment after the number ("2 # Parser") which is stripped.
// Anything else is rendered to text and given the string treatment.
func CoerceIndex(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidIndex, v)
		}
		return int(n), nil
	case string:
		return indexFromString(n)
	}
	return indexFromString(fmt.Sprint(v))
}

// indexFromString parses an index from text, ignoring everything from
// the first '#' on.
func indexFromString(s string) (int, error) {
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIndex, s)
	}
	return n, nil
}

// stringify renders a decoded scalar for use as a summary or label.
// nil becomes the empty string rather than a literal "<nil>".
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return fmt.Sprint(v)
}
