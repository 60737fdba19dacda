package parse

import (
	"errors"
	"testing"
)

func TestNormalizeAbstractions(t *testing.T) {
	records := []any{
		map[string]any{"name": "Engine", "description": "orchestrates analysis"},
		map[string]any{"name": "Store", "description": "persists reports"},
	}

	tests := []struct {
		name string
		in   any
		want int
	}{
		{name: "direct sequence", in: records, want: 2},
		{name: "wrapped in abstractions key", in: map[string]any{"abstractions": records}, want: 2},
		{name: "wrapped in rules key", in: map[string]any{"rules": records}, want: 2},
		{name: "abstractions key wins over rules", in: map[string]any{"abstractions": records, "rules": []any{}}, want: 2},
		{name: "sequence with non-mapping element", in: []any{map[string]any{"name": "A"}, "stray"}, want: 0},
		{name: "mapping without known keys", in: map[string]any{"components": records}, want: 0},
		{name: "wrapped sequence drops non-mapping elements", in: map[string]any{"abstractions": []any{map[string]any{"name": "A"}, 7}}, want: 1},
		{name: "wrapped value not a sequence", in: map[string]any{"abstractions": "nope"}, want: 0},
		{name: "scalar", in: "just text", want: 0},
		{name: "nil", in: nil, want: 0},
		{name: "empty sequence", in: []any{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAbstractions(tt.in)
			if len(got) != tt.want {
				t.Errorf("NormalizeAbstractions: got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestNormalizeRelationshipsSummaryAndRelationships(t *testing.T) {
	in := map[string]any{
		"summary": "Engine drives the store",
		"relationships": []any{
			map[string]any{"from_abstraction": "0 # Engine", "to_abstraction": float64(1), "label": "Uses"},
			map[string]any{"from_abstraction": 1, "to_abstraction": 0, "label": "Reports to"},
		},
	}

	g := NormalizeRelationships(in, 2)
	if g.Summary != "Engine drives the store" {
		t.Errorf("Summary: got %q", g.Summary)
	}
	if len(g.Details) != 2 {
		t.Fatalf("Details: got %d edges, want 2", len(g.Details))
	}
	first := g.Details[0]
	if first.From != 0 || first.To != 1 || first.Label != "Uses" {
		t.Errorf("first edge: got %+v, want {0 1 Uses}", first)
	}
}

func TestNormalizeRelationshipsDropsBadRecords(t *testing.T) {
	in := map[string]any{
		"summary": "s",
		"relationships": []any{
			map[string]any{"from_abstraction": 0, "to_abstraction": 5, "label": "out of range"},
			map[string]any{"from_abstraction": 0, "to_abstraction": 1},
			map[string]any{"from_abstraction": "abc", "to_abstraction": 1, "label": "bad index"},
			"not a mapping",
			map[string]any{"from_abstraction": 1, "to_abstraction": 2, "label": "kept"},
		},
	}

	g := NormalizeRelationships(in, 3)
	if len(g.Details) != 1 {
		t.Fatalf("Details: got %d edges, want 1", len(g.Details))
	}
	if g.Details[0].Label != "kept" {
		t.Errorf("surviving edge: got %+v", g.Details[0])
	}
}

func TestNormalizeRelationshipsNonStringLabel(t *testing.T) {
	in := map[string]any{
		"summary": "s",
		"relationships": []any{
			map[string]any{"from_abstraction": 0, "to_abstraction": 1, "label": 42},
		},
	}

	g := NormalizeRelationships(in, 2)
	if len(g.Details) != 1 {
		t.Fatalf("Details: got %d edges, want 1", len(g.Details))
	}
	if g.Details[0].Label != "42" {
		t.Errorf("label: got %q, want %q", g.Details[0].Label, "42")
	}
}

func TestNormalizeRelationshipsRelationshipsNotASequence(t *testing.T) {
	g := NormalizeRelationships(map[string]any{"summary": "still captured", "relationships": "garbage"}, 3)
	if g.Summary != "still captured" {
		t.Errorf("Summary: got %q", g.Summary)
	}
	// Nothing survived validation, so the fallback edge applies.
	if len(g.Details) != 1 || g.Details[0].Label != "Connected to" {
		t.Errorf("Details: got %+v, want single fallback edge", g.Details)
	}
}

func TestNormalizeRelationshipsProjectSummary(t *testing.T) {
	in := map[string]any{
		"project_summary": "Alternate shape",
		"connections": []any{
			map[string]any{"from_abstraction": 0, "to_abstraction": 1, "label": "Feeds"},
		},
	}

	g := NormalizeRelationships(in, 2)
	if g.Summary != "Alternate shape" {
		t.Errorf("Summary: got %q", g.Summary)
	}
	if len(g.Details) != 1 || g.Details[0].Label != "Feeds" {
		t.Errorf("Details: got %+v, want single Feeds edge", g.Details)
	}
}

func TestNormalizeRelationshipsProjectSummaryWithoutConnections(t *testing.T) {
	g := NormalizeRelationships(map[string]any{"project_summary": "No edges given"}, 3)
	if g.Summary != "No edges given" {
		t.Errorf("Summary: got %q", g.Summary)
	}
	if len(g.Details) != 1 || g.Details[0].From != 0 || g.Details[0].To != 1 {
		t.Errorf("Details: got %+v, want fallback edge 0 -> 1", g.Details)
	}
}

func TestNormalizeRelationshipsSequenceShape(t *testing.T) {
	in := []any{
		map[string]any{"name": "A", "description": "first component"},
		map[string]any{"name": "B"},
		map[string]any{"name": "C"},
	}

	g := NormalizeRelationships(in, 3)
	if g.Summary != "first component" {
		t.Errorf("Summary: got %q", g.Summary)
	}
	if len(g.Details) != 2 {
		t.Fatalf("Details: got %d edges, want 2", len(g.Details))
	}
	for i, edge := range g.Details {
		if edge.From != i || edge.To != i+1 || edge.Label != "Relates to" {
			t.Errorf("edge %d: got %+v", i, edge)
		}
	}
}

func TestNormalizeRelationshipsSequenceWithoutDescription(t *testing.T) {
	in := []any{
		map[string]any{"name": "A"},
		map[string]any{"name": "B"},
	}

	g := NormalizeRelationships(in, 2)
	if g.Summary != "Project with 2 key components" {
		t.Errorf("Summary: got %q", g.Summary)
	}
}

func TestNormalizeRelationshipsSequencePairsCappedByCount(t *testing.T) {
	in := []any{
		map[string]any{"name": "A"},
		map[string]any{"name": "B"},
		map[string]any{"name": "C"},
	}

	// Only two known abstractions, so only the 0 -> 1 pair is valid.
	g := NormalizeRelationships(in, 2)
	if len(g.Details) != 1 || g.Details[0].From != 0 || g.Details[0].To != 1 {
		t.Errorf("Details: got %+v, want single edge 0 -> 1", g.Details)
	}
}

func TestNormalizeRelationshipsFallbackEdge(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		count     int
		wantEdges int
	}{
		{name: "unrecognized scalar with two abstractions", in: "garbage", count: 2, wantEdges: 1},
		{name: "empty sequence with three abstractions", in: []any{}, count: 3, wantEdges: 1},
		{name: "single abstraction gets no edge", in: "garbage", count: 1, wantEdges: 0},
		{name: "no abstractions", in: nil, count: 0, wantEdges: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NormalizeRelationships(tt.in, tt.count)
			if len(g.Details) != tt.wantEdges {
				t.Errorf("Details: got %d edges, want %d", len(g.Details), tt.wantEdges)
			}
			if tt.wantEdges == 1 {
				edge := g.Details[0]
				if edge.From != 0 || edge.To != 1 || edge.Label != "Connected to" {
					t.Errorf("fallback edge: got %+v, want {0 1 Connected to}", edge)
				}
			}
		})
	}
}

func TestCoerceIndex(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int
		wantErr bool
	}{
		{name: "int", in: 3, want: 3},
		{name: "int64", in: int64(4), want: 4},
		{name: "uint64", in: uint64(5), want: 5},
		{name: "integral float", in: float64(2), want: 2},
		{name: "fractional float", in: 2.5, wantErr: true},
		{name: "plain numeric string", in: "3", want: 3},
		{name: "padded numeric string", in: "  7 ", want: 7},
		{name: "string with name comment", in: "2 # Parser", want: 2},
		{name: "comment only", in: "# Parser", wantErr: true},
		{name: "non-numeric string", in: "Parser", wantErr: true},
		{name: "nil", in: nil, wantErr: true},
		{name: "bool", in: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceIndex(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIndex) {
					t.Errorf("CoerceIndex(%v): got error %v, want ErrInvalidIndex", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CoerceIndex(%v): unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("CoerceIndex(%v): got %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
