package graph

import (
	"strings"
	"testing"

	"github.com/repolens/repolens/parse"
)

func TestMermaid(t *testing.T) {
	m := &Map{
		Abstractions: []Abstraction{
			{Name: "Request Router"},
			{Name: "Storage Layer"},
		},
		Relations: []parse.Relationship{
			{From: 0, To: 1, Label: "Persists via"},
		},
	}

	want := "flowchart TD\n" +
		"    A0[\"Request Router\"]\n" +
		"    A1[\"Storage Layer\"]\n" +
		"    A0 -->|\"Persists via\"| A1\n"
	if got := Mermaid(m); got != want {
		t.Errorf("Mermaid() = %q, want %q", got, want)
	}
}

func TestMermaidUnlabeledEdge(t *testing.T) {
	m := &Map{
		Abstractions: []Abstraction{{Name: "A"}, {Name: "B"}},
		Relations:    []parse.Relationship{{From: 1, To: 0}},
	}

	got := Mermaid(m)
	if !strings.Contains(got, "    A1 --> A0\n") {
		t.Errorf("Mermaid() = %q, want plain edge A1 --> A0", got)
	}
}

func TestMermaidEscapesQuotes(t *testing.T) {
	m := &Map{
		Abstractions: []Abstraction{{Name: `The "Core" Loop`}},
	}

	got := Mermaid(m)
	if !strings.Contains(got, `A0["The 'Core' Loop"]`) {
		t.Errorf("Mermaid() = %q, want double quotes replaced", got)
	}
}

func TestMermaidSkipsOutOfRangeEdges(t *testing.T) {
	m := &Map{
		Abstractions: []Abstraction{{Name: "Only"}},
		Relations: []parse.Relationship{
			{From: 0, To: 3, Label: "Dangles"},
			{From: -1, To: 0, Label: "Dangles"},
		},
	}

	got := Mermaid(m)
	if strings.Contains(got, "Dangles") {
		t.Errorf("Mermaid() = %q, want out-of-range edges dropped", got)
	}
}

func TestMermaidEmptyMap(t *testing.T) {
	if got := Mermaid(&Map{}); got != "flowchart TD\n" {
		t.Errorf("Mermaid(&Map{}) = %q, want header only", got)
	}
}
