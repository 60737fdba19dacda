package repolens

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/repolens/repolens/graph"
	"github.com/repolens/repolens/parse"
	"github.com/repolens/repolens/report"
)

func TestResolveAreas(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    string
		wantErr error
	}{
		{
			name: "empty means all areas",
			in:   nil,
			want: "availability,error_handling,logging",
		},
		{
			name: "single area",
			in:   []string{"logging"},
			want: "logging",
		},
		{
			name: "sorted and deduplicated",
			in:   []string{"logging", "availability", "logging"},
			want: "availability,logging",
		},
		{
			name:    "unknown area",
			in:      []string{"security"},
			wantErr: ErrUnknownFocusArea,
		},
		{
			name:    "unknown mixed with valid",
			in:      []string{"logging", "perf"},
			wantErr: ErrUnknownFocusArea,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveAreas(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error: got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveAreas(%v): %v", tt.in, err)
			}
			if joined := strings.Join(got, ","); joined != tt.want {
				t.Errorf("areas: got %q, want %q", joined, tt.want)
			}
		})
	}
}

func TestPromptOrder(t *testing.T) {
	all := report.PromptFor(report.AllAreas)
	if got := promptOrder(all); len(got) != 1 || got[0] != "combined" {
		t.Errorf("all areas should collapse to combined, got %v", got)
	}

	subset := report.PromptFor([]string{"availability", "logging"})
	got := promptOrder(subset)
	if len(got) != 2 || got[0] != "logging" || got[1] != "availability" {
		t.Errorf("subset should run in report order, got %v", got)
	}

	if got := promptOrder(map[string]string{}); len(got) != 0 {
		t.Errorf("empty prompts should yield no passes, got %v", got)
	}
}

func TestCoversAreas(t *testing.T) {
	have := []string{"availability", "error_handling", "logging"}

	if !coversAreas(have, nil) {
		t.Error("empty want should always be covered")
	}
	if !coversAreas(have, []string{"logging"}) {
		t.Error("single present area should be covered")
	}
	if !coversAreas(have, []string{"logging", "availability"}) {
		t.Error("present pair should be covered")
	}
	if coversAreas([]string{"logging"}, []string{"availability"}) {
		t.Error("missing area should not be covered")
	}
	if coversAreas(nil, []string{"logging"}) {
		t.Error("empty have should not cover anything")
	}
}

func TestArchitectureSection(t *testing.T) {
	m := &graph.Map{
		Summary: "A router feeding a store.",
		Abstractions: []graph.Abstraction{
			{Name: "Router", Description: "Routes requests."},
			{Name: "Store", Description: "Persists data."},
		},
		Relations: []parse.Relationship{{From: 0, To: 1, Label: "writes"}},
	}

	section := architectureSection(m)
	if !strings.HasPrefix(section, "A router feeding a store.") {
		t.Errorf("section should start with the summary, got: %q", section)
	}
	if !strings.Contains(section, "```mermaid\nflowchart TD\n") {
		t.Errorf("section missing mermaid fence: %q", section)
	}
	if !strings.HasSuffix(section, "```") {
		t.Errorf("section should close the fence: %q", section)
	}
	if !strings.Contains(section, `A0["Router"]`) {
		t.Errorf("section missing node: %q", section)
	}
}

func TestArchitectureSectionNoSummary(t *testing.T) {
	m := &graph.Map{Abstractions: []graph.Abstraction{{Name: "Core"}}}

	section := architectureSection(m)
	if !strings.HasPrefix(section, "```mermaid\n") {
		t.Errorf("section without summary should start at the fence: %q", section)
	}
}

func TestTruncateForEmbed(t *testing.T) {
	short := "a short report chunk"
	if got := truncateForEmbed(short); got != short {
		t.Errorf("short text should pass through, got %q", got)
	}

	long := strings.Repeat("alpha beta gamma ", 2000)
	got := truncateForEmbed(long)
	if len(got) > maxEmbedChars {
		t.Fatalf("truncated length %d exceeds budget %d", len(got), maxEmbedChars)
	}
	// Cut lands on a word boundary: the next rune of the original is a space.
	if long[len(got)] != ' ' {
		t.Errorf("expected cut at word boundary, next byte is %q", long[len(got)])
	}
}

func TestWriteReportFile(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")

	path, err := writeReportFile(outDir, "demo", "# Report\n\nbody\n")
	if err != nil {
		t.Fatalf("writeReportFile: %v", err)
	}
	if path != filepath.Join(outDir, "demo", "code_quality_report.md") {
		t.Errorf("path: got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if string(data) != "# Report\n\nbody\n" {
		t.Errorf("content: got %q", data)
	}
}
