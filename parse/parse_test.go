package parse

import (
	"errors"
	"testing"
)

func TestParsePayloadJSON(t *testing.T) {
	v, err := ParsePayload(Payload{Content: `{"summary": "fine", "relationships": []}`, Format: FormatJSON}, FormatJSON)
	if err != nil {
		t.Fatalf("ParsePayload: unexpected error: %v", err)
	}
	if v.Format != FormatJSON {
		t.Errorf("ParsePayload: got format %q, want %q", v.Format, FormatJSON)
	}
	m, ok := v.Data.(map[string]any)
	if !ok {
		t.Fatalf("ParsePayload: got %T, want map[string]any", v.Data)
	}
	if m["summary"] != "fine" {
		t.Errorf("ParsePayload: got summary %v, want %q", m["summary"], "fine")
	}
}

func TestParsePayloadYAML(t *testing.T) {
	content := "summary: all good\nrelationships:\n  - from_abstraction: 0\n    to_abstraction: 1\n    label: Uses\n"
	v, err := ParsePayload(Payload{Content: content, Format: FormatYAML}, FormatYAML)
	if err != nil {
		t.Fatalf("ParsePayload: unexpected error: %v", err)
	}
	if v.Format != FormatYAML {
		t.Errorf("ParsePayload: got format %q, want %q", v.Format, FormatYAML)
	}
	m, ok := v.Data.(map[string]any)
	if !ok {
		t.Fatalf("ParsePayload: got %T, want map[string]any", v.Data)
	}
	if m["summary"] != "all good" {
		t.Errorf("ParsePayload: got summary %v, want %q", m["summary"], "all good")
	}
	rels, ok := m["relationships"].([]any)
	if !ok {
		t.Fatalf("ParsePayload: relationships decoded as %T, want []any", m["relationships"])
	}
	if len(rels) != 1 {
		t.Errorf("ParsePayload: got %d relationships, want 1", len(rels))
	}
}

func TestParsePayloadRepairsJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "trailing comma", content: `{"summary": "fine",}`},
		{name: "single quotes", content: `{'summary': 'fine'}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParsePayload(Payload{Content: tt.content, Format: FormatJSON}, FormatJSON)
			if err != nil {
				t.Fatalf("ParsePayload(%q): unexpected error: %v", tt.content, err)
			}
			if v.Format != FormatJSON {
				t.Errorf("ParsePayload(%q): got format %q, want %q", tt.content, v.Format, FormatJSON)
			}
			m, ok := v.Data.(map[string]any)
			if !ok {
				t.Fatalf("ParsePayload(%q): got %T, want map[string]any", tt.content, v.Data)
			}
			if m["summary"] != "fine" {
				t.Errorf("ParsePayload(%q): got summary %v, want %q", tt.content, m["summary"], "fine")
			}
		})
	}
}

func TestParsePayloadYAMLFallback(t *testing.T) {
	// Declared JSON but written as block YAML.
	v, err := ParsePayload(Payload{Content: "summary: fine", Format: FormatJSON}, FormatJSON)
	if err != nil {
		t.Fatalf("ParsePayload: unexpected error: %v", err)
	}
	if v.Format != FormatYAML {
		t.Errorf("ParsePayload: got format %q, want %q", v.Format, FormatYAML)
	}
	m, ok := v.Data.(map[string]any)
	if !ok {
		t.Fatalf("ParsePayload: got %T, want map[string]any", v.Data)
	}
	if m["summary"] != "fine" {
		t.Errorf("ParsePayload: got summary %v, want %q", m["summary"], "fine")
	}
}

func TestParsePayloadFailure(t *testing.T) {
	content := "a: [unclosed"
	_, err := ParsePayload(Payload{Content: content, Format: FormatYAML}, FormatYAML)
	if err == nil {
		t.Fatal("ParsePayload: expected error for undecodable payload")
	}
	if !errors.Is(err, ErrParseFailure) {
		t.Errorf("ParsePayload: error %v does not match ErrParseFailure", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("ParsePayload: got %T, want *ParseError", err)
	}
	if pe.Raw != content {
		t.Errorf("ParseError.Raw: got %q, want %q", pe.Raw, content)
	}
	if pe.JSONErr == nil || pe.YAMLErr == nil {
		t.Errorf("ParseError should carry both decoder errors, got json=%v yaml=%v", pe.JSONErr, pe.YAMLErr)
	}
}

func TestParseResponse(t *testing.T) {
	raw := "Analysis below.\n```yaml\nsummary: fine\nrelationships: []\n```\n"
	v, err := ParseResponse(raw, FormatYAML)
	if err != nil {
		t.Fatalf("ParseResponse: unexpected error: %v", err)
	}
	m, ok := v.Data.(map[string]any)
	if !ok {
		t.Fatalf("ParseResponse: got %T, want map[string]any", v.Data)
	}
	if m["summary"] != "fine" {
		t.Errorf("ParseResponse: got summary %v, want %q", m["summary"], "fine")
	}
}

func TestParseResponseUnterminatedFence(t *testing.T) {
	_, err := ParseResponse("```yaml\nsummary: fine", FormatYAML)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("ParseResponse: got error %v, want ErrMalformedPayload", err)
	}
}

func TestParseResponseCarriesRawOnFailure(t *testing.T) {
	raw := "```yaml\na: [unclosed\n```"
	_, err := ParseResponse(raw, FormatYAML)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("ParseResponse: got %T, want *ParseError", err)
	}
	if pe.Raw != raw {
		t.Errorf("ParseError.Raw: got %q, want the full response", pe.Raw)
	}
}
