package parse

import (
	"fmt"
	"strings"
)

// Format identifies the serialization format of a payload.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatAny disables the expected-format check in ParsePayload.
	FormatAny Format = "any"
)

// Payload is the raw text lifted out of a model response together with
// the format its fence tag (or a first-character sniff) declared.
type Payload struct {
	Content string // fenced block body, or the whole response when unfenced
	Format  Format // declared format, either FormatJSON or FormatYAML
}

// ExtractPayload locates the serialized payload inside a model
// response. Fence tags are checked in priority order: ```yaml, ```yml,
// ```json, then any untagged ``` fence; a tagged fence wins over an
// earlier untagged one. Without a fence the whole response is the
// payload. Content is whitespace-trimmed, and when no tag names the
// format it is sniffed from the first character: '{' or '[' means
// JSON, anything else YAML.
//
// An opening fence with no closing ``` after it returns
// ErrMalformedPayload.
func ExtractPayload(raw string) (Payload, error) {
	trimmed := strings.TrimSpace(raw)

	for _, open := range []struct {
		marker string
		format Format
	}{
		{"```yaml", FormatYAML},
		{"```yml", FormatYAML},
		{"```json", FormatJSON},
	} {
		if !strings.Contains(trimmed, open.marker) {
			continue
		}
		content, err := fencedContent(trimmed, open.marker)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Content: content, Format: open.format}, nil
	}

	if strings.Contains(trimmed, "```") {
		content, err := fencedContent(trimmed, "```")
		if err != nil {
			return Payload{}, err
		}
		return Payload{Content: content, Format: sniffFormat(content)}, nil
	}

	return Payload{Content: trimmed, Format: sniffFormat(trimmed)}, nil
}

// fencedContent returns the trimmed text between the first occurrence
// of marker and the next ``` after it.
func fencedContent(s, marker string) (string, error) {
	rest := s[strings.Index(s, marker)+len(marker):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", fmt.Errorf("%w: %s", ErrMalformedPayload, marker)
	}
	return strings.TrimSpace(rest[:end]), nil
}

// sniffFormat guesses the format of untagged content.
func sniffFormat(content string) Format {
	c := strings.TrimSpace(content)
	if strings.HasPrefix(c, "{") || strings.HasPrefix(c, "[") {
		return FormatJSON
	}
	return FormatYAML
}
