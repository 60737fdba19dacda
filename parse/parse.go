package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kaptinlin/jsonrepair"
)

// Value is a decoded payload. Data holds the generic decode result
// (maps, slices, scalars); Format records which decoder succeeded.
type Value struct {
	Data   any
	Format Format
}

// ParseError reports a payload that decoded as neither JSON nor YAML.
// It carries the raw text and both decoder errors, and matches
// ErrParseFailure under errors.Is.
type ParseError struct {
	Raw     string // text that failed to decode
	JSONErr error
	YAMLErr error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: payload is not valid JSON or YAML (json: %v; yaml: %v)", e.JSONErr, e.YAMLErr)
}

func (e *ParseError) Unwrap() error { return ErrParseFailure }

// ParsePayload decodes an extracted payload. The decoder matching the
// payload's declared format runs first; on failure the other decoder
// is tried before giving up. JSON decoding is lenient: documents that
// open as an object or array but fail strict decoding go through a
// repair pass that fixes the usual model mistakes (trailing commas,
// single quotes, unquoted keys) before a final attempt.
//
// When expected names a concrete format and the payload declares the
// other one, the mismatch is logged at debug level and decoding
// continues; only total decode failure is an error.
func ParsePayload(p Payload, expected Format) (*Value, error) {
	if expected != "" && expected != FormatAny && expected != p.Format {
		slog.Debug("payload format differs from expected",
			"expected", expected, "declared", p.Format)
	}

	order := []Format{FormatJSON, FormatYAML}
	if p.Format == FormatYAML {
		order = []Format{FormatYAML, FormatJSON}
	}

	var jsonErr, yamlErr error
	for i, format := range order {
		var (
			data any
			err  error
		)
		if format == FormatJSON {
			data, err = decodeJSON(p.Content)
			jsonErr = err
		} else {
			data, err = decodeYAML(p.Content)
			yamlErr = err
		}
		if err == nil {
			if i > 0 {
				slog.Debug("payload decoded by fallback format", "format", format)
			}
			return &Value{Data: data, Format: format}, nil
		}
	}
	return nil, &ParseError{Raw: p.Content, JSONErr: jsonErr, YAMLErr: yamlErr}
}

// ParseResponse extracts and decodes the payload of a model response
// in one step. On decode failure the returned ParseError carries the
// full response rather than just the extracted fragment.
func ParseResponse(raw string, expected Format) (*Value, error) {
	p, err := ExtractPayload(raw)
	if err != nil {
		return nil, err
	}
	v, err := ParsePayload(p, expected)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Raw = raw
		}
		return nil, err
	}
	return v, nil
}

func decodeJSON(content string) (any, error) {
	var v any
	strictErr := json.Unmarshal([]byte(content), &v)
	if strictErr == nil {
		return v, nil
	}
	// Repair only payloads that open as an object or array; block-style
	// YAML belongs to the fallback decoder, not the repairer.
	c := strings.TrimSpace(content)
	if !strings.HasPrefix(c, "{") && !strings.HasPrefix(c, "[") {
		return nil, strictErr
	}
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return nil, strictErr
	}
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, strictErr
	}
	return v, nil
}

func decodeYAML(content string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(content), &v); err != nil {
		return nil, err
	}
	return v, nil
}
