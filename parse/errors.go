package parse

import "errors"

var (
	// ErrMalformedPayload indicates a response that opens a code fence
	// but never closes it.
	ErrMalformedPayload = errors.New("parse: unterminated code fence")

	// ErrParseFailure indicates a payload that decodes as neither JSON
	// nor YAML.
	ErrParseFailure = errors.New("parse: payload is not valid JSON or YAML")

	// ErrInvalidIndex indicates a value that cannot be coerced to an
	// abstraction index.
	ErrInvalidIndex = errors.New("parse: value is not an index")
)
