package source

import (
	"fmt"
	"log/slog"
	"strings"
)

// DefaultContextChars caps the assembled prompt context when
// BuildContext is called with maxChars <= 0.
const DefaultContextChars = 150_000

// Context is the assembled LLM input for a set of source files. Text
// holds the indexed file bodies, Listing the index lines a prompt can
// reference, and Included the files that fit the budget in index
// order.
type Context struct {
	Text     string
	Listing  string
	Included []File
}

// BuildContext concatenates files into an indexed context of the form
//
//	--- File Index 0: cmd/main.go ---
//	<content>
//
// stopping before the entry that would push Text past maxChars.
// Indices in Text and Listing always agree, so an LLM answer that
// cites "3 # server/router.go" resolves to Included[3].
func BuildContext(files []File, maxChars int) Context {
	if maxChars <= 0 {
		maxChars = DefaultContextChars
	}

	var text strings.Builder
	lines := make([]string, 0, len(files))
	included := make([]File, 0, len(files))

	for i, f := range files {
		entry := fmt.Sprintf("--- File Index %d: %s ---\n%s\n\n", i, f.Path, f.Content)
		if text.Len()+len(entry) > maxChars {
			slog.Debug("source: context budget reached",
				"included", len(included),
				"total", len(files),
				"budget", maxChars)
			break
		}
		text.WriteString(entry)
		lines = append(lines, fmt.Sprintf("- %d # %s", i, f.Path))
		included = append(included, f)
	}

	return Context{
		Text:     text.String(),
		Listing:  strings.Join(lines, "\n"),
		Included: included,
	}
}
