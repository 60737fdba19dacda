package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the chunk budget used when Config.MaxChars is
// unset. It keeps chunks comfortably inside embedding model input
// limits.
const DefaultMaxChars = 8000

// Config controls the chunking behaviour.
type Config struct {
	MaxChars int // Maximum bytes per chunk.
}

// Chunker splits report text into embedding-sized chunks.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration.
// Zero-value fields are replaced with sensible defaults.
func New(cfg Config) *Chunker {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	return &Chunker{cfg: cfg}
}

// Split breaks text into chunks of at most MaxChars bytes each,
// preferring paragraph boundaries, then sentence boundaries, then
// fixed-width cuts for a single sentence that alone exceeds the
// budget. Text already within budget is returned whole as a single
// chunk.
//
// The leftover of a split paragraph or sentence stays in the running
// accumulator and is joined with the following pieces, so no text is
// lost at chunk boundaries: concatenating the chunks restores the
// input modulo the rewritten separators.
func (c *Chunker) Split(text string) []string {
	if len(text) <= c.cfg.MaxChars {
		return []string{text}
	}

	var chunks []string
	emit := func(chunk string) { chunks = append(chunks, chunk) }

	tail := pack(strings.Split(text, "\n\n"), "\n\n", c.cfg.MaxChars, emit, splitParagraph)
	if tail != "" {
		emit(tail)
	}
	return chunks
}

// Split is a package-level convenience for one-off splitting.
func Split(text string, maxChars int) []string {
	return New(Config{MaxChars: maxChars}).Split(text)
}

// pack greedily joins pieces into budget-sized chunks, re-inserting
// sep between pieces that share a chunk. The separator width always
// counts toward the budget check, even for the first piece of a
// chunk. A piece that alone exceeds the budget is delegated to
// oversize, which may emit full chunks and returns the partial tail;
// that tail seeds the accumulator for the pieces that follow. The
// final unemitted accumulator is returned to the caller.
func pack(pieces []string, sep string, max int, emit func(string), oversize func(string, int, func(string)) string) string {
	var acc string
	for _, piece := range pieces {
		if len(acc)+len(piece)+len(sep) > max {
			if acc != "" {
				emit(acc)
				acc = ""
			}
			if len(piece) > max {
				acc = oversize(piece, max, emit)
			} else {
				acc = piece
			}
			continue
		}
		if acc != "" {
			acc += sep + piece
		} else {
			acc = piece
		}
	}
	return acc
}

// splitParagraph packs an oversized paragraph sentence by sentence,
// cutting any single sentence that still exceeds the budget into
// fixed-width slices.
func splitParagraph(para string, max int, emit func(string)) string {
	return pack(strings.Split(para, ". "), ". ", max, emit, sliceFixed)
}

// sliceFixed cuts s into max-byte slices, emitting all but the last,
// which is returned as the accumulator tail. Cut points back off to a
// rune boundary so a multi-byte character is never split across
// chunks.
func sliceFixed(s string, max int, emit func(string)) string {
	for len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = max
		}
		emit(s[:cut])
		s = s[cut:]
	}
	return s
}
