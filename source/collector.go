package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoFiles indicates that a scan matched nothing under the source
// directory.
var ErrNoFiles = errors.New("source: no files matched")

// DefaultMaxFileSize is the per-file size cutoff when Options leaves
// MaxFileSize unset.
const DefaultMaxFileSize = 1_000_000

// DefaultIncludes selects the file types worth showing to the
// analyzer: source code, build files, configuration and docs, plus
// PDF and XLSX documents whose text is extracted.
var DefaultIncludes = []string{
	"**/*.py", "**/*.pyi", "**/*.pyx",
	"**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx",
	"**/*.go", "**/*.java",
	"**/*.c", "**/*.cc", "**/*.cpp", "**/*.h",
	"**/*.md", "**/*.rst",
	"**/Dockerfile", "**/Makefile",
	"**/*.yaml", "**/*.yml", "**/*.json", "**/*.properties", "**/*.xml",
	"**/config/**",
	"**/*.pdf", "**/*.xlsx",
}

// DefaultExcludes removes vendored trees, build output, test code and
// asset directories from a scan.
var DefaultExcludes = []string{
	"**/assets/**", "**/data/**", "**/examples/**", "**/images/**",
	"**/public/**", "**/static/**", "**/temp/**", "**/docs/**",
	"**/venv/**", "**/.venv/**",
	"**/*test*", "**/*test*/**", "**/tests/**",
	"**/v1/**", "**/dist/**", "**/build/**",
	"**/experimental/**", "**/deprecated/**", "**/misc/**", "**/legacy/**",
	"**/.git/**", "**/.github/**", "**/.next/**", "**/.vscode/**",
	"**/obj/**", "**/bin/**", "**/node_modules/**",
	"**/*.log",
}

// Options configures a source scan.
type Options struct {
	Dir         string   // root directory to scan
	Include     []string // doublestar patterns; DefaultIncludes when empty
	Exclude     []string // doublestar patterns; DefaultExcludes when empty
	MaxFileSize int64    // per-file byte cutoff; DefaultMaxFileSize when <= 0
	MaxFiles    int      // stop after this many files; 0 means unlimited
}

// File is one collected source file.
type File struct {
	Path    string `json:"path"` // relative to the scanned directory, forward slashes
	Content string `json:"-"`
}

// Collect walks the directory tree under opts.Dir and returns the
// files that match the include patterns and survive the exclude
// patterns, in lexical path order. Binary files (invalid UTF-8) and
// files over the size cutoff are skipped; PDF and XLSX files are
// replaced by their extracted text. Returns ErrNoFiles when nothing
// matches.
func Collect(ctx context.Context, opts Options) ([]File, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if len(opts.Include) == 0 {
		opts.Include = DefaultIncludes
	}
	if len(opts.Exclude) == 0 {
		opts.Exclude = DefaultExcludes
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	info, err := os.Stat(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", opts.Dir)
	}

	var files []File
	err = filepath.WalkDir(opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(opts.Dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if excludedDir(rel, opts.Exclude) {
				return fs.SkipDir
			}
			return nil
		}

		if !matchesAny(rel, opts.Include) || matchesAny(rel, opts.Exclude) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() > opts.MaxFileSize {
			slog.Debug("source: skipping oversized file", "path", rel, "size", fi.Size())
			return nil
		}

		content, err := readFile(path)
		if err != nil {
			slog.Warn("source: skipping unreadable file", "path", rel, "error", err)
			return nil
		}

		files = append(files, File{Path: rel, Content: content})
		if opts.MaxFiles > 0 && len(files) >= opts.MaxFiles {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoFiles, opts.Dir)
	}
	return files, nil
}

// readFile loads a file's text, extracting PDF and XLSX documents and
// rejecting binary content.
func readFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".xlsx":
		return extractXLSX(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("binary content")
	}
	return string(data), nil
}

// matchesAny reports whether rel matches at least one pattern.
func matchesAny(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// excludedDir reports whether rel names a directory that an exclude
// pattern removes wholesale (a pattern ending in "/**"), so the walk
// can prune the subtree instead of visiting every file in it.
func excludedDir(rel string, excludes []string) bool {
	for _, pattern := range excludes {
		prefix, ok := strings.CutSuffix(pattern, "/**")
		if !ok {
			continue
		}
		if matched, err := doublestar.Match(prefix, rel); err == nil && matched {
			return true
		}
	}
	return false
}
