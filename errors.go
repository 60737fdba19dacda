package repolens

import (
	"errors"

	"github.com/repolens/repolens/source"
	"github.com/repolens/repolens/store"
)

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("repolens: invalid configuration")

	// ErrNoChatProvider is returned when no chat provider is configured.
	ErrNoChatProvider = errors.New("repolens: no chat provider configured")

	// ErrStoreNotConfigured is returned when a storage operation is
	// requested on an engine running without a report store.
	ErrStoreNotConfigured = errors.New("repolens: store not configured")

	// ErrUnknownFocusArea is returned when a requested focus area is not supported.
	ErrUnknownFocusArea = errors.New("repolens: unknown focus area")

	// ErrAnalysisFailed is returned when a focus-area analysis pass fails.
	ErrAnalysisFailed = errors.New("repolens: analysis failed")

	// ErrReportNotFound aliases store.ErrReportNotFound for callers
	// that only import the root package.
	ErrReportNotFound = store.ErrReportNotFound

	// ErrNoFiles aliases source.ErrNoFiles for callers that only
	// import the root package.
	ErrNoFiles = source.ErrNoFiles
)
