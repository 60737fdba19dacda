// Package repolens analyzes source repositories for code quality. It
// collects source files, runs one LLM pass per focus area (logging,
// availability, error handling), maps the key abstractions of the
// codebase, and assembles a markdown report that can be persisted for
// hybrid vector and full-text search.
package repolens

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/repolens/repolens/chunker"
	"github.com/repolens/repolens/graph"
	"github.com/repolens/repolens/llm"
	"github.com/repolens/repolens/report"
	"github.com/repolens/repolens/source"
	"github.com/repolens/repolens/store"
)

// Engine is the main API for analyzing repositories and searching
// stored reports.
type Engine interface {
	// Analyze runs the quality pipeline over the repository at dir:
	// collect sources, run one pass per focus area, map the
	// architecture, assemble the report, and optionally persist it.
	Analyze(ctx context.Context, dir string, opts ...AnalyzeOption) (*Report, error)

	// MapArchitecture builds only the abstraction map for the
	// repository at dir, skipping the quality passes.
	MapArchitecture(ctx context.Context, dir string, opts ...AnalyzeOption) (*graph.Map, error)

	// GetReport returns the most recent stored report for an app,
	// optionally narrowed to an exact focus-area set.
	GetReport(ctx context.Context, appID string, areas []string) (*store.StoredReport, error)

	// Search runs hybrid vector and full-text search over stored
	// report chunks.
	Search(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error)

	// ListApps returns every app with at least one stored report.
	ListApps(ctx context.Context) ([]AppInfo, error)

	// DeleteApp removes all stored reports for an app.
	DeleteApp(ctx context.Context, appID string) error

	// Store exposes the underlying database for stats and
	// maintenance. Nil when the engine runs without persistence.
	Store() *store.Store

	// Close releases the database.
	Close() error
}

// Report is the result of one analysis run.
type Report struct {
	AppID        string     `json:"app_id"`
	AppName      string     `json:"app_name"`
	DocID        string     `json:"doc_id"`
	FocusAreas   []string   `json:"focus_areas"`
	Markdown     string     `json:"markdown"`
	Architecture *graph.Map `json:"architecture,omitempty"`
	ReportPath   string     `json:"report_path,omitempty"`
	Chunks       int        `json:"chunks"`
	Stored       bool       `json:"stored"`
}

// AppInfo summarizes one analyzed app.
type AppInfo struct {
	AppID        string   `json:"app_id"`
	AppName      string   `json:"app_name"`
	FocusAreas   []string `json:"focus_areas"`
	Reports      int      `json:"reports"`
	LastAnalyzed string   `json:"last_analyzed"`
}

// SearchResult is one matching report chunk with a display snippet.
type SearchResult struct {
	AppID      string   `json:"app_id"`
	AppName    string   `json:"app_name"`
	DocID      string   `json:"doc_id"`
	ChunkUID   string   `json:"chunk_uid"`
	ChunkIndex int      `json:"chunk_index"`
	FocusAreas []string `json:"focus_areas"`
	Content    string   `json:"content"`
	Snippet    string   `json:"snippet,omitempty"`
	Score      float64  `json:"score"`
	Source     string   `json:"source"` // "vector", "text", or "both"
}

// AnalyzeOption configures a single Analyze or MapArchitecture call.
type AnalyzeOption func(*analyzeOptions)

type analyzeOptions struct {
	focusAreas  []string
	appID       string
	appName     string
	projectName string
	outputDir   string
	metadata    map[string]string
	store       bool
	skipArchMap bool
}

// WithFocusAreas restricts the analysis to the given focus areas.
// Valid areas are "logging", "availability", and "error_handling";
// the default is all three.
func WithFocusAreas(areas ...string) AnalyzeOption {
	return func(o *analyzeOptions) { o.focusAreas = areas }
}

// WithAppID sets a stable application ID so repeat analyses replace
// earlier stored reports. A random ID is generated when unset.
func WithAppID(id string) AnalyzeOption {
	return func(o *analyzeOptions) { o.appID = id }
}

// WithAppName sets a human-readable application name. Defaults to the
// project name.
func WithAppName(name string) AnalyzeOption {
	return func(o *analyzeOptions) { o.appName = name }
}

// WithProjectName overrides the project name used in prompts and the
// report path. Defaults to the base name of the analyzed directory.
func WithProjectName(name string) AnalyzeOption {
	return func(o *analyzeOptions) { o.projectName = name }
}

// WithStore controls whether the finished report is persisted to the
// database. Off by default.
func WithStore(enabled bool) AnalyzeOption {
	return func(o *analyzeOptions) { o.store = enabled }
}

// WithOutputDir overrides the directory report files are written
// under. An empty string disables writing the report file.
func WithOutputDir(dir string) AnalyzeOption {
	return func(o *analyzeOptions) { o.outputDir = dir }
}

// WithMetadata attaches extra key-value pairs to the stored report.
func WithMetadata(md map[string]string) AnalyzeOption {
	return func(o *analyzeOptions) { o.metadata = md }
}

// WithoutArchitectureMap skips the abstraction-mapping passes.
func WithoutArchitectureMap() AnalyzeOption {
	return func(o *analyzeOptions) { o.skipArchMap = true }
}

// SearchOption configures a Search call.
type SearchOption func(*searchOptions)

type searchOptions struct {
	limit int
	appID string
	areas []string
}

// WithLimit sets the maximum number of results. Defaults to 5.
func WithLimit(n int) SearchOption {
	return func(o *searchOptions) { o.limit = n }
}

// WithApp restricts results to a single application.
func WithApp(appID string) SearchOption {
	return func(o *searchOptions) { o.appID = appID }
}

// WithAreas keeps only results from reports that cover every given
// focus area.
func WithAreas(areas ...string) SearchOption {
	return func(o *searchOptions) { o.areas = areas }
}

type engine struct {
	cfg      Config
	store    *store.Store
	chat     llm.Provider
	embedder llm.Provider
	mapper   *graph.Builder
}

// New creates an Engine from the given configuration. Zero-value
// limit fields fall back to their DefaultConfig values; an empty
// embedding provider disables embeddings and leaves search full-text
// only. A chat provider is required. When the report store cannot be
// opened the engine still analyzes, and storage operations return
// ErrStoreNotConfigured.
func New(cfg Config) (Engine, error) {
	if cfg.MaxContextChars < 0 || cfg.MaxFileSize < 0 || cfg.MaxChunkChars < 0 || cfg.CacheSize < 0 {
		return nil, fmt.Errorf("%w: negative size limit", ErrInvalidConfig)
	}
	if cfg.Chat.Provider == "" {
		return nil, ErrNoChatProvider
	}
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 768
	}
	if cfg.MaxContextChars == 0 {
		cfg.MaxContextChars = source.DefaultContextChars
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = source.DefaultMaxFileSize
	}
	if cfg.MaxChunkChars == 0 {
		cfg.MaxChunkChars = chunker.DefaultMaxChars
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}

	s, err := store.New(cfg.resolveDBPath(), cfg.EmbeddingDim)
	if err != nil {
		slog.Warn("engine: store unavailable, reports will not be persisted",
			"path", cfg.resolveDBPath(), "error", err)
		s = nil
	}

	chat, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		if s != nil {
			s.Close()
		}
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}
	if cfg.CacheSize > 0 {
		chat = llm.NewCached(chat, cfg.CacheSize)
	}

	var embedder llm.Provider
	if cfg.Embedding.Provider != "" {
		embedder, err = llm.NewProvider(llm.Config{
			Provider: cfg.Embedding.Provider,
			Model:    cfg.Embedding.Model,
			BaseURL:  cfg.Embedding.BaseURL,
			APIKey:   cfg.Embedding.APIKey,
		})
		if err != nil {
			if s != nil {
				s.Close()
			}
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
	}

	return &engine{
		cfg:      cfg,
		store:    s,
		chat:     chat,
		embedder: embedder,
		mapper:   graph.NewBuilder(chat),
	}, nil
}

func (e *engine) Analyze(ctx context.Context, dir string, opts ...AnalyzeOption) (*Report, error) {
	options := e.newAnalyzeOptions()
	for _, opt := range opts {
		opt(options)
	}

	areas, err := resolveAreas(options.focusAreas)
	if err != nil {
		return nil, err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}
	project := options.projectName
	if project == "" {
		project = filepath.Base(absDir)
	}
	appID := options.appID
	if appID == "" {
		appID = uuid.NewString()
	}
	appName := options.appName
	if appName == "" {
		appName = project
	}

	start := time.Now()
	slog.Info("analyze: collecting sources", "project", project, "dir", absDir)
	files, err := source.Collect(ctx, source.Options{
		Dir:         absDir,
		Include:     e.cfg.Include,
		Exclude:     e.cfg.Exclude,
		MaxFileSize: e.cfg.MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("collecting sources: %w", err)
	}
	src := source.BuildContext(files, e.cfg.MaxContextChars)
	slog.Info("analyze: context built", "project", project,
		"files", len(files), "included", len(src.Included), "chars", len(src.Text))

	// One chat pass per focus area; all three collapse to a single
	// combined pass.
	prompts := report.PromptFor(areas)
	sections := make(map[string]string, len(prompts))
	for _, area := range promptOrder(prompts) {
		passStart := time.Now()
		resp, err := e.chat.Chat(ctx, llm.ChatRequest{
			Messages: []llm.Message{{
				Role:    "user",
				Content: report.AnalysisPrompt(project, src.Text, src.Listing, prompts[area]),
			}},
			Temperature: 0,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s pass: %v", ErrAnalysisFailed, area, err)
		}
		sections[area] = resp.Content
		slog.Info("analyze: focus pass complete", "project", project, "area", area,
			"elapsed", time.Since(passStart).Round(time.Millisecond))
	}

	// Architecture map. A failure here downgrades the report instead
	// of aborting a finished analysis.
	var archMap *graph.Map
	archSection := ""
	if !options.skipArchMap {
		m, err := e.mapper.Build(ctx, project, src)
		if err != nil {
			slog.Warn("analyze: architecture map failed, continuing without it",
				"project", project, "error", err)
		} else {
			archMap = m
			archSection = architectureSection(m)
		}
	}

	markdown := report.Assemble(project, sections, archSection)

	resp, err := e.chat.Chat(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: report.SummaryPrompt(project, markdown)}},
		Temperature: 0,
	})
	if err != nil {
		slog.Warn("analyze: executive summary failed, continuing without it",
			"project", project, "error", err)
	} else if summary := strings.TrimSpace(resp.Content); summary != "" {
		markdown = report.PrependSummary(markdown, summary)
	}

	result := &Report{
		AppID:        appID,
		AppName:      appName,
		DocID:        store.DocID(appID, areas),
		FocusAreas:   areas,
		Markdown:     markdown,
		Architecture: archMap,
	}

	if options.outputDir != "" {
		path, err := writeReportFile(options.outputDir, project, markdown)
		if err != nil {
			return nil, err
		}
		result.ReportPath = path
		slog.Info("analyze: report written", "project", project, "path", path)
	}

	if options.store && e.store == nil {
		slog.Warn("analyze: store not available, skipping persistence", "project", project)
	} else if options.store {
		chunks := chunker.Split(markdown, e.cfg.MaxChunkChars)
		docID, err := e.store.SaveReport(ctx, store.ReportRecord{
			AppID:      appID,
			AppName:    appName,
			FocusAreas: areas,
			Model:      e.cfg.Chat.Model,
			Metadata:   options.metadata,
		}, chunks, e.embedChunks(ctx, chunks))
		if err != nil {
			slog.Warn("analyze: storing report failed, analysis kept",
				"project", project, "error", err)
		} else {
			result.DocID = docID
			result.Chunks = len(chunks)
			result.Stored = true
		}
	}

	slog.Info("analyze: complete", "project", project, "app_id", appID,
		"areas", strings.Join(areas, ","), "stored", result.Stored,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return result, nil
}

func (e *engine) MapArchitecture(ctx context.Context, dir string, opts ...AnalyzeOption) (*graph.Map, error) {
	options := e.newAnalyzeOptions()
	for _, opt := range opts {
		opt(options)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}
	project := options.projectName
	if project == "" {
		project = filepath.Base(absDir)
	}

	files, err := source.Collect(ctx, source.Options{
		Dir:         absDir,
		Include:     e.cfg.Include,
		Exclude:     e.cfg.Exclude,
		MaxFileSize: e.cfg.MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("collecting sources: %w", err)
	}
	return e.mapper.Build(ctx, project, source.BuildContext(files, e.cfg.MaxContextChars))
}

func (e *engine) GetReport(ctx context.Context, appID string, areas []string) (*store.StoredReport, error) {
	if e.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return e.store.GetReport(ctx, appID, areas)
}

func (e *engine) Search(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error) {
	if e.store == nil {
		return nil, ErrStoreNotConfigured
	}
	options := &searchOptions{limit: 5}
	for _, opt := range opts {
		opt(options)
	}
	if options.limit <= 0 {
		options.limit = 5
	}

	var embedding []float32
	if e.embedder != nil {
		embs, err := e.embedder.Embed(ctx, []string{truncateForEmbed(query)})
		if err != nil {
			slog.Warn("search: query embedding failed, using text search only", "error", err)
		} else if len(embs) > 0 {
			embedding = embs[0]
		}
	}

	fetch := options.limit
	if len(options.areas) > 0 {
		// Focus-area filtering happens below; fetch extra so it does
		// not starve the result set.
		fetch = options.limit * 2
	}
	hits, err := e.store.SearchChunks(ctx, embedding, query, fetch, options.appID)
	if err != nil {
		return nil, fmt.Errorf("searching report chunks: %w", err)
	}

	queryWords := significantWords(query)
	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		if !coversAreas(h.FocusAreas, options.areas) {
			continue
		}
		results = append(results, SearchResult{
			AppID:      h.AppID,
			AppName:    h.AppName,
			DocID:      h.DocID,
			ChunkUID:   h.ChunkUID,
			ChunkIndex: h.ChunkIndex,
			FocusAreas: h.FocusAreas,
			Content:    h.Content,
			Snippet:    extractSnippet(h.Content, queryWords),
			Score:      h.Score,
			Source:     h.Source,
		})
		if len(results) == options.limit {
			break
		}
	}
	return results, nil
}

func (e *engine) ListApps(ctx context.Context) ([]AppInfo, error) {
	if e.store == nil {
		return nil, ErrStoreNotConfigured
	}
	summaries, err := e.store.ListApps(ctx)
	if err != nil {
		return nil, err
	}
	apps := make([]AppInfo, len(summaries))
	for i, s := range summaries {
		apps[i] = AppInfo{
			AppID:        s.AppID,
			AppName:      s.AppName,
			FocusAreas:   s.FocusAreas,
			Reports:      s.Reports,
			LastAnalyzed: s.LastAnalyzed,
		}
	}
	return apps, nil
}

func (e *engine) DeleteApp(ctx context.Context, appID string) error {
	if e.store == nil {
		return ErrStoreNotConfigured
	}
	n, err := e.store.DeleteReports(ctx, appID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: app %s", ErrReportNotFound, appID)
	}
	slog.Info("delete: app reports removed", "app_id", appID, "reports", n)
	return nil
}

func (e *engine) Store() *store.Store { return e.store }

func (e *engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

func (e *engine) newAnalyzeOptions() *analyzeOptions {
	return &analyzeOptions{outputDir: e.cfg.OutputDir}
}

// resolveAreas validates and canonicalizes the requested focus areas.
// Empty input means all areas. The result is sorted and de-duplicated
// so it matches the stored document identity.
func resolveAreas(requested []string) ([]string, error) {
	if len(requested) == 0 {
		requested = report.AllAreas
	}
	seen := make(map[string]bool, len(requested))
	var areas []string
	for _, a := range requested {
		if !validArea(a) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFocusArea, a)
		}
		if !seen[a] {
			seen[a] = true
			areas = append(areas, a)
		}
	}
	sort.Strings(areas)
	return areas, nil
}

func validArea(area string) bool {
	for _, a := range report.AllAreas {
		if a == area {
			return true
		}
	}
	return false
}

// promptOrder fixes the pass order: a combined prompt runs alone,
// otherwise areas run in report order.
func promptOrder(prompts map[string]string) []string {
	if _, ok := prompts["combined"]; ok {
		return []string{"combined"}
	}
	var order []string
	for _, area := range report.AllAreas {
		if _, ok := prompts[area]; ok {
			order = append(order, area)
		}
	}
	return order
}

// coversAreas reports whether have includes every area in want.
func coversAreas(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// architectureSection renders the abstraction map as a report section
// with its summary and a mermaid diagram.
func architectureSection(m *graph.Map) string {
	var sb strings.Builder
	if s := strings.TrimSpace(m.Summary); s != "" {
		sb.WriteString(s)
		sb.WriteString("\n\n")
	}
	sb.WriteString("```mermaid\n")
	sb.WriteString(graph.Mermaid(m))
	sb.WriteString("```")
	return sb.String()
}

// writeReportFile writes the markdown under outputDir/project/ and
// returns the file path.
func writeReportFile(outputDir, project, markdown string) (string, error) {
	dir := filepath.Join(outputDir, project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, "code_quality_report.md")
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// maxEmbedChars limits how much text is sent for embedding. Most
// embedding models have a context window around 8k tokens; this is a
// conservative character budget for one chunk.
const maxEmbedChars = 24000

// truncateForEmbed cuts text at a word boundary near the embedding
// budget.
func truncateForEmbed(text string) string {
	if len(text) <= maxEmbedChars {
		return text
	}
	cut := text[:maxEmbedChars]
	if idx := strings.LastIndex(cut, " "); idx > maxEmbedChars/2 {
		cut = cut[:idx]
	}
	return cut
}

// embedChunks generates embeddings for the report chunks in batches.
// A nil result means embeddings are unavailable; the report is still
// stored and reachable through full-text search.
func (e *engine) embedChunks(ctx context.Context, chunks []string) [][]float32 {
	if e.embedder == nil || len(chunks) == 0 {
		return nil
	}

	const batchSize = 32
	embeddings := make([][]float32, len(chunks))
	failed := 0
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			texts[j-i] = truncateForEmbed(chunks[j])
		}

		batch, err := e.embedder.Embed(ctx, texts)
		if err == nil && len(batch) == len(texts) {
			copy(embeddings[i:end], batch)
			continue
		}

		// Retry each text alone so one bad chunk does not sink the
		// whole batch.
		for j := i; j < end; j++ {
			single, serr := e.embedder.Embed(ctx, []string{texts[j-i]})
			if serr != nil || len(single) == 0 {
				failed++
				continue
			}
			embeddings[j] = single[0]
		}
	}

	if failed == len(chunks) {
		slog.Warn("analyze: embedding unavailable, report will be text-search only",
			"chunks", len(chunks))
		return nil
	}
	if failed > 0 {
		slog.Warn("analyze: some chunks not embedded", "failed", failed, "total", len(chunks))
	}
	return embeddings
}
