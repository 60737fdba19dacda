package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrReportNotFound is returned when no stored report matches a lookup.
var ErrReportNotFound = errors.New("store: report not found")

// ReportRecord describes a report about to be saved.
type ReportRecord struct {
	AppID      string            `json:"app_id"`
	AppName    string            `json:"app_name"`
	FocusAreas []string          `json:"focus_areas"`
	Model      string            `json:"model,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// StoredReport is a report read back from the database with its
// content reassembled from chunks in index order.
type StoredReport struct {
	DocID      string            `json:"doc_id"`
	AppID      string            `json:"app_id"`
	AppName    string            `json:"app_name"`
	FocusAreas []string          `json:"focus_areas"`
	Model      string            `json:"model,omitempty"`
	Content    string            `json:"content"`
	Chunks     int               `json:"chunks"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

// AppSummary describes one analyzed application.
type AppSummary struct {
	AppID        string   `json:"app_id"`
	AppName      string   `json:"app_name"`
	FocusAreas   []string `json:"focus_areas"`
	Reports      int      `json:"reports"`
	LastAnalyzed string   `json:"last_analyzed"`
}

// SearchHit holds a report chunk matched by vector or full-text search.
// Source is "vector", "text", or "both" depending on which index
// produced the hit.
type SearchHit struct {
	ChunkUID   string   `json:"chunk_uid"`
	DocID      string   `json:"doc_id"`
	AppID      string   `json:"app_id"`
	AppName    string   `json:"app_name"`
	FocusAreas []string `json:"focus_areas"`
	ChunkIndex int      `json:"chunk_index"`
	Content    string   `json:"content"`
	Score      float64  `json:"score"`
	Source     string   `json:"source"`
}

// DBStats holds counts of key database objects.
type DBStats struct {
	Reports    int `json:"reports"`
	Chunks     int `json:"chunks"`
	Embeddings int `json:"embeddings"`
	Apps       int `json:"apps"`
}

// Store wraps the SQLite database for all repolens persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including sqlite-vec and FTS5 virtual tables.
func New(dbPath string, embeddingDim int) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	// Run pending migrations.
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Document identity ---

// DocID returns the deterministic document id for an app's report over
// a set of focus areas. Areas are sorted so the same set always yields
// the same id.
func DocID(appID string, areas []string) string {
	sorted := append([]string(nil), areas...)
	sort.Strings(sorted)
	return "quality-" + appID + "-" + strings.Join(sorted, "-")
}

// ChunkUID returns the unique id for chunk i of a report. Chunk 0
// reuses the doc id itself so single-chunk reports keep a stable id.
func ChunkUID(docID string, i int) string {
	if i == 0 {
		return docID
	}
	return fmt.Sprintf("%s-chunk-%d", docID, i)
}

// --- Report operations ---

// SaveReport stores a report and its chunks in one transaction,
// replacing any previous report with the same doc_id. embeddings may
// be nil or shorter than chunks; chunks without an embedding are still
// reachable through full-text search. Returns the doc_id.
func (s *Store) SaveReport(ctx context.Context, rec ReportRecord, chunks []string, embeddings [][]float32) (string, error) {
	if rec.AppID == "" {
		return "", errors.New("store: report has no app id")
	}
	if len(chunks) == 0 {
		return "", errors.New("store: report has no chunks")
	}

	docID := DocID(rec.AppID, rec.FocusAreas)
	areas := append([]string(nil), rec.FocusAreas...)
	sort.Strings(areas)

	var metadata sql.NullString
	if len(rec.Metadata) > 0 {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return "", fmt.Errorf("marshaling metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		// Re-analyzing the same app and focus areas replaces the
		// previous report.
		if err := deleteReportTx(ctx, tx, docID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO reports (doc_id, app_id, app_name, focus_areas, model, total_chunks, is_chunked, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, docID, rec.AppID, rec.AppName, strings.Join(areas, ","), rec.Model,
			len(chunks), len(chunks) > 1, metadata)
		if err != nil {
			return err
		}
		reportID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO report_chunks (report_id, chunk_uid, chunk_index, content, content_hash)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, content := range chunks {
			hash := sha256.Sum256([]byte(content))
			res, err := stmt.ExecContext(ctx,
				reportID, ChunkUID(docID, i), i, content, hex.EncodeToString(hash[:]))
			if err != nil {
				return err
			}
			if i >= len(embeddings) || len(embeddings[i]) == 0 {
				continue
			}
			if len(embeddings[i]) != s.embeddingDim {
				return fmt.Errorf("store: chunk %d embedding has dim %d, want %d",
					i, len(embeddings[i]), s.embeddingDim)
			}
			chunkID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO vec_report_chunks (chunk_id, embedding) VALUES (?, ?)",
				chunkID, serializeFloat32(embeddings[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return docID, nil
}

// GetReport returns the most recent report for an app. areas narrows
// the lookup to an exact focus-area set; pass nil to accept any.
func (s *Store) GetReport(ctx context.Context, appID string, areas []string) (*StoredReport, error) {
	query := `
		SELECT id, doc_id, app_id, app_name, focus_areas, model, total_chunks, metadata, created_at
		FROM reports WHERE app_id = ?`
	args := []interface{}{appID}
	if len(areas) > 0 {
		sorted := append([]string(nil), areas...)
		sort.Strings(sorted)
		query += " AND focus_areas = ?"
		args = append(args, strings.Join(sorted, ","))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT 1"

	rep := &StoredReport{}
	var (
		reportID int64
		areasCSV string
		model    sql.NullString
		metadata sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&reportID, &rep.DocID, &rep.AppID, &rep.AppName,
		&areasCSV, &model, &rep.Chunks, &metadata, &rep.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: app %s", ErrReportNotFound, appID)
	}
	if err != nil {
		return nil, err
	}
	rep.FocusAreas = splitAreas(areasCSV)
	rep.Model = model.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &rep.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT content FROM report_chunks WHERE report_id = ? ORDER BY chunk_index", reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var content strings.Builder
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		content.WriteString(c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rep.Content = content.String()
	return rep, nil
}

// ListApps returns a summary of every analyzed application, ordered by
// app name.
func (s *Store) ListApps(ctx context.Context) ([]AppSummary, error) {
	// With MAX(created_at) in the select list, SQLite fills the bare
	// columns from the newest report's row.
	rows, err := s.db.QueryContext(ctx, `
		SELECT app_id, app_name, focus_areas, COUNT(*), MAX(created_at)
		FROM reports
		GROUP BY app_id
		ORDER BY app_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []AppSummary
	for rows.Next() {
		var a AppSummary
		var areasCSV string
		if err := rows.Scan(&a.AppID, &a.AppName, &areasCSV, &a.Reports, &a.LastAnalyzed); err != nil {
			return nil, err
		}
		a.FocusAreas = splitAreas(areasCSV)
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// DeleteReports removes every report for an app along with chunk,
// vector, and FTS rows. Returns the number of reports deleted.
func (s *Store) DeleteReports(ctx context.Context, appID string) (int, error) {
	deleted := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		// Delete vec embeddings first; they have no FK to chunks.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM vec_report_chunks WHERE chunk_id IN (
				SELECT c.id FROM report_chunks c
				JOIN reports r ON r.id = c.report_id
				WHERE r.app_id = ?
			)`, appID); err != nil {
			return err
		}

		// Delete chunks (triggers will clean up FTS)
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM report_chunks WHERE report_id IN (
				SELECT id FROM reports WHERE app_id = ?
			)`, appID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM reports WHERE app_id = ?", appID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// --- Search ---

// SearchChunks runs vector and full-text search over stored report
// chunks and merges the results by best score. embedding may be nil
// for text-only search. appID narrows results to one application.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, query string, k int, appID string) ([]SearchHit, error) {
	if k <= 0 {
		k = 5
	}

	merged := make(map[string]SearchHit)
	if len(embedding) > 0 {
		vecHits, err := s.vectorSearch(ctx, embedding, k, appID)
		if err != nil {
			return nil, err
		}
		for _, h := range vecHits {
			merged[h.ChunkUID] = h
		}
	}

	textHits, err := s.textSearch(ctx, query, k, appID)
	if err != nil {
		if len(merged) == 0 {
			return nil, err
		}
		slog.Warn("store: text search failed, keeping vector results", "error", err)
	}
	for _, h := range textHits {
		prev, ok := merged[h.ChunkUID]
		if !ok {
			merged[h.ChunkUID] = h
			continue
		}
		// Hit from both indexes: keep the better score.
		if h.Score > prev.Score {
			prev.Score = h.Score
		}
		prev.Source = "both"
		merged[h.ChunkUID] = prev
	}

	hits := make([]SearchHit, 0, len(merged))
	for _, h := range merged {
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkUID < hits[j].ChunkUID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Store) vectorSearch(ctx context.Context, embedding []float32, k int, appID string) ([]SearchHit, error) {
	if len(embedding) != s.embeddingDim {
		return nil, fmt.Errorf("store: query embedding has dim %d, want %d", len(embedding), s.embeddingDim)
	}

	// vec0 KNN cannot carry extra predicates, so over-fetch when an
	// app filter applies and drop foreign rows here.
	fetch := k
	if appID != "" {
		fetch = k * 4
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chunk_uid, r.doc_id, r.app_id, r.app_name, r.focus_areas, c.chunk_index, c.content, v.distance
		FROM vec_report_chunks v
		JOIN report_chunks c ON c.id = v.chunk_id
		JOIN reports r ON r.id = c.report_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(embedding), fetch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		var areasCSV string
		var distance float64
		if err := rows.Scan(&h.ChunkUID, &h.DocID, &h.AppID, &h.AppName,
			&areasCSV, &h.ChunkIndex, &h.Content, &distance); err != nil {
			return nil, err
		}
		if appID != "" && h.AppID != appID {
			continue
		}
		h.FocusAreas = splitAreas(areasCSV)
		// Convert distance to similarity score (1 - distance for cosine)
		h.Score = 1.0 - distance
		h.Source = "vector"
		hits = append(hits, h)
		if len(hits) == k {
			break
		}
	}
	return hits, rows.Err()
}

func (s *Store) textSearch(ctx context.Context, query string, k int, appID string) ([]SearchHit, error) {
	match := sanitizeFTSQuery(query)
	if match == "" {
		return nil, nil
	}

	q := `
		SELECT c.chunk_uid, r.doc_id, r.app_id, r.app_name, r.focus_areas, c.chunk_index, c.content, f.rank
		FROM report_chunks_fts f
		JOIN report_chunks c ON c.id = f.rowid
		JOIN reports r ON r.id = c.report_id
		WHERE report_chunks_fts MATCH ?`
	args := []interface{}{match}
	if appID != "" {
		q += " AND r.app_id = ?"
		args = append(args, appID)
	}
	q += " ORDER BY f.rank LIMIT ?"
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchHit
	var ranks []float64
	for rows.Next() {
		var h SearchHit
		var areasCSV string
		var rank float64
		if err := rows.Scan(&h.ChunkUID, &h.DocID, &h.AppID, &h.AppName,
			&areasCSV, &h.ChunkIndex, &h.Content, &rank); err != nil {
			return nil, err
		}
		h.FocusAreas = splitAreas(areasCSV)
		h.Source = "text"
		hits = append(hits, h)
		ranks = append(ranks, rank)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// FTS5 rank is negative (lower = better). Normalize against the
	// best rank in this result set so the top text hit scores 1.0 and
	// merges cleanly with vector similarity scores.
	best := 0.0
	for _, r := range ranks {
		if -r > best {
			best = -r
		}
	}
	if best > 0 {
		for i, r := range ranks {
			hits[i].Score = -r / best
		}
	}
	return hits, nil
}

// sanitizeFTSQuery strips FTS5 special characters and rebuilds the
// input as a quoted phrase ORed with its individual terms so raw user
// text cannot break the MATCH syntax.
func sanitizeFTSQuery(query string) string {
	// Remove FTS5 special characters
	replacer := strings.NewReplacer(
		"\"", "",
		"*", "",
		"(", "",
		")", "",
		"+", "",
		"-", "",
		"^", "",
		":", "",
		"?", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
		"!", "",
		".", "",
		",", "",
		";", "",
	)
	cleaned := replacer.Replace(query)

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return ""
	}

	// Quoted phrase for exact matches plus individual terms.
	var parts []string
	if len(words) > 1 {
		parts = append(parts, "\""+strings.Join(words, " ")+"\"")
	}
	for _, w := range words {
		if len(w) > 2 {
			parts = append(parts, w)
		}
	}
	if len(parts) == 0 {
		return strings.Join(words, " OR ")
	}
	return strings.Join(parts, " OR ")
}

// --- Diagnostics ---

// Stats returns counts of reports, chunks, embeddings, and distinct apps.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM reports", &stats.Reports},
		{"SELECT COUNT(*) FROM report_chunks", &stats.Chunks},
		{"SELECT COUNT(*) FROM vec_report_chunks", &stats.Embeddings},
		{"SELECT COUNT(DISTINCT app_id) FROM reports", &stats.Apps},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// deleteReportTx removes one report with its chunk, vector, and FTS
// rows inside an existing transaction.
func deleteReportTx(ctx context.Context, tx *sql.Tx, docID string) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM vec_report_chunks WHERE chunk_id IN (
			SELECT c.id FROM report_chunks c
			JOIN reports r ON r.id = c.report_id
			WHERE r.doc_id = ?
		)`, docID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM report_chunks WHERE report_id IN (
			SELECT id FROM reports WHERE doc_id = ?
		)`, docID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM reports WHERE doc_id = ?", docID)
	return err
}

func splitAreas(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
