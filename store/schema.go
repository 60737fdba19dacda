package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension and cannot change after creation.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Analysis reports, one row per stored document
CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY,
    doc_id TEXT NOT NULL UNIQUE,
    app_id TEXT NOT NULL,
    app_name TEXT NOT NULL,
    focus_areas TEXT NOT NULL,
    model TEXT,
    total_chunks INTEGER NOT NULL DEFAULT 1,
    is_chunked INTEGER NOT NULL DEFAULT 0,
    metadata JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Report content split into chunks (chunk 0 reuses the doc_id as its uid)
CREATE TABLE IF NOT EXISTS report_chunks (
    id INTEGER PRIMARY KEY,
    report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    chunk_uid TEXT NOT NULL UNIQUE,
    chunk_index INTEGER NOT NULL,
    content TEXT NOT NULL,
    content_hash TEXT NOT NULL
);

-- Vector embeddings via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_report_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Full-text search via FTS5
CREATE VIRTUAL TABLE IF NOT EXISTS report_chunks_fts USING fts5(
    content,
    content='report_chunks',
    content_rowid='id',
    tokenize='porter unicode61'
);

-- FTS triggers to keep index in sync
CREATE TRIGGER IF NOT EXISTS report_chunks_ai AFTER INSERT ON report_chunks BEGIN
    INSERT INTO report_chunks_fts(rowid, content) VALUES (new.id, new.content);
END;
CREATE TRIGGER IF NOT EXISTS report_chunks_ad AFTER DELETE ON report_chunks BEGIN
    INSERT INTO report_chunks_fts(report_chunks_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;
CREATE TRIGGER IF NOT EXISTS report_chunks_au AFTER UPDATE ON report_chunks BEGIN
    INSERT INTO report_chunks_fts(report_chunks_fts, rowid, content) VALUES ('delete', old.id, old.content);
    INSERT INTO report_chunks_fts(rowid, content) VALUES (new.id, new.content);
END;

-- Indexes
CREATE INDEX IF NOT EXISTS idx_reports_app ON reports(app_id);
CREATE INDEX IF NOT EXISTS idx_report_chunks_report ON report_chunks(report_id, chunk_index);
`, embeddingDim)
}
