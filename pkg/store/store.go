// Package store persists analysis records backed by SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/minbar-app/minbar/pkg/cost"
	"github.com/minbar-app/minbar/pkg/transcript"
)

// ErrNotFound reports a missing analysis record.
var ErrNotFound = errors.New("analysis not found")

// SegmentsDoc carries both lanes' segment sequences as stored JSON.
type SegmentsDoc struct {
	Source []transcript.Segment `json:"source"`
	Target []transcript.Segment `json:"target"`
}

// Record is one persisted analysis.
type Record struct {
	ID                string
	CreatedAt         time.Time
	SourceURL         string
	Title             string
	ThumbnailURL      string
	StartSeconds      int
	EndSeconds        int
	SourceText        string
	TargetText        string
	ArticleMarkdown   string
	Segments          *SegmentsDoc
	Costs             *cost.Breakdown
	Status            string
	ProcessingSeconds float64
}

// LaneUpdate is a partial update of the textual fields. Nil fields are
// left untouched.
type LaneUpdate struct {
	SourceText *string
	TargetText *string
	Segments   *SegmentsDoc
}

// Store manages analysis persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the analysis database and applies
// migrations.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "minbar.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    source_url TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    thumbnail_url TEXT,
    start_seconds INTEGER NOT NULL DEFAULT 0,
    end_seconds INTEGER NOT NULL DEFAULT 0,
    source_text TEXT,
    target_text TEXT,
    article_markdown TEXT,
    segments_json TEXT,
    cost_json TEXT,
    status TEXT NOT NULL DEFAULT 'completed',
    processing_seconds REAL
);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Create inserts a new record, assigning an identifier and creation time
// when absent, and returns the identifier.
func (s *Store) Create(ctx context.Context, rec *Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = "completed"
	}

	segmentsJSON, err := marshalNullable(rec.Segments)
	if err != nil {
		return "", fmt.Errorf("marshal segments: %w", err)
	}
	costJSON, err := marshalNullable(rec.Costs)
	if err != nil {
		return "", fmt.Errorf("marshal costs: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO analyses (
            id, created_at, source_url, title, thumbnail_url,
            start_seconds, end_seconds, source_text, target_text,
            article_markdown, segments_json, cost_json, status, processing_seconds
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.SourceURL,
		rec.Title,
		nullableString(rec.ThumbnailURL),
		rec.StartSeconds,
		rec.EndSeconds,
		rec.SourceText,
		rec.TargetText,
		rec.ArticleMarkdown,
		segmentsJSON,
		costJSON,
		rec.Status,
		rec.ProcessingSeconds,
	)
	if err != nil {
		return "", fmt.Errorf("insert analysis: %w", err)
	}
	return rec.ID, nil
}

// Get returns the record with the given identifier.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM analyses WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return rec, nil
}

// List returns one page of records, newest first, plus the total count.
func (s *Store) List(ctx context.Context, page, limit int) ([]Record, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyses").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count analyses: %w", err)
	}

	rows, err := s.db.QueryContext(
		ctx,
		selectColumns+" FROM analyses ORDER BY created_at DESC LIMIT ? OFFSET ?",
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan analysis: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM analyses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLanes applies a partial update of the textual fields.
func (s *Store) UpdateLanes(ctx context.Context, id string, update LaneUpdate) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if update.SourceText != nil {
		rec.SourceText = *update.SourceText
	}
	if update.TargetText != nil {
		rec.TargetText = *update.TargetText
	}
	if update.Segments != nil {
		if rec.Segments == nil {
			rec.Segments = &SegmentsDoc{}
		}
		if update.Segments.Source != nil {
			rec.Segments.Source = update.Segments.Source
		}
		if update.Segments.Target != nil {
			rec.Segments.Target = update.Segments.Target
		}
	}

	segmentsJSON, err := marshalNullable(rec.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		"UPDATE analyses SET source_text = ?, target_text = ?, segments_json = ? WHERE id = ?",
		rec.SourceText, rec.TargetText, segmentsJSON, id,
	)
	if err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateArticle stores a generated article and the updated cost breakdown.
func (s *Store) UpdateArticle(ctx context.Context, id, markdown string, costs *cost.Breakdown) error {
	costJSON, err := marshalNullable(costs)
	if err != nil {
		return fmt.Errorf("marshal costs: %w", err)
	}
	res, err := s.db.ExecContext(
		ctx,
		"UPDATE analyses SET article_markdown = ?, cost_json = ? WHERE id = ?",
		markdown, costJSON, id,
	)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `SELECT id, created_at, source_url, title, thumbnail_url,
    start_seconds, end_seconds, source_text, target_text, article_markdown,
    segments_json, cost_json, status, processing_seconds`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var createdAt string
	var thumbnail, sourceText, targetText, article, segmentsJSON, costJSON sql.NullString
	var processing sql.NullFloat64

	err := row.Scan(
		&rec.ID, &createdAt, &rec.SourceURL, &rec.Title, &thumbnail,
		&rec.StartSeconds, &rec.EndSeconds, &sourceText, &targetText, &article,
		&segmentsJSON, &costJSON, &rec.Status, &processing,
	)
	if err != nil {
		return nil, err
	}

	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		rec.CreatedAt = ts
	}
	rec.ThumbnailURL = thumbnail.String
	rec.SourceText = sourceText.String
	rec.TargetText = targetText.String
	rec.ArticleMarkdown = article.String
	rec.ProcessingSeconds = processing.Float64

	if segmentsJSON.Valid && segmentsJSON.String != "" {
		var doc SegmentsDoc
		if err := json.Unmarshal([]byte(segmentsJSON.String), &doc); err == nil {
			rec.Segments = &doc
		}
	}
	if costJSON.Valid && costJSON.String != "" {
		var breakdown cost.Breakdown
		if err := json.Unmarshal([]byte(costJSON.String), &breakdown); err == nil {
			rec.Costs = &breakdown
		}
	}
	return &rec, nil
}

func marshalNullable(v any) (any, error) {
	switch value := v.(type) {
	case *SegmentsDoc:
		if value == nil {
			return nil, nil
		}
	case *cost.Breakdown:
		if value == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
