package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"horse.fit/driftnet/internal/audit"
	"horse.fit/driftnet/internal/db"
)

// NewSource is the input for source creation.
type NewSource struct {
	URL              *string
	Title            string
	Author           *string
	Category         string
	ProcessingStatus string
	RawContent       string
	Content          string
	ArticleHash      []byte
	Language         string
	Scope            string
	ScopeConfidence  *float64
	PublishedAt      *time.Time
	Metadata         json.RawMessage
}

const sourceColumns = `
	s.source_id,
	s.source_uuid::text,
	s.url,
	s.title,
	s.author,
	s.category,
	s.processing_status,
	s.raw_content,
	s.content,
	s.article_hash,
	s.language,
	s.scope::text,
	s.scope_confidence,
	s.published_at,
	s.metadata,
	s.deleted_at,
	s.created_at,
	s.updated_at`

func scanSource(scanner rowScanner) (*db.Source, error) {
	var row db.Source
	if err := scanner.Scan(
		&row.SourceID,
		&row.SourceUUID,
		&row.URL,
		&row.Title,
		&row.Author,
		&row.Category,
		&row.ProcessingStatus,
		&row.RawContent,
		&row.Content,
		&row.ArticleHash,
		&row.Language,
		&row.Scope,
		&row.ScopeConfidence,
		&row.PublishedAt,
		&row.Metadata,
		&row.DeletedAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateSource inserts a source. When the content hash or URL collides
// with an existing row, the existing source is returned with
// inserted=false instead of an error.
func (s *Store) CreateSource(ctx context.Context, input NewSource) (*db.Source, bool, error) {
	if s == nil || s.pool == nil {
		return nil, false, fmt.Errorf("store is not initialized")
	}
	if len(input.ArticleHash) == 0 {
		return nil, false, fmt.Errorf("article hash is required")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, false, fmt.Errorf("content is required")
	}

	language := strings.TrimSpace(input.Language)
	if language == "" {
		language = "und"
	}
	scope := strings.TrimSpace(input.Scope)
	if scope == "" {
		scope = "unrelated"
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = db.CategoryWeb
	}
	status := strings.TrimSpace(input.ProcessingStatus)
	if status == "" {
		status = db.StatusExtracted
	}

	const insertQ = `
INSERT INTO iuu.sources (url, title, author, category, processing_status, raw_content, content, article_hash, language, scope, scope_confidence, published_at, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING source_id
`

	var sourceID int64
	err := s.pool.QueryRow(ctx, insertQ,
		input.URL,
		strings.TrimSpace(input.Title),
		input.Author,
		category,
		status,
		input.RawContent,
		input.Content,
		input.ArticleHash,
		language,
		scope,
		input.ScopeConfidence,
		input.PublishedAt,
		nullableJSON(input.Metadata),
	).Scan(&sourceID)
	if err != nil {
		if db.IsDuplicateKey(err) {
			existing, findErr := s.findExistingSource(ctx, input)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("insert source: %w", err)
	}

	created, err := s.GetSource(ctx, sourceID)
	if err != nil {
		return nil, false, fmt.Errorf("reread created source: %w", err)
	}

	if err := s.recordAudit(ctx, audit.Entry{
		EntityType: audit.EntitySource,
		EntityID:   created.SourceID,
		Action:     audit.ActionCreate,
		After:      snapshot(created),
	}); err != nil {
		return nil, false, fmt.Errorf("audit source creation: %w", err)
	}

	return created, true, nil
}

func (s *Store) findExistingSource(ctx context.Context, input NewSource) (*db.Source, error) {
	existing, err := s.FindSourceByHash(ctx, input.ArticleHash)
	if err == nil {
		return existing, nil
	}
	if !db.IsNoRows(err) {
		return nil, err
	}
	if input.URL != nil && strings.TrimSpace(*input.URL) != "" {
		return s.FindSourceByURL(ctx, *input.URL)
	}
	return nil, fmt.Errorf("%w: source not found by hash or URL", ErrDuplicateKey)
}

// FindSourceByHash looks a source up by content hash.
func (s *Store) FindSourceByHash(ctx context.Context, hash []byte) (*db.Source, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	const q = `
SELECT` + sourceColumns + `
FROM iuu.sources s
WHERE s.article_hash = $1
  AND s.deleted_at IS NULL
`
	return scanSource(s.pool.QueryRow(ctx, q, hash))
}

// FindSourceByURL looks a source up by URL.
func (s *Store) FindSourceByURL(ctx context.Context, rawURL string) (*db.Source, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	const q = `
SELECT` + sourceColumns + `
FROM iuu.sources s
WHERE s.url = $1
  AND s.deleted_at IS NULL
`
	return scanSource(s.pool.QueryRow(ctx, q, strings.TrimSpace(rawURL)))
}

// GetSource returns one source by ID.
func (s *Store) GetSource(ctx context.Context, sourceID int64) (*db.Source, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	const q = `
SELECT` + sourceColumns + `
FROM iuu.sources s
WHERE s.source_id = $1
  AND s.deleted_at IS NULL
`
	return scanSource(s.pool.QueryRow(ctx, q, sourceID))
}

// SourceListOptions controls source listing.
type SourceListOptions struct {
	Scope string
	Limit int
}

// ListSources lists sources, newest first.
func (s *Store) ListSources(ctx context.Context, opts SourceListOptions) ([]db.Source, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	const q = `
SELECT` + sourceColumns + `
FROM iuu.sources s
WHERE ($1 = '' OR s.scope::text = $1)
  AND s.deleted_at IS NULL
ORDER BY s.created_at DESC, s.source_id DESC
LIMIT $2
`

	rows, err := s.pool.Query(ctx, q, strings.TrimSpace(opts.Scope), limit)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	items := make([]db.Source, 0, limit)
	for rows.Next() {
		row, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		items = append(items, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}

	return items, nil
}

// SourcePatch updates selected source fields. Nil fields are left
// untouched. The content and hash are immutable and cannot be patched.
type SourcePatch struct {
	Title       *string
	Author      *string
	Scope       *string
	PublishedAt *time.Time
}

// UpdateSource applies a patch, marks the source modified, and audits
// the change.
func (s *Store) UpdateSource(ctx context.Context, sourceID int64, patch SourcePatch) (*db.Source, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	before, err := s.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	const q = `
UPDATE iuu.sources
SET title             = COALESCE($2, title),
    author            = COALESCE($3, author),
    scope             = COALESCE($4::iuu.source_scope, scope),
    published_at      = COALESCE($5, published_at),
    processing_status = $6,
    updated_at        = now()
WHERE source_id = $1
  AND deleted_at IS NULL
`
	tag, err := s.pool.Exec(ctx, q,
		sourceID,
		patch.Title,
		patch.Author,
		patch.Scope,
		patch.PublishedAt,
		db.StatusModified,
	)
	if err != nil {
		return nil, fmt.Errorf("update source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, db.ErrNoRows
	}

	after, err := s.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	if err := s.recordAudit(ctx, audit.Entry{
		EntityType: audit.EntitySource,
		EntityID:   sourceID,
		Action:     audit.ActionUpdate,
		Before:     snapshot(before),
		After:      snapshot(after),
	}); err != nil {
		return nil, fmt.Errorf("audit source update: %w", err)
	}

	return after, nil
}

// SoftDeleteSource marks a source deleted and audits the removal.
func (s *Store) SoftDeleteSource(ctx context.Context, sourceID int64) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store is not initialized")
	}

	before, err := s.GetSource(ctx, sourceID)
	if err != nil {
		return err
	}

	const q = `
UPDATE iuu.sources
SET deleted_at = now(), updated_at = now()
WHERE source_id = $1
  AND deleted_at IS NULL
`
	tag, err := s.pool.Exec(ctx, q, sourceID)
	if err != nil {
		return fmt.Errorf("soft-delete source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNoRows
	}

	if err := s.recordAudit(ctx, audit.Entry{
		EntityType: audit.EntitySource,
		EntityID:   sourceID,
		Action:     audit.ActionDelete,
		Before:     snapshot(before),
	}); err != nil {
		return fmt.Errorf("audit source deletion: %w", err)
	}

	return nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
