package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"horse.fit/driftnet/internal/audit"
	"horse.fit/driftnet/internal/db"
)

// NewOverview is the input for industry-overview creation.
type NewOverview struct {
	SourceID   int64
	Title      string
	Summary    string
	Region     *string
	Extraction json.RawMessage
}

const overviewColumns = `
	o.overview_id,
	o.overview_uuid::text,
	o.source_id,
	o.title,
	o.summary,
	o.region,
	o.extraction,
	o.deleted_at,
	o.created_at,
	o.updated_at`

func scanOverview(scanner rowScanner) (*db.IndustryOverview, error) {
	var row db.IndustryOverview
	if err := scanner.Scan(
		&row.OverviewID,
		&row.OverviewUUID,
		&row.SourceID,
		&row.Title,
		&row.Summary,
		&row.Region,
		&row.Extraction,
		&row.DeletedAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateOverview inserts an industry overview. Each source carries at
// most one overview; a collision returns the existing row with
// inserted=false.
func (s *Store) CreateOverview(ctx context.Context, input NewOverview) (*db.IndustryOverview, bool, error) {
	if s == nil || s.pool == nil {
		return nil, false, fmt.Errorf("store is not initialized")
	}
	if input.SourceID == 0 {
		return nil, false, fmt.Errorf("source ID is required")
	}

	const insertQ = `
INSERT INTO iuu.industry_overviews (source_id, title, summary, region, extraction)
VALUES ($1, $2, $3, $4, $5)
RETURNING overview_id
`

	var overviewID int64
	err := s.pool.QueryRow(ctx, insertQ,
		input.SourceID,
		strings.TrimSpace(input.Title),
		strings.TrimSpace(input.Summary),
		input.Region,
		nullableJSON(input.Extraction),
	).Scan(&overviewID)
	if err != nil {
		if db.IsDuplicateKey(err) {
			existing, findErr := s.GetOverviewBySource(ctx, input.SourceID)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("insert industry overview: %w", err)
	}

	created, err := s.GetOverview(ctx, overviewID)
	if err != nil {
		return nil, false, fmt.Errorf("reread created overview: %w", err)
	}

	if err := s.recordAudit(ctx, audit.Entry{
		EntityType: audit.EntityOverview,
		EntityID:   created.OverviewID,
		Action:     audit.ActionCreate,
		After:      snapshot(created),
	}); err != nil {
		return nil, false, fmt.Errorf("audit overview creation: %w", err)
	}

	return created, true, nil
}

// GetOverview returns one overview by ID.
func (s *Store) GetOverview(ctx context.Context, overviewID int64) (*db.IndustryOverview, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	const q = `
SELECT` + overviewColumns + `
FROM iuu.industry_overviews o
WHERE o.overview_id = $1
  AND o.deleted_at IS NULL
`
	return scanOverview(s.pool.QueryRow(ctx, q, overviewID))
}

// GetOverviewBySource returns the overview derived from a source.
func (s *Store) GetOverviewBySource(ctx context.Context, sourceID int64) (*db.IndustryOverview, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	const q = `
SELECT` + overviewColumns + `
FROM iuu.industry_overviews o
WHERE o.source_id = $1
  AND o.deleted_at IS NULL
`
	return scanOverview(s.pool.QueryRow(ctx, q, sourceID))
}

// ListOverviews lists overviews, newest first.
func (s *Store) ListOverviews(ctx context.Context, limit int) ([]db.IndustryOverview, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	if limit <= 0 {
		limit = 50
	}

	const q = `
SELECT` + overviewColumns + `
FROM iuu.industry_overviews o
WHERE o.deleted_at IS NULL
ORDER BY o.created_at DESC, o.overview_id DESC
LIMIT $1
`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query industry overviews: %w", err)
	}
	defer rows.Close()

	items := make([]db.IndustryOverview, 0, limit)
	for rows.Next() {
		row, err := scanOverview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan overview row: %w", err)
		}
		items = append(items, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overview rows: %w", err)
	}

	return items, nil
}
