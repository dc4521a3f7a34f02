package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"horse.fit/driftnet/internal/audit"
	"horse.fit/driftnet/internal/db"
)

// NewIncident is the input for incident creation.
type NewIncident struct {
	Fingerprint     []byte
	VesselName      *string
	EventDate       *string
	Location        *string
	Summary         string
	Extraction      json.RawMessage
	PrimarySourceID *int64
}

// IncidentPatch updates selected incident fields. Nil fields are left
// untouched.
type IncidentPatch struct {
	VesselName *string
	EventDate  *string
	Location   *string
	Summary    *string
	Extraction json.RawMessage
}

const incidentColumns = `
	i.incident_id,
	i.incident_uuid::text,
	i.fingerprint,
	i.vessel_name,
	i.event_date,
	i.location,
	i.summary,
	i.extraction,
	i.primary_source_id,
	i.deleted_at,
	i.created_at,
	i.updated_at`

func scanIncident(scanner rowScanner) (*db.Incident, error) {
	var row db.Incident
	if err := scanner.Scan(
		&row.IncidentID,
		&row.IncidentUUID,
		&row.Fingerprint,
		&row.VesselName,
		&row.EventDate,
		&row.Location,
		&row.Summary,
		&row.Extraction,
		&row.PrimarySourceID,
		&row.DeletedAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateIncident inserts an incident. Fingerprints are not unique;
// collisions are surfaced as duplicate candidates by the graph, never
// rejected here.
func (s *Store) CreateIncident(ctx context.Context, input NewIncident) (*db.Incident, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}
	if len(input.Fingerprint) == 0 {
		return nil, fmt.Errorf("fingerprint is required")
	}

	const insertQ = `
INSERT INTO iuu.incidents (fingerprint, vessel_name, event_date, location, summary, extraction, primary_source_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING incident_id
`

	var incidentID int64
	err := s.pool.QueryRow(ctx, insertQ,
		input.Fingerprint,
		input.VesselName,
		input.EventDate,
		input.Location,
		strings.TrimSpace(input.Summary),
		nullableJSON(input.Extraction),
		input.PrimarySourceID,
	).Scan(&incidentID)
	if err != nil {
		return nil, fmt.Errorf("insert incident: %w", err)
	}

	created, err := s.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("reread created incident: %w", err)
	}

	if err := s.recordAudit(ctx, audit.Entry{
		EntityType: audit.EntityIncident,
		EntityID:   created.IncidentID,
		Action:     audit.ActionCreate,
		After:      snapshot(created),
	}); err != nil {
		return nil, fmt.Errorf("audit incident creation: %w", err)
	}

	return created, nil
}

// GetIncident returns one incident by ID.
func (s *Store) GetIncident(ctx context.Context, incidentID int64) (*db.Incident, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	const q = `
SELECT` + incidentColumns + `
FROM iuu.incidents i
WHERE i.incident_id = $1
  AND i.deleted_at IS NULL
`
	return scanIncident(s.pool.QueryRow(ctx, q, incidentID))
}

// IncidentListOptions controls incident listing.
type IncidentListOptions struct {
	VesselName string
	Limit      int
}

// ListIncidents lists incidents, newest first, optionally filtered by
// vessel name.
func (s *Store) ListIncidents(ctx context.Context, opts IncidentListOptions) ([]db.Incident, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	const q = `
SELECT` + incidentColumns + `
FROM iuu.incidents i
WHERE ($1 = '' OR lower(i.vessel_name) = lower($1))
  AND i.deleted_at IS NULL
ORDER BY i.created_at DESC, i.incident_id DESC
LIMIT $2
`

	rows, err := s.pool.Query(ctx, q, strings.TrimSpace(opts.VesselName), limit)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	items := make([]db.Incident, 0, limit)
	for rows.Next() {
		row, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident row: %w", err)
		}
		items = append(items, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident rows: %w", err)
	}

	return items, nil
}

// UpdateIncident applies a patch and audits before/after states.
func (s *Store) UpdateIncident(ctx context.Context, incidentID int64, patch IncidentPatch) (*db.Incident, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	before, err := s.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	const q = `
UPDATE iuu.incidents
SET vessel_name = COALESCE($2, vessel_name),
    event_date  = COALESCE($3, event_date),
    location    = COALESCE($4, location),
    summary     = COALESCE($5, summary),
    extraction  = COALESCE($6, extraction),
    updated_at  = now()
WHERE incident_id = $1
  AND deleted_at IS NULL
`
	tag, err := s.pool.Exec(ctx, q,
		incidentID,
		patch.VesselName,
		patch.EventDate,
		patch.Location,
		patch.Summary,
		nullableJSON(patch.Extraction),
	)
	if err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, db.ErrNoRows
	}

	after, err := s.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	if err := s.recordAudit(ctx, audit.Entry{
		EntityType: audit.EntityIncident,
		EntityID:   incidentID,
		Action:     audit.ActionUpdate,
		Before:     snapshot(before),
		After:      snapshot(after),
	}); err != nil {
		return nil, fmt.Errorf("audit incident update: %w", err)
	}

	return after, nil
}

// SetPrimarySource points the incident at a new primary source.
func (s *Store) SetPrimarySource(ctx context.Context, incidentID int64, sourceID *int64) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store is not initialized")
	}

	const q = `
UPDATE iuu.incidents
SET primary_source_id = $2, updated_at = now()
WHERE incident_id = $1
  AND deleted_at IS NULL
`
	tag, err := s.pool.Exec(ctx, q, incidentID, sourceID)
	if err != nil {
		return fmt.Errorf("update primary source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNoRows
	}
	return nil
}

// SoftDeleteIncident marks an incident deleted and audits the removal.
// Link cleanup is the graph's responsibility.
func (s *Store) SoftDeleteIncident(ctx context.Context, incidentID int64) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store is not initialized")
	}

	before, err := s.GetIncident(ctx, incidentID)
	if err != nil {
		return err
	}

	const q = `
UPDATE iuu.incidents
SET deleted_at = now(), updated_at = now()
WHERE incident_id = $1
  AND deleted_at IS NULL
`
	tag, err := s.pool.Exec(ctx, q, incidentID)
	if err != nil {
		return fmt.Errorf("soft-delete incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNoRows
	}

	if err := s.recordAudit(ctx, audit.Entry{
		EntityType: audit.EntityIncident,
		EntityID:   incidentID,
		Action:     audit.ActionDelete,
		Before:     snapshot(before),
	}); err != nil {
		return fmt.Errorf("audit incident deletion: %w", err)
	}

	return nil
}
