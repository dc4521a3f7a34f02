package store

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/driftnet/internal/db"
)

// LinkedSourceIDs returns the source IDs attached to an incident, in
// attachment order.
func (s *Store) LinkedSourceIDs(ctx context.Context, incidentID int64) ([]int64, error) {
	const q = `
SELECT source_id
FROM iuu.incident_sources
WHERE incident_id = $1
ORDER BY position ASC, source_id ASC
`
	return s.scanLinkIDs(ctx, q, incidentID)
}

// LinkedIncidentIDs returns the incident IDs a source backs, in
// attachment order.
func (s *Store) LinkedIncidentIDs(ctx context.Context, sourceID int64) ([]int64, error) {
	const q = `
SELECT incident_id
FROM iuu.source_incidents
WHERE source_id = $1
ORDER BY position ASC, incident_id ASC
`
	return s.scanLinkIDs(ctx, q, sourceID)
}

func (s *Store) scanLinkIDs(ctx context.Context, q string, arg any) ([]int64, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	rows, err := s.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, 8)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link rows: %w", err)
	}
	return ids, nil
}

// IncidentsMatching returns live incidents with the same fingerprint or
// the same vessel name, newest first.
func (s *Store) IncidentsMatching(ctx context.Context, fingerprint []byte, vesselName string, limit int) ([]db.Incident, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	if limit <= 0 {
		limit = 20
	}

	const q = `
SELECT` + incidentColumns + `
FROM iuu.incidents i
WHERE i.deleted_at IS NULL
  AND (i.fingerprint = $1 OR ($2 <> '' AND lower(i.vessel_name) = lower($2)))
ORDER BY i.created_at DESC, i.incident_id DESC
LIMIT $3
`

	rows, err := s.pool.Query(ctx, q, fingerprint, strings.TrimSpace(vesselName), limit)
	if err != nil {
		return nil, fmt.Errorf("query matching incidents: %w", err)
	}
	defer rows.Close()

	items := make([]db.Incident, 0, limit)
	for rows.Next() {
		row, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan matching incident: %w", err)
		}
		items = append(items, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matching incidents: %w", err)
	}

	return items, nil
}
