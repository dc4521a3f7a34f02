// Package graph maintains the bidirectional links between incidents and
// the sources that substantiate them. Each link is stored twice, once per
// direction, so either side can be traversed without joining the other.
package graph

import (
	"context"
	"fmt"

	"horse.fit/driftnet/internal/audit"
	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/store"
)

// PartialLinkError reports a link whose two halves disagree: one
// direction was written and the other failed. The link needs repair
// before the graph is consistent again.
type PartialLinkError struct {
	IncidentID  int64
	SourceID    int64
	ForwardDone bool
	ReverseDone bool
	Err         error
}

func (e *PartialLinkError) Error() string {
	return fmt.Sprintf("partial link incident=%d source=%d (forward=%t reverse=%t): %v",
		e.IncidentID, e.SourceID, e.ForwardDone, e.ReverseDone, e.Err)
}

func (e *PartialLinkError) Unwrap() error { return e.Err }

// linkStore is the persistence surface the graph reads and repairs
// through.
type linkStore interface {
	GetIncident(ctx context.Context, incidentID int64) (*db.Incident, error)
	GetSource(ctx context.Context, sourceID int64) (*db.Source, error)
	SetPrimarySource(ctx context.Context, incidentID int64, sourceID *int64) error
	SoftDeleteIncident(ctx context.Context, incidentID int64) error
	LinkedSourceIDs(ctx context.Context, incidentID int64) ([]int64, error)
	LinkedIncidentIDs(ctx context.Context, sourceID int64) ([]int64, error)
	IncidentsMatching(ctx context.Context, fingerprint []byte, vesselName string, limit int) ([]db.Incident, error)
}

// execer runs the raw link writes.
type execer interface {
	Exec(ctx context.Context, query string, args ...any) (db.CommandTag, error)
}

// recorder appends audit entries.
type recorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Graph links incidents and sources.
type Graph struct {
	pool  execer
	store linkStore
	trail recorder
}

// New creates a graph over the shared pool and store.
func New(pool *db.Pool, st *store.Store, trail *audit.Trail) *Graph {
	g := &Graph{pool: pool, store: st}
	if trail != nil {
		g.trail = trail
	}
	return g
}

// AttachSource links a source to an incident in both directions. The
// link is idempotent; attaching an already-attached source is a no-op.
func (g *Graph) AttachSource(ctx context.Context, incidentID, sourceID int64, primary bool) error {
	if g == nil || g.pool == nil {
		return fmt.Errorf("graph is not initialized")
	}

	if _, err := g.store.GetIncident(ctx, incidentID); err != nil {
		return fmt.Errorf("load incident %d: %w", incidentID, err)
	}
	if _, err := g.store.GetSource(ctx, sourceID); err != nil {
		return fmt.Errorf("load source %d: %w", sourceID, err)
	}

	const forwardQ = `
INSERT INTO iuu.incident_sources (incident_id, source_id, position)
SELECT $1, $2, COALESCE(MAX(position) + 1, 0)
FROM iuu.incident_sources
WHERE incident_id = $1
ON CONFLICT (incident_id, source_id) DO NOTHING
`
	forwardTag, err := g.pool.Exec(ctx, forwardQ, incidentID, sourceID)
	if err != nil {
		return &PartialLinkError{IncidentID: incidentID, SourceID: sourceID, Err: err}
	}

	const reverseQ = `
INSERT INTO iuu.source_incidents (source_id, incident_id, position)
SELECT $1, $2, COALESCE(MAX(position) + 1, 0)
FROM iuu.source_incidents
WHERE source_id = $1
ON CONFLICT (source_id, incident_id) DO NOTHING
`
	if _, err := g.pool.Exec(ctx, reverseQ, sourceID, incidentID); err != nil {
		return &PartialLinkError{
			IncidentID:  incidentID,
			SourceID:    sourceID,
			ForwardDone: true,
			Err:         err,
		}
	}

	if primary {
		if err := g.store.SetPrimarySource(ctx, incidentID, &sourceID); err != nil {
			return fmt.Errorf("set primary source: %w", err)
		}
	}

	// Re-attaching an existing link is silent; only new links are audited.
	if forwardTag.RowsAffected() == 1 && g.trail != nil {
		note := fmt.Sprintf("source %d attached", sourceID)
		if err := g.trail.Record(ctx, audit.Entry{
			EntityType: audit.EntityIncident,
			EntityID:   incidentID,
			Action:     audit.ActionAttachSource,
			Note:       &note,
		}); err != nil {
			return fmt.Errorf("audit source attachment: %w", err)
		}
	}

	return nil
}

// DetachSource removes the link in both directions. When the detached
// source was the incident's primary source, the earliest remaining
// attached source is promoted.
func (g *Graph) DetachSource(ctx context.Context, incidentID, sourceID int64) error {
	if g == nil || g.pool == nil {
		return fmt.Errorf("graph is not initialized")
	}

	const forwardQ = `
DELETE FROM iuu.incident_sources
WHERE incident_id = $1 AND source_id = $2
`
	forwardTag, err := g.pool.Exec(ctx, forwardQ, incidentID, sourceID)
	if err != nil {
		return &PartialLinkError{IncidentID: incidentID, SourceID: sourceID, Err: err}
	}
	if forwardTag.RowsAffected() == 0 {
		return db.ErrNoRows
	}

	const reverseQ = `
DELETE FROM iuu.source_incidents
WHERE source_id = $1 AND incident_id = $2
`
	if _, err := g.pool.Exec(ctx, reverseQ, sourceID, incidentID); err != nil {
		return &PartialLinkError{
			IncidentID:  incidentID,
			SourceID:    sourceID,
			ForwardDone: true,
			Err:         err,
		}
	}

	if err := g.repairPrimarySource(ctx, incidentID, sourceID); err != nil {
		return err
	}

	if g.trail != nil {
		note := fmt.Sprintf("source %d detached", sourceID)
		if err := g.trail.Record(ctx, audit.Entry{
			EntityType: audit.EntityIncident,
			EntityID:   incidentID,
			Action:     audit.ActionDetachSource,
			Note:       &note,
		}); err != nil {
			return fmt.Errorf("audit source detachment: %w", err)
		}
	}

	return nil
}

func (g *Graph) repairPrimarySource(ctx context.Context, incidentID, detachedSourceID int64) error {
	incident, err := g.store.GetIncident(ctx, incidentID)
	if err != nil {
		return fmt.Errorf("load incident %d: %w", incidentID, err)
	}
	if incident.PrimarySourceID == nil || *incident.PrimarySourceID != detachedSourceID {
		return nil
	}

	remaining, err := g.store.LinkedSourceIDs(ctx, incidentID)
	if err != nil {
		return fmt.Errorf("find replacement primary source: %w", err)
	}
	if len(remaining) == 0 {
		return g.store.SetPrimarySource(ctx, incidentID, nil)
	}
	return g.store.SetPrimarySource(ctx, incidentID, &remaining[0])
}

// DeleteIncident detaches every source and soft-deletes the incident.
func (g *Graph) DeleteIncident(ctx context.Context, incidentID int64) error {
	if g == nil || g.pool == nil {
		return fmt.Errorf("graph is not initialized")
	}

	sourceIDs, err := g.store.LinkedSourceIDs(ctx, incidentID)
	if err != nil {
		return err
	}

	if err := g.store.SetPrimarySource(ctx, incidentID, nil); err != nil && !db.IsNoRows(err) {
		return fmt.Errorf("clear primary source: %w", err)
	}

	const forwardQ = `DELETE FROM iuu.incident_sources WHERE incident_id = $1`
	if _, err := g.pool.Exec(ctx, forwardQ, incidentID); err != nil {
		return fmt.Errorf("remove incident links: %w", err)
	}

	for _, sourceID := range sourceIDs {
		const reverseQ = `DELETE FROM iuu.source_incidents WHERE source_id = $1 AND incident_id = $2`
		if _, err := g.pool.Exec(ctx, reverseQ, sourceID, incidentID); err != nil {
			return &PartialLinkError{
				IncidentID:  incidentID,
				SourceID:    sourceID,
				ForwardDone: true,
				Err:         err,
			}
		}
	}

	return g.store.SoftDeleteIncident(ctx, incidentID)
}

// SourceIDsForIncident returns attached source IDs in attachment order.
func (g *Graph) SourceIDsForIncident(ctx context.Context, incidentID int64) ([]int64, error) {
	if g == nil || g.store == nil {
		return nil, fmt.Errorf("graph is not initialized")
	}
	return g.store.LinkedSourceIDs(ctx, incidentID)
}

// IncidentIDsForSource returns linked incident IDs in attachment order.
func (g *Graph) IncidentIDsForSource(ctx context.Context, sourceID int64) ([]int64, error) {
	if g == nil || g.store == nil {
		return nil, fmt.Errorf("graph is not initialized")
	}
	return g.store.LinkedIncidentIDs(ctx, sourceID)
}

// FindPotentialDuplicates surfaces incidents that look like the same
// event: an exact fingerprint match or the same vessel name. Results are
// advisory; nothing is merged automatically.
func (g *Graph) FindPotentialDuplicates(ctx context.Context, fingerprint []byte, vesselName string, limit int) ([]db.Incident, error) {
	if g == nil || g.store == nil {
		return nil, fmt.Errorf("graph is not initialized")
	}
	return g.store.IncidentsMatching(ctx, fingerprint, vesselName, limit)
}
