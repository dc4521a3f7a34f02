// Package audit records an append-only trail of every mutation to
// sources, incidents, and overviews.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"horse.fit/driftnet/internal/db"
)

// Audit actions. Values match the iuu.audit_action enum.
const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionAttachSource = "attach_source"
	ActionDetachSource = "detach_source"
)

// Entity types recorded in the trail.
const (
	EntitySource   = "source"
	EntityIncident = "incident"
	EntityOverview = "industry_overview"
)

// Entry is one mutation to record.
type Entry struct {
	EntityType string
	EntityID   int64
	Action     string
	Actor      string
	Before     json.RawMessage
	After      json.RawMessage
	Note       *string
}

// Item is one stored trail row.
type Item struct {
	AuditLogID   int64           `json:"audit_log_id"`
	AuditLogUUID string          `json:"audit_log_uuid"`
	EntityType   string          `json:"entity_type"`
	EntityID     int64           `json:"entity_id"`
	Action       string          `json:"action"`
	Actor        string          `json:"actor"`
	BeforeState  json.RawMessage `json:"before_state,omitempty"`
	AfterState   json.RawMessage `json:"after_state,omitempty"`
	Diff         json.RawMessage `json:"diff,omitempty"`
	Note         *string         `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ListOptions filters trail queries.
type ListOptions struct {
	EntityType string
	EntityID   int64
	Limit      int
}

// FieldChange is one changed field inside a diff.
type FieldChange struct {
	OldValue any `json:"old_value"`
	NewValue any `json:"new_value"`
}

// Trail writes and reads audit rows.
type Trail struct {
	pool *db.Pool
}

// NewTrail creates a trail over the given pool.
func NewTrail(pool *db.Pool) *Trail {
	return &Trail{pool: pool}
}

// Record appends one entry. The per-field diff is derived from the
// before and after states when both are present.
func (t *Trail) Record(ctx context.Context, entry Entry) error {
	if t == nil || t.pool == nil {
		return fmt.Errorf("audit trail is not initialized")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return fmt.Errorf("entity type is required")
	}
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("action is required")
	}

	actor := strings.TrimSpace(entry.Actor)
	if actor == "" {
		actor = "system"
	}

	diff, err := ComputeDiff(entry.Before, entry.After)
	if err != nil {
		return fmt.Errorf("compute audit diff: %w", err)
	}

	const q = `
INSERT INTO iuu.audit_logs (entity_type, entity_id, action, actor, before_state, after_state, diff, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

	_, err = t.pool.Exec(ctx, q,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		actor,
		nullableJSON(entry.Before),
		nullableJSON(entry.After),
		nullableJSON(diff),
		entry.Note,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// List returns trail rows, newest first.
func (t *Trail) List(ctx context.Context, opts ListOptions) ([]Item, error) {
	if t == nil || t.pool == nil {
		return nil, fmt.Errorf("audit trail is not initialized")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	const q = `
SELECT
	l.audit_log_id,
	l.audit_log_uuid::text,
	l.entity_type,
	l.entity_id,
	l.action,
	l.actor,
	l.before_state,
	l.after_state,
	l.diff,
	l.note,
	l.created_at
FROM iuu.audit_logs l
WHERE ($1 = '' OR l.entity_type = $1)
  AND ($2 = 0 OR l.entity_id = $2)
ORDER BY l.created_at DESC, l.audit_log_id DESC
LIMIT $3
`

	rows, err := t.pool.Query(ctx, q, strings.TrimSpace(opts.EntityType), opts.EntityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0, limit)
	for rows.Next() {
		var row Item
		if err := rows.Scan(
			&row.AuditLogID,
			&row.AuditLogUUID,
			&row.EntityType,
			&row.EntityID,
			&row.Action,
			&row.Actor,
			&row.BeforeState,
			&row.AfterState,
			&row.Diff,
			&row.Note,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log rows: %w", err)
	}

	return items, nil
}

// ComputeDiff returns a per-field old/new map for the fields that changed
// between two JSON object states. Creates and deletes have no diff.
func ComputeDiff(before, after json.RawMessage) (json.RawMessage, error) {
	if len(before) == 0 || len(after) == 0 {
		return nil, nil
	}

	var beforeMap, afterMap map[string]any
	if err := json.Unmarshal(before, &beforeMap); err != nil {
		return nil, fmt.Errorf("decode before state: %w", err)
	}
	if err := json.Unmarshal(after, &afterMap); err != nil {
		return nil, fmt.Errorf("decode after state: %w", err)
	}

	changes := make(map[string]FieldChange)
	for field, newValue := range afterMap {
		oldValue, ok := beforeMap[field]
		if !ok || !reflect.DeepEqual(oldValue, newValue) {
			changes[field] = FieldChange{OldValue: oldValue, NewValue: newValue}
		}
	}
	for field, oldValue := range beforeMap {
		if _, ok := afterMap[field]; !ok {
			changes[field] = FieldChange{OldValue: oldValue, NewValue: nil}
		}
	}

	if len(changes) == 0 {
		return nil, nil
	}

	diff, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("encode diff: %w", err)
	}
	return diff, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
