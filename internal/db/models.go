package db

import (
	"encoding/json"
	"time"
)

// Source maps iuu.sources. One row per ingested document.
type Source struct {
	SourceID         int64           `gorm:"column:source_id;primaryKey;autoIncrement"`
	SourceUUID       string          `gorm:"column:source_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	URL              *string         `gorm:"column:url;type:text"`
	Title            string          `gorm:"column:title;type:text;not null;default:''"`
	Author           *string         `gorm:"column:author;type:text"`
	Category         string          `gorm:"column:category;type:text;not null;default:web"`
	ProcessingStatus string          `gorm:"column:processing_status;type:text;not null;default:extracted"`
	RawContent       string          `gorm:"column:raw_content;type:text;not null;default:''"`
	Content          string          `gorm:"column:content;type:text;not null"`
	ArticleHash      []byte          `gorm:"column:article_hash;type:bytea;not null"`
	Language         string          `gorm:"column:language;type:text;not null;default:und"`
	Scope            string          `gorm:"column:scope;type:iuu.source_scope;not null;default:unrelated"`
	ScopeConfidence  *float64        `gorm:"column:scope_confidence;type:double precision"`
	PublishedAt      *time.Time      `gorm:"column:published_at;type:timestamptz"`
	Metadata         json.RawMessage `gorm:"column:metadata;type:jsonb"`
	DeletedAt        *time.Time      `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt        time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

// Source categories and processing statuses.
const (
	CategoryWeb  = "web"
	CategoryText = "text"
	CategoryPDF  = "pdf"

	StatusExtracted    = "extracted"
	StatusUserProvided = "user_provided"
	StatusModified     = "modified"
)

func (Source) TableName() string { return "iuu.sources" }

// Incident maps iuu.incidents.
type Incident struct {
	IncidentID      int64           `gorm:"column:incident_id;primaryKey;autoIncrement"`
	IncidentUUID    string          `gorm:"column:incident_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Fingerprint     []byte          `gorm:"column:fingerprint;type:bytea;not null"`
	VesselName      *string         `gorm:"column:vessel_name;type:text"`
	EventDate       *string         `gorm:"column:event_date;type:text"`
	Location        *string         `gorm:"column:location;type:text"`
	Summary         string          `gorm:"column:summary;type:text;not null;default:''"`
	Extraction      json.RawMessage `gorm:"column:extraction;type:jsonb"`
	PrimarySourceID *int64          `gorm:"column:primary_source_id;type:bigint"`
	DeletedAt       *time.Time      `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Incident) TableName() string { return "iuu.incidents" }

// IncidentSource maps iuu.incident_sources, the incident-side half of the link.
type IncidentSource struct {
	IncidentID         int64     `gorm:"column:incident_id;type:bigint;primaryKey"`
	SourceID           int64     `gorm:"column:source_id;type:bigint;primaryKey"`
	IncidentSourceUUID string    `gorm:"column:incident_source_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Position           int       `gorm:"column:position;type:integer;not null;default:0"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (IncidentSource) TableName() string { return "iuu.incident_sources" }

// SourceIncident maps iuu.source_incidents, the source-side half of the link.
type SourceIncident struct {
	SourceID           int64     `gorm:"column:source_id;type:bigint;primaryKey"`
	IncidentID         int64     `gorm:"column:incident_id;type:bigint;primaryKey"`
	SourceIncidentUUID string    `gorm:"column:source_incident_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Position           int       `gorm:"column:position;type:integer;not null;default:0"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (SourceIncident) TableName() string { return "iuu.source_incidents" }

// IndustryOverview maps iuu.industry_overviews.
type IndustryOverview struct {
	OverviewID   int64           `gorm:"column:overview_id;primaryKey;autoIncrement"`
	OverviewUUID string          `gorm:"column:overview_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	SourceID     int64           `gorm:"column:source_id;type:bigint;not null;unique"`
	Title        string          `gorm:"column:title;type:text;not null;default:''"`
	Summary      string          `gorm:"column:summary;type:text;not null;default:''"`
	Region       *string         `gorm:"column:region;type:text"`
	Extraction   json.RawMessage `gorm:"column:extraction;type:jsonb"`
	DeletedAt    *time.Time      `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt    time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (IndustryOverview) TableName() string { return "iuu.industry_overviews" }

// AuditLog maps iuu.audit_logs. Rows are append-only.
type AuditLog struct {
	AuditLogID   int64           `gorm:"column:audit_log_id;primaryKey;autoIncrement"`
	AuditLogUUID string          `gorm:"column:audit_log_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	EntityType   string          `gorm:"column:entity_type;type:text;not null"`
	EntityID     int64           `gorm:"column:entity_id;type:bigint;not null"`
	Action       string          `gorm:"column:action;type:iuu.audit_action;not null"`
	Actor        string          `gorm:"column:actor;type:text;not null;default:system"`
	BeforeState  json.RawMessage `gorm:"column:before_state;type:jsonb"`
	AfterState   json.RawMessage `gorm:"column:after_state;type:jsonb"`
	Diff         json.RawMessage `gorm:"column:diff;type:jsonb"`
	Note         *string         `gorm:"column:note;type:text"`
	CreatedAt    time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (AuditLog) TableName() string { return "iuu.audit_logs" }

func autoMigrateModels() []any {
	return []any{
		&Source{},
		&Incident{},
		&IncidentSource{},
		&SourceIncident{},
		&IndustryOverview{},
		&AuditLog{},
	}
}
