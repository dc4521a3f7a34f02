package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"horse.fit/driftnet/internal/db"
)

// View types shape database rows for API responses. Binary hashes are
// rendered as hex; heavy text columns are kept out of list payloads.

type sourceView struct {
	SourceID         int64           `json:"source_id"`
	SourceUUID       string          `json:"source_uuid"`
	URL              *string         `json:"url,omitempty"`
	Title            string          `json:"title"`
	Author           *string         `json:"author,omitempty"`
	Category         string          `json:"category"`
	ProcessingStatus string          `json:"processing_status"`
	ArticleHash      string          `json:"article_hash"`
	Language         string          `json:"language"`
	Scope            string          `json:"scope"`
	ScopeConfidence  *float64        `json:"scope_confidence,omitempty"`
	PublishedAt      *time.Time      `json:"published_at,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	Content          string          `json:"content,omitempty"`
	IncidentIDs      []int64         `json:"incident_ids,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func newSourceView(row *db.Source, withContent bool) sourceView {
	view := sourceView{
		SourceID:         row.SourceID,
		SourceUUID:       row.SourceUUID,
		URL:              row.URL,
		Title:            row.Title,
		Author:           row.Author,
		Category:         row.Category,
		ProcessingStatus: row.ProcessingStatus,
		ArticleHash:      hex.EncodeToString(row.ArticleHash),
		Language:         row.Language,
		Scope:            row.Scope,
		ScopeConfidence:  row.ScopeConfidence,
		PublishedAt:      row.PublishedAt,
		Metadata:         row.Metadata,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if withContent {
		view.Content = row.Content
	}
	return view
}

type incidentView struct {
	IncidentID      int64           `json:"incident_id"`
	IncidentUUID    string          `json:"incident_uuid"`
	Fingerprint     string          `json:"fingerprint"`
	VesselName      *string         `json:"vessel_name,omitempty"`
	EventDate       *string         `json:"event_date,omitempty"`
	Location        *string         `json:"location,omitempty"`
	Summary         string          `json:"summary"`
	Extraction      json.RawMessage `json:"extraction,omitempty"`
	PrimarySourceID *int64          `json:"primary_source_id,omitempty"`
	SourceIDs       []int64         `json:"source_ids,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func newIncidentView(row *db.Incident, withExtraction bool) incidentView {
	view := incidentView{
		IncidentID:      row.IncidentID,
		IncidentUUID:    row.IncidentUUID,
		Fingerprint:     hex.EncodeToString(row.Fingerprint),
		VesselName:      row.VesselName,
		EventDate:       row.EventDate,
		Location:        row.Location,
		Summary:         row.Summary,
		PrimarySourceID: row.PrimarySourceID,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if withExtraction {
		view.Extraction = row.Extraction
	}
	return view
}

type overviewView struct {
	OverviewID   int64           `json:"overview_id"`
	OverviewUUID string          `json:"overview_uuid"`
	SourceID     int64           `json:"source_id"`
	Title        string          `json:"title"`
	Summary      string          `json:"summary"`
	Region       *string         `json:"region,omitempty"`
	Extraction   json.RawMessage `json:"extraction,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func newOverviewView(row *db.IndustryOverview, withExtraction bool) overviewView {
	view := overviewView{
		OverviewID:   row.OverviewID,
		OverviewUUID: row.OverviewUUID,
		SourceID:     row.SourceID,
		Title:        row.Title,
		Summary:      row.Summary,
		Region:       row.Region,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if withExtraction {
		view.Extraction = row.Extraction
	}
	return view
}
