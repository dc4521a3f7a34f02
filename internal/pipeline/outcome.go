package pipeline

import "horse.fit/driftnet/internal/analysis"

// Status is the terminal outcome of one submission. The set is closed;
// callers can switch over it exhaustively.
type Status string

const (
	StatusSuccess              Status = "success"
	StatusDuplicateDetected    Status = "duplicate_detected"
	StatusUnrelatedContent     Status = "unrelated_content"
	StatusFailedNormalization  Status = "failed_normalization"
	StatusFailedClassification Status = "failed_classification"
	StatusFailedExtraction     Status = "failed_extraction"
	StatusFailedLinking        Status = "failed_linking"
)

// SpanFailure records one failed incident span of a multi-incident
// document. The remaining spans may still have succeeded.
type SpanFailure struct {
	Span  int    `json:"span"`
	Error string `json:"error"`
}

// Output describes what a submission produced.
type Output struct {
	Status                Status         `json:"status"`
	Scope                 analysis.Scope `json:"scope,omitempty"`
	SourceID              int64          `json:"source_id,omitempty"`
	IncidentIDs           []int64        `json:"incident_ids,omitempty"`
	OverviewID            int64          `json:"overview_id,omitempty"`
	DuplicateOfSourceID   int64          `json:"duplicate_of_source_id,omitempty"`
	PotentialDuplicateIDs []int64        `json:"potential_duplicate_ids,omitempty"`
	SpanFailures          []SpanFailure  `json:"span_failures,omitempty"`
	Detail                string         `json:"detail,omitempty"`
}
