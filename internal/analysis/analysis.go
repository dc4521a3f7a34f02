// Package analysis classifies documents by scope and extracts structured
// incident records from them.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/driftnet/internal/report"
)

// Scope is the classifier's verdict on what a document covers.
type Scope string

const (
	ScopeSingleIncident    Scope = "single_incident"
	ScopeMultipleIncidents Scope = "multiple_incidents"
	ScopeIndustryOverview  Scope = "industry_overview"
	ScopeUnrelated         Scope = "unrelated"
)

// ParseScope validates a raw scope string.
func ParseScope(raw string) (Scope, error) {
	scope := Scope(strings.ToLower(strings.TrimSpace(raw)))
	switch scope {
	case ScopeSingleIncident, ScopeMultipleIncidents, ScopeIndustryOverview, ScopeUnrelated:
		return scope, nil
	default:
		return "", fmt.Errorf("unknown scope %q", raw)
	}
}

// Valid reports whether the scope is one of the four known values.
func (s Scope) Valid() bool {
	_, err := ParseScope(string(s))
	return err == nil
}

// Classification is the scope verdict with the model's confidence
// and reasoning.
type Classification struct {
	Scope      Scope
	Confidence float64
	Reasoning  string
}

// Classifier decides what a document is about.
type Classifier interface {
	ClassifyScope(ctx context.Context, text string) (*Classification, error)
}

// Extractor turns document text into structured records.
type Extractor interface {
	ExtractIncident(ctx context.Context, text string) (*report.IncidentExtraction, error)
	SplitIncidents(ctx context.Context, text string) ([]string, error)
	ExtractOverview(ctx context.Context, text string) (*report.OverviewExtraction, error)
}

// Analyzer combines classification and extraction.
type Analyzer interface {
	Classifier
	Extractor
}
