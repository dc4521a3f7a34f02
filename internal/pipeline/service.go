// Package pipeline orchestrates document ingestion: normalize, dedup,
// classify, route by scope, extract, and link the results into the
// incident graph. Failures map onto a closed status set; the pipeline
// never panics a submission into an undefined state.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/driftnet/internal/analysis"
	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/graph"
	"horse.fit/driftnet/internal/hashing"
	"horse.fit/driftnet/internal/langdetect"
	"horse.fit/driftnet/internal/normalize"
	"horse.fit/driftnet/internal/report"
	"horse.fit/driftnet/internal/species"
	"horse.fit/driftnet/internal/store"
)

const defaultExtractConcurrency = 3

// Store is the persistence surface the pipeline needs.
type Store interface {
	FindSourceByURL(ctx context.Context, rawURL string) (*db.Source, error)
	FindSourceByHash(ctx context.Context, hash []byte) (*db.Source, error)
	CreateSource(ctx context.Context, input store.NewSource) (*db.Source, bool, error)
	CreateIncident(ctx context.Context, input store.NewIncident) (*db.Incident, error)
	CreateOverview(ctx context.Context, input store.NewOverview) (*db.IndustryOverview, bool, error)
}

// Linker is the graph surface the pipeline needs.
type Linker interface {
	AttachSource(ctx context.Context, incidentID, sourceID int64, primary bool) error
	FindPotentialDuplicates(ctx context.Context, fingerprint []byte, vesselName string, limit int) ([]db.Incident, error)
}

// FetchFunc retrieves and normalizes a URL.
type FetchFunc func(ctx context.Context, pageURL string, opts normalize.FetchOptions) (*normalize.Document, error)

// Config tunes the pipeline.
type Config struct {
	FetchTimeout       time.Duration
	ExtractConcurrency int
}

// Service runs submissions through the full ingestion flow.
type Service struct {
	store    Store
	linker   Linker
	analyzer analysis.Analyzer
	verifier species.Verifier
	logger   zerolog.Logger

	fetch              FetchFunc
	fetchOpts          normalize.FetchOptions
	extractConcurrency int
}

// NewService wires a pipeline service.
func NewService(st Store, linker Linker, analyzer analysis.Analyzer, verifier species.Verifier, logger zerolog.Logger, cfg Config) *Service {
	concurrency := cfg.ExtractConcurrency
	if concurrency <= 0 {
		concurrency = defaultExtractConcurrency
	}

	return &Service{
		store:              st,
		linker:             linker,
		analyzer:           analyzer,
		verifier:           verifier,
		logger:             logger,
		fetch:              normalize.FetchDocument,
		fetchOpts:          normalize.FetchOptions{Timeout: cfg.FetchTimeout},
		extractConcurrency: concurrency,
	}
}

// SetFetchFunc replaces the URL fetcher. Used by tests.
func (s *Service) SetFetchFunc(fetch FetchFunc) {
	if s != nil && fetch != nil {
		s.fetch = fetch
	}
}

// SubmitURL ingests a document by URL.
func (s *Service) SubmitURL(ctx context.Context, rawURL string) (*Output, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}

	page := strings.TrimSpace(rawURL)
	if page == "" {
		return &Output{Status: StatusFailedNormalization, Detail: "URL is required"}, nil
	}

	existing, err := s.store.FindSourceByURL(ctx, page)
	if err != nil && !db.IsNoRows(err) {
		return nil, fmt.Errorf("look up source by URL: %w", err)
	}
	if existing != nil {
		s.logger.Info().Int64("source_id", existing.SourceID).Str("url", page).
			Msg("submission matched existing source URL")
		return &Output{
			Status:              StatusDuplicateDetected,
			SourceID:            existing.SourceID,
			DuplicateOfSourceID: existing.SourceID,
		}, nil
	}

	doc, err := s.fetch(ctx, page, s.fetchOpts)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", page).Msg("document fetch failed")
		return &Output{Status: StatusFailedNormalization, Detail: err.Error()}, nil
	}

	return s.process(ctx, doc)
}

// SubmitText ingests raw text pasted by an operator.
func (s *Service) SubmitText(ctx context.Context, title, text string) (*Output, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}

	cleaned := normalize.CleanText(text)
	if cleaned == "" {
		return &Output{Status: StatusFailedNormalization, Detail: "submitted text is empty"}, nil
	}

	doc := &normalize.Document{
		Title:      strings.TrimSpace(title),
		RawContent: text,
		Text:       cleaned,
	}
	return s.process(ctx, doc)
}

func (s *Service) process(ctx context.Context, doc *normalize.Document) (*Output, error) {
	contentHash := hashing.ArticleHash(doc.Text)

	existing, err := s.store.FindSourceByHash(ctx, contentHash)
	if err != nil && !db.IsNoRows(err) {
		return nil, fmt.Errorf("look up source by hash: %w", err)
	}
	if existing != nil {
		s.logger.Info().Int64("source_id", existing.SourceID).
			Msg("submission matched existing source content")
		return &Output{
			Status:              StatusDuplicateDetected,
			SourceID:            existing.SourceID,
			DuplicateOfSourceID: existing.SourceID,
		}, nil
	}

	classification, err := s.analyzer.ClassifyScope(ctx, doc.Text)
	if err != nil {
		s.logger.Warn().Err(err).Msg("scope classification failed")
		return &Output{Status: StatusFailedClassification, Detail: err.Error()}, nil
	}

	language := langdetect.DetectISO6391(doc.Text)

	category := db.CategoryText
	status := db.StatusUserProvided
	if strings.TrimSpace(doc.URL) != "" {
		category = db.CategoryWeb
		status = db.StatusExtracted
	}

	confidence := classification.Confidence
	source, inserted, err := s.store.CreateSource(ctx, store.NewSource{
		URL:              optionalString(doc.URL),
		Title:            doc.Title,
		Category:         category,
		ProcessingStatus: status,
		RawContent:       doc.RawContent,
		Content:          doc.Text,
		ArticleHash:      contentHash,
		Language:         language,
		Scope:            string(classification.Scope),
		ScopeConfidence:  &confidence,
	})
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	if !inserted {
		// Lost a concurrent insert race; the winner's row came back.
		s.logger.Info().Int64("source_id", source.SourceID).
			Msg("submission lost insert race to existing source")
		return &Output{
			Status:              StatusDuplicateDetected,
			SourceID:            source.SourceID,
			DuplicateOfSourceID: source.SourceID,
		}, nil
	}

	s.logger.Info().
		Int64("source_id", source.SourceID).
		Str("scope", string(classification.Scope)).
		Float64("confidence", classification.Confidence).
		Str("language", source.Language).
		Msg("source stored")

	switch classification.Scope {
	case analysis.ScopeUnrelated:
		return &Output{
			Status:   StatusUnrelatedContent,
			Scope:    classification.Scope,
			SourceID: source.SourceID,
		}, nil
	case analysis.ScopeSingleIncident:
		return s.processSingleIncident(ctx, source, doc.Text)
	case analysis.ScopeMultipleIncidents:
		return s.processMultipleIncidents(ctx, source, doc.Text)
	case analysis.ScopeIndustryOverview:
		return s.processOverview(ctx, source, doc.Text)
	default:
		return &Output{
			Status:   StatusFailedClassification,
			SourceID: source.SourceID,
			Detail:   fmt.Sprintf("unknown scope %q", classification.Scope),
		}, nil
	}
}

func (s *Service) processSingleIncident(ctx context.Context, source *db.Source, text string) (*Output, error) {
	extraction, err := s.analyzer.ExtractIncident(ctx, text)
	if err != nil {
		s.logger.Warn().Err(err).Int64("source_id", source.SourceID).Msg("incident extraction failed")
		return &Output{
			Status:   StatusFailedExtraction,
			Scope:    analysis.ScopeSingleIncident,
			SourceID: source.SourceID,
			Detail:   err.Error(),
		}, nil
	}

	s.verifySpecies(ctx, extraction.SpeciesInvolved)

	incident, linkErr := s.storeAndLinkIncident(ctx, source, extraction)
	if linkErr != nil {
		var partial *graph.PartialLinkError
		if errors.As(linkErr, &partial) {
			s.logger.Error().Err(partial).Msg("incident link left partial")
			return &Output{
				Status:   StatusFailedLinking,
				Scope:    analysis.ScopeSingleIncident,
				SourceID: source.SourceID,
				Detail:   partial.Error(),
			}, nil
		}
		return nil, linkErr
	}

	out := &Output{
		Status:      StatusSuccess,
		Scope:       analysis.ScopeSingleIncident,
		SourceID:    source.SourceID,
		IncidentIDs: []int64{incident.IncidentID},
	}

	if s.linker != nil {
		duplicates, err := s.linker.FindPotentialDuplicates(ctx, incident.Fingerprint, extraction.VesselName(), 10)
		if err != nil {
			s.logger.Warn().Err(err).Msg("potential-duplicate search failed")
		} else {
			for _, dup := range duplicates {
				if dup.IncidentID != incident.IncidentID {
					out.PotentialDuplicateIDs = append(out.PotentialDuplicateIDs, dup.IncidentID)
				}
			}
		}
	}

	return out, nil
}

func (s *Service) processMultipleIncidents(ctx context.Context, source *db.Source, text string) (*Output, error) {
	spans, err := s.analyzer.SplitIncidents(ctx, text)
	if err != nil {
		s.logger.Warn().Err(err).Int64("source_id", source.SourceID).Msg("incident split failed")
		return &Output{
			Status:   StatusFailedExtraction,
			Scope:    analysis.ScopeMultipleIncidents,
			SourceID: source.SourceID,
			Detail:   err.Error(),
		}, nil
	}

	extractions := make([]*report.IncidentExtraction, len(spans))
	spanErrs := make([]error, len(spans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.extractConcurrency)
	for i, span := range spans {
		g.Go(func() error {
			extraction, err := s.analyzer.ExtractIncident(gctx, span)
			if err != nil {
				var exErr *analysis.ExtractionError
				if errors.As(err, &exErr) {
					exErr.Span = i
				} else {
					err = &analysis.ExtractionError{Span: i, Err: err}
				}
				spanErrs[i] = err
				return nil
			}
			extractions[i] = extraction
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract incident spans: %w", err)
	}

	out := &Output{
		Scope:    analysis.ScopeMultipleIncidents,
		SourceID: source.SourceID,
	}

	for i, extraction := range extractions {
		if extraction == nil {
			s.logger.Warn().Err(spanErrs[i]).Int("span", i).
				Int64("source_id", source.SourceID).Msg("span extraction failed")
			out.SpanFailures = append(out.SpanFailures, SpanFailure{Span: i, Error: spanErrs[i].Error()})
			continue
		}

		s.verifySpecies(ctx, extraction.SpeciesInvolved)

		incident, err := s.storeAndLinkIncident(ctx, source, extraction)
		if err != nil {
			var partial *graph.PartialLinkError
			if errors.As(err, &partial) {
				s.logger.Error().Err(partial).Int("span", i).Msg("incident link left partial")
				out.SpanFailures = append(out.SpanFailures, SpanFailure{Span: i, Error: partial.Error()})
				continue
			}
			return nil, err
		}
		out.IncidentIDs = append(out.IncidentIDs, incident.IncidentID)
	}

	if len(out.IncidentIDs) == 0 {
		out.Status = StatusFailedExtraction
		out.Detail = "all incident spans failed"
		return out, nil
	}

	out.Status = StatusSuccess
	return out, nil
}

func (s *Service) processOverview(ctx context.Context, source *db.Source, text string) (*Output, error) {
	extraction, err := s.analyzer.ExtractOverview(ctx, text)
	if err != nil {
		s.logger.Warn().Err(err).Int64("source_id", source.SourceID).Msg("overview extraction failed")
		return &Output{
			Status:   StatusFailedExtraction,
			Scope:    analysis.ScopeIndustryOverview,
			SourceID: source.SourceID,
			Detail:   err.Error(),
		}, nil
	}

	s.verifySpecies(ctx, extraction.Species)

	extractionJSON, err := json.Marshal(extraction)
	if err != nil {
		return nil, fmt.Errorf("encode overview extraction: %w", err)
	}

	overview, _, err := s.store.CreateOverview(ctx, store.NewOverview{
		SourceID:   source.SourceID,
		Title:      source.Title,
		Summary:    extraction.Summary,
		Extraction: extractionJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create industry overview: %w", err)
	}

	return &Output{
		Status:     StatusSuccess,
		Scope:      analysis.ScopeIndustryOverview,
		SourceID:   source.SourceID,
		OverviewID: overview.OverviewID,
	}, nil
}

func (s *Service) storeAndLinkIncident(ctx context.Context, source *db.Source, extraction *report.IncidentExtraction) (*db.Incident, error) {
	fingerprint := hashing.IncidentFingerprint(
		extraction.VesselName(),
		extraction.EventDate(),
		extraction.EventLocation(),
	)

	extractionJSON, err := json.Marshal(extraction)
	if err != nil {
		return nil, fmt.Errorf("encode incident extraction: %w", err)
	}

	incident, err := s.store.CreateIncident(ctx, store.NewIncident{
		Fingerprint: fingerprint,
		VesselName:  optionalString(extraction.VesselName()),
		EventDate:   optionalString(extraction.EventDate()),
		Location:    optionalString(extraction.EventLocation()),
		Summary:     extraction.Description,
		Extraction:  extractionJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	if s.linker != nil {
		if err := s.linker.AttachSource(ctx, incident.IncidentID, source.SourceID, true); err != nil {
			return nil, err
		}
	}

	return incident, nil
}

// verifySpecies checks each species against the registry and writes the
// outcome back into the extraction, so the persisted record carries the
// flag. Registry failures leave the flag unset.
func (s *Service) verifySpecies(ctx context.Context, list []report.Species) {
	if s.verifier == nil {
		return
	}
	for i := range list {
		verification, err := s.verifier.VerifySpecies(ctx, list[i])
		if err != nil {
			s.logger.Warn().Err(err).Str("species", list[i].CommonName).
				Msg("species registry lookup failed")
			continue
		}
		verified := verification.Verified
		list[i].Verified = &verified
		if !verified {
			s.logger.Warn().Str("species", list[i].CommonName).
				Msg("species not verified against registry")
		}
	}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
