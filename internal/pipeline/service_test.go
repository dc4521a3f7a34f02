package pipeline

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/driftnet/internal/analysis"
	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/graph"
	"horse.fit/driftnet/internal/normalize"
	"horse.fit/driftnet/internal/report"
	"horse.fit/driftnet/internal/species"
	"horse.fit/driftnet/internal/store"
)

const incidentText = "Authorities in Ghana detained the trawler Marbella on Friday after " +
	"inspectors found undersized sardinella in its hold during a closed season patrol."

type fakeStore struct {
	sourcesByURL  map[string]*db.Source
	sourcesByHash map[string]*db.Source
	incidents     []*db.Incident
	overviews     []*db.IndustryOverview

	nextSourceID   int64
	nextIncidentID int64
	nextOverviewID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sourcesByURL:  make(map[string]*db.Source),
		sourcesByHash: make(map[string]*db.Source),
	}
}

func (f *fakeStore) FindSourceByURL(_ context.Context, rawURL string) (*db.Source, error) {
	if src, ok := f.sourcesByURL[rawURL]; ok {
		return src, nil
	}
	return nil, db.ErrNoRows
}

func (f *fakeStore) FindSourceByHash(_ context.Context, hash []byte) (*db.Source, error) {
	if src, ok := f.sourcesByHash[hex.EncodeToString(hash)]; ok {
		return src, nil
	}
	return nil, db.ErrNoRows
}

func (f *fakeStore) CreateSource(_ context.Context, input store.NewSource) (*db.Source, bool, error) {
	key := hex.EncodeToString(input.ArticleHash)
	if src, ok := f.sourcesByHash[key]; ok {
		return src, false, nil
	}

	f.nextSourceID++
	src := &db.Source{
		SourceID:    f.nextSourceID,
		Title:       input.Title,
		Content:     input.Content,
		ArticleHash: input.ArticleHash,
		Language:    input.Language,
		Scope:       input.Scope,
	}
	if input.URL != nil {
		src.URL = input.URL
		f.sourcesByURL[*input.URL] = src
	}
	f.sourcesByHash[key] = src
	return src, true, nil
}

func (f *fakeStore) CreateIncident(_ context.Context, input store.NewIncident) (*db.Incident, error) {
	f.nextIncidentID++
	inc := &db.Incident{
		IncidentID:  f.nextIncidentID,
		Fingerprint: input.Fingerprint,
		VesselName:  input.VesselName,
		EventDate:   input.EventDate,
		Location:    input.Location,
		Summary:     input.Summary,
		Extraction:  input.Extraction,
	}
	f.incidents = append(f.incidents, inc)
	return inc, nil
}

func (f *fakeStore) CreateOverview(_ context.Context, input store.NewOverview) (*db.IndustryOverview, bool, error) {
	f.nextOverviewID++
	ov := &db.IndustryOverview{
		OverviewID: f.nextOverviewID,
		SourceID:   input.SourceID,
		Summary:    input.Summary,
	}
	f.overviews = append(f.overviews, ov)
	return ov, true, nil
}

type attachCall struct {
	incidentID int64
	sourceID   int64
	primary    bool
}

type fakeLinker struct {
	attachErr  error
	attached   []attachCall
	duplicates []db.Incident
}

func (f *fakeLinker) AttachSource(_ context.Context, incidentID, sourceID int64, primary bool) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached = append(f.attached, attachCall{incidentID: incidentID, sourceID: sourceID, primary: primary})
	return nil
}

func (f *fakeLinker) FindPotentialDuplicates(_ context.Context, _ []byte, _ string, _ int) ([]db.Incident, error) {
	return f.duplicates, nil
}

type fakeAnalyzer struct {
	classifyFunc func(text string) (*analysis.Classification, error)
	extractFunc  func(text string) (*report.IncidentExtraction, error)
	splitFunc    func(text string) ([]string, error)
	overviewFunc func(text string) (*report.OverviewExtraction, error)
}

func (f *fakeAnalyzer) ClassifyScope(_ context.Context, text string) (*analysis.Classification, error) {
	return f.classifyFunc(text)
}

func (f *fakeAnalyzer) ExtractIncident(_ context.Context, text string) (*report.IncidentExtraction, error) {
	return f.extractFunc(text)
}

func (f *fakeAnalyzer) SplitIncidents(_ context.Context, text string) ([]string, error) {
	return f.splitFunc(text)
}

func (f *fakeAnalyzer) ExtractOverview(_ context.Context, text string) (*report.OverviewExtraction, error) {
	return f.overviewFunc(text)
}

func classifyAs(scope analysis.Scope) func(string) (*analysis.Classification, error) {
	return func(string) (*analysis.Classification, error) {
		return &analysis.Classification{Scope: scope, Confidence: 0.9}, nil
	}
}

func extractionFor(vessel string) *report.IncidentExtraction {
	date := "2024-03-01"
	location := "Gulf of Guinea"
	return &report.IncidentExtraction{
		CatchSourceInformation: &report.CatchSourceData{VesselName: &vessel},
		EventData: &report.EventData{
			EventCategory: "Seizure",
			EventDate:     &date,
			EventLocation: location,
			Resolution:    "Vessel Detained",
		},
		SpeciesInvolved:  []report.Species{},
		ProductsInvolved: []report.ProductData{},
		Description:      "Trawler detained during closed season.",
		Classifications: []report.IUUClassification{
			{IUUType: report.IUUTypeIllegalFishing, IUUTypeReason: "Closed season fishing."},
		},
	}
}

type fakeVerifier struct {
	verified map[string]bool
}

func (f *fakeVerifier) VerifySpecies(_ context.Context, sp report.Species) (*species.Verification, error) {
	return &species.Verification{Verified: f.verified[sp.CommonName]}, nil
}

func newTestService(st Store, linker Linker, az analysis.Analyzer) *Service {
	return NewService(st, linker, az, nil, zerolog.Nop(), Config{})
}

func TestSubmitTextUnrelated(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	svc := newTestService(st, &fakeLinker{}, &fakeAnalyzer{
		classifyFunc: classifyAs(analysis.ScopeUnrelated),
	})

	out, err := svc.SubmitText(context.Background(), "Local football results", incidentText)
	if err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}
	if out.Status != StatusUnrelatedContent {
		t.Fatalf("status = %q, want %q", out.Status, StatusUnrelatedContent)
	}
	if out.SourceID == 0 {
		t.Fatalf("unrelated content should still retain its source")
	}
}

func TestSubmitTextSingleIncident(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	linker := &fakeLinker{}
	svc := newTestService(st, linker, &fakeAnalyzer{
		classifyFunc: classifyAs(analysis.ScopeSingleIncident),
		extractFunc: func(string) (*report.IncidentExtraction, error) {
			return extractionFor("F/V Marbella"), nil
		},
	})

	out, err := svc.SubmitText(context.Background(), "Trawler detained", incidentText)
	if err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}
	if out.Status != StatusSuccess {
		t.Fatalf("status = %q, want %q (detail: %s)", out.Status, StatusSuccess, out.Detail)
	}
	if len(out.IncidentIDs) != 1 {
		t.Fatalf("expected 1 incident, got %v", out.IncidentIDs)
	}
	if len(linker.attached) != 1 {
		t.Fatalf("expected 1 attach call, got %d", len(linker.attached))
	}
	if !linker.attached[0].primary {
		t.Fatalf("first source of a new incident should be primary")
	}
}

func TestSubmitTextDuplicateContent(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	svc := newTestService(st, &fakeLinker{}, &fakeAnalyzer{
		classifyFunc: classifyAs(analysis.ScopeUnrelated),
	})

	first, err := svc.SubmitText(context.Background(), "t", incidentText)
	if err != nil {
		t.Fatalf("first SubmitText failed: %v", err)
	}

	second, err := svc.SubmitText(context.Background(), "t", incidentText)
	if err != nil {
		t.Fatalf("second SubmitText failed: %v", err)
	}
	if second.Status != StatusDuplicateDetected {
		t.Fatalf("status = %q, want %q", second.Status, StatusDuplicateDetected)
	}
	if second.DuplicateOfSourceID != first.SourceID {
		t.Fatalf("duplicate should reference source %d, got %d", first.SourceID, second.DuplicateOfSourceID)
	}
}

func TestSubmitTextClassificationFailure(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	svc := newTestService(st, &fakeLinker{}, &fakeAnalyzer{
		classifyFunc: func(string) (*analysis.Classification, error) {
			return nil, &analysis.ClassificationError{Err: errors.New("model unavailable")}
		},
	})

	out, err := svc.SubmitText(context.Background(), "t", incidentText)
	if err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}
	if out.Status != StatusFailedClassification {
		t.Fatalf("status = %q, want %q", out.Status, StatusFailedClassification)
	}
	if !strings.Contains(out.Detail, "classification failed") {
		t.Fatalf("detail should carry the typed failure, got %q", out.Detail)
	}
}

func TestSubmitTextMultipleIncidentsPartialSuccess(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	linker := &fakeLinker{}
	svc := newTestService(st, linker, &fakeAnalyzer{
		classifyFunc: classifyAs(analysis.ScopeMultipleIncidents),
		splitFunc: func(string) ([]string, error) {
			return []string{"span about Marbella", "span about Aurora", "broken span"}, nil
		},
		extractFunc: func(span string) (*report.IncidentExtraction, error) {
			switch span {
			case "span about Marbella":
				return extractionFor("F/V Marbella"), nil
			case "span about Aurora":
				return extractionFor("F/V Aurora"), nil
			default:
				return nil, errors.New("span made no sense")
			}
		},
	})

	out, err := svc.SubmitText(context.Background(), "Weekly enforcement roundup", incidentText)
	if err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}
	if out.Status != StatusSuccess {
		t.Fatalf("status = %q, want %q", out.Status, StatusSuccess)
	}
	if len(out.IncidentIDs) != 2 {
		t.Fatalf("expected 2 incidents, got %v", out.IncidentIDs)
	}
	if len(out.SpanFailures) != 1 {
		t.Fatalf("expected 1 span failure, got %v", out.SpanFailures)
	}
	if out.SpanFailures[0].Span != 2 {
		t.Fatalf("failed span = %d, want 2", out.SpanFailures[0].Span)
	}
	if !strings.Contains(out.SpanFailures[0].Error, "on span 2") {
		t.Fatalf("span failure should name its span, got %q", out.SpanFailures[0].Error)
	}
}

func TestSubmitTextMultipleIncidentsAllSpansFail(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	svc := newTestService(st, &fakeLinker{}, &fakeAnalyzer{
		classifyFunc: classifyAs(analysis.ScopeMultipleIncidents),
		splitFunc: func(string) ([]string, error) {
			return []string{"span one", "span two"}, nil
		},
		extractFunc: func(string) (*report.IncidentExtraction, error) {
			return nil, errors.New("no extractable incident")
		},
	})

	out, err := svc.SubmitText(context.Background(), "t", incidentText)
	if err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}
	if out.Status != StatusFailedExtraction {
		t.Fatalf("status = %q, want %q", out.Status, StatusFailedExtraction)
	}
	if len(out.SpanFailures) != 2 {
		t.Fatalf("expected 2 span failures, got %v", out.SpanFailures)
	}
}

func TestSubmitTextPartialLink(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	linker := &fakeLinker{
		attachErr: &graph.PartialLinkError{
			IncidentID:  1,
			SourceID:    1,
			ForwardDone: true,
			Err:         errors.New("connection reset"),
		},
	}
	svc := newTestService(st, linker, &fakeAnalyzer{
		classifyFunc: classifyAs(analysis.ScopeSingleIncident),
		extractFunc: func(string) (*report.IncidentExtraction, error) {
			return extractionFor("F/V Marbella"), nil
		},
	})

	out, err := svc.SubmitText(context.Background(), "t", incidentText)
	if err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}
	if out.Status != StatusFailedLinking {
		t.Fatalf("status = %q, want %q", out.Status, StatusFailedLinking)
	}
}

func TestSubmitTextOverview(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	svc := newTestService(st, &fakeLinker{}, &fakeAnalyzer{
		classifyFunc: classifyAs(analysis.ScopeIndustryOverview),
		overviewFunc: func(string) (*report.OverviewExtraction, error) {
			return &report.OverviewExtraction{
				Species:   []report.Species{{CommonName: "Bluefin Tuna"}},
				Countries: []string{"Japan"},
				Companies: []string{},
				Incidents: []report.IncidentExtraction{},
				Summary:   "Quota pressure across the Pacific bluefin fishery.",
			}, nil
		},
	})

	out, err := svc.SubmitText(context.Background(), "State of the tuna industry", incidentText)
	if err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}
	if out.Status != StatusSuccess {
		t.Fatalf("status = %q, want %q", out.Status, StatusSuccess)
	}
	if out.OverviewID == 0 {
		t.Fatalf("expected overview to be created")
	}
	if len(st.overviews) != 1 {
		t.Fatalf("expected 1 stored overview, got %d", len(st.overviews))
	}
}

func TestSubmitURLDuplicateURL(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	url := "https://example.com/news/1"
	st.sourcesByURL[url] = &db.Source{SourceID: 42, URL: &url}

	svc := newTestService(st, &fakeLinker{}, &fakeAnalyzer{})
	svc.SetFetchFunc(func(context.Context, string, normalize.FetchOptions) (*normalize.Document, error) {
		t.Fatal("fetch must not run for a known URL")
		return nil, nil
	})

	out, err := svc.SubmitURL(context.Background(), url)
	if err != nil {
		t.Fatalf("SubmitURL failed: %v", err)
	}
	if out.Status != StatusDuplicateDetected {
		t.Fatalf("status = %q, want %q", out.Status, StatusDuplicateDetected)
	}
	if out.DuplicateOfSourceID != 42 {
		t.Fatalf("duplicate should reference source 42, got %d", out.DuplicateOfSourceID)
	}
}

func TestSubmitURLFetchFailure(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	svc := newTestService(st, &fakeLinker{}, &fakeAnalyzer{})
	svc.SetFetchFunc(func(context.Context, string, normalize.FetchOptions) (*normalize.Document, error) {
		return nil, fmt.Errorf("fetch status 503")
	})

	out, err := svc.SubmitURL(context.Background(), "https://example.com/unreachable")
	if err != nil {
		t.Fatalf("SubmitURL failed: %v", err)
	}
	if out.Status != StatusFailedNormalization {
		t.Fatalf("status = %q, want %q", out.Status, StatusFailedNormalization)
	}
}

func TestSubmitTextSpeciesVerificationPersisted(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	scientific := "Sardinella aurita"
	extraction := extractionFor("F/V Marbella")
	extraction.SpeciesInvolved = []report.Species{
		{CommonName: "Round Sardinella", ScientificName: &scientific},
		{CommonName: "Ghost Fish"},
	}

	svc := NewService(st, &fakeLinker{}, &fakeAnalyzer{
		classifyFunc: classifyAs(analysis.ScopeSingleIncident),
		extractFunc: func(string) (*report.IncidentExtraction, error) {
			return extraction, nil
		},
	}, &fakeVerifier{verified: map[string]bool{"Round Sardinella": true}}, zerolog.Nop(), Config{})

	out, err := svc.SubmitText(context.Background(), "Trawler detained", incidentText)
	if err != nil {
		t.Fatalf("SubmitText failed: %v", err)
	}
	if out.Status != StatusSuccess {
		t.Fatalf("status = %q, want %q (detail: %s)", out.Status, StatusSuccess, out.Detail)
	}

	var stored report.IncidentExtraction
	if err := json.Unmarshal(st.incidents[0].Extraction, &stored); err != nil {
		t.Fatalf("decode stored extraction: %v", err)
	}
	if stored.SpeciesInvolved[0].Verified == nil || !*stored.SpeciesInvolved[0].Verified {
		t.Fatalf("registry-confirmed species should be stored verified")
	}
	if stored.SpeciesInvolved[1].Verified == nil || *stored.SpeciesInvolved[1].Verified {
		t.Fatalf("unmatched species should be stored with verified=false")
	}
}

func TestSubmitTextFingerprintCollisionStaysSeparate(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	linker := &fakeLinker{}
	svc := newTestService(st, linker, &fakeAnalyzer{
		classifyFunc: classifyAs(analysis.ScopeSingleIncident),
		extractFunc: func(string) (*report.IncidentExtraction, error) {
			return extractionFor("F/V Marbella"), nil
		},
	})

	first, err := svc.SubmitText(context.Background(), "report A", incidentText)
	if err != nil {
		t.Fatalf("first SubmitText failed: %v", err)
	}

	linker.duplicates = []db.Incident{*st.incidents[0]}

	second, err := svc.SubmitText(context.Background(), "report B", incidentText+" Updated with new details from port authorities.")
	if err != nil {
		t.Fatalf("second SubmitText failed: %v", err)
	}
	if second.Status != StatusSuccess {
		t.Fatalf("status = %q, want %q", second.Status, StatusSuccess)
	}
	if first.IncidentIDs[0] == second.IncidentIDs[0] {
		t.Fatalf("matching fingerprints must still produce distinct incidents, both got %d", first.IncidentIDs[0])
	}
	if len(linker.attached) != 2 {
		t.Fatalf("expected 2 attach calls, got %d", len(linker.attached))
	}
	if !linker.attached[0].primary || !linker.attached[1].primary {
		t.Fatalf("each source is the primary source of its own incident")
	}
	if len(second.PotentialDuplicateIDs) != 1 || second.PotentialDuplicateIDs[0] != first.IncidentIDs[0] {
		t.Fatalf("potential duplicates = %v, want [%d]", second.PotentialDuplicateIDs, first.IncidentIDs[0])
	}
}
