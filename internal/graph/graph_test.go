package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"horse.fit/driftnet/internal/audit"
	"horse.fit/driftnet/internal/db"
)

func TestPartialLinkErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := &PartialLinkError{
		IncidentID:  7,
		SourceID:    12,
		ForwardDone: true,
		Err:         cause,
	}

	msg := err.Error()
	if !strings.Contains(msg, "incident=7") || !strings.Contains(msg, "source=12") {
		t.Fatalf("message missing link identity: %q", msg)
	}
	if !strings.Contains(msg, "forward=true") || !strings.Contains(msg, "reverse=false") {
		t.Fatalf("message missing direction state: %q", msg)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("PartialLinkError should unwrap to its cause")
	}
}

type callLog struct {
	events []string
}

func (l *callLog) add(format string, args ...any) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

// queryEvent collapses a link statement to a short label so tests can
// assert the write sequence without matching whitespace.
func queryEvent(q string) string {
	flat := strings.Join(strings.Fields(q), " ")
	switch {
	case strings.HasPrefix(flat, "INSERT INTO iuu.incident_sources"):
		return "insert incident_sources"
	case strings.HasPrefix(flat, "INSERT INTO iuu.source_incidents"):
		return "insert source_incidents"
	case strings.HasPrefix(flat, "DELETE FROM iuu.incident_sources"):
		return "delete incident_sources"
	case strings.HasPrefix(flat, "DELETE FROM iuu.source_incidents"):
		return "delete source_incidents"
	}
	return flat
}

type fakeExec struct {
	log  *callLog
	fail string
	zero string
}

func (f *fakeExec) Exec(_ context.Context, query string, _ ...any) (db.CommandTag, error) {
	event := queryEvent(query)
	f.log.add("%s", event)
	if f.fail != "" && strings.Contains(event, f.fail) {
		return db.CommandTag{}, errors.New("connection reset")
	}
	if f.zero != "" && strings.Contains(event, f.zero) {
		return db.NewCommandTag(0), nil
	}
	return db.NewCommandTag(1), nil
}

type fakeLinkStore struct {
	incident *db.Incident
	source   *db.Source
	linked   []int64
	matching []db.Incident
	log      *callLog
}

func (f *fakeLinkStore) GetIncident(_ context.Context, incidentID int64) (*db.Incident, error) {
	if f.incident == nil || f.incident.IncidentID != incidentID {
		return nil, db.ErrNoRows
	}
	return f.incident, nil
}

func (f *fakeLinkStore) GetSource(_ context.Context, sourceID int64) (*db.Source, error) {
	if f.source == nil || f.source.SourceID != sourceID {
		return nil, db.ErrNoRows
	}
	return f.source, nil
}

func (f *fakeLinkStore) SetPrimarySource(_ context.Context, incidentID int64, sourceID *int64) error {
	if sourceID == nil {
		f.log.add("set primary none")
	} else {
		f.log.add("set primary %d", *sourceID)
	}
	if f.incident != nil && f.incident.IncidentID == incidentID {
		f.incident.PrimarySourceID = sourceID
	}
	return nil
}

func (f *fakeLinkStore) SoftDeleteIncident(_ context.Context, incidentID int64) error {
	f.log.add("soft delete %d", incidentID)
	return nil
}

func (f *fakeLinkStore) LinkedSourceIDs(_ context.Context, _ int64) ([]int64, error) {
	return f.linked, nil
}

func (f *fakeLinkStore) LinkedIncidentIDs(_ context.Context, _ int64) ([]int64, error) {
	return f.linked, nil
}

func (f *fakeLinkStore) IncidentsMatching(_ context.Context, _ []byte, _ string, _ int) ([]db.Incident, error) {
	return f.matching, nil
}

type fakeRecorder struct {
	log *callLog
}

func (f *fakeRecorder) Record(_ context.Context, entry audit.Entry) error {
	f.log.add("audit %s", entry.Action)
	return nil
}

func newTestGraph(st *fakeLinkStore, exec *fakeExec) (*Graph, *callLog) {
	log := &callLog{}
	st.log = log
	exec.log = log
	return &Graph{
		pool:  exec,
		store: st,
		trail: &fakeRecorder{log: log},
	}, log
}

func assertEvents(t *testing.T, log *callLog, want []string) {
	t.Helper()
	if len(log.events) != len(want) {
		t.Fatalf("events = %v, want %v", log.events, want)
	}
	for i := range want {
		if log.events[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q (all: %v)", i, log.events[i], want[i], log.events)
		}
	}
}

func TestAttachSourceLinksBothDirections(t *testing.T) {
	t.Parallel()

	st := &fakeLinkStore{
		incident: &db.Incident{IncidentID: 7},
		source:   &db.Source{SourceID: 12},
	}
	g, log := newTestGraph(st, &fakeExec{})

	if err := g.AttachSource(context.Background(), 7, 12, true); err != nil {
		t.Fatalf("AttachSource: %v", err)
	}

	assertEvents(t, log, []string{
		"insert incident_sources",
		"insert source_incidents",
		"set primary 12",
		"audit attach_source",
	})
}

func TestAttachSourceAlreadyLinkedSkipsAudit(t *testing.T) {
	t.Parallel()

	st := &fakeLinkStore{
		incident: &db.Incident{IncidentID: 7},
		source:   &db.Source{SourceID: 12},
	}
	g, log := newTestGraph(st, &fakeExec{zero: "insert incident_sources"})

	if err := g.AttachSource(context.Background(), 7, 12, false); err != nil {
		t.Fatalf("AttachSource: %v", err)
	}

	assertEvents(t, log, []string{
		"insert incident_sources",
		"insert source_incidents",
	})
}

func TestAttachSourceReverseFailureReportsPartialLink(t *testing.T) {
	t.Parallel()

	st := &fakeLinkStore{
		incident: &db.Incident{IncidentID: 7},
		source:   &db.Source{SourceID: 12},
	}
	g, _ := newTestGraph(st, &fakeExec{fail: "insert source_incidents"})

	err := g.AttachSource(context.Background(), 7, 12, false)

	var partial *PartialLinkError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialLinkError, got %v", err)
	}
	if !partial.ForwardDone || partial.ReverseDone {
		t.Fatalf("partial link state = forward %t reverse %t, want forward only",
			partial.ForwardDone, partial.ReverseDone)
	}
}

func TestAttachSourceUnknownIncident(t *testing.T) {
	t.Parallel()

	st := &fakeLinkStore{source: &db.Source{SourceID: 12}}
	g, log := newTestGraph(st, &fakeExec{})

	err := g.AttachSource(context.Background(), 7, 12, false)
	if !errors.Is(err, db.ErrNoRows) {
		t.Fatalf("expected no-rows error, got %v", err)
	}
	if len(log.events) != 0 {
		t.Fatalf("no writes expected, got %v", log.events)
	}
}

func TestDetachSourcePromotesNextPrimary(t *testing.T) {
	t.Parallel()

	detached := int64(12)
	st := &fakeLinkStore{
		incident: &db.Incident{IncidentID: 7, PrimarySourceID: &detached},
		linked:   []int64{30},
	}
	g, log := newTestGraph(st, &fakeExec{})

	if err := g.DetachSource(context.Background(), 7, 12); err != nil {
		t.Fatalf("DetachSource: %v", err)
	}

	assertEvents(t, log, []string{
		"delete incident_sources",
		"delete source_incidents",
		"set primary 30",
		"audit detach_source",
	})
}

func TestDetachSourceClearsPrimaryWhenNoneRemain(t *testing.T) {
	t.Parallel()

	detached := int64(12)
	st := &fakeLinkStore{
		incident: &db.Incident{IncidentID: 7, PrimarySourceID: &detached},
	}
	g, log := newTestGraph(st, &fakeExec{})

	if err := g.DetachSource(context.Background(), 7, 12); err != nil {
		t.Fatalf("DetachSource: %v", err)
	}

	assertEvents(t, log, []string{
		"delete incident_sources",
		"delete source_incidents",
		"set primary none",
		"audit detach_source",
	})
}

func TestDetachSourceKeepsUnrelatedPrimary(t *testing.T) {
	t.Parallel()

	primary := int64(99)
	st := &fakeLinkStore{
		incident: &db.Incident{IncidentID: 7, PrimarySourceID: &primary},
		linked:   []int64{30},
	}
	g, log := newTestGraph(st, &fakeExec{})

	if err := g.DetachSource(context.Background(), 7, 12); err != nil {
		t.Fatalf("DetachSource: %v", err)
	}

	for _, event := range log.events {
		if strings.HasPrefix(event, "set primary") {
			t.Fatalf("primary should be untouched, got %v", log.events)
		}
	}
	if st.incident.PrimarySourceID == nil || *st.incident.PrimarySourceID != 99 {
		t.Fatalf("primary source changed: %v", st.incident.PrimarySourceID)
	}
}

func TestDetachSourceUnknownLink(t *testing.T) {
	t.Parallel()

	st := &fakeLinkStore{incident: &db.Incident{IncidentID: 7}}
	g, log := newTestGraph(st, &fakeExec{zero: "delete incident_sources"})

	err := g.DetachSource(context.Background(), 7, 12)
	if !errors.Is(err, db.ErrNoRows) {
		t.Fatalf("expected no-rows error, got %v", err)
	}

	assertEvents(t, log, []string{"delete incident_sources"})
}

func TestDeleteIncidentDetachesBeforeDelete(t *testing.T) {
	t.Parallel()

	primary := int64(12)
	st := &fakeLinkStore{
		incident: &db.Incident{IncidentID: 7, PrimarySourceID: &primary},
		linked:   []int64{12, 30},
	}
	g, log := newTestGraph(st, &fakeExec{})

	if err := g.DeleteIncident(context.Background(), 7); err != nil {
		t.Fatalf("DeleteIncident: %v", err)
	}

	assertEvents(t, log, []string{
		"set primary none",
		"delete incident_sources",
		"delete source_incidents",
		"delete source_incidents",
		"soft delete 7",
	})
}

func TestDeleteIncidentReverseFailureReportsPartialLink(t *testing.T) {
	t.Parallel()

	st := &fakeLinkStore{
		incident: &db.Incident{IncidentID: 7},
		linked:   []int64{12},
	}
	g, _ := newTestGraph(st, &fakeExec{fail: "delete source_incidents"})

	err := g.DeleteIncident(context.Background(), 7)

	var partial *PartialLinkError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialLinkError, got %v", err)
	}
	if partial.SourceID != 12 {
		t.Fatalf("partial link source = %d, want 12", partial.SourceID)
	}
}

func TestFindPotentialDuplicatesDelegatesToStore(t *testing.T) {
	t.Parallel()

	st := &fakeLinkStore{
		matching: []db.Incident{{IncidentID: 3}, {IncidentID: 5}},
	}
	g, _ := newTestGraph(st, &fakeExec{})

	got, err := g.FindPotentialDuplicates(context.Background(), []byte{0x1}, "saiko maru", 0)
	if err != nil {
		t.Fatalf("FindPotentialDuplicates: %v", err)
	}
	if len(got) != 2 || got[0].IncidentID != 3 || got[1].IncidentID != 5 {
		t.Fatalf("unexpected matches: %+v", got)
	}
}
