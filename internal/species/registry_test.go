package species

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"horse.fit/driftnet/internal/report"
)

func strptr(s string) *string { return &s }

func TestVerifySpeciesAccepted(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/AphiaRecordsByName/Thunnus thynnus" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"AphiaID": 127029,
			"scientificname": "Thunnus thynnus",
			"authority": "(Linnaeus, 1758)",
			"status": "accepted",
			"rank": "Species",
			"valid_name": "Thunnus thynnus",
			"valid_AphiaID": 127029
		}]`))
	}))
	defer server.Close()

	client := NewRegistryClient(server.URL, server.Client())
	sp := report.Species{CommonName: "Bluefin Tuna", ScientificName: strptr("Thunnus thynnus")}

	got, err := client.VerifySpecies(context.Background(), sp)
	if err != nil {
		t.Fatalf("VerifySpecies failed: %v", err)
	}
	if !got.Verified {
		t.Fatalf("expected species to be verified")
	}
	if got.AphiaID != 127029 {
		t.Fatalf("AphiaID = %d, want 127029", got.AphiaID)
	}
}

func TestVerifySpeciesNoMatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewRegistryClient(server.URL, server.Client())
	sp := report.Species{CommonName: "Sky Trout", ScientificName: strptr("Truttus caelestis")}

	got, err := client.VerifySpecies(context.Background(), sp)
	if err != nil {
		t.Fatalf("VerifySpecies failed: %v", err)
	}
	if got.Verified {
		t.Fatalf("expected species to be unverified")
	}
}

func TestVerifySpeciesWithoutScientificName(t *testing.T) {
	t.Parallel()

	client := NewRegistryClient("http://registry.invalid", nil)
	sp := report.Species{CommonName: "Some Fish"}

	got, err := client.VerifySpecies(context.Background(), sp)
	if err != nil {
		t.Fatalf("VerifySpecies failed: %v", err)
	}
	if got.Verified {
		t.Fatalf("species without a scientific name must not verify")
	}
}

func TestLookupScientificNameErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewRegistryClient(server.URL, server.Client())
	_, err := client.LookupScientificName(context.Background(), "Thunnus thynnus")
	if err == nil {
		t.Fatalf("expected error for registry failure")
	}
}
