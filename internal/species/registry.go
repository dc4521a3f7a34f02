// Package species verifies extracted species names against a marine
// species registry.
package species

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"horse.fit/driftnet/internal/report"
)

const (
	DefaultRegistryURL    = "https://www.marinespecies.org/rest"
	defaultRequestTimeout = 10 * time.Second
)

// Record is one registry match for a scientific name.
type Record struct {
	AphiaID        int    `json:"AphiaID"`
	ScientificName string `json:"scientificname"`
	Authority      string `json:"authority"`
	Status         string `json:"status"`
	Rank           string `json:"rank"`
	ValidName      string `json:"valid_name"`
	ValidAphiaID   int    `json:"valid_AphiaID"`
}

// Verification is the outcome of checking one species against the registry.
type Verification struct {
	Verified    bool
	MatchedName string
	AphiaID     int
	Status      string
}

// Verifier checks species names against an authority.
type Verifier interface {
	VerifySpecies(ctx context.Context, sp report.Species) (*Verification, error)
}

// RegistryClient talks to a WoRMS-compatible REST registry.
type RegistryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRegistryClient creates a registry client. An empty baseURL selects
// the public WoRMS endpoint.
func NewRegistryClient(baseURL string, httpClient *http.Client) *RegistryClient {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultRegistryURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &RegistryClient{baseURL: base, httpClient: httpClient}
}

// LookupScientificName returns registry records matching a scientific name
// exactly. A 204 from the registry means no match and yields an empty slice.
func (c *RegistryClient) LookupScientificName(ctx context.Context, name string) ([]Record, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("registry client is not initialized")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, fmt.Errorf("scientific name is required")
	}

	endpoint := fmt.Sprintf("%s/AphiaRecordsByName/%s?like=false&marine_only=true",
		c.baseURL, url.PathEscape(trimmed))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry status %d", resp.StatusCode)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}
	return records, nil
}

// VerifySpecies checks a species' scientific name against the registry.
// Species without a scientific name are reported unverified, not failed.
func (c *RegistryClient) VerifySpecies(ctx context.Context, sp report.Species) (*Verification, error) {
	if sp.ScientificName == nil || strings.TrimSpace(*sp.ScientificName) == "" {
		return &Verification{Verified: false}, nil
	}

	name := strings.TrimSpace(*sp.ScientificName)
	records, err := c.LookupScientificName(ctx, name)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if strings.EqualFold(rec.ScientificName, name) {
			return &Verification{
				Verified:    strings.EqualFold(rec.Status, "accepted"),
				MatchedName: rec.ValidName,
				AphiaID:     rec.AphiaID,
				Status:      rec.Status,
			}, nil
		}
	}
	return &Verification{Verified: false}, nil
}
