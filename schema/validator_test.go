package analysisschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateScopePayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"scope":"single_incident",
		"confidence":0.92,
		"reasoning":"The article describes one seizure of a trawler."
	}`)

	out, err := ValidateScopePayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if out.Scope != "single_incident" {
		t.Fatalf("expected scope=single_incident, got %q", out.Scope)
	}
	if out.Confidence != 0.92 {
		t.Fatalf("expected confidence 0.92, got %v", out.Confidence)
	}
}

func TestValidateScopePayload_MissingConfidence(t *testing.T) {
	payload := json.RawMessage(`{"scope":"unrelated"}`)

	_, err := ValidateScopePayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for missing confidence")
	}
}

func TestValidateScopePayload_ConfidenceOutOfRange(t *testing.T) {
	payload := json.RawMessage(`{"scope":"unrelated","confidence":1.4}`)

	_, err := ValidateScopePayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for confidence above 1")
	}
}

func TestValidateScopePayload_UnknownScope(t *testing.T) {
	payload := json.RawMessage(`{"scope":"maybe_related","confidence":0.5}`)

	_, err := ValidateScopePayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for unknown scope value")
	}
}

func TestValidateScopePayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"scope":"unrelated","confidence":0.9} {"scope":"unrelated","confidence":0.9}`)

	_, err := ValidateScopePayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for trailing content")
	}
}

func TestValidateIncidentPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"description":"Trawler detained for fishing in a closed area off Ghana.",
		"speciesInvolved":[{"commonName":"Atlantic Sardine"}],
		"productsInvolved":[],
		"iuuClassifications":[
			{"iuuType":"Illegal Fishing","iuuTypeReason":"Fishing in closed areas."}
		],
		"eventData":{
			"eventCategory":"Seizure",
			"eventDate":"2024-03-01",
			"eventLocation":"Gulf of Guinea",
			"resolution":"Vessel Detained"
		},
		"catchSourceInformation":{"vesselName":"F/V Marbella"}
	}`)

	out, err := ValidateIncidentPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if out.VesselName() != "F/V Marbella" {
		t.Fatalf("expected vessel name F/V Marbella, got %q", out.VesselName())
	}
	if out.EventDate() != "2024-03-01" {
		t.Fatalf("expected event date 2024-03-01, got %q", out.EventDate())
	}
	if len(out.Classifications) != 1 {
		t.Fatalf("expected 1 classification, got %d", len(out.Classifications))
	}
}

func TestValidateIncidentPayload_MissingClassification(t *testing.T) {
	payload := json.RawMessage(`{
		"description":"Some incident.",
		"speciesInvolved":[],
		"productsInvolved":[],
		"iuuClassifications":[]
	}`)

	_, err := ValidateIncidentPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for empty classifications")
	}
}

func TestValidateIncidentPayload_WhitespaceDescription(t *testing.T) {
	payload := json.RawMessage(`{
		"description":"   ",
		"speciesInvolved":[],
		"productsInvolved":[],
		"iuuClassifications":[
			{"iuuType":"Other","iuuTypeReason":"Unclear."}
		]
	}`)

	_, err := ValidateIncidentPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for whitespace-only description")
	}
	if !strings.Contains(err.Error(), "description must not be empty") {
		t.Fatalf("expected description semantic error, got: %v", err)
	}
}

func TestValidateOverviewPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"species":[{"commonName":"Bluefin Tuna"}],
		"countries":["Japan","Spain"],
		"companies":[],
		"incidents":[],
		"summary":"Overview of bluefin quota pressure in 2024."
	}`)

	out, err := ValidateOverviewPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if len(out.Countries) != 2 {
		t.Fatalf("expected 2 countries, got %d", len(out.Countries))
	}
}

func TestValidateOverviewPayload_MissingSummary(t *testing.T) {
	payload := json.RawMessage(`{
		"species":[],
		"countries":[],
		"companies":[],
		"incidents":[]
	}`)

	_, err := ValidateOverviewPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for missing summary")
	}
}
