// Package analysisschema validates the JSON documents returned by the
// language-model analysis stages before they are persisted.
package analysisschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/driftnet/internal/report"
)

//go:embed scope_classification.schema.json
var scopeSchemaJSON string

//go:embed incident_extraction.schema.json
var incidentSchemaJSON string

//go:embed overview_extraction.schema.json
var overviewSchemaJSON string

// ScopeClassification is the classifier's verdict on a document.
type ScopeClassification struct {
	Scope      string  `json:"scope"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

const (
	scopeSchemaName    = "scope_classification.schema.json"
	incidentSchemaName = "incident_extraction.schema.json"
	overviewSchemaName = "overview_extraction.schema.json"
)

// ValidateScopePayload checks a classifier response against the scope schema.
func ValidateScopePayload(payload json.RawMessage) (*ScopeClassification, error) {
	value, err := validateAgainst(scopeSchemaName, payload)
	if err != nil {
		return nil, err
	}

	var out ScopeClassification
	if err := remarshal(value, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Scope) == "" {
		return nil, fmt.Errorf("scope must not be empty")
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v is outside [0, 1]", out.Confidence)
	}
	return &out, nil
}

// ValidateIncidentPayload checks an extractor response against the incident schema.
func ValidateIncidentPayload(payload json.RawMessage) (*report.IncidentExtraction, error) {
	value, err := validateAgainst(incidentSchemaName, payload)
	if err != nil {
		return nil, err
	}

	var out report.IncidentExtraction
	if err := remarshal(value, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Description) == "" {
		return nil, fmt.Errorf("description must not be empty")
	}
	for i, c := range out.Classifications {
		if strings.TrimSpace(c.IUUType) == "" {
			return nil, fmt.Errorf("iuuClassifications[%d].iuuType must not be empty", i)
		}
		if strings.TrimSpace(c.IUUTypeReason) == "" {
			return nil, fmt.Errorf("iuuClassifications[%d].iuuTypeReason must not be empty", i)
		}
	}
	return &out, nil
}

// ValidateOverviewPayload checks an extractor response against the overview schema.
func ValidateOverviewPayload(payload json.RawMessage) (*report.OverviewExtraction, error) {
	value, err := validateAgainst(overviewSchemaName, payload)
	if err != nil {
		return nil, err
	}

	var out report.OverviewExtraction
	if err := remarshal(value, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Summary) == "" {
		return nil, fmt.Errorf("summary must not be empty")
	}
	return &out, nil
}

func validateAgainst(name string, payload json.RawMessage) (any, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema(name)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return value, nil
}

func remarshal(value any, target any) error {
	normalized, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("normalize payload JSON: %w", err)
	}
	if err := json.Unmarshal(normalized, target); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func loadSchema(name string) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		sources := map[string]string{
			scopeSchemaName:    scopeSchemaJSON,
			incidentSchemaName: incidentSchemaJSON,
			overviewSchemaName: overviewSchemaJSON,
		}

		compiled = make(map[string]*jsonschema.Schema, len(sources))
		for resource, source := range sources {
			if err := compiler.AddResource(resource, strings.NewReader(source)); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", resource, err)
				return
			}
		}
		for resource := range sources {
			schema, err := compiler.Compile(resource)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", resource, err)
				return
			}
			compiled[resource] = schema
		}
	})

	if compileErr != nil {
		return nil, compileErr
	}
	schema, ok := compiled[name]
	if !ok || schema == nil {
		return nil, fmt.Errorf("schema %s not initialized", name)
	}
	return schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}
