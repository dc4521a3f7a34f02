package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"horse.fit/driftnet/internal/pipeline"
)

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "empty uses default", raw: "", want: 25},
		{name: "valid value", raw: "10", want: 10},
		{name: "whitespace trimmed", raw: " 3 ", want: 3},
		{name: "not an integer", raw: "abc", wantErr: true},
		{name: "below minimum", raw: "0", wantErr: true},
		{name: "above maximum", raw: "101", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := parsePositiveInt(tc.raw, 25, 1, 100)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parsePositiveInt(%q) expected error, got %d", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePositiveInt(%q) unexpected error: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("parsePositiveInt(%q) = %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseIDParam(t *testing.T) {
	t.Parallel()

	e := echo.New()

	newContext := func(value string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("incident_id")
		c.SetParamValues(value)
		return c
	}

	if id, err := parseIDParam(newContext("42"), "incident_id"); err != nil || id != 42 {
		t.Fatalf("parseIDParam(42) = %d, %v; want 42, nil", id, err)
	}
	if _, err := parseIDParam(newContext(""), "incident_id"); err == nil {
		t.Fatalf("parseIDParam with empty value should fail")
	}
	if _, err := parseIDParam(newContext("-1"), "incident_id"); err == nil {
		t.Fatalf("parseIDParam with negative value should fail")
	}
	if _, err := parseIDParam(newContext("abc"), "incident_id"); err == nil {
		t.Fatalf("parseIDParam with non-numeric value should fail")
	}
}

func TestRespondSubmissionStatusCodes(t *testing.T) {
	t.Parallel()

	e := echo.New()

	cases := []struct {
		status pipeline.Status
		want   int
	}{
		{status: pipeline.StatusSuccess, want: http.StatusCreated},
		{status: pipeline.StatusDuplicateDetected, want: http.StatusOK},
		{status: pipeline.StatusUnrelatedContent, want: http.StatusOK},
		{status: pipeline.StatusFailedNormalization, want: http.StatusUnprocessableEntity},
		{status: pipeline.StatusFailedClassification, want: http.StatusUnprocessableEntity},
		{status: pipeline.StatusFailedExtraction, want: http.StatusUnprocessableEntity},
		{status: pipeline.StatusFailedLinking, want: http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/text", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := respondSubmission(c, &pipeline.Output{Status: tc.status}); err != nil {
				t.Fatalf("respondSubmission(%s) unexpected error: %v", tc.status, err)
			}
			if rec.Code != tc.want {
				t.Fatalf("respondSubmission(%s) status = %d, want %d", tc.status, rec.Code, tc.want)
			}
		})
	}
}
