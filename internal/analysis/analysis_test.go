package analysis

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseScope(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{in: "single_incident", want: ScopeSingleIncident},
		{in: " MULTIPLE_INCIDENTS ", want: ScopeMultipleIncidents},
		{in: "industry_overview", want: ScopeIndustryOverview},
		{in: "unrelated", want: ScopeUnrelated},
		{in: "incident", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseScope(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseScope(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseScope(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseScope(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestScopeValid(t *testing.T) {
	t.Parallel()

	if !ScopeSingleIncident.Valid() {
		t.Fatalf("single_incident should be valid")
	}
	if Scope("somewhat_related").Valid() {
		t.Fatalf("unknown scope should be invalid")
	}
}

func TestClassificationErrorUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("model unavailable")
	err := &ClassificationError{Err: cause}

	if !errors.Is(err, cause) {
		t.Fatalf("ClassificationError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "classification failed") {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	var target *ClassificationError
	wrapped := fmt.Errorf("submit document: %w", err)
	if !errors.As(wrapped, &target) {
		t.Fatalf("ClassificationError should survive wrapping")
	}
}

func TestExtractionErrorCarriesSpan(t *testing.T) {
	t.Parallel()

	cause := errors.New("span made no sense")

	spanned := &ExtractionError{Span: 2, Err: cause}
	if !strings.Contains(spanned.Error(), "span 2") {
		t.Fatalf("span index missing from message: %q", spanned.Error())
	}
	if !errors.Is(spanned, cause) {
		t.Fatalf("ExtractionError should unwrap to its cause")
	}

	unscoped := &ExtractionError{Span: -1, Err: cause}
	if strings.Contains(unscoped.Error(), "on span") {
		t.Fatalf("unscoped failure should not name a span: %q", unscoped.Error())
	}
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"scope":"unrelated"}`, want: `{"scope":"unrelated"}`},
		{name: "fenced", in: "```json\n{\"scope\":\"unrelated\"}\n```", want: `{"scope":"unrelated"}`},
		{name: "fenced no language", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "whitespace", in: "  {\"a\":1}  ", want: `{"a":1}`},
	}

	for _, tc := range cases {
		if got := StripCodeFence(tc.in); got != tc.want {
			t.Fatalf("%s: StripCodeFence = %q, want %q", tc.name, got, tc.want)
		}
	}
}
