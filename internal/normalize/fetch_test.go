package normalize

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchDocumentPlainText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Line one.\r\n\r\nLine two."))
	}))
	defer server.Close()

	doc, err := FetchDocument(context.Background(), server.URL, FetchOptions{})
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	if doc.Text != "Line one.\n\nLine two." {
		t.Fatalf("text = %q", doc.Text)
	}
}

func TestFetchDocumentHTML(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Seizure report</title></head><body>
			<nav>Menu Menu Menu</nav>
			<p>` + articleParagraph + `</p>
		</body></html>`))
	}))
	defer server.Close()

	doc, err := FetchDocument(context.Background(), server.URL, FetchOptions{})
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	if doc.Title != "Seizure report" {
		t.Fatalf("title = %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "detained the trawler Marbella") {
		t.Fatalf("article text missing: %q", doc.Text)
	}
	if doc.RawContent == "" {
		t.Fatalf("raw content should be retained")
	}
}

func TestFetchDocumentErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	_, err := FetchDocument(context.Background(), server.URL, FetchOptions{})
	if err == nil {
		t.Fatalf("expected error for status 410")
	}
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error should be a *FetchError, got %T", err)
	}
	if fetchErr.URL != server.URL {
		t.Fatalf("FetchError.URL = %q, want %q", fetchErr.URL, server.URL)
	}
	if !strings.Contains(err.Error(), "status 410") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchDocumentEmptyURL(t *testing.T) {
	t.Parallel()

	_, err := FetchDocument(context.Background(), "  ", FetchOptions{})
	if err == nil {
		t.Fatalf("expected error for empty URL")
	}
}
