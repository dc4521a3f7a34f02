package normalize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	DefaultFetchTimeout  = 12 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024

	defaultUserAgent = "driftnet/1.0 (+https://horse.fit/driftnet)"
)

// FetchError reports a document that could not be retrieved or reduced
// to usable text. The URL names the failing page.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// Document is the normalized form of a fetched or submitted source.
type Document struct {
	URL        string
	Title      string
	RawContent string
	Text       string
}

// FetchOptions controls HTTP behavior for document fetching.
type FetchOptions struct {
	Timeout       time.Duration
	BodyByteLimit int64
	UserAgent     string
	HTTPClient    *http.Client
}

// FetchDocument retrieves a URL and extracts normalized text content.
// Extraction tries the staged HTML filter first and falls back to
// readability when the filter yields too little text.
func FetchDocument(ctx context.Context, pageURL string, opts FetchOptions) (*Document, error) {
	page := strings.TrimSpace(pageURL)
	if page == "" {
		return nil, fmt.Errorf("URL is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	bodyLimit := opts.BodyByteLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyByteLimit
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return nil, &FetchError{URL: page, Err: fmt.Errorf("build request: %w", err)}
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: page, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: page, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return nil, &FetchError{URL: page, Err: fmt.Errorf("read body: %w", err)}
	}

	raw := string(body)

	contentType := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	if strings.HasPrefix(contentType, "text/plain") {
		text := CleanText(raw)
		if text == "" {
			return nil, &FetchError{URL: page, Err: fmt.Errorf("fetched document is empty")}
		}
		return &Document{URL: page, RawContent: raw, Text: text}, nil
	}

	doc := &Document{
		URL:        page,
		Title:      DocumentTitle(raw),
		RawContent: raw,
	}

	doc.Text = ExtractText(raw)
	if VisibleLength(doc.Text) < MinContentLength {
		if fallback, err := readabilityText(body, page); err == nil && fallback != "" {
			doc.Text = fallback
		}
	}
	if doc.Text == "" {
		doc.Text = doc.Title
	}
	if doc.Text == "" {
		return nil, &FetchError{URL: page, Err: fmt.Errorf("extracted empty content")}
	}

	return doc, nil
}

func readabilityText(body []byte, page string) (string, error) {
	pageURL, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := CleanText(renderedText.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	return text, nil
}
