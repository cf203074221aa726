package command

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
	maxReadSize = 50 * 1024 // 50KB text output
	readTimeout = 30 * time.Second
)

// Article is the readable extract of a fetched page.
type Article struct {
	Title string
	Text  string
}

// Reader fetches a URL and extracts its readable text.
type Reader struct {
	Client *http.Client
}

// NewReader creates a Reader with a default HTTP client.
func NewReader() *Reader {
	return &Reader{Client: &http.Client{Timeout: readTimeout}}
}

// Fetch downloads rawURL and runs readability extraction on HTML pages.
// Non-HTML responses come back as raw truncated text.
func (r *Reader) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("read: invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	req.Header.Set("User-Agent", "kaidibot/1.0")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("read: HTTP %d", resp.StatusCode)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxReadSize))
		return &Article{Title: rawURL, Text: string(body)}, nil
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return nil, fmt.Errorf("read: parse: %w", err)
	}

	var textBuf bytes.Buffer
	if err := article.RenderText(&textBuf); err != nil {
		return nil, fmt.Errorf("read: render: %w", err)
	}
	text := textBuf.String()
	if len(text) > maxReadSize {
		text = text[:maxReadSize] + "\n... [truncated]"
	}
	return &Article{Title: article.Title(), Text: text}, nil
}
