package command

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReaderFetchHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html><html><head><title>Release Notes</title></head>
<body><article><h1>Release Notes</h1>
<p>The sweep job now extends deadlines instead of closing orders.</p>
<p>Upgrade is safe from any prior version.</p></article></body></html>`))
	}))
	defer srv.Close()

	reader := NewReader()
	article, err := reader.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if article.Title != "Release Notes" {
		t.Errorf("title = %q, want %q", article.Title, "Release Notes")
	}
	if !strings.Contains(article.Text, "extends deadlines") {
		t.Errorf("text missing body content: %q", article.Text)
	}
}

func TestReaderFetchPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("plain body"))
	}))
	defer srv.Close()

	reader := NewReader()
	article, err := reader.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if article.Title != srv.URL {
		t.Errorf("title = %q, want the URL", article.Title)
	}
	if article.Text != "plain body" {
		t.Errorf("text = %q", article.Text)
	}
}

func TestReaderFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	reader := NewReader()
	if _, err := reader.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for HTTP 403")
	}
}
