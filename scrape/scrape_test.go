package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testPage = `<!DOCTYPE html>
<html>
<head>
	<title>Test Paper Notes</title>
	<meta name="description" content="A short summary of the paper.">
	<meta name="keywords" content="attention, transformers">
</head>
<body>
	<nav>Site navigation</nav>
	<main>
		<h1>Summary</h1>
		<p>The model relies entirely on <strong>attention</strong>.</p>
	</main>
	<footer>Footer text</footer>
</body>
</html>`

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testPage))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchExtractsMainContent(t *testing.T) {
	srv := testServer(t)

	summary, markdown, err := Fetch(context.Background(), srv.Client(), srv.URL, "")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if summary.Title != "Test Paper Notes" {
		t.Fatalf("unexpected title: %q", summary.Title)
	}
	if summary.Description != "A short summary of the paper." {
		t.Fatalf("unexpected description: %q", summary.Description)
	}
	if len(summary.Keywords) != 2 {
		t.Fatalf("expected 2 keywords, got %v", summary.Keywords)
	}
	if !strings.Contains(markdown, "**attention**") {
		t.Fatalf("expected bold attention in markdown, got %q", markdown)
	}
	// Content outside <main> must not leak into the conversion.
	if strings.Contains(markdown, "Site navigation") || strings.Contains(markdown, "Footer text") {
		t.Fatalf("markdown contains content outside the main region: %q", markdown)
	}
}

func TestFetchWithExplicitSelector(t *testing.T) {
	srv := testServer(t)

	_, markdown, err := Fetch(context.Background(), srv.Client(), srv.URL, "nav")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(markdown, "Site navigation") {
		t.Fatalf("expected nav content, got %q", markdown)
	}
}

func TestFetchBadStatus(t *testing.T) {
	srv := testServer(t)

	_, _, err := Fetch(context.Background(), srv.Client(), srv.URL+"/missing", "")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestFetchNote(t *testing.T) {
	srv := testServer(t)

	markdown, err := FetchNote(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("FetchNote returned error: %v", err)
	}
	if !strings.Contains(markdown, "Summary") {
		t.Fatalf("expected note content, got %q", markdown)
	}
}
