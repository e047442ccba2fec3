package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/rss-digest/app/apperr"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Test Article | Example</title>
	<meta property="og:title" content="Main Article Title">
	<meta name="author" content="Jane Writer">
	<meta name="description" content="A short description">
	<meta property="og:site_name" content="Example News">
	<meta property="article:published_time" content="2024-03-01T09:30:00Z">
	<link rel="canonical" href="/articles/main">
</head>
<body>
	<header>
		<h1>Site Header</h1>
		<nav>Navigation</nav>
	</header>
	<main>
		<article>
			<h1>Main Article Title</h1>
			<p>This is the main content of the article. It contains several paragraphs of meaningful text that should be extracted by the readability algorithm.</p>
			<p>This is another paragraph with more content. The readability algorithm should identify this as the main content area and extract it properly.</p>
			<p>Here is some more substantial content to ensure we meet the character threshold. This paragraph adds more context and information that would be valuable to readers.</p>
		</article>
	</main>
	<aside>
		<div>Advertisement</div>
	</aside>
	<footer>
		<p>Copyright 2024</p>
	</footer>
</body>
</html>`

func TestExtractorRun(t *testing.T) {
	extractor := NewExtractor(nil, "Test", time.Second)
	pageURL, _ := url.Parse("https://example.com/articles/main?ref=home")

	result, err := extractor.Run([]byte(articleHTML), pageURL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result.Text, "main content of the article") {
		t.Errorf("Expected extracted content to contain main article text, got: %s", result.Text)
	}
	if strings.Contains(result.Text, "Advertisement") {
		t.Errorf("Expected extracted content to exclude advertisement")
	}
	if strings.Contains(result.Text, "Copyright 2024") {
		t.Errorf("Expected extracted content to exclude footer")
	}

	if result.Title != "Main Article Title" {
		t.Errorf("Expected title 'Main Article Title', got: %s", result.Title)
	}
	if result.Author != "Jane Writer" {
		t.Errorf("Expected author 'Jane Writer', got: %s", result.Author)
	}
	if result.Description != "A short description" {
		t.Errorf("Expected description, got: %s", result.Description)
	}
	if result.SiteName != "Example News" {
		t.Errorf("Expected site name 'Example News', got: %s", result.SiteName)
	}
	if result.CanonicalURL != "https://example.com/articles/main" {
		t.Errorf("Expected resolved canonical URL, got: %s", result.CanonicalURL)
	}
	expected := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	if result.PublishedAt == nil || !result.PublishedAt.Equal(expected) {
		t.Errorf("Expected published %v, got: %v", expected, result.PublishedAt)
	}
}

func TestExtractorRunRejectsShortText(t *testing.T) {
	extractor := NewExtractor(nil, "Test", time.Second)

	inputs := map[string]string{
		"empty":      "",
		"whitespace": "   \n\t ",
		"short":      "<html><body><p>Too short to be an article.</p></body></html>",
		"only nav":   "<html><body><nav>" + strings.Repeat("Menu item ", 30) + "</nav></body></html>",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := extractor.Run([]byte(input), nil); err == nil {
				t.Error("Expected error for page without usable text")
			}
		})
	}
}

func TestExtractorParagraphFallback(t *testing.T) {
	extractor := NewExtractor(nil, "Test", time.Second)

	text := extractor.paragraphs(`<div><h2>Heading</h2><ul><li><p>Nested item</p></li></ul><p>Tail &amp; end</p></div>`)

	expected := "Heading\n\nNested item\n\nTail & end"
	if text != expected {
		t.Errorf("Expected %q, got %q", expected, text)
	}
}

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articleHTML))
	})
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>Nothing here.</p></body></html>"))
	})
	mux.HandleFunc("/paper.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/paywall", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "subscribe", http.StatusPaymentRequired)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestExtractorExtract(t *testing.T) {
	server := newPageServer(t)
	extractor := NewExtractor(server.Client(), "Test", 100*time.Millisecond)

	result, err := extractor.Extract(context.Background(), server.URL+"/article")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.URL != server.URL+"/article" {
		t.Errorf("Expected URL to be recorded, got %s", result.URL)
	}

	tests := []struct {
		name   string
		path   string
		reason Reason
		class  error
	}{
		{"short page", "/short", ReasonEmptyContent, apperr.ErrNoUsableContent},
		{"pdf", "/paper.pdf", ReasonUnsupportedFormat, apperr.ErrNoUsableContent},
		{"http error", "/gone", ReasonUnreachable, apperr.ErrUnreachable},
		{"paywall", "/paywall", ReasonEmptyContent, apperr.ErrNoUsableContent},
		{"login required", "/login", ReasonEmptyContent, apperr.ErrNoUsableContent},
		{"timeout", "/slow", ReasonTimeout, apperr.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractor.Extract(context.Background(), server.URL+tt.path)

			var extractErr *ExtractionError
			if !errors.As(err, &extractErr) {
				t.Fatalf("Expected ExtractionError, got: %v", err)
			}
			if extractErr.Reason != tt.reason {
				t.Errorf("Expected reason %s, got %s", tt.reason, extractErr.Reason)
			}
			if !errors.Is(err, tt.class) {
				t.Errorf("Expected error class %v, got %v", tt.class, err)
			}
		})
	}
}

func TestExtractBatchIsolatesFailures(t *testing.T) {
	server := newPageServer(t)
	extractor := NewExtractor(server.Client(), "Test", time.Second)

	urls := []string{
		server.URL + "/article",
		server.URL + "/gone",
		"not a url",
		server.URL + "/article",
	}

	results := extractor.ExtractBatch(context.Background(), urls)
	if len(results) != len(urls) {
		t.Fatalf("Expected %d results, got %d", len(urls), len(results))
	}

	for i, result := range results {
		if result.URL != urls[i] {
			t.Errorf("Result %d: expected URL %s, got %s", i, urls[i], result.URL)
		}
	}

	if results[0].Err != nil || results[0].Content == nil {
		t.Errorf("Expected first extraction to succeed, got: %v", results[0].Err)
	}
	if results[1].Err == nil || results[2].Err == nil {
		t.Error("Expected failing URLs to report errors")
	}
	if results[3].Err != nil {
		t.Errorf("Expected last extraction to succeed despite earlier failures, got: %v", results[3].Err)
	}
}
