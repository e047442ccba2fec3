package feedlist

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeList(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestListLoadValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yml")
	writeList(t, path, `
feeds:
  - name: "Go Blog"
    url: "https://go.dev/blog/feed.atom"
  - name: "Example"
    url: " https://example.com/rss "
  - name: "Example again"
    url: "https://example.com/rss"
`)

	list := NewList(path)
	if err := list.Run(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	entries := list.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries after dedup, got %d", len(entries))
	}
	if entries[0].Name != "Go Blog" || entries[1].URL != "https://example.com/rss" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
	if list.Count() != 2 {
		t.Errorf("Expected count 2, got %d", list.Count())
	}
}

func TestListMissingFile(t *testing.T) {
	list := NewList(filepath.Join(t.TempDir(), "absent.yml"))
	if err := list.Run(); err != nil {
		t.Fatalf("Expected missing file to be ignored, got: %v", err)
	}
	if list.Count() != 0 {
		t.Errorf("Expected empty list, got %d", list.Count())
	}
}

func TestListRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"missing url", "feeds:\n  - name: A\n", "feed URL is required"},
		{"missing name", "feeds:\n  - url: https://a.com/rss\n", "feed name is required"},
		{"relative url", "feeds:\n  - name: A\n    url: /rss\n", "absolute http(s) URL"},
		{"bad yaml", "feeds: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "feeds.yml")
			writeList(t, path, tt.content)

			err := NewList(path).Run()
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Expected error containing %q, got: %v", tt.errText, err)
			}
		})
	}
}

func TestListWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yml")
	writeList(t, path, "feeds:\n  - name: A\n    url: https://a.com/rss\n")

	list := NewList(path)
	if err := list.Run(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []Entry, 4)
	done := make(chan error, 1)
	go func() {
		done <- list.Watch(ctx, func(entries []Entry) { changes <- entries })
	}()

	// Give the watcher time to register before touching the file.
	time.Sleep(200 * time.Millisecond)
	writeList(t, path, "feeds:\n  - name: A\n    url: https://a.com/rss\n  - name: B\n    url: https://b.com/rss\n")

	select {
	case entries := <-changes:
		if len(entries) != 2 || entries[1].Name != "B" {
			t.Errorf("Unexpected reloaded entries: %+v", entries)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}
