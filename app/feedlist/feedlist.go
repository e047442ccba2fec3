// Package feedlist reads the optional YAML list of feeds registered at
// startup and reloads it when the file changes.
package feedlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const debounceInterval = 500 * time.Millisecond

type Entry struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type file struct {
	Feeds []Entry `yaml:"feeds"`
}

type List struct {
	path    string
	entries []Entry
	mu      sync.RWMutex
}

func NewList(path string) *List {
	return &List{path: path}
}

func (l *List) Path() string {
	return l.path
}

// Run loads the list. A missing file is not an error and leaves the list empty.
func (l *List) Run() error {
	entries, err := l.load()
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	slog.Debug("Feed list loaded", "path", l.path, "feeds", len(entries))
	return nil
}

func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

func (l *List) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Watch reloads the list whenever its file is written or replaced and passes
// the new entries to onChange. A file that fails to parse keeps the previous
// entries. Watch blocks until ctx is done.
func (l *List) Watch(ctx context.Context, onChange func([]Entry)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file instead of writing it, so watch the directory.
	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(l.path)
	var debounce *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op == fsnotify.Chmod {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			if err := l.Run(); err != nil {
				slog.Warn("Feed list reload failed, keeping previous list", "path", l.path, "error", err)
				continue
			}
			slog.Info("Feed list reloaded", "path", l.path, "feeds", l.Count())
			if onChange != nil {
				onChange(l.Entries())
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Feed list watcher error", "error", err)
		}
	}
}

func (l *List) load() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var parsed file
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	seen := make(map[string]bool, len(parsed.Feeds))
	entries := make([]Entry, 0, len(parsed.Feeds))
	for i, entry := range parsed.Feeds {
		entry.Name = strings.TrimSpace(entry.Name)
		entry.URL = strings.TrimSpace(entry.URL)

		if err := validateEntry(entry); err != nil {
			return nil, fmt.Errorf("invalid feed at index %d: %w", i, err)
		}
		if seen[entry.URL] {
			continue
		}
		seen[entry.URL] = true
		entries = append(entries, entry)
	}

	return entries, nil
}

func validateEntry(entry Entry) error {
	requiredFields := map[string]string{
		"feed name": entry.Name,
		"feed URL":  entry.URL,
	}
	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	u, err := url.Parse(entry.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("feed URL must be an absolute http(s) URL: %s", entry.URL)
	}
	return nil
}
