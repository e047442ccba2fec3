package speech

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var ErrInvalidName = errors.New("invalid audio file name")

var audioNameRegex = regexp.MustCompile(`^summary_[0-9_]+\.mp3$`)

// AudioStore keeps generated audio files in a single directory. Files are
// referenced by their base name.
type AudioStore struct {
	dir string
	now func() time.Time
}

func NewAudioStore(dir string) (*AudioStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}
	return &AudioStore{dir: dir, now: time.Now}, nil
}

func (s *AudioStore) Dir() string {
	return s.dir
}

// Save writes data to a new summary_<timestamp>.mp3 file and returns its name.
func (s *AudioStore) Save(data []byte) (string, error) {
	base := "summary_" + s.now().Format("20060102_150405")

	for attempt := 0; attempt < 100; attempt++ {
		name := base + ".mp3"
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d.mp3", base, attempt)
		}

		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create audio file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("failed to write audio file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close audio file: %w", err)
		}
		return name, nil
	}

	return "", fmt.Errorf("failed to allocate audio file name for %s", base)
}

// Path resolves a name returned by Save. Names that could escape the
// directory are rejected.
func (s *AudioStore) Path(name string) (string, error) {
	if !audioNameRegex.MatchString(name) {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
