package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/rss-digest/app/apperr"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/summary"
)

// SettingSummaryStyle holds the style used when a request names none.
const SettingSummaryStyle = "summary.style"

func (s *Service) GetSetting(ctx context.Context, key string) (*database.Setting, error) {
	setting, err := s.settingsRepo.GetSetting(ctx, key)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, fmt.Errorf("setting %s: %w", key, apperr.ErrNotFound)
	}
	return setting, nil
}

func (s *Service) ListSettings(ctx context.Context) ([]database.Setting, error) {
	return s.settingsRepo.ListSettings(ctx)
}

// SaveSetting stores any JSON value under key. Known keys are validated.
func (s *Service) SaveSetting(ctx context.Context, key string, value json.RawMessage) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: setting key is required", apperr.ErrInvalidInput)
	}
	if !json.Valid(value) {
		return fmt.Errorf("%w: setting value must be valid JSON", apperr.ErrInvalidInput)
	}

	if key == SettingSummaryStyle {
		var name string
		if err := json.Unmarshal(value, &name); err != nil {
			return fmt.Errorf("%w: %s must be a string", apperr.ErrInvalidInput, key)
		}
		if _, err := summary.ParseStyle(name); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
	}

	return s.settingsRepo.SaveSetting(ctx, key, value)
}

// DefaultStyle reads the stored summary style, falling back to brief.
func (s *Service) DefaultStyle(ctx context.Context) summary.Style {
	setting, err := s.settingsRepo.GetSetting(ctx, SettingSummaryStyle)
	if err != nil {
		slog.Warn("Failed to read summary style setting", "error", err)
		return summary.StyleBrief
	}
	if setting == nil {
		return summary.StyleBrief
	}

	var name string
	if err := json.Unmarshal(setting.Value, &name); err != nil {
		return summary.StyleBrief
	}
	style, err := summary.ParseStyle(name)
	if err != nil {
		return summary.StyleBrief
	}
	return style
}
