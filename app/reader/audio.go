package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-digest/app/ai"
	"github.com/lysyi3m/rss-digest/app/apperr"
	"github.com/lysyi3m/rss-digest/app/metrics"
	"github.com/lysyi3m/rss-digest/app/summary"
)

var ErrSpeechUnavailable = errors.New("speech synthesis is not configured")

// GenerateAudio renders text as speech and returns the stored audio reference.
func (s *Service) GenerateAudio(ctx context.Context, cred ai.Credential, text string) (string, error) {
	if s.synthesizer == nil || s.audioStore == nil {
		return "", ErrSpeechUnavailable
	}

	speech := summary.Sanitize(text)
	if speech == "" {
		return "", fmt.Errorf("%w: no speakable text", apperr.ErrInvalidInput)
	}

	audio, err := s.synthesizer.Synthesize(ctx, cred, speech)
	metrics.RecordSpeech(err)
	if err != nil {
		return "", err
	}

	ref, err := s.audioStore.Save(audio)
	if err != nil {
		return "", err
	}

	slog.Info("Audio generated", "ref", ref, "bytes", len(audio))
	return ref, nil
}

// GenerateArticleAudio renders the stored summary of an article and keeps the
// audio reference on the article.
func (s *Service) GenerateArticleAudio(ctx context.Context, cred ai.Credential, id string) (string, error) {
	article, err := s.GetArticle(ctx, id)
	if err != nil {
		return "", err
	}
	if article.Summary == nil || *article.Summary == "" {
		return "", fmt.Errorf("%w: article %s has no summary yet", apperr.ErrInvalidInput, id)
	}

	ref, err := s.GenerateAudio(ctx, cred, *article.Summary)
	if err != nil {
		return "", err
	}

	if err := s.articleRepo.SetAudioRef(ctx, article.ID, ref); err != nil {
		return "", err
	}
	return ref, nil
}
