package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lysyi3m/rss-digest/app/ai"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "tts-1"
	defaultVoice   = "alloy"
	defaultTimeout = 2 * time.Minute
	maxAudioSize   = 50 << 20
	maxErrorBody   = 4 << 10
)

var ErrEmptyText = errors.New("no text to synthesize")

type Config struct {
	BaseURL string
	Model   string
	Voice   string
	Timeout time.Duration
}

// Synthesizer renders text as MP3 through an OpenAI-compatible speech API.
type Synthesizer struct {
	cfg        Config
	httpClient *http.Client
	chunkSize  int
}

type Option func(*Synthesizer)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Synthesizer) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithChunkSize overrides MaxChunkLength.
func WithChunkSize(size int) Option {
	return func(s *Synthesizer) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

func NewSynthesizer(cfg Config, opts ...Option) *Synthesizer {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	s := &Synthesizer{
		cfg:        cfg,
		httpClient: &http.Client{},
		chunkSize:  MaxChunkLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize returns MP3 audio for text. Long text is synthesized chunk by
// chunk and the MP3 frames are concatenated in order.
func (s *Synthesizer) Synthesize(ctx context.Context, cred ai.Credential, text string) ([]byte, error) {
	chunks := SplitChunks(text, s.chunkSize)
	if len(chunks) == 0 {
		return nil, ErrEmptyText
	}
	if cred.Empty() {
		return nil, &ai.Error{Kind: ai.KindAuth, Message: "credential required"}
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		data, err := s.synthesizeChunk(ctx, cred, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to synthesize chunk %d of %d: %w", i+1, len(chunks), err)
		}
		audio.Write(data)
	}

	slog.Debug("Speech synthesized", "chunks", len(chunks), "bytes", audio.Len())
	return audio.Bytes(), nil
}

func (s *Synthesizer) synthesizeChunk(ctx context.Context, cred ai.Credential, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	encoded, err := json.Marshal(speechRequest{
		Model:          s.cfg.Model,
		Input:          text,
		Voice:          s.cfg.Voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, &ai.Error{Kind: ai.KindRejected, Message: "encode body", Err: err}
	}

	endpoint, err := url.JoinPath(s.cfg.BaseURL, "audio/speech")
	if err != nil {
		return nil, &ai.Error{Kind: ai.KindRejected, Message: "build url", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, &ai.Error{Kind: ai.KindRejected, Message: "new request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(string(cred)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &ai.Error{Kind: ai.TransportKind(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ai.Error{
			Kind:       ai.KindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    ai.ErrorMessage(body),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSize))
	if err != nil {
		return nil, &ai.Error{Kind: ai.TransportKind(err), Message: "read audio", Err: err}
	}
	if len(data) == 0 {
		return nil, &ai.Error{Kind: ai.KindTransient, Message: "empty audio"}
	}
	return data, nil
}
