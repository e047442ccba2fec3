package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/lysyi3m/rss-digest/app/ai"
)

// DefaultContextBudget is the number of article runes sent to the AI service
// when no budget is configured.
const DefaultContextBudget = 24000

// Completer is the part of the AI client the summarizer needs.
type Completer interface {
	Complete(ctx context.Context, cred ai.Credential, req ai.Request) (string, error)
}

// Source is one article taking part in a combined summary.
type Source struct {
	ID       string
	Title    string
	FeedName string
	Text     string
}

type Result struct {
	Text       string `json:"text"`
	SpeechText string `json:"speech_text"`
	Truncated  bool   `json:"truncated"`
}

type Summarizer struct {
	client Completer
	budget int
	cache  *lru.Cache[string, Result]
}

func NewSummarizer(client Completer, budget, cacheSize int) *Summarizer {
	if budget <= 0 {
		budget = DefaultContextBudget
	}

	s := &Summarizer{
		client: client,
		budget: budget,
	}

	if cacheSize > 0 {
		cache, err := lru.New[string, Result](cacheSize)
		if err != nil {
			slog.Warn("Failed to create summary cache", "size", cacheSize, "error", err)
		} else {
			s.cache = cache
		}
	}

	return s
}

func (s *Summarizer) Summarize(ctx context.Context, cred ai.Credential, text string, opts Options) (Result, error) {
	return s.SummarizeWithFocus(ctx, cred, text, "", opts)
}

// SummarizeWithFocus summarizes text while steering the model toward focus.
func (s *Summarizer) SummarizeWithFocus(ctx context.Context, cred ai.Credential, text, focus string, opts Options) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, emptyInput("no text to summarize")
	}
	if cred.Empty() {
		return Result{}, &SummarizationError{Reason: ReasonAuthFailure, Err: fmt.Errorf("credential required")}
	}

	style := opts.style()
	body, truncated := truncate(text, s.budget)

	output, err := s.client.Complete(ctx, cred, ai.Request{
		System:      systemPrompt,
		User:        singlePrompt(body, strings.TrimSpace(focus), style),
		MaxTokens:   maxTokens(style, false),
		Temperature: 0.3,
	})
	if err != nil {
		return Result{}, classify(err)
	}

	return newResult(output, truncated), nil
}

// SummarizeCombined produces one summary over several articles, each
// introduced by a numbered header naming its title and feed.
func (s *Summarizer) SummarizeCombined(ctx context.Context, cred ai.Credential, sources []Source, opts Options) (Result, error) {
	usable := make([]Source, 0, len(sources))
	for _, src := range sources {
		if text := strings.TrimSpace(src.Text); text != "" {
			src.Text = text
			usable = append(usable, src)
		}
	}
	if len(usable) == 0 {
		return Result{}, emptyInput("no articles with text to summarize")
	}
	if cred.Empty() {
		return Result{}, &SummarizationError{Reason: ReasonAuthFailure, Err: fmt.Errorf("credential required")}
	}

	style := opts.style()
	key := cacheKey(cred, style, usable)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			slog.Debug("Combined summary served from cache", "articles", len(usable))
			return cached, nil
		}
	}

	lengths := make([]int, len(usable))
	for i, src := range usable {
		lengths[i] = utf8.RuneCountInString(src.Text)
	}
	shares := allocate(lengths, s.budget)

	sections := make([]string, len(usable))
	truncated := false
	for i, src := range usable {
		body, cut := truncate(src.Text, shares[i])
		truncated = truncated || cut
		sections[i] = sectionHeader(i+1, src) + "\n" + body
	}

	output, err := s.client.Complete(ctx, cred, ai.Request{
		System:      systemPrompt,
		User:        combinedPrompt(sections, style),
		MaxTokens:   maxTokens(style, true),
		Temperature: 0.3,
	})
	if err != nil {
		return Result{}, classify(err)
	}

	result := newResult(output, truncated)
	if s.cache != nil {
		s.cache.Add(key, result)
	}
	return result, nil
}

func newResult(output string, truncated bool) Result {
	text := strings.TrimSpace(output)
	return Result{
		Text:       text,
		SpeechText: Sanitize(text),
		Truncated:  truncated,
	}
}

// cacheKey scopes entries to the credential so a cached summary is only
// served to callers whose key already produced it.
func cacheKey(cred ai.Credential, style Style, sources []Source) string {
	var b strings.Builder
	credSum := sha256.Sum256([]byte(cred))
	b.WriteString(hex.EncodeToString(credSum[:8]))
	b.WriteByte('|')
	b.WriteString(string(style))
	for _, src := range sources {
		sum := sha256.Sum256([]byte(src.Title + "\x00" + src.FeedName + "\x00" + src.Text))
		b.WriteByte('|')
		b.WriteString(src.ID)
		b.WriteByte(':')
		b.WriteString(hex.EncodeToString(sum[:8]))
	}
	return b.String()
}
