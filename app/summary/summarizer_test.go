package summary

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/lysyi3m/rss-digest/app/ai"
	"github.com/lysyi3m/rss-digest/app/apperr"
)

type fakeCompleter struct {
	mu       sync.Mutex
	requests []ai.Request
	respond  func(req ai.Request) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, cred ai.Credential, req ai.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req)
	}
	return "A **short** summary.", nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

var headerRegex = regexp.MustCompile(`(?m)^\d+\. .*$`)

// echoHeaders answers with the numbered article headers found in the prompt.
func echoHeaders(req ai.Request) (string, error) {
	return strings.Join(headerRegex.FindAllString(req.User, -1), "\n"), nil
}

func TestSummarize(t *testing.T) {
	client := &fakeCompleter{}
	s := NewSummarizer(client, 0, 0)

	result, err := s.Summarize(context.Background(), "key", "Some article text.", Options{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Text != "A **short** summary." {
		t.Errorf("Expected raw model output, got %q", result.Text)
	}
	if result.SpeechText != "A short summary." {
		t.Errorf("Expected sanitized speech text, got %q", result.SpeechText)
	}
	if result.Truncated {
		t.Error("Expected short text not to be truncated")
	}
	if client.calls() != 1 {
		t.Fatalf("Expected 1 call, got %d", client.calls())
	}
	if req := client.requests[0]; req.MaxTokens != 300 || !strings.Contains(req.User, "Some article text.") {
		t.Errorf("Unexpected request: %+v", req)
	}
}

func TestSummarizeDetailedWithFocus(t *testing.T) {
	client := &fakeCompleter{}
	s := NewSummarizer(client, 0, 0)

	if _, err := s.SummarizeWithFocus(context.Background(), "key", "Text.", "energy prices", Options{Style: StyleDetailed}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	req := client.requests[0]
	if req.MaxTokens != 800 {
		t.Errorf("Expected detailed token limit, got %d", req.MaxTokens)
	}
	if !strings.Contains(req.User, "Focus on: energy prices.") {
		t.Errorf("Expected focus in prompt, got %q", req.User)
	}
}

func TestSummarizeRejectsEmptyInputWithoutCalling(t *testing.T) {
	client := &fakeCompleter{}
	s := NewSummarizer(client, 0, 0)

	_, err := s.Summarize(context.Background(), "key", "  \n\t ", Options{})

	var sumErr *SummarizationError
	if !errors.As(err, &sumErr) || sumErr.Reason != ReasonEmptyInput {
		t.Fatalf("Expected empty input error, got: %v", err)
	}
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Error("Expected empty input to match ErrInvalidInput")
	}

	_, err = s.SummarizeCombined(context.Background(), "key", []Source{{ID: "a", Title: "A"}, {ID: "b", Text: "   "}}, Options{})
	if !errors.As(err, &sumErr) || sumErr.Reason != ReasonEmptyInput {
		t.Fatalf("Expected empty input error for combined, got: %v", err)
	}

	if client.calls() != 0 {
		t.Errorf("Expected no AI calls, got %d", client.calls())
	}
}

func TestSummarizeRequiresCredential(t *testing.T) {
	client := &fakeCompleter{}
	s := NewSummarizer(client, 0, 0)

	_, err := s.Summarize(context.Background(), "", "Text.", Options{})

	var sumErr *SummarizationError
	if !errors.As(err, &sumErr) || sumErr.Reason != ReasonAuthFailure {
		t.Fatalf("Expected auth failure, got: %v", err)
	}
	if client.calls() != 0 {
		t.Errorf("Expected no AI calls, got %d", client.calls())
	}
}

func TestSummarizeErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		reason    Reason
		retryable bool
		class     error
	}{
		{"auth", &ai.Error{Kind: ai.KindAuth, StatusCode: 401}, ReasonAuthFailure, false, apperr.ErrAIAuth},
		{"rejected", &ai.Error{Kind: ai.KindRejected, StatusCode: 400}, ReasonRejected, false, apperr.ErrAIRejected},
		{"transient", &ai.Error{Kind: ai.KindTransient, StatusCode: 503}, ReasonTransient, true, apperr.ErrTransient},
		{"timeout", &ai.Error{Kind: ai.KindTimeout}, ReasonTimeout, true, apperr.ErrTimeout},
		{"deadline", context.DeadlineExceeded, ReasonTimeout, true, apperr.ErrTimeout},
		{"unknown", errors.New("boom"), ReasonTransient, true, apperr.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeCompleter{respond: func(ai.Request) (string, error) { return "", tt.err }}
			s := NewSummarizer(client, 0, 0)

			_, err := s.Summarize(context.Background(), "key", "Text.", Options{})

			var sumErr *SummarizationError
			if !errors.As(err, &sumErr) {
				t.Fatalf("Expected SummarizationError, got: %v", err)
			}
			if sumErr.Reason != tt.reason {
				t.Errorf("Expected reason %s, got %s", tt.reason, sumErr.Reason)
			}
			if sumErr.Retryable() != tt.retryable {
				t.Errorf("Expected retryable %v, got %v", tt.retryable, sumErr.Retryable())
			}
			if !errors.Is(err, tt.class) {
				t.Errorf("Expected error to match %v", tt.class)
			}
			if client.calls() != 1 {
				t.Errorf("Expected exactly one attempt, got %d", client.calls())
			}
		})
	}
}

func TestSummarizeTruncatesLongText(t *testing.T) {
	client := &fakeCompleter{}
	s := NewSummarizer(client, 50, 0)

	text := strings.Repeat("word ", 100)
	result, err := s.Summarize(context.Background(), "key", text, Options{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !result.Truncated {
		t.Error("Expected result to be marked truncated")
	}
	if strings.Count(client.requests[0].User, "word") > 10 {
		t.Errorf("Expected at most 10 words in prompt, got %q", client.requests[0].User)
	}
}

func TestSummarizeCombinedAttribution(t *testing.T) {
	client := &fakeCompleter{respond: echoHeaders}
	s := NewSummarizer(client, 0, 0)

	sources := []Source{
		{ID: "1", Title: "Rates rise", FeedName: "Finance Daily", Text: "Central bank raised rates."},
		{ID: "2", Title: "Empty one", FeedName: "Nowhere", Text: ""},
		{ID: "3", Title: "New rover", FeedName: "Space News", Text: "A rover landed."},
		{ID: "4", Title: "Cup final", FeedName: "Sports", Text: "The final ended 2-1."},
	}

	result, err := s.SummarizeCombined(context.Background(), "key", sources, Options{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := "1. Rates rise (Source: Finance Daily)\n2. New rover (Source: Space News)\n3. Cup final (Source: Sports)"
	if result.Text != expected {
		t.Errorf("Expected headers in input order:\n%s\ngot:\n%s", expected, result.Text)
	}
	if strings.Contains(client.requests[0].User, "Empty one") {
		t.Error("Expected sources without text to be left out")
	}
	if client.requests[0].MaxTokens != 600 {
		t.Errorf("Expected combined token limit, got %d", client.requests[0].MaxTokens)
	}
}

func TestSummarizeCombinedBudget(t *testing.T) {
	client := &fakeCompleter{}
	s := NewSummarizer(client, 300, 0)

	sources := []Source{
		{ID: "short", Title: "Short", Text: "tiny"},
		{ID: "long1", Title: "Long one", Text: strings.Repeat("x", 1000)},
		{ID: "long2", Title: "Long two", Text: strings.Repeat("z", 1000)},
	}

	result, err := s.SummarizeCombined(context.Background(), "key", sources, Options{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !result.Truncated {
		t.Error("Expected truncated result")
	}

	prompt := client.requests[0].User
	for _, header := range []string{"1. Short", "2. Long one", "3. Long two"} {
		if !strings.Contains(prompt, header) {
			t.Errorf("Expected header %q in prompt", header)
		}
	}
	if got := strings.Count(prompt, "x"); got != 148 {
		t.Errorf("Expected 148 runes of the first long article, got %d", got)
	}
	if got := strings.Count(prompt, "z"); got != 148 {
		t.Errorf("Expected 148 runes of the second long article, got %d", got)
	}
	if !strings.Contains(prompt, "tiny") {
		t.Error("Expected short article to be kept whole")
	}
}

func TestSummarizeCombinedCache(t *testing.T) {
	client := &fakeCompleter{}
	s := NewSummarizer(client, 0, 4)
	sources := []Source{{ID: "1", Title: "T", Text: "Body."}}

	for range 3 {
		if _, err := s.SummarizeCombined(context.Background(), "key", sources, Options{}); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}
	if client.calls() != 1 {
		t.Errorf("Expected cached result after first call, got %d calls", client.calls())
	}

	if _, err := s.SummarizeCombined(context.Background(), "key", sources, Options{Style: StyleDetailed}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	sources[0].Text = "Changed body."
	if _, err := s.SummarizeCombined(context.Background(), "key", sources, Options{}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if client.calls() != 3 {
		t.Errorf("Expected style and text changes to miss the cache, got %d calls", client.calls())
	}
}

// keyedCompleter accepts only one credential, like a real AI service.
type keyedCompleter struct {
	valid ai.Credential
	calls int
}

func (k *keyedCompleter) Complete(ctx context.Context, cred ai.Credential, req ai.Request) (string, error) {
	k.calls++
	if cred != k.valid {
		return "", &ai.Error{Kind: ai.KindAuth, StatusCode: 401}
	}
	return "summary", nil
}

func TestSummarizeCombinedCacheIsPerCredential(t *testing.T) {
	client := &keyedCompleter{valid: "good"}
	s := NewSummarizer(client, 0, 4)
	sources := []Source{{ID: "1", Title: "T", Text: "Body."}}

	if _, err := s.SummarizeCombined(context.Background(), "good", sources, Options{}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	result, err := s.SummarizeCombined(context.Background(), "bogus-key", sources, Options{})
	var sumErr *SummarizationError
	if !errors.As(err, &sumErr) || sumErr.Reason != ReasonAuthFailure {
		t.Fatalf("Expected auth failure for another credential, got result %q, err %v", result.Text, err)
	}
	if client.calls != 2 {
		t.Errorf("Expected the other credential to reach the AI service, got %d calls", client.calls)
	}

	if _, err := s.SummarizeCombined(context.Background(), "good", sources, Options{}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("Expected the original credential to hit the cache, got %d calls", client.calls)
	}
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name     string
		lengths  []int
		budget   int
		expected []int
	}{
		{"fits", []int{10, 20}, 100, []int{10, 20}},
		{"even split", []int{100, 100}, 50, []int{25, 25}},
		{"redistributes", []int{10, 100, 100}, 90, []int{10, 40, 40}},
		{"remainder goes first", []int{100, 100, 100}, 10, []int{4, 3, 3}},
		{"zero budget", []int{5}, 0, []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := allocate(tt.lengths, tt.budget)
			for i := range tt.expected {
				if got[i] != tt.expected[i] {
					t.Errorf("Expected %v, got %v", tt.expected, got)
					break
				}
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	text, cut := truncate("hello world again", 13)
	if !cut || text != "hello world" {
		t.Errorf("Expected cut at word boundary, got %q (%v)", text, cut)
	}

	text, cut = truncate("ünïcödé", 3)
	if !cut || utf8.RuneCountInString(text) != 3 {
		t.Errorf("Expected 3 runes, got %q", text)
	}

	text, cut = truncate("short", 10)
	if cut || text != "short" {
		t.Errorf("Expected untouched text, got %q", text)
	}
}

func TestParseStyle(t *testing.T) {
	if style, err := ParseStyle(""); err != nil || style != StyleBrief {
		t.Errorf("Expected brief default, got %s, %v", style, err)
	}
	if style, err := ParseStyle("Detailed"); err != nil || style != StyleDetailed {
		t.Errorf("Expected detailed, got %s, %v", style, err)
	}
	if _, err := ParseStyle("epic"); err == nil {
		t.Error("Expected error for unknown style")
	}
}
