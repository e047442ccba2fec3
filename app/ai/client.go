package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	defaultHTTPTimeout = 60 * time.Second
	maxErrorBody       = 4 << 10
)

// Config captures the runtime settings required to talk to the AI service.
type Config struct {
	BaseURL       string
	Model         string
	Timeout       time.Duration
	RatePerSecond float64 // 0 disables client-side limiting
}

// Client talks to an OpenAI-compatible chat completions API. It does not
// retry; callers decide what to do with transient failures.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}

	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
	if cfg.RatePerSecond > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Request is a single prompt exchange.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends one chat completion and returns the generated text.
func (c *Client) Complete(ctx context.Context, cred Credential, req Request) (string, error) {
	if cred.Empty() {
		return "", &Error{Kind: KindAuth, Message: "credential required"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &Error{Kind: KindTimeout, Message: "rate limit wait", Err: err}
		}
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	encoded, err := json.Marshal(chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", &Error{Kind: KindRejected, Message: "encode body", Err: err}
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "chat/completions")
	if err != nil {
		return "", &Error{Kind: KindRejected, Message: "build url", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", &Error{Kind: KindRejected, Message: "new request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(string(cred)))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &Error{Kind: TransportKind(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &Error{
			Kind:       KindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    ErrorMessage(body),
		}
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &Error{Kind: TransportKind(err), Message: "decode response", Err: err}
	}
	if completion.Error != nil {
		return "", &Error{Kind: KindRejected, Message: strings.TrimSpace(completion.Error.Message)}
	}

	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}

	return "", &Error{Kind: KindTransient, Message: "empty completion"}
}

// ErrorMessage pulls the human-readable message out of an error response body.
func ErrorMessage(body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
		var detailed apiError
		if err := json.Unmarshal(payload.Error, &detailed); err == nil && detailed.Message != "" {
			return detailed.Message
		}
		var plain string
		if err := json.Unmarshal(payload.Error, &plain); err == nil && plain != "" {
			return plain
		}
	}
	return strings.TrimSpace(string(body))
}

// TransportKind classifies a failure that happened before any response arrived.
func TransportKind(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransient
}

func (c *Client) Model() string {
	return c.cfg.Model
}
