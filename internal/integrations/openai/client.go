package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"followup-agent/internal/domain"
	"followup-agent/internal/followup"
	"followup-agent/internal/integrations/paramstore"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "gpt-4o-mini"
	defaultRetryDelay = 200 * time.Millisecond
)

type chatRequest struct {
	Model          string               `json:"model"`
	Messages       []domain.ChatMessage `json:"messages"`
	MaxTokens      int                  `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat      `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index        int                `json:"index"`
		Message      domain.ChatMessage `json:"message"`
		FinishReason string             `json:"finish_reason"`
	} `json:"choices"`
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a Chat Completions backend for the follow-up pipeline.
type Client struct {
	baseURL     string
	model       string
	httpClient  *http.Client
	getter      paramstore.Getter
	paramPrefix string
	maxRetries  int
	retryDelay  time.Duration
	logger      *zap.Logger

	keyMu  sync.Mutex
	apiKey string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if u := strings.TrimSpace(baseURL); u != "" {
			c.baseURL = u
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient builds a client whose API token is read from
// <paramPrefix>/open-ai-token on first use.
func NewClient(ps paramstore.Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, eris.New("openai: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, eris.New("openai: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
		maxRetries:  2,
		retryDelay:  defaultRetryDelay,
		logger:      zap.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolveAPIKey caches the token after the first successful fetch. A failed
// fetch is retried on the next call.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	key, err := paramstore.FetchToken(ctx, c.getter, c.tokenParameterName())
	if err != nil {
		return "", eris.Wrap(err, "openai: resolve api key")
	}
	c.apiKey = key
	return key, nil
}

func (c *Client) tokenParameterName() string {
	return c.paramPrefix + "/open-ai-token"
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Complete sends prompt as a single user message and returns the first
// choice's content. 429, 5xx and transport failures are retried.
func (c *Client) Complete(ctx context.Context, prompt string, opts followup.CompletionOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", eris.New("openai: prompt must not be empty")
	}
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return "", err
	}

	reqBody := chatRequest{
		Model:     c.model,
		Messages:  []domain.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: opts.MaxOutputTokens,
	}
	if opts.JSONOutput {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "openai: marshal request")
	}

	url := chatURL(c.baseURL)
	raw, err := retry.DoWithData(
		func() ([]byte, error) {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if reqErr != nil {
				return nil, retry.Unrecoverable(reqErr)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+apiKey)
			return c.doJSONRequest(req, url)
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries+1)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("openai: retrying completion", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return "", eris.Wrap(err, "openai: request failed")
	}

	var payload chatResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", eris.Wrap(decErr, "openai: decode response")
	}
	if len(payload.Choices) == 0 {
		return "", eris.New("openai: no choices in response")
	}
	return payload.Choices[0].Message.Content, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return true
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}
	return buf, nil
}
