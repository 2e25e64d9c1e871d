package anthropic

import (
	"context"
	"strings"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"followup-agent/internal/followup"
	"followup-agent/internal/integrations/paramstore"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 512
	jsonOnlySystem   = "Respond with a single JSON object and nothing else."
)

// Client is a Messages API backend for the follow-up pipeline. The SDK client
// is built on first use, once the API token has been read from SSM.
type Client struct {
	getter      paramstore.Getter
	paramPrefix string
	model       string
	baseURL     string
	maxRetries  int

	mu  sync.Mutex
	sdk *sdk.Client
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

// WithMaxRetries is passed to the SDK, which retries 429, 5xx and
// connection errors itself.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func NewClient(ps paramstore.Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, eris.New("anthropic: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, eris.New("anthropic: parameter prefix must not be empty")
	}
	c := &Client{
		getter:      ps,
		paramPrefix: paramPrefix,
		model:       defaultModel,
		maxRetries:  2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) tokenParameterName() string {
	return c.paramPrefix + "/anthropic-token"
}

func (c *Client) client(ctx context.Context) (*sdk.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk != nil {
		return c.sdk, nil
	}
	key, err := paramstore.FetchToken(ctx, c.getter, c.tokenParameterName())
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: resolve api key")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(c.maxRetries),
	}
	if c.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.baseURL))
	}
	client := sdk.NewClient(reqOpts...)
	c.sdk = &client
	return c.sdk, nil
}

// Complete sends prompt as a single user turn and joins the text blocks of the
// reply.
func (c *Client) Complete(ctx context.Context, prompt string, opts followup.CompletionOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", eris.New("anthropic: prompt must not be empty")
	}
	client, err := c.client(ctx)
	if err != nil {
		return "", err
	}

	maxTokens := int64(opts.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}
	if opts.JSONOutput {
		params.System = []sdk.TextBlockParam{{Text: jsonOnlySystem}}
	}

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	zap.L().Debug("anthropic: completion",
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
		zap.String("stop_reason", string(msg.StopReason)),
	)
	if sb.Len() == 0 {
		return "", eris.New("anthropic: no text in response")
	}
	return sb.String(), nil
}
