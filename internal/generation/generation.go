// Package generation talks to the text-generation backend.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrGeneration means the backend was unreachable, timed out or returned no
// usable text.
var ErrGeneration = errors.New("generation failed")

// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Request is one generation call.
type Request struct {
	// System is optional framing placed before everything else.
	System  string
	History []domain.Turn
	Prompt  string
}

// Result is either generated text or an error wrapping ErrGeneration.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the call produced text.
func (r Result) OK() bool {
	return r.Err == nil && r.Text != ""
}

// Failed builds a failed Result.
func Failed(err error) Result {
	if !errors.Is(err, ErrGeneration) {
		err = fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return Result{Err: err}
}

// Backend generates text.
type Backend interface {
	Generate(ctx context.Context, req Request) Result
}

// Config configures the OpenAI-compatible backend.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Client is a Backend for any OpenAI-compatible chat completions API.
type Client struct {
	api         openai.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

// NewClient creates a Client. Calls are attempted once and abandoned after
// cfg.Timeout.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	api := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)
	return &Client{
		api:         api,
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

func messages(req Request) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, t := range req.History {
		switch t.Role {
		case domain.RoleModel:
			msgs = append(msgs, openai.AssistantMessage(t.Text))
		default:
			msgs = append(msgs, openai.UserMessage(t.Text))
		}
	}
	return append(msgs, openai.UserMessage(req.Prompt))
}

// Generate implements Backend.
func (c *Client) Generate(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages(req),
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(c.maxTokens)
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Warn("Generation call failed", "model", c.model, "took", time.Since(start), "error", err)
		return Failed(err)
	}
	if len(resp.Choices) == 0 {
		return Failed(errors.New("no choices returned"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Failed(errors.New("empty completion"))
	}
	c.logger.Debug("Generation call succeeded", "model", c.model, "took", time.Since(start), "chars", len(text))
	return Result{Text: text}
}
