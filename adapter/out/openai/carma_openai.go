// Package openai implements out.TextCompletionService on the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"carma_server/core/port/out"
	"carma_server/pkg/httputil"
	"carma_server/pkg/logger"
)

const DefaultModel = "gpt-4o-mini"

// ErrNotConfigured is returned by Complete when no API key was provided.
var ErrNotConfigured = errors.New("openai: API key not configured")

type Config struct {
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration
}

type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

var _ out.TextCompletionService = (*Client)(nil)

func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = 5
	}

	var client *openai.Client
	if cfg.APIKey != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.HTTPClient = httputil.NewClient(httputil.OpenAIClientConfig())
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		client = openai.NewClientWithConfig(oc)
	}

	log := logger.WithField("component", "openai")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	})

	return &Client{client: client, model: model, timeout: timeout, cb: cb}
}

// Complete sends one system/user exchange and returns the first choice's content.
// An empty user prompt is not sent.
func (c *Client) Complete(ctx context.Context, req out.CompletionRequest) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	if req.UserPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})
	}
	if len(messages) == 0 {
		return "", errors.New("openai: empty prompt")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: float32(req.Temperature),
			MaxTokens:   req.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	return res.(string), nil
}
