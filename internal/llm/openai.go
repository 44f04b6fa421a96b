package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config holds settings for an OpenAI-compatible chat client.
type Config struct {
	// BaseURL is the API endpoint. Any OpenAI-compatible server works.
	BaseURL string
	// Model is the chat model name.
	Model string
	// APIKey authenticates against the endpoint.
	APIKey string
	// Temperature is the sampling temperature for this client.
	Temperature float64
	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL required")
	}
	if c.Model == "" {
		return errors.New("model required")
	}
	return nil
}

// OpenAIClient implements Client over langchaingo's OpenAI bindings.
type OpenAIClient struct {
	model  llms.Model
	config Config
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for local servers.
		apiKey = "placeholder"
	}

	model, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &OpenAIClient{model: model, config: cfg}, nil
}

// Complete issues one completion call and returns the full text.
func (c *OpenAIClient) Complete(ctx context.Context, msgs []Message) (string, error) {
	resp, err := c.model.GenerateContent(ctx, convertMessages(msgs), c.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion: empty response")
	}
	return resp.Choices[0].Content, nil
}

// StreamComplete issues one streaming completion call.
func (c *OpenAIClient) StreamComplete(ctx context.Context, msgs []Message, fn StreamFunc) error {
	opts := append(c.callOptions(), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		return fn(ctx, string(chunk))
	}))

	if _, err := c.model.GenerateContent(ctx, convertMessages(msgs), opts...); err != nil {
		return fmt.Errorf("streaming completion: %w", err)
	}
	return nil
}

func (c *OpenAIClient) callOptions() []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(c.config.Temperature)}
	if c.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.config.MaxTokens))
	}
	return opts
}

func convertMessages(msgs []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, len(msgs))
	for i, m := range msgs {
		var role llms.ChatMessageType
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		out[i] = llms.TextParts(role, m.Content)
	}
	return out
}
