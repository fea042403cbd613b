package summarize

import (
	"context"
	"math/rand"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/inkwell/inkwell-backend/internal/config"
)

// OpenAI is an alternative Summarizer backed by the chat completions API.
// Selected with summarizer.provider = "openai".
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI creates an OpenAI-backed summarizer. A missing API key is a
// configuration error.
func NewOpenAI(cfg config.SummarizerConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrMissingSummarizerKey
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" || model == "gemini-2.0-flash" {
		model = openai.GPT3Dot5Turbo
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: timeout,
	}, nil
}

// Summarize implements Summarizer
func (o *OpenAI) Summarize(ctx context.Context, req Request) (string, error) {
	temperature := float32(0.5)
	topP := float32(0.95)
	if req.ForceNew {
		// Widen the sampling band so a retried summary of the same text
		// is not pinned to the previous output.
		temperature = float32(0.5 + rand.Float64()*0.4)
		topP = float32(0.9 + rand.Float64()*0.1)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: Prompt(req.Text)},
		},
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   200,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrInvalidResponse
	}

	return resp.Choices[0].Message.Content, nil
}
