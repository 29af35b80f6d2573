// Package openai implements llm.Provider on top of the go-openai client,
// covering OpenAI itself and any OpenAI-compatible endpoint (Groq, Ollama,
// vLLM, Together, etc.).
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/vidrag/vidrag/internal/llm"
)

const (
	defaultModel           = "gpt-4o-mini"
	defaultEmbedModel      = "text-embedding-3-small"
	defaultTranscribeModel = string(goopenai.Whisper1)
)

// Client implements llm.Provider for OpenAI-compatible APIs.
type Client struct {
	api             *goopenai.Client
	model           string
	embedModel      string
	transcribeModel string
}

// New creates an OpenAI-compatible provider from config.
func New(cfg llm.ProviderConfig) *Client {
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	transcribeModel := cfg.TranscribeModel
	if transcribeModel == "" {
		transcribeModel = defaultTranscribeModel
	}

	return &Client{
		api:             goopenai.NewClientWithConfig(apiCfg),
		model:           model,
		embedModel:      embedModel,
		transcribeModel: transcribeModel,
	}
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.chatRequest(prompt, opts))
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	text := ""
	stop := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
		stop = string(resp.Choices[0].FinishReason)
	}

	return &llm.Response{
		Content:      text,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		StopReason:   stop,
	}, nil
}

func (c *Client) CompleteStream(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (llm.Stream, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, c.chatRequest(prompt, opts))
	if err != nil {
		return nil, fmt.Errorf("openai chat stream: %w", err)
	}
	return &chatStream{inner: stream}, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(c.embedModel),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors, want %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcribe: %w", err)
	}
	return resp.Text, nil
}

func (c *Client) chatRequest(prompt *llm.Prompt, opts *llm.RequestOptions) goopenai.ChatCompletionRequest {
	var msgs []goopenai.ChatCompletionMessage
	if prompt.SystemPrompt != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: prompt.SystemPrompt,
		})
	}
	for _, m := range prompt.Messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	req := goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	}
	if opts != nil {
		if opts.MaxTokens != nil {
			req.MaxTokens = *opts.MaxTokens
		}
		if opts.Temperature != nil {
			req.Temperature = float32(*opts.Temperature)
		}
		if opts.TopP != nil {
			req.TopP = float32(*opts.TopP)
		}
		if len(opts.StopSeqs) > 0 {
			req.Stop = opts.StopSeqs
		}
	}
	return req
}

// chatStream adapts the go-openai stream to llm.Stream, skipping frames
// that carry no content delta.
type chatStream struct {
	inner *goopenai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("openai chat stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *chatStream) Close() error {
	s.inner.Close()
	return nil
}

var _ llm.Provider = (*Client)(nil)
