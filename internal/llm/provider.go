package llm

import "context"

// Provider is the interface all LLM backends must implement.
type Provider interface {
	// Complete sends a prompt and returns a completion.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// CompleteStream sends a prompt and returns a stream of text deltas.
	CompleteStream(ctx context.Context, prompt *Prompt, opts *RequestOptions) (Stream, error)
	// Embed returns embedding vectors for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Transcribe converts an audio file to text.
	Transcribe(ctx context.Context, audioPath string) (string, error)
	// Name returns the provider identifier (e.g. "openai").
	Name() string
}

// Stream is a finite, non-restartable sequence of incremental completion
// text deltas. Recv returns io.EOF after the final delta. The consumer
// drives the stream to completion or cancels via the request context.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// RequestOptions tunes a single completion request. Nil fields fall back
// to provider defaults.
type RequestOptions struct {
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	StopSeqs    []string
}
