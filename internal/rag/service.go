// Package rag answers questions against an indexed transcript collection
// using retrieval-augmented generation.
package rag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vidrag/vidrag/internal/llm"
	"github.com/vidrag/vidrag/internal/observability"
	"github.com/vidrag/vidrag/internal/retrieval"
)

// RefusalAnswer is returned verbatim when retrieval yields no usable
// context; it carries zero sources and zero token usage.
const RefusalAnswer = "I don't know based on the provided context."

const systemPrompt = "You are a strict RAG assistant."

// Source describes one context chunk backing an answer.
type Source struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	Score    float32           `json:"score"`
}

// Result is a complete answer with its supporting sources.
type Result struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	TokensUsed int      `json:"tokens_used"`
}

// Service runs the retrieve → rank → select → generate pipeline.
// Stateless per call; safe for concurrent use.
type Service struct {
	provider         llm.Provider
	engine           *retrieval.Engine
	maxContextChunks int
	logger           *slog.Logger
}

// NewService creates a RAG service. maxContextChunks bounds the context
// window handed to generation.
func NewService(provider llm.Provider, engine *retrieval.Engine, maxContextChunks int, logger *slog.Logger) *Service {
	if maxContextChunks <= 0 {
		maxContextChunks = 6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider:         provider,
		engine:           engine,
		maxContextChunks: maxContextChunks,
		logger:           logger,
	}
}

// BuildPrompt assembles the strict RAG prompt from the question and the
// selected context chunks.
func BuildPrompt(question string, contextChunks []string) string {
	context := strings.Join(contextChunks, "\n\n")
	return "Answer ONLY using the provided context. " +
		"If the answer is not in the context, say: '" + RefusalAnswer + "'\n\n" +
		"Context:\n" + context + "\n\nQuestion: " + question
}

// AnswerQuestion retrieves context for the question from the collection
// and generates a grounded answer. An empty context yields the refusal
// answer without invoking generation.
func (s *Service) AnswerQuestion(ctx context.Context, question, collection string, topK int) (*Result, error) {
	ctx, span := observability.StartAnswerSpan(ctx, collection)
	defer span.End()

	sources, contexts, err := s.selectContext(ctx, question, collection, topK)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if len(contexts) == 0 {
		observability.RecordAnswerResult(span, 0, 0, true)
		return &Result{Answer: RefusalAnswer, Sources: []Source{}, TokensUsed: 0}, nil
	}

	llmCtx, llmSpan := observability.StartLLMSpan(ctx, s.provider.Name())
	start := time.Now()
	resp, err := s.provider.Complete(llmCtx, s.prompt(question, contexts), s.requestOptions())
	if err != nil {
		observability.RecordError(llmSpan, err)
		llmSpan.End()
		observability.RecordError(span, err)
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	observability.RecordLLMMetrics(llmSpan, resp.InputTokens, resp.OutputTokens, time.Since(start))
	llmSpan.End()

	answer := resp.Content
	if answer == "" {
		answer = RefusalAnswer
	}

	observability.RecordAnswerResult(span, len(sources), resp.TotalTokens(), answer == RefusalAnswer)
	s.logger.Debug("answered question",
		"collection", collection,
		"sources", len(sources),
		"tokens", resp.TotalTokens(),
	)
	return &Result{
		Answer:     answer,
		Sources:    sources,
		TokensUsed: resp.TotalTokens(),
	}, nil
}

// StreamAnswer retrieves context and returns a delta stream plus the
// sources it is grounded on. An empty context yields an empty stream and
// empty sources.
func (s *Service) StreamAnswer(ctx context.Context, question, collection string, topK int) (llm.Stream, []Source, error) {
	// The span covers retrieval and stream startup only; delta delivery
	// happens after return and carries no usage accounting.
	ctx, span := observability.StartAnswerSpan(ctx, collection)
	defer span.End()

	sources, contexts, err := s.selectContext(ctx, question, collection, topK)
	if err != nil {
		observability.RecordError(span, err)
		return nil, nil, err
	}

	if len(contexts) == 0 {
		observability.RecordAnswerResult(span, 0, 0, true)
		return emptyStream{}, []Source{}, nil
	}

	stream, err := s.provider.CompleteStream(ctx, s.prompt(question, contexts), s.requestOptions())
	if err != nil {
		observability.RecordError(span, err)
		return nil, nil, fmt.Errorf("starting answer stream: %w", err)
	}
	observability.RecordAnswerResult(span, len(sources), 0, false)
	return stream, sources, nil
}

func (s *Service) selectContext(ctx context.Context, question, collection string, topK int) ([]Source, []string, error) {
	selected, err := s.engine.Query(ctx, question, collection, topK, s.maxContextChunks)
	if err != nil {
		return nil, nil, err
	}

	sources := make([]Source, 0, len(selected))
	contexts := make([]string, 0, len(selected))
	for _, c := range selected {
		if c.Text == "" {
			continue
		}
		sources = append(sources, Source{Text: c.Text, Metadata: c.Metadata, Score: c.Score})
		contexts = append(contexts, c.Text)
	}
	return sources, contexts, nil
}

func (s *Service) prompt(question string, contexts []string) *llm.Prompt {
	p := llm.UserPrompt(systemPrompt, BuildPrompt(question, contexts))
	return &p
}

func (s *Service) requestOptions() *llm.RequestOptions {
	temp := 0.0
	return &llm.RequestOptions{Temperature: &temp}
}

// emptyStream is the terminal-only stream returned for empty context.
type emptyStream struct{}

func (emptyStream) Recv() (string, error) { return "", io.EOF }
func (emptyStream) Close() error          { return nil }
