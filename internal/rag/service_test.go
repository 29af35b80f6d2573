package rag

import (
	"context"
	"io"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vidrag/vidrag/internal/llm"
	"github.com/vidrag/vidrag/internal/retrieval"
	"github.com/vidrag/vidrag/internal/vector"
)

type fakeProvider struct {
	content       string
	inputTokens   int
	outputTokens  int
	deltas        []string
	completeCalls int
	lastPrompt    *llm.Prompt
}

func (f *fakeProvider) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	f.completeCalls++
	f.lastPrompt = prompt
	return &llm.Response{
		Content:      f.content,
		InputTokens:  f.inputTokens,
		OutputTokens: f.outputTokens,
	}, nil
}

func (f *fakeProvider) CompleteStream(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (llm.Stream, error) {
	f.lastPrompt = prompt
	return &fakeStream{deltas: f.deltas}, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return "", nil
}

func (f *fakeProvider) Name() string { return "fake" }

type fakeStream struct {
	deltas []string
	pos    int
}

func (f *fakeStream) Recv() (string, error) {
	if f.pos >= len(f.deltas) {
		return "", io.EOF
	}
	d := f.deltas[f.pos]
	f.pos++
	return d, nil
}

func (f *fakeStream) Close() error { return nil }

type fakeVectorStore struct {
	hits []vector.Hit
}

func (f *fakeVectorStore) Ensure(ctx context.Context, collection string, dim int) error { return nil }

func (f *fakeVectorStore) Upsert(ctx context.Context, collection string, chunks []vector.Chunk) (int, error) {
	return len(chunks), nil
}

func (f *fakeVectorStore) Search(ctx context.Context, collection string, vec []float32, topK int) ([]vector.Hit, error) {
	return f.hits, nil
}

func (f *fakeVectorStore) Has(ctx context.Context, collection string) (bool, error) { return true, nil }

func (f *fakeVectorStore) Drop(ctx context.Context, collection string) (bool, error) {
	return false, nil
}

func (f *fakeVectorStore) Count(ctx context.Context, collection string) (int64, error) {
	return int64(len(f.hits)), nil
}

func (f *fakeVectorStore) Close() error { return nil }

func newTestService(provider *fakeProvider, hits []vector.Hit) *Service {
	engine := retrieval.NewEngine(provider, &fakeVectorStore{hits: hits}, retrieval.Config{})
	return NewService(provider, engine, 6, nil)
}

func TestAnswerQuestion_EmptyContextRefuses(t *testing.T) {
	provider := &fakeProvider{content: "should never be used"}
	svc := newTestService(provider, nil)

	result, err := svc.AnswerQuestion(context.Background(), "any question", "c", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Answer != RefusalAnswer {
		t.Errorf("answer = %q, want refusal", result.Answer)
	}
	if len(result.Sources) != 0 {
		t.Errorf("expected zero sources, got %d", len(result.Sources))
	}
	if result.Sources == nil {
		t.Error("sources must be an empty slice, not nil")
	}
	if result.TokensUsed != 0 {
		t.Errorf("expected zero tokens, got %d", result.TokensUsed)
	}
	if provider.completeCalls != 0 {
		t.Errorf("generation must not run on empty context, got %d calls", provider.completeCalls)
	}
}

func TestAnswerQuestion_GeneratesFromContext(t *testing.T) {
	provider := &fakeProvider{content: "the three types are ANI, AGI and ASI", inputTokens: 120, outputTokens: 30}
	hits := []vector.Hit{
		{ID: "p1", Score: 0.9, Text: "narrow general super intelligence", Metadata: map[string]string{"video_id": "v", "chunk_index": "0"}},
	}
	svc := newTestService(provider, hits)

	result, err := svc.AnswerQuestion(context.Background(), "what are the types of ai", "c", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Answer != provider.content {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.TokensUsed != 150 {
		t.Errorf("tokens = %d, want 150", result.TokensUsed)
	}
	if len(result.Sources) != 1 || result.Sources[0].Text != hits[0].Text {
		t.Errorf("sources = %+v", result.Sources)
	}

	if provider.lastPrompt == nil {
		t.Fatal("expected a prompt")
	}
	user := provider.lastPrompt.Messages[0].Content
	if !strings.Contains(user, hits[0].Text) {
		t.Error("prompt must embed the context chunk")
	}
	if !strings.Contains(user, "what are the types of ai") {
		t.Error("prompt must embed the question")
	}
}

func TestAnswerQuestion_EmptyCompletionFallsBackToRefusal(t *testing.T) {
	provider := &fakeProvider{content: ""}
	hits := []vector.Hit{
		{ID: "p1", Score: 0.9, Text: "some context", Metadata: map[string]string{"video_id": "v"}},
	}
	svc := newTestService(provider, hits)

	result, err := svc.AnswerQuestion(context.Background(), "question", "c", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != RefusalAnswer {
		t.Errorf("answer = %q, want refusal", result.Answer)
	}
}

func TestStreamAnswer_EmptyContext(t *testing.T) {
	svc := newTestService(&fakeProvider{deltas: []string{"never"}}, nil)

	stream, sources, err := svc.StreamAnswer(context.Background(), "question", "c", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if sources == nil || len(sources) != 0 {
		t.Errorf("sources = %v, want empty slice", sources)
	}
	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("expected immediate EOF, got %v", err)
	}
}

func TestStreamAnswer_DeliversDeltas(t *testing.T) {
	provider := &fakeProvider{deltas: []string{"the ", "three ", "types"}}
	hits := []vector.Hit{
		{ID: "p1", Score: 0.9, Text: "context chunk", Metadata: map[string]string{"video_id": "v"}},
	}
	svc := newTestService(provider, hits)

	stream, sources, err := svc.StreamAnswer(context.Background(), "question", "c", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if len(sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(sources))
	}

	var b strings.Builder
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b.WriteString(delta)
	}
	if b.String() != "the three types" {
		t.Errorf("streamed %q", b.String())
	}
}

func TestAnswerQuestion_EmitsPipelineSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	provider := &fakeProvider{content: "an answer", inputTokens: 10, outputTokens: 5}
	hits := []vector.Hit{
		{ID: "p1", Score: 0.9, Text: "context chunk", Metadata: map[string]string{"video_id": "v", "chunk_index": "0"}},
	}
	svc := newTestService(provider, hits)

	if _, err := svc.AnswerQuestion(context.Background(), "question", "c", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := make(map[string]bool)
	var tokensUsed int64 = -1
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
		if span.Name() == "rag.answer" {
			for _, attr := range span.Attributes() {
				if string(attr.Key) == "answer.tokens_used" {
					tokensUsed = attr.Value.AsInt64()
				}
			}
		}
	}

	for _, want := range []string{"retrieval.search", "llm.complete", "rag.answer"} {
		if !names[want] {
			t.Errorf("missing span %q, got %v", want, names)
		}
	}
	if tokensUsed != 15 {
		t.Errorf("answer.tokens_used = %d, want 15", tokensUsed)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("what is AGI?", []string{"chunk a", "chunk b"})

	if !strings.Contains(prompt, "chunk a") || !strings.Contains(prompt, "chunk b") {
		t.Error("prompt must include all context chunks")
	}
	if !strings.Contains(prompt, "what is AGI?") {
		t.Error("prompt must include the question")
	}
	if !strings.Contains(prompt, RefusalAnswer) {
		t.Error("prompt must instruct the refusal answer")
	}
	if !strings.Contains(prompt, "ONLY using the provided context") {
		t.Error("prompt must restrict answers to the context")
	}
}
