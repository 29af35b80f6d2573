package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/vidrag/vidrag/internal/llm"
	"github.com/vidrag/vidrag/internal/rag"
	"github.com/vidrag/vidrag/internal/vector"
)

type fakeProvider struct {
	transcript string
}

func (f *fakeProvider) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	return &llm.Response{}, nil
}

func (f *fakeProvider) CompleteStream(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (llm.Stream, error) {
	return nil, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return f.transcript, nil
}

func (f *fakeProvider) Name() string { return "fake" }

type recordingStore struct {
	upserts map[string][]vector.Chunk
	dropped []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{upserts: make(map[string][]vector.Chunk)}
}

func (r *recordingStore) Ensure(ctx context.Context, collection string, dim int) error { return nil }

func (r *recordingStore) Upsert(ctx context.Context, collection string, chunks []vector.Chunk) (int, error) {
	r.upserts[collection] = append(r.upserts[collection], chunks...)
	return len(chunks), nil
}

func (r *recordingStore) Search(ctx context.Context, collection string, vec []float32, topK int) ([]vector.Hit, error) {
	return nil, nil
}

func (r *recordingStore) Has(ctx context.Context, collection string) (bool, error) { return true, nil }

func (r *recordingStore) Drop(ctx context.Context, collection string) (bool, error) {
	r.dropped = append(r.dropped, collection)
	return true, nil
}

func (r *recordingStore) Count(ctx context.Context, collection string) (int64, error) { return 0, nil }

func (r *recordingStore) Close() error { return nil }

// writeScript drops an executable shell stub into dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestPipeline(t *testing.T, store vector.Store, transcript string) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()

	ytdlp := writeScript(t, dir, "yt-dlp",
		`echo '{"id":"vid123","title":"Test Video","ext":"mp4"}'`)
	ffmpeg := writeScript(t, dir, "ffmpeg",
		`for last; do :; done
: > "$last"`)

	downloader := NewDownloader(dir, ytdlp, nil)
	extractor := NewExtractor(dir, ffmpeg)
	splitter := rag.NewSplitter(60, 10)
	namer := vector.Namer{Default: "shared", PerVideo: true}

	provider := &fakeProvider{transcript: transcript}
	return NewPipeline(downloader, extractor, provider, store, splitter, namer, dir, nil), dir
}

func TestProcess_EndToEnd(t *testing.T) {
	store := newRecordingStore()
	transcript := "First the speaker introduces the topic. Then three categories are explained in detail. Finally the implications are discussed."
	p, dir := newTestPipeline(t, store, transcript)

	report, err := p.Process(context.Background(), "https://www.youtube.com/watch?v=vid123", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.VideoID != "vid123" {
		t.Errorf("video id = %q", report.VideoID)
	}
	if report.Title != "Test Video" {
		t.Errorf("title = %q", report.Title)
	}
	if report.CollectionName != "video_vid123" {
		t.Errorf("collection = %q", report.CollectionName)
	}
	if report.ChunkCount < 2 {
		t.Errorf("chunk count = %d, want multiple chunks", report.ChunkCount)
	}

	chunks := store.upserts["video_vid123"]
	if len(chunks) != report.ChunkCount {
		t.Fatalf("store received %d chunks, report says %d", len(chunks), report.ChunkCount)
	}
	for i, c := range chunks {
		if c.Metadata["video_id"] != "vid123" {
			t.Errorf("chunk %d video_id = %q", i, c.Metadata["video_id"])
		}
		if c.Metadata["chunk_index"] == "" {
			t.Errorf("chunk %d missing chunk_index", i)
		}
		if len(c.Vector) == 0 {
			t.Errorf("chunk %d missing embedding", i)
		}
	}
	if chunks[0].Metadata["chunk_index"] != "0" {
		t.Errorf("first chunk index = %q", chunks[0].Metadata["chunk_index"])
	}

	// Transcript and manifest land beside each other.
	data, err := os.ReadFile(filepath.Join(dir, "vid123.txt"))
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	if string(data) != transcript {
		t.Error("transcript content mismatch")
	}

	manifestData, err := os.ReadFile(filepath.Join(dir, "vid123.json"))
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	var manifest map[string]any
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		t.Fatalf("manifest not valid JSON: %v", err)
	}
	if manifest["video_id"] != "vid123" || manifest["collection"] != "video_vid123" {
		t.Errorf("manifest = %v", manifest)
	}
}

func TestProcess_RebuildDropsCollection(t *testing.T) {
	store := newRecordingStore()
	p, _ := newTestPipeline(t, store, "some transcript text")

	_, err := p.Process(context.Background(), "https://www.youtube.com/watch?v=vid123", "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.dropped) != 1 || store.dropped[0] != "video_vid123" {
		t.Errorf("dropped = %v, want [video_vid123]", store.dropped)
	}
}

func TestProcess_ExplicitCollectionWins(t *testing.T) {
	store := newRecordingStore()
	p, _ := newTestPipeline(t, store, "some transcript text")

	report, err := p.Process(context.Background(), "https://www.youtube.com/watch?v=vid123", "my-course", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.CollectionName != "my_course" {
		t.Errorf("collection = %q, want sanitized explicit name", report.CollectionName)
	}
}

func TestProcess_EmptyTranscriptFails(t *testing.T) {
	store := newRecordingStore()
	p, _ := newTestPipeline(t, store, "")

	_, err := p.Process(context.Background(), "https://www.youtube.com/watch?v=vid123", "", false)
	if err == nil {
		t.Fatal("expected error for empty transcription")
	}
	if len(store.upserts) != 0 {
		t.Error("nothing must be indexed on failure")
	}
}
