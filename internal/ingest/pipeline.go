// Package ingest turns a YouTube URL into indexed transcript chunks:
// download, audio extraction, transcription, chunking, embedding, upsert.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vidrag/vidrag/internal/llm"
	"github.com/vidrag/vidrag/internal/rag"
	"github.com/vidrag/vidrag/internal/vector"
)

// Report summarizes one completed ingestion run.
type Report struct {
	VideoID        string `json:"video_id"`
	Title          string `json:"title"`
	CollectionName string `json:"collection_name"`
	ChunkCount     int    `json:"chunk_count"`
	TranscriptPath string `json:"transcript_path"`
}

// Pipeline orchestrates the ingestion collaborators.
type Pipeline struct {
	downloader    *Downloader
	extractor     *Extractor
	provider      llm.Provider
	store         vector.Store
	splitter      *rag.Splitter
	namer         vector.Namer
	transcriptDir string
	logger        *slog.Logger
}

// NewPipeline wires the ingestion pipeline.
func NewPipeline(
	downloader *Downloader,
	extractor *Extractor,
	provider llm.Provider,
	store vector.Store,
	splitter *rag.Splitter,
	namer vector.Namer,
	transcriptDir string,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		downloader:    downloader,
		extractor:     extractor,
		provider:      provider,
		store:         store,
		splitter:      splitter,
		namer:         namer,
		transcriptDir: transcriptDir,
		logger:        logger,
	}
}

// ResolveCollection maps (videoID, explicit) to the collection a request
// targets.
func (p *Pipeline) ResolveCollection(videoID, explicit string) string {
	return p.namer.Resolve(videoID, explicit)
}

// Process runs the full pipeline for one URL. With rebuild set, the
// target collection is dropped before indexing.
func (p *Pipeline) Process(ctx context.Context, youtubeURL, explicitCollection string, rebuild bool) (*Report, error) {
	downloaded, err := p.downloader.Download(ctx, youtubeURL)
	if err != nil {
		return nil, err
	}

	collection := p.ResolveCollection(downloaded.VideoID, explicitCollection)

	if rebuild {
		if _, err := p.store.Drop(ctx, collection); err != nil {
			return nil, fmt.Errorf("dropping collection %s: %w", collection, err)
		}
	}

	audioPath, err := p.extractor.ExtractMP3(ctx, downloaded.Path, downloaded.VideoID)
	if err != nil {
		return nil, err
	}

	transcript, err := p.provider.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcribing %s: %w", audioPath, err)
	}
	if transcript == "" {
		return nil, fmt.Errorf("transcription returned empty text for %s", audioPath)
	}

	transcriptPath := filepath.Join(p.transcriptDir, downloaded.VideoID+".txt")
	if err := os.WriteFile(transcriptPath, []byte(transcript), 0o644); err != nil {
		return nil, fmt.Errorf("writing transcript: %w", err)
	}

	chunks := p.splitter.Split(transcript)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("transcript produced no chunks for %s", downloaded.VideoID)
	}

	vectors, err := p.provider.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(chunks))
	}

	docs := make([]vector.Chunk, len(chunks))
	for i, text := range chunks {
		docs[i] = vector.Chunk{
			Text:   text,
			Vector: vectors[i],
			Metadata: map[string]string{
				"video_id":        downloaded.VideoID,
				"title":           downloaded.Title,
				"chunk_index":     strconv.Itoa(i),
				"audio_path":      audioPath,
				"transcript_path": transcriptPath,
			},
		}
	}

	inserted, err := p.store.Upsert(ctx, collection, docs)
	if err != nil {
		return nil, fmt.Errorf("indexing chunks: %w", err)
	}

	report := &Report{
		VideoID:        downloaded.VideoID,
		Title:          downloaded.Title,
		CollectionName: collection,
		ChunkCount:     inserted,
		TranscriptPath: transcriptPath,
	}

	if err := p.writeManifest(report); err != nil {
		return nil, err
	}

	p.logger.Info("video indexed",
		"video_id", downloaded.VideoID,
		"collection", collection,
		"chunks", inserted,
	)
	return report, nil
}

// writeManifest records what was indexed for the video.
func (p *Pipeline) writeManifest(report *Report) error {
	manifest := map[string]any{
		"video_id":   report.VideoID,
		"title":      report.Title,
		"collection": report.CollectionName,
		"chunks":     report.ChunkCount,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	path := filepath.Join(p.transcriptDir, report.VideoID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
