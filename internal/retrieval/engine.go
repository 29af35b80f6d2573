package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vidrag/vidrag/internal/observability"
	"github.com/vidrag/vidrag/internal/vector"
)

// Candidate is a chunk surfaced by a search, pending re-ranking. Created
// per call, never persisted.
type Candidate struct {
	ID       string
	Score    float32
	Text     string
	Metadata map[string]string
}

// Embedder produces fixed-length embedding vectors for texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Candidate-pool floors. Enumeration questions cast a wider net because
// the answer is typically split across multiple chunks.
const (
	minCandidates            = 8
	minEnumerationCandidates = 10
)

// Engine turns a question into a ranked, deduplicated set of transcript
// chunks. Stateless per call; safe for concurrent use.
type Engine struct {
	embedder    Embedder
	store       vector.Store
	expander    *Expander
	weights     Weights
	defaultTopK int
	logger      *slog.Logger
}

// Config configures an Engine.
type Config struct {
	DefaultTopK int
	// Weights overrides the composite scoring weights. Nil selects
	// DefaultWeights; an explicit zero value disables all boosts.
	Weights  *Weights
	Taxonomy []TaxonomyHint
	Logger   *slog.Logger
}

// NewEngine creates a retrieval engine.
func NewEngine(embedder Embedder, store vector.Store, cfg Config) *Engine {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	weights := DefaultWeights()
	if cfg.Weights != nil {
		weights = *cfg.Weights
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		embedder:    embedder,
		store:       store,
		expander:    NewExpander(cfg.Taxonomy),
		weights:     weights,
		defaultTopK: cfg.DefaultTopK,
		logger:      cfg.Logger,
	}
}

// Expander exposes the engine's query expander.
func (e *Engine) Expander() *Expander { return e.expander }

// Retrieve issues one similarity search per expanded query variant and
// merges the results, deduplicating by (video_id, chunk_index, text).
// The variant searches run in parallel, but the merge always follows the
// canonical variant order so the result is deterministic. The merged
// order is retrieval order, not relevance order; callers must Rank.
func (e *Engine) Retrieve(ctx context.Context, question, collection string, topK int) ([]Candidate, error) {
	variants := e.expander.Expand(question)
	hint := e.expander.Classify(question)
	return e.retrieve(ctx, variants, hint, collection, topK)
}

func (e *Engine) retrieve(ctx context.Context, variants []string, hint *TaxonomyHint, collection string, topK int) ([]Candidate, error) {
	k := topK
	if k <= 0 {
		k = e.defaultTopK
	}
	floor := minCandidates
	if hint != nil {
		floor = minEnumerationCandidates
	}
	if k < floor {
		k = floor
	}

	perVariant := make([][]vector.Hit, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup
	for i, variant := range variants {
		wg.Add(1)
		go func(i int, variant string) {
			defer wg.Done()
			vecs, err := e.embedder.Embed(ctx, []string{variant})
			if err != nil {
				errs[i] = fmt.Errorf("embedding variant %d: %w", i, err)
				return
			}
			if len(vecs) == 0 {
				errs[i] = fmt.Errorf("embedding variant %d: empty result", i)
				return
			}
			hits, err := e.store.Search(ctx, collection, vecs[0], k)
			if err != nil {
				errs[i] = fmt.Errorf("searching variant %d: %w", i, err)
				return
			}
			perVariant[i] = hits
		}(i, variant)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	// Merge in variant order: first-seen wins, later identical keys are
	// discarded rather than score-merged.
	seen := make(map[string]struct{})
	var merged []Candidate
	for _, hits := range perVariant {
		for _, h := range hits {
			key := dedupeKey(h.Metadata, h.Text)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, Candidate{
				ID:       h.ID,
				Score:    h.Score,
				Text:     h.Text,
				Metadata: h.Metadata,
			})
		}
	}

	e.logger.Debug("retrieval merged",
		"collection", collection,
		"variants", len(variants),
		"candidates", len(merged),
		"enumeration", hint != nil,
	)
	return merged, nil
}

// Query runs the full retrieve → rank → select pipeline, returning at
// most maxContext candidates in descending relevance order. The whole
// pass is covered by one retrieval span.
func (e *Engine) Query(ctx context.Context, question, collection string, topK, maxContext int) ([]Candidate, error) {
	variants := e.expander.Expand(question)
	hint := e.expander.Classify(question)

	ctx, span := observability.StartRetrievalSpan(ctx, collection, len(variants))
	defer span.End()

	merged, err := e.retrieve(ctx, variants, hint, collection, topK)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	ranked := Rank(question, merged, hint, e.weights)
	selected := Select(ranked, maxContext)
	observability.RecordRetrievalResult(span, len(merged), len(selected), hint != nil)
	return selected, nil
}

// dedupeKey builds the stable identity key for merge deduplication.
// Missing metadata fields stringify to the empty string.
func dedupeKey(metadata map[string]string, text string) string {
	return metadata["video_id"] + "\x00" + metadata["chunk_index"] + "\x00" + text
}
