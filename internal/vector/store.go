package vector

import "context"

// Chunk is a unit of transcript text with its embedding and metadata.
type Chunk struct {
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// Hit is a single match from a similarity search.
type Hit struct {
	ID       string
	Score    float32
	Text     string
	Metadata map[string]string
}

// Store provides collection-partitioned vector storage and similarity search.
// Collections are created lazily on first write; the vector dimension is
// fixed per collection at creation time.
type Store interface {
	// Ensure creates the named collection with the given dimension if it
	// does not exist yet. Safe to call concurrently for the same name.
	Ensure(ctx context.Context, collection string, dim int) error
	// Upsert inserts chunks into the collection and returns the count inserted.
	Upsert(ctx context.Context, collection string, chunks []Chunk) (int, error)
	// Search finds the top-k most similar chunks. A missing collection
	// yields an empty result, not an error.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error)
	// Has reports whether the collection exists.
	Has(ctx context.Context, collection string) (bool, error)
	// Drop removes the collection, reporting whether anything was dropped.
	Drop(ctx context.Context, collection string) (bool, error)
	// Count returns the number of chunks stored in the collection.
	Count(ctx context.Context, collection string) (int64, error)
	// Close releases resources.
	Close() error
}
