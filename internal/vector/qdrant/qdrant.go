// Package qdrant implements vector.Store using Qdrant over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vidrag/vidrag/internal/vector"
)

// textField is the payload key holding the chunk's literal content; all
// other payload keys are metadata.
const textField = "text"

// Store implements vector.Store backed by a Qdrant instance. Collections
// are created lazily on first write with a COSINE similarity index.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	logger      *slog.Logger

	// createMu serializes collection creation so concurrent first writes
	// to the same name race safely (loser detects AlreadyExists and reuses).
	createMu sync.Mutex
}

// New connects to a Qdrant instance.
func New(host string, port int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		logger:      logger,
	}, nil
}

// hnswCandidates is the best-effort index parameter fallback chain tried
// at collection creation. A nil entry means server-default index config.
func hnswCandidates() []*pb.HnswConfigDiff {
	m := uint64(8)
	ef := uint64(64)
	return []*pb.HnswConfigDiff{
		{M: &m, EfConstruct: &ef},
		nil,
	}
}

// Ensure creates the collection with the given dimension if missing.
// Creation failure for every candidate index config is fatal for the
// collection's first write and is surfaced, not degraded.
func (s *Store) Ensure(ctx context.Context, collection string, dim int) error {
	collection = vector.SanitizeName(collection)

	exists, err := s.Has(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	// Re-check under the lock: another writer may have won the race.
	exists, err = s.Has(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	var lastErr error
	for _, hnsw := range hnswCandidates() {
		_, err := s.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: collection,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:       uint64(dim),
						Distance:   pb.Distance_Cosine,
						HnswConfig: hnsw,
					},
				},
			},
		})
		if err == nil {
			s.logger.Info("created collection", "collection", collection, "dim", dim)
			return nil
		}
		if isAlreadyExists(err) {
			// Lost a cross-process creation race; the collection is usable.
			return nil
		}
		lastErr = err
		s.logger.Warn("index config rejected, trying next", "collection", collection, "error", err)
	}
	return fmt.Errorf("unable to create a supported index for collection %s: %w", collection, lastErr)
}

// Upsert inserts chunks, creating the collection on first write with the
// dimension of the first embedding.
func (s *Store) Upsert(ctx context.Context, collection string, chunks []vector.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	collection = vector.SanitizeName(collection)

	if err := s.Ensure(ctx, collection, len(chunks[0].Vector)); err != nil {
		return 0, err
	}

	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		payload := map[string]*pb.Value{
			textField: {Kind: &pb.Value_StringValue{StringValue: c.Text}},
		}
		for k, v := range c.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: uuid.NewString()}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: c.Vector}}},
			Payload: payload,
		}
	}

	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant upsert: %w", err)
	}
	return len(points), nil
}

// Search finds the top-k most similar chunks. A missing collection yields
// an empty result. Hits are deduplicated by (video_id, chunk_index, text).
func (s *Store) Search(ctx context.Context, collection string, vec []float32, topK int) ([]vector.Hit, error) {
	collection = vector.SanitizeName(collection)

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vec,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	seen := make(map[string]struct{}, len(resp.Result))
	hits := make([]vector.Hit, 0, len(resp.Result))
	for _, pt := range resp.Result {
		text := ""
		meta := make(map[string]string)
		for k, v := range pt.Payload {
			if k == textField {
				text = v.GetStringValue()
			} else {
				meta[k] = v.GetStringValue()
			}
		}

		key := meta["video_id"] + "\x00" + meta["chunk_index"] + "\x00" + text
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		hits = append(hits, vector.Hit{
			ID:       pt.Id.GetUuid(),
			Score:    pt.Score,
			Text:     text,
			Metadata: meta,
		})
	}
	return hits, nil
}

// Has reports whether the collection exists.
func (s *Store) Has(ctx context.Context, collection string) (bool, error) {
	resp, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: vector.SanitizeName(collection),
	})
	if err != nil {
		return false, fmt.Errorf("qdrant collection exists: %w", err)
	}
	return resp.GetResult().GetExists(), nil
}

// Drop removes the collection, reporting whether anything was dropped.
func (s *Store) Drop(ctx context.Context, collection string) (bool, error) {
	collection = vector.SanitizeName(collection)

	exists, err := s.Has(ctx, collection)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	_, err = s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: collection})
	if err != nil {
		return false, fmt.Errorf("qdrant drop: %w", err)
	}
	s.logger.Info("dropped collection", "collection", collection)
	return true, nil
}

// Count returns the number of chunks in the collection, 0 when missing.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: vector.SanitizeName(collection),
		Exact:          &exact,
	})
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int64(resp.GetResult().GetCount()), nil
}

// Close releases the gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func isNotFound(err error) bool {
	if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
		return true
	}
	return strings.Contains(err.Error(), "doesn't exist") || strings.Contains(err.Error(), "not found")
}

func isAlreadyExists(err error) bool {
	if st, ok := status.FromError(err); ok && st.Code() == codes.AlreadyExists {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}

var _ vector.Store = (*Store)(nil)
