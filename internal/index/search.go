package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/complykit/regap/internal/chunk"
	"github.com/complykit/regap/internal/embedding"
)

// L2Distance computes the squared Euclidean distance between two vectors.
// Smaller means closer. Returns 0 for mismatched or empty inputs.
func L2Distance(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return sum
}

// Search scans every vector and returns the k nearest chunk ids, closest
// first. k is clamped to the index size; an empty index or non-positive k
// yields an empty result. Ties break on ascending id so results are stable
// across runs.
func (idx *Index) Search(query []float32, k int) []Hit {
	if len(idx.Vectors) == 0 || k <= 0 || len(query) != idx.Dimensions {
		return nil
	}
	if k > len(idx.Vectors) {
		k = len(idx.Vectors)
	}

	hits := make([]Hit, 0, len(idx.Vectors))
	for id, vec := range idx.Vectors {
		hits = append(hits, Hit{ID: id, Distance: L2Distance(query, vec)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	return hits[:k]
}

// SearchText embeds the query and searches the index.
func (s *Store) SearchText(ctx context.Context, provider embedding.Provider, query string, k int) ([]Hit, error) {
	if len(s.Index.Vectors) == 0 {
		return nil, nil
	}

	emb, err := provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(emb.Vector) != s.Index.Dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d",
			len(emb.Vector), s.Index.Dimensions)
	}

	return s.Index.Search(emb.Vector, k), nil
}

// Retrieve returns the chunks nearest to a query, closest first.
func (s *Store) Retrieve(ctx context.Context, provider embedding.Provider, query string, k int) ([]chunk.Chunk, error) {
	hits, err := s.SearchText(ctx, provider, query, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]chunk.Chunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, s.Chunks[hit.ID])
	}

	return chunks, nil
}
