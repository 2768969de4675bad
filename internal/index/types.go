// Package index provides the flat embedding index over policy chunks.
package index

import (
	"time"

	"github.com/complykit/regap/internal/chunk"
)

// Index holds one embedding vector per indexed chunk. Vectors[i] is the
// embedding of chunk ordinal i; the slice position is the vector id. The
// index is immutable once built, a corpus change means a full rebuild.
type Index struct {
	// Version is the format version for compatibility checking.
	// Check against CurrentIndexVersion when loading.
	Version int `json:"version"`

	// Metadata about the index
	ModelName       string    `json:"model_name"`        // e.g., "all-minilm:l6-v2"
	Dimensions      int       `json:"dimensions"`        // 384 for all-minilm
	CreatedAt       time.Time `json:"created_at"`        // When index was built
	ChunkCount      int       `json:"chunk_count"`       // Number of chunks indexed
	BuildDurationMs int64     `json:"build_duration_ms"` // Time to build in milliseconds

	// Vectors holds the embeddings, position-aligned with chunk ordinals
	Vectors [][]float32 `json:"-"` // Not included in JSON output
}

// Hit is one nearest-neighbor result. Distance is squared Euclidean;
// ranking-equivalent to true L2 and cheaper to compute.
type Hit struct {
	ID       int     `json:"id"`
	Distance float32 `json:"distance"`
}

// Store bundles the index with the chunks it was built from. The two are
// persisted and loaded together; the position alignment between them is the
// retrieval contract.
type Store struct {
	Index  *Index
	Chunks []chunk.Chunk
}

// BuildStats contains statistics from index building.
type BuildStats struct {
	ChunksIndexed  int           `json:"chunks_indexed"`
	Documents      int           `json:"documents"`
	Duration       time.Duration `json:"duration"`
	IndexSizeBytes int64         `json:"index_size_bytes"`
}
