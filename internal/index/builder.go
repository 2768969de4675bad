package index

import (
	"context"
	"fmt"
	"time"

	"github.com/complykit/regap/internal/chunk"
	"github.com/complykit/regap/internal/embedding"
)

// ProgressReporter receives progress updates during index building.
type ProgressReporter interface {
	// OnProgress is called with the current progress.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// embedWindow is how many chunks are embedded per batch. Batches keep the
// embedding service busy while still giving usable progress granularity.
const embedWindow = 32

// Builder constructs an embedding index from policy chunks.
type Builder struct {
	provider embedding.Provider
	progress ProgressReporter
}

// NewBuilder creates a new index builder.
func NewBuilder(provider embedding.Provider) *Builder {
	return &Builder{provider: provider}
}

// SetProgressReporter sets the progress reporter for the builder.
func (b *Builder) SetProgressReporter(reporter ProgressReporter) {
	b.progress = reporter
}

// Build embeds every chunk and assembles the position-aligned index.
// The build either completes for all chunks or fails; a partial index would
// break the ordinal-to-vector alignment every later lookup depends on.
func (b *Builder) Build(ctx context.Context, chunks []chunk.Chunk) (*Store, *BuildStats, error) {
	if len(chunks) == 0 {
		return nil, nil, ErrNoChunks
	}

	startTime := time.Now()

	idx := &Index{
		Version:    CurrentIndexVersion,
		ModelName:  b.provider.ModelName(),
		Dimensions: b.provider.Dimensions(),
		CreatedAt:  time.Now(),
		Vectors:    make([][]float32, 0, len(chunks)),
	}

	sources := make(map[string]struct{})
	total := len(chunks)

	for start := 0; start < total; start += embedWindow {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		end := start + embedWindow
		if end > total {
			end = total
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
			sources[c.Source] = struct{}{}
		}

		embs, err := embedding.EmbedBatch(ctx, b.provider, texts)
		if err != nil {
			return nil, nil, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}

		for i, emb := range embs {
			if len(emb.Vector) != idx.Dimensions {
				return nil, nil, fmt.Errorf("chunk %d: embedding dimension mismatch: got %d, want %d",
					start+i, len(emb.Vector), idx.Dimensions)
			}
			idx.Vectors = append(idx.Vectors, emb.Vector)
		}

		if b.progress != nil {
			b.progress.OnProgress(end, total)
		}
	}

	idx.ChunkCount = len(idx.Vectors)
	idx.BuildDurationMs = time.Since(startTime).Milliseconds()

	stats := &BuildStats{
		ChunksIndexed: idx.ChunkCount,
		Documents:     len(sources),
		Duration:      time.Since(startTime),
	}

	return &Store{Index: idx, Chunks: chunks}, stats, nil
}
