// Package embedding provides vector embedding generation for text.
package embedding

import (
	"context"
	"fmt"
	"sync"
)

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // The embedding vector (e.g., 384 dimensions for all-minilm)
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// maxEmbedConcurrency bounds in-flight embedding requests during a batch.
// Local embedding services degrade sharply past a handful of parallel calls.
const maxEmbedConcurrency = 4

// EmbedBatch embeds texts with bounded concurrency and returns vectors in
// input order: result[i] always corresponds to texts[i]. Any failure aborts
// the batch; an index built from a partial batch would silently misalign
// vectors and chunks.
func EmbedBatch(ctx context.Context, p Provider, texts []string) ([]Embedding, error) {
	results := make([]Embedding, len(texts))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, maxEmbedConcurrency)

	for i, text := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, input string) {
			defer wg.Done()
			defer func() { <-sem }()

			mu.Lock()
			failed := firstErr != nil
			mu.Unlock()
			if failed {
				return
			}

			emb, err := p.Embed(ctx, input)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("embedding text %d: %w", idx, err)
				}
				return
			}
			results[idx] = emb
		}(i, text)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
