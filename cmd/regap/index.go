package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/complykit/regap/internal/config"
	"github.com/complykit/regap/internal/index"
	"github.com/complykit/regap/internal/pdf"
	"github.com/complykit/regap/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	noProgress bool
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexInfoCmd)

	indexBuildCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the policy embedding index",
	Long:  `Commands for building and inspecting the internal policy embedding index.`,
}

// IndexBuildResult is the response for index build command.
type IndexBuildResult struct {
	Status          string  `json:"status"`
	Documents       int     `json:"documents"`
	ChunksIndexed   int     `json:"chunks_indexed"`
	DurationSeconds float64 `json:"duration_seconds"`
	Model           string  `json:"model"`
	IndexSizeBytes  int64   `json:"index_size_bytes"`
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or rebuild the policy index",
	Long: `Build or rebuild the embedding index from the internal policy PDFs.

Requires Ollama to be running with the embedding model available.
Run 'ollama pull all-minilm:l6-v2' to download the model.`,
	RunE: runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	root := mustFindWorkspace()
	cfg := mustLoadConfig(root)

	// Check embedding service availability
	provider := newEmbeddingProvider(cfg)
	mustEmbeddingReady(ctx, provider)

	docsDir := cfg.DocsPath(root)
	docPaths, err := pdf.List(docsDir)
	if err != nil {
		exitWithError(ExitError, "listing policy documents: %v", err)
	}
	if len(docPaths) == 0 {
		exitWithError(ExitDataError, "No internal policy PDFs found in %s\n\nCopy your policy documents there and re-run.", docsDir)
	}

	pipe := pipeline.New(pipeline.Options{
		DocsDir:  docsDir,
		StoreDir: config.StorePath(root),
		Provider: provider,
	})

	// Set progress reporter unless suppressed
	if humanOutput && !noProgress {
		pipe.SetProgressReporter(index.ProgressFunc(printProgress))
		fmt.Fprintf(os.Stderr, "Building policy index...\n")
	}

	_, stats, err := pipe.BuildIndex(ctx, docPaths)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoReadableDocuments) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "building index: %v", err)
	}

	// Get index size
	indexSize, err := index.Size(config.StorePath(root))
	if err != nil {
		indexSize = 0 // Non-fatal
	}
	stats.IndexSizeBytes = indexSize

	// Clear progress line if we were showing progress
	if humanOutput && !noProgress {
		clearProgress()
	}

	// Output results
	if humanOutput {
		fmt.Printf("\nBuild complete:\n")
		fmt.Printf("  Documents indexed: %d\n", stats.Documents)
		fmt.Printf("  Chunks indexed: %d\n", stats.ChunksIndexed)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(stats.Duration))
		fmt.Printf("  Index size: %s\n", formatBytes(stats.IndexSizeBytes))
		fmt.Printf("  Model: %s\n", provider.ModelName())
	} else {
		outputJSON(IndexBuildResult{
			Status:          "complete",
			Documents:       stats.Documents,
			ChunksIndexed:   stats.ChunksIndexed,
			DurationSeconds: stats.Duration.Seconds(),
			Model:           provider.ModelName(),
			IndexSizeBytes:  indexSize,
		})
	}

	return nil
}

// IndexInfoResult is the response for index info command.
type IndexInfoResult struct {
	Status         string `json:"status"`
	Chunks         int    `json:"chunks"`
	Dimensions     int    `json:"dimensions"`
	Model          string `json:"model"`
	Created        string `json:"created"`
	IndexSizeBytes int64  `json:"index_size_bytes"`
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show policy index details",
	Long:  `Show the size, model, and age of the persisted policy index.`,
	RunE:  runIndexInfo,
}

func runIndexInfo(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	storeDir := config.StorePath(root)

	store, err := index.Load(storeDir)
	if err != nil {
		if errors.Is(err, index.ErrStoreNotFound) {
			exitWithError(ExitConfigError, "Policy index not found\n\nRun 'regap index build' to create it.")
		}
		exitWithError(ExitError, "loading index: %v", err)
	}

	indexSize, _ := index.Size(storeDir)

	if humanOutput {
		fmt.Printf("Policy Index:\n")
		fmt.Printf("  Chunks: %d\n", store.Index.ChunkCount)
		fmt.Printf("  Dimensions: %d\n", store.Index.Dimensions)
		fmt.Printf("  Model: %s\n", store.Index.ModelName)
		fmt.Printf("  Created: %s\n", store.Index.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Size: %s\n", formatBytes(indexSize))
	} else {
		outputJSON(IndexInfoResult{
			Status:         "ready",
			Chunks:         store.Index.ChunkCount,
			Dimensions:     store.Index.Dimensions,
			Model:          store.Index.ModelName,
			Created:        store.Index.CreatedAt.Format(time.RFC3339),
			IndexSizeBytes: indexSize,
		})
	}

	return nil
}
