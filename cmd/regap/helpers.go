package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/complykit/regap/internal/config"
	"github.com/complykit/regap/internal/embedding"
	"github.com/complykit/regap/internal/llm"
	"github.com/complykit/regap/internal/pipeline"
	"github.com/complykit/regap/internal/secgov"
	"github.com/complykit/regap/internal/storage"
)

// mustFindWorkspace locates the enclosing regap workspace or exits.
func mustFindWorkspace() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	root, err := config.FindWorkspace(cwd)
	if err != nil {
		exitWithError(ExitConfigError, "%v\n\nRun 'regap init' to create a workspace.", err)
	}
	return root
}

// mustLoadConfig loads the workspace configuration or exits.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenDatabase opens the workspace database or exits. The cache
// directory is created on demand so a fresh clone of a workspace works.
func mustOpenDatabase(root string) *storage.DB {
	dbPath := config.DBPath(root)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}

	db, err := storage.OpenDB(dbPath)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// newEmbeddingProvider builds the Ollama provider from workspace and
// global configuration.
func newEmbeddingProvider(cfg *config.Config) *embedding.OllamaProvider {
	var opts []embedding.OllamaOption
	if url := config.GetOllamaURL(); url != "" {
		opts = append(opts, embedding.WithBaseURL(url))
	}

	model := cfg.EmbedModel
	if model == "" {
		model = config.GetEmbedModel()
	}
	if model != "" {
		opts = append(opts, embedding.WithModel(model))
	}

	return embedding.NewOllamaProvider(opts...)
}

// mustEmbeddingReady verifies the embedding service is reachable and the
// model is pulled, exiting with setup hints otherwise.
func mustEmbeddingReady(ctx context.Context, provider *embedding.OllamaProvider) {
	if err := provider.IsAvailable(ctx); err != nil {
		exitWithError(ExitDataError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
	}

	hasModel, err := provider.HasModel(ctx)
	if err != nil {
		exitWithError(ExitError, "checking model availability: %v", err)
	}
	if !hasModel {
		exitWithError(ExitDataError, "Embedding model '%s' not found\n\nRun 'ollama pull %s' to download it.", provider.ModelName(), provider.ModelName())
	}
}

// mustGatewayClient builds the generation gateway client or exits with
// configuration guidance.
func mustGatewayClient() llm.Client {
	if err := config.ValidateGatewayConfig(); err != nil {
		exitWithError(ExitConfigError, "%s", config.HelpfulGatewayMessage())
	}
	return llm.NewGatewayClient(
		config.GetGatewayURL(),
		config.GetGatewayID(),
		config.GetGatewaySecret(),
		config.GetGatewayModel(),
	)
}

// mustMonitor builds the SEC rulemaking monitor. A contact User-Agent is
// required: sec.gov rejects anonymous scrapers, so fetching refuses to
// run without one configured.
func mustMonitor(db *storage.DB, rulesDir string) *secgov.Monitor {
	ua := config.GetSECUserAgent()
	if ua == "" {
		exitWithError(ExitConfigError,
			"SEC User-Agent not configured\n\nSet REGAP_SEC_USER_AGENT (or sec_user_agent in %s)\nto something like \"yourcompany-compliance contact@yourcompany.com\".\nThe SEC requires a contact string on automated requests.",
			config.GlobalConfigPath())
	}
	return secgov.NewMonitor(db, rulesDir, secgov.WithUserAgent(ua))
}

// newPipeline wires the full pipeline for the workspace. The monitor may
// be nil when the command does not fetch.
func newPipeline(root string, cfg *config.Config, client llm.Client, provider embedding.Provider, db *storage.DB, monitor *secgov.Monitor) *pipeline.Pipeline {
	return pipeline.New(pipeline.Options{
		DocsDir:    cfg.DocsPath(root),
		RulesDir:   cfg.RulesPath(root),
		ReportsDir: cfg.ReportsPath(root),
		StoreDir:   config.StorePath(root),
		Provider:   provider,
		Client:     client,
		DB:         db,
		Monitor:    monitor,
		Workers:    cfg.Workers,
		TopK:       cfg.TopK,
	})
}
