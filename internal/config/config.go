// Package config handles workspace configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents workspace configuration stored in .regap/config.json.
// Directory values may be absolute, ~-prefixed, or relative to the
// workspace root.
type Config struct {
	DocsDir    string `json:"docs_dir"`              // Internal policy PDFs
	RulesDir   string `json:"rules_dir"`             // Regulation PDFs (manual or fetched)
	ReportsDir string `json:"reports_dir"`           // Synthesized reports
	EmbedModel string `json:"embed_model,omitempty"` // Embedding model override
	Workers    int    `json:"workers,omitempty"`     // Gap analysis concurrency
	TopK       int    `json:"top_k,omitempty"`       // Retrieved chunks per mandate
}

const (
	RegapDir   = ".regap"
	ConfigFile = "config.json"
	StoreDir   = "store"
	CacheDir   = "cache"
	DBFile     = "regap.db"

	DefaultDocsDir    = "docs"
	DefaultRulesDir   = "rules"
	DefaultReportsDir = "reports"
	DefaultWorkers    = 4
	DefaultTopK       = 5
)

// MaxWorkers caps gap-analysis concurrency. Each worker holds an in-flight
// generation call; more than this saturates gateway rate limits long before
// it buys throughput.
const MaxWorkers = 16

// RegapPath returns the path to the .regap directory from a root path.
func RegapPath(root string) string {
	return filepath.Join(root, RegapDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, RegapDir, ConfigFile)
}

// StorePath returns the path to the embedding store directory from a root path.
func StorePath(root string) string {
	return filepath.Join(root, RegapDir, StoreDir)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, RegapDir, CacheDir)
}

// DBPath returns the path to regap.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, RegapDir, CacheDir, DBFile)
}

// Default returns a configuration populated with workspace-relative defaults.
func Default() *Config {
	return &Config{
		DocsDir:    DefaultDocsDir,
		RulesDir:   DefaultRulesDir,
		ReportsDir: DefaultReportsDir,
		Workers:    DefaultWorkers,
		TopK:       DefaultTopK,
	}
}

// IsWorkspace checks if the given path contains a regap workspace.
func IsWorkspace(root string) bool {
	info, err := os.Stat(RegapPath(root))
	return err == nil && info.IsDir()
}

// FindWorkspace walks up from the given path to find a regap workspace.
// REGAP_ROOT short-circuits the walk when set.
// Returns the workspace root path or an error if not found.
func FindWorkspace(start string) (string, error) {
	if env := os.Getenv("REGAP_ROOT"); env != "" {
		root := ExpandPath(env)
		if !IsWorkspace(root) {
			return "", fmt.Errorf("REGAP_ROOT is not a regap workspace: %s", root)
		}
		return root, nil
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsWorkspace(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a regap workspace (no .regap directory found)")
		}
		abs = parent
	}
}

// Load reads configuration from the workspace at the given root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Workers > MaxWorkers {
		cfg.Workers = MaxWorkers
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	return &cfg, nil
}

// Save writes configuration to the workspace at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Resolve turns a configured directory value into an absolute path,
// expanding ~ and resolving relative values against the workspace root.
func Resolve(root, dir string) string {
	dir = ExpandPath(dir)
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// DocsPath returns the absolute internal-policy directory for the workspace.
func (c *Config) DocsPath(root string) string {
	return Resolve(root, c.DocsDir)
}

// RulesPath returns the absolute regulation directory for the workspace.
func (c *Config) RulesPath(root string) string {
	return Resolve(root, c.RulesDir)
}

// ReportsPath returns the absolute reports directory for the workspace.
func (c *Config) ReportsPath(root string) string {
	return Resolve(root, c.ReportsDir)
}

// ValidateDir checks that a configured path exists and is a directory.
func ValidateDir(path string) error {
	if path == "" {
		return nil // Empty is allowed (not yet configured)
	}

	expanded := ExpandPath(path)

	info, err := os.Stat(expanded)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", expanded)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", expanded)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
