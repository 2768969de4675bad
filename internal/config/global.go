// Package config handles workspace and global configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/regap/config.yml.
// Values here apply across workspaces: gateway credentials, service URLs,
// and the contact string SEC requests must carry.
type GlobalConfig struct {
	GatewayURL    string `yaml:"gateway_url,omitempty"`
	GatewayID     string `yaml:"gateway_id,omitempty"`
	GatewaySecret string `yaml:"gateway_secret,omitempty"`
	GatewayModel  string `yaml:"gateway_model,omitempty"`
	OllamaURL     string `yaml:"ollama_url,omitempty"`
	EmbedModel    string `yaml:"embed_model,omitempty"`
	SECUserAgent  string `yaml:"sec_user_agent,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "regap"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/regap/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// fromEnvOrGlobal prefers the environment (which godotenv populates from
// .env) over the global config file.
func fromEnvOrGlobal(envKey string, global func(*GlobalConfig) string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	cfg, _ := LoadGlobalConfig()
	return global(cfg)
}

// GetGatewayURL returns the generation gateway base URL.
func GetGatewayURL() string {
	return fromEnvOrGlobal("REGAP_GATEWAY_URL", func(c *GlobalConfig) string { return c.GatewayURL })
}

// GetGatewayID returns the gateway application id.
func GetGatewayID() string {
	return fromEnvOrGlobal("REGAP_GATEWAY_ID", func(c *GlobalConfig) string { return c.GatewayID })
}

// GetGatewaySecret returns the gateway application secret.
func GetGatewaySecret() string {
	return fromEnvOrGlobal("REGAP_GATEWAY_SECRET", func(c *GlobalConfig) string { return c.GatewaySecret })
}

// GetGatewayModel returns the gateway model identifier.
func GetGatewayModel() string {
	return fromEnvOrGlobal("REGAP_GATEWAY_MODEL", func(c *GlobalConfig) string { return c.GatewayModel })
}

// GetOllamaURL returns the embedding service base URL.
func GetOllamaURL() string {
	return fromEnvOrGlobal("REGAP_OLLAMA_URL", func(c *GlobalConfig) string { return c.OllamaURL })
}

// GetEmbedModel returns the globally configured embedding model.
func GetEmbedModel() string {
	return fromEnvOrGlobal("REGAP_EMBED_MODEL", func(c *GlobalConfig) string { return c.EmbedModel })
}

// GetSECUserAgent returns the User-Agent string for SEC requests.
// sec.gov rejects anonymous clients, so fetch refuses to run without one.
func GetSECUserAgent() string {
	return fromEnvOrGlobal("REGAP_SEC_USER_AGENT", func(c *GlobalConfig) string { return c.SECUserAgent })
}

// ErrGatewayNotConfigured is returned when gateway credentials are missing.
var ErrGatewayNotConfigured = errors.New("generation gateway not configured")

// ValidateGatewayConfig checks that the gateway URL and credentials are set.
// This is the testable version - CLI commands wrap it with a helpful message.
func ValidateGatewayConfig() error {
	if GetGatewayURL() == "" || GetGatewayID() == "" || GetGatewaySecret() == "" {
		return ErrGatewayNotConfigured
	}
	return nil
}

// HelpfulGatewayMessage returns a setup hint when gateway credentials are missing.
func HelpfulGatewayMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`Generation gateway credentials are not configured.

Tip: Create %s:
  mkdir -p %s
  cat > %s <<'EOF'
  gateway_url: https://gateway.example.com
  gateway_id: your-app-id
  gateway_secret: your-app-secret
  gateway_model: your-model-id
  EOF

Or export REGAP_GATEWAY_URL, REGAP_GATEWAY_ID, REGAP_GATEWAY_SECRET
(a .env file in the working directory is read automatically).`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
