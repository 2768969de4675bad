package config

import (
	"os"
	"path/filepath"
	"testing"
)

// clearGatewayEnv blanks the env overrides so tests exercise the yaml path.
func clearGatewayEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REGAP_GATEWAY_URL", "REGAP_GATEWAY_ID", "REGAP_GATEWAY_SECRET",
		"REGAP_GATEWAY_MODEL", "REGAP_OLLAMA_URL", "REGAP_EMBED_MODEL",
		"REGAP_SEC_USER_AGENT",
	} {
		orig := os.Getenv(key)
		os.Setenv(key, "")
		t.Cleanup(func() { os.Setenv(key, orig) })
	}
}

func TestGlobalConfigPath(t *testing.T) {
	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	path := GlobalConfigPath()
	want := "/custom/config/regap/config.yml"
	if path != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", path, want)
	}

	os.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	path = GlobalConfigPath()
	want = filepath.Join(home, ".config", "regap", "config.yml")
	if path != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", path, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	// Point to a directory with no config file
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadGlobalConfig() returned nil")
	}
	if cfg.GatewayURL != "" {
		t.Errorf("GatewayURL = %q, want empty", cfg.GatewayURL)
	}
}

func writeGlobalConfig(t *testing.T, yml string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, GlobalConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, GlobalConfigFile), []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	return tmpDir
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	tmpDir := writeGlobalConfig(t, `
gateway_url: https://gw.example.com
gateway_id: app-1
gateway_secret: s3cret
gateway_model: model-x
ollama_url: http://localhost:11434
embed_model: all-minilm:l6-v2
sec_user_agent: Example Corp compliance@example.com
`)
	os.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	if cfg.GatewayURL != "https://gw.example.com" {
		t.Errorf("GatewayURL = %q", cfg.GatewayURL)
	}
	if cfg.GatewayID != "app-1" {
		t.Errorf("GatewayID = %q", cfg.GatewayID)
	}
	if cfg.GatewaySecret != "s3cret" {
		t.Errorf("GatewaySecret = %q", cfg.GatewaySecret)
	}
	if cfg.GatewayModel != "model-x" {
		t.Errorf("GatewayModel = %q", cfg.GatewayModel)
	}
	if cfg.SECUserAgent != "Example Corp compliance@example.com" {
		t.Errorf("SECUserAgent = %q", cfg.SECUserAgent)
	}
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	tmpDir := writeGlobalConfig(t, "gateway_url: [unclosed")
	os.Setenv("XDG_CONFIG_HOME", tmpDir)

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() should return error for invalid YAML")
	}
}

func TestGetGatewayID_EnvPriority(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	clearGatewayEnv(t)

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	tmpDir := writeGlobalConfig(t, "gateway_id: from-config\n")
	os.Setenv("XDG_CONFIG_HOME", tmpDir)

	// Env var takes priority
	os.Setenv("REGAP_GATEWAY_ID", "from-env")
	if got := GetGatewayID(); got != "from-env" {
		t.Errorf("GetGatewayID() = %q, want from-env", got)
	}

	// Without env var, falls back to config
	os.Setenv("REGAP_GATEWAY_ID", "")
	ResetGlobalConfigCache()
	if got := GetGatewayID(); got != "from-config" {
		t.Errorf("GetGatewayID() = %q, want from-config", got)
	}
}

func TestValidateGatewayConfig(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	clearGatewayEnv(t)

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	// Nothing configured
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := ValidateGatewayConfig(); err == nil {
		t.Error("ValidateGatewayConfig() should fail with nothing configured")
	}

	// Partial config still fails
	os.Setenv("REGAP_GATEWAY_URL", "https://gw.example.com")
	if err := ValidateGatewayConfig(); err == nil {
		t.Error("ValidateGatewayConfig() should fail without credentials")
	}

	// Full config passes
	os.Setenv("REGAP_GATEWAY_ID", "id")
	os.Setenv("REGAP_GATEWAY_SECRET", "secret")
	if err := ValidateGatewayConfig(); err != nil {
		t.Errorf("ValidateGatewayConfig() error = %v", err)
	}
}

func TestHelpfulGatewayMessage(t *testing.T) {
	msg := HelpfulGatewayMessage()
	if msg == "" {
		t.Error("HelpfulGatewayMessage() returned empty string")
	}
	if len(msg) < 50 {
		t.Error("HelpfulGatewayMessage() seems too short")
	}
}

func TestGlobalConfigCache(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)

	tmpDir := writeGlobalConfig(t, "gateway_id: cached-id\n")
	configFile := filepath.Join(tmpDir, GlobalConfigDir, GlobalConfigFile)
	os.Setenv("XDG_CONFIG_HOME", tmpDir)

	// First load
	cfg1, _ := LoadGlobalConfig()
	if cfg1.GatewayID != "cached-id" {
		t.Errorf("First load: GatewayID = %q, want cached-id", cfg1.GatewayID)
	}

	// Modify file; second load should return cached value
	if err := os.WriteFile(configFile, []byte("gateway_id: modified-id\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg2, _ := LoadGlobalConfig()
	if cfg2.GatewayID != "cached-id" {
		t.Errorf("Second load: GatewayID = %q, want cached-id (cached)", cfg2.GatewayID)
	}

	// Reset cache; third load should read modified file
	ResetGlobalConfigCache()
	cfg3, _ := LoadGlobalConfig()
	if cfg3.GatewayID != "modified-id" {
		t.Errorf("Third load: GatewayID = %q, want modified-id", cfg3.GatewayID)
	}
}
