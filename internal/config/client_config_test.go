package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Stage != "PROD" {
		t.Errorf("Stage = %q, want PROD", cfg.Stage)
	}
	if cfg.ClientID != DefaultClientID {
		t.Errorf("ClientID = %q, want %q", cfg.ClientID, DefaultClientID)
	}
	if cfg.AuthEndpoint != DefaultAuthEndpoint {
		t.Errorf("AuthEndpoint = %q, want %q", cfg.AuthEndpoint, DefaultAuthEndpoint)
	}
	if cfg.TokenFile != DefaultTokenFile {
		t.Errorf("TokenFile = %q, want %q", cfg.TokenFile, DefaultTokenFile)
	}
}

func TestLoadAppliesFileValuesAndDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mdsclient.yaml")
	content := `
stage: TEST
auth-endpoint: https://auth.test.example/realms/test
scopes:
  - roles
  - offline_access
auth-mode: offline
token-file: /tmp/test-tokens.json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Stage != "TEST" {
		t.Errorf("Stage = %q, want TEST", cfg.Stage)
	}
	if cfg.AuthEndpoint != "https://auth.test.example/realms/test" {
		t.Errorf("AuthEndpoint = %q", cfg.AuthEndpoint)
	}
	if len(cfg.Scopes) != 2 || cfg.Scopes[0] != "roles" {
		t.Errorf("Scopes = %v", cfg.Scopes)
	}
	if cfg.AuthMode != "offline" {
		t.Errorf("AuthMode = %q, want offline", cfg.AuthMode)
	}
	// Omitted values still pick up defaults.
	if cfg.ClientID != DefaultClientID {
		t.Errorf("ClientID = %q, want default", cfg.ClientID)
	}
	if cfg.DataStoreEndpoint != DefaultDataStoreEndpoint {
		t.Errorf("DataStoreEndpoint = %q, want default", cfg.DataStoreEndpoint)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mdsclient.yaml")
	if err := os.WriteFile(path, []byte("stage: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}
