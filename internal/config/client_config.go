// Package config provides configuration management for the MDS client. It
// handles loading and parsing the YAML configuration file and provides
// structured access to the authorization, storage, and data store API
// settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the configuration file omits a value.
const (
	DefaultClientID          = "client-tools"
	DefaultOfflineClientID   = "automated-access"
	DefaultAuthEndpoint      = "https://auth.rrap-is.com/auth/realms/rrap"
	DefaultDataStoreEndpoint = "https://data-api.mds.gbrrestoration.org"
	DefaultTokenFile         = ".tokens.json"
)

// Config represents the client configuration, loaded from a YAML file.
type Config struct {
	// Stage is the deployment environment whose credentials this client
	// uses: TEST, DEV, STAGE, or PROD.
	Stage string `yaml:"stage"`

	// AuthEndpoint is the authorization server realm base URL.
	AuthEndpoint string `yaml:"auth-endpoint"`

	// ClientID is the OAuth client id used for interactive device flows.
	ClientID string `yaml:"client-id"`

	// OfflineClientID is the OAuth client id used for offline (automated)
	// access.
	OfflineClientID string `yaml:"offline-client-id"`

	// Scopes are the OIDC scopes requested against the client.
	Scopes []string `yaml:"scopes"`

	// AuthMode selects the authorization flow: "device" or "offline".
	AuthMode string `yaml:"auth-mode"`

	// TokenFile is the path of the stage token cache.
	TokenFile string `yaml:"token-file"`

	// DataStoreEndpoint is the data store API base URL.
	DataStoreEndpoint string `yaml:"datastore-endpoint"`

	// LogFile, when set, mirrors log output into a rotating file.
	LogFile string `yaml:"log-file,omitempty"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug,omitempty"`
}

// Default returns a configuration populated with the standard endpoints.
func Default() *Config {
	return &Config{
		Stage:             "PROD",
		AuthEndpoint:      DefaultAuthEndpoint,
		ClientID:          DefaultClientID,
		OfflineClientID:   DefaultOfflineClientID,
		AuthMode:          "device",
		TokenFile:         DefaultTokenFile,
		DataStoreEndpoint: DefaultDataStoreEndpoint,
	}
}

// Load reads the configuration file at path. A missing file yields the
// default configuration; a present but invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s failed: %w", path, err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s failed: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Stage == "" {
		c.Stage = "PROD"
	}
	if c.AuthEndpoint == "" {
		c.AuthEndpoint = DefaultAuthEndpoint
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.OfflineClientID == "" {
		c.OfflineClientID = DefaultOfflineClientID
	}
	if c.AuthMode == "" {
		c.AuthMode = "device"
	}
	if c.TokenFile == "" {
		c.TokenFile = DefaultTokenFile
	}
	if c.DataStoreEndpoint == "" {
		c.DataStoreEndpoint = DefaultDataStoreEndpoint
	}
}
