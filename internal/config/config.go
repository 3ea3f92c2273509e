// Package config loads and saves the dinid daemon's YAML configuration,
// following the teacher's internal/node/config.go pattern: a struct with
// yaml tags, a DefaultConfig, and a LoadConfig/Save pair that creates a
// default file on first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Role identifies which of the three node roles a process runs as.
type Role string

// The closed set of roles.
const (
	RoleBootstrap Role = "bootstrap"
	RoleMiner     Role = "miner"
	RoleUser      Role = "user"
)

// Config is the full configuration for a dinid process.
type Config struct {
	Role     Role           `yaml:"role"`
	Identity IdentityConfig `yaml:"identity"`
	Network  NetworkConfig  `yaml:"network"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Miner    MinerConfig    `yaml:"miner"`
}

// IdentityConfig holds this node's name and key-file locations.
type IdentityConfig struct {
	Name       string `yaml:"name"`
	KeyFile    string `yaml:"key_file"`
	BundleFile string `yaml:"well_known_bundle_file"`
	// BundlePassphrase, if set, seals the well-known key bundle at rest
	// via internal/xcrypto instead of storing it as plaintext PEM.
	BundlePassphrase string `yaml:"bundle_passphrase,omitempty"`
}

// NetworkConfig holds listen and bootstrap-directory settings.
type NetworkConfig struct {
	ListenIP          string   `yaml:"listen_ip"`
	ListenPort        int      `yaml:"listen_port"`
	BootstrapDirFile  string   `yaml:"bootstrap_directory_file"`
	ConnectAddrs      []string `yaml:"connect_addrs"`
}

// StorageConfig holds the data directory for persisted state.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MinerConfig holds miner-role tuning knobs.
type MinerConfig struct {
	Difficulty    int `yaml:"difficulty"`
	Workers       int `yaml:"workers"`
	BlockBudget   int `yaml:"block_budget"`
	MempoolSelect int `yaml:"mempool_select"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Role: RoleUser,
		Identity: IdentityConfig{
			Name:       "dini-node",
			KeyFile:    "node.key",
			BundleFile: "wellknown.pem",
		},
		Network: NetworkConfig{
			ListenIP:         "0.0.0.0",
			ListenPort:       8000,
			BootstrapDirFile: "bootstrap_directory.json",
		},
		Storage: StorageConfig{
			DataDir: "~/.dini",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Miner: MinerConfig{
			Difficulty:    3,
			Workers:       4,
			BlockBudget:   -1,
			MempoolSelect: 16,
		},
	}
}

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// LoadConfig loads configuration from dataDir/config.yaml, creating a
// default file on first run.
func LoadConfig(dataDir string) (*Config, error) {
	expandedDir := expandPath(dataDir)
	configPath := filepath.Join(expandedDir, ConfigFileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.Storage.DataDir = dataDir
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	header := []byte("# Dini node configuration\n# Generated automatically on first run\n\n")
	return os.WriteFile(path, append(header, data...), 0600)
}

// ConfigPath returns the full config file path for a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
