// Package config loads jivemcp's runtime configuration from a TOML file
// and environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the jivemcp server.
// Precedence: environment variables > config file > defaults.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Worker    WorkerConfig    `toml:"worker"`
	Transport TransportConfig `toml:"transport"`
	Log       LogConfig       `toml:"log"`
}

// StoreConfig controls where and how namespaces are materialized on disk.
type StoreConfig struct {
	DataDir              string `toml:"data_dir"`          // root of namespaces directory
	DefaultNamespace     string `toml:"default_namespace"` // fallback namespace
	AutoCreateNamespaces bool   `toml:"auto_create_namespaces"`
	MaxOpenNamespaces    int    `toml:"max_open_namespaces"` // LRU bound on concurrently-open store handles
}

// EmbeddingConfig identifies the local embedding model. Dimension is
// discovered at startup rather than configured.
type EmbeddingConfig struct {
	ModelID string `toml:"embedding_model_id"`
}

// WorkerConfig bounds concurrency for store/embedding work and caps how
// long a single tool call may run.
type WorkerConfig struct {
	PoolSize              int `toml:"worker_pool_size"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// TransportConfig holds transport-related settings.
type TransportConfig struct {
	// Mode selects the transport: "stdio" (default) or "http".
	Mode string `toml:"mode"`
	// Port is the MCP/HTTP listen port (default: 8765). Only used when Mode is "http".
	Port string `toml:"mcp_port"`
	// Host is the HTTP listen address (default: "0.0.0.0"). Only used when Mode is "http".
	Host string `toml:"host"`
	// CORSOrigins is a comma-separated list of allowed CORS origins (default: "*").
	CORSOrigins string `toml:"cors_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Load creates a Config by reading from a TOML config file and environment
// variables. Precedence: environment variables > config file > defaults.
//
// Config file search order (first found wins):
//  1. Path passed via configPath parameter (from --config flag)
//  2. JIVEMCP_CONFIG environment variable
//  3. ./jivemcp.toml (current directory)
//  4. ~/.config/jivemcp/jivemcp.toml (XDG-style)
//
// All fields are optional in the config file. Environment variables always
// override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Store: StoreConfig{
			DataDir:              "./data",
			DefaultNamespace:     "default",
			AutoCreateNamespaces: true,
			MaxOpenNamespaces:    16,
		},
		Embedding: EmbeddingConfig{
			ModelID: "jivemcp-hashing-v1-d256",
		},
		Worker: WorkerConfig{
			PoolSize:              4,
			RequestTimeoutSeconds: 30,
		},
		Transport: TransportConfig{
			Mode:        "stdio",
			Port:        "8765",
			Host:        "0.0.0.0",
			CORSOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile finds and parses the TOML config file. If no file is found,
// this is a no-op (config file is optional).
func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil // no config file found; rely on defaults + env
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	return nil
}

// resolveConfigPath determines which config file to use. Returns empty
// string if no config file is found (config file is optional).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit // caller wants this file; let DecodeFile report if missing
	}

	if p := os.Getenv("JIVEMCP_CONFIG"); p != "" {
		return p
	}

	if _, err := os.Stat("jivemcp.toml"); err == nil {
		return "jivemcp.toml"
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/jivemcp/jivemcp.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnv overlays environment variables on top of existing config
// values. An env var only takes effect if it is non-empty.
func (c *Config) applyEnv() {
	envOverride("JIVEMCP_DATA_DIR", &c.Store.DataDir)
	envOverride("JIVEMCP_DEFAULT_NAMESPACE", &c.Store.DefaultNamespace)
	envOverrideBool("JIVEMCP_AUTO_CREATE_NAMESPACES", &c.Store.AutoCreateNamespaces)
	envOverrideInt("JIVEMCP_MAX_OPEN_NAMESPACES", &c.Store.MaxOpenNamespaces)

	envOverride("JIVEMCP_EMBEDDING_MODEL_ID", &c.Embedding.ModelID)

	envOverrideInt("JIVEMCP_WORKER_POOL_SIZE", &c.Worker.PoolSize)
	envOverrideInt("JIVEMCP_REQUEST_TIMEOUT_SECONDS", &c.Worker.RequestTimeoutSeconds)

	envOverride("JIVEMCP_TRANSPORT", &c.Transport.Mode)
	envOverride("JIVEMCP_MCP_PORT", &c.Transport.Port)
	envOverride("JIVEMCP_HOST", &c.Transport.Host)
	envOverride("JIVEMCP_CORS_ORIGINS", &c.Transport.CORSOrigins)

	envOverride("JIVEMCP_LOG_LEVEL", &c.Log.Level)
}

// Validate checks that required fields are present and internally
// consistent.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode: %q (must be \"stdio\" or \"http\")", c.Transport.Mode)
	}
	if c.Store.MaxOpenNamespaces < 1 {
		return fmt.Errorf("store.max_open_namespaces must be at least 1, got %d", c.Store.MaxOpenNamespaces)
	}
	if c.Worker.PoolSize < 1 {
		return fmt.Errorf("worker.worker_pool_size must be at least 1, got %d", c.Worker.PoolSize)
	}
	if c.Worker.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("worker.request_timeout_seconds must be at least 1, got %d", c.Worker.RequestTimeoutSeconds)
	}
	return nil
}

// envOverride sets *dst to the value of the named env var, if it is non-empty.
func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func envOverrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			*dst = n
		}
	}
}
