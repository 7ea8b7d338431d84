// Package config loads ctxengine's configuration from a YAML file and
// environment variables, applying defaults for anything neither sets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectConfigFile is the per-project override, checked before the
// user config.
const ProjectConfigFile = ".contextengine.yaml"

// ConfigPathEnv, when set, names the config file to load directly,
// bypassing project/user discovery.
const ConfigPathEnv = "CTXENGINE_CONFIG"

// Config is ctxengine's full, merged configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// EmbeddingConfig selects and parameterizes the encoder.
type EmbeddingConfig struct {
	// Model is an encoder identifier, subject to encode.AllowedModels
	// unless CTXENGINE_ALLOW_CUSTOM_MODELS is set. Empty selects the
	// built-in hash encoder.
	Model string `yaml:"model"`
	// Dimensions is used by the hash encoder; ignored once an HTTP
	// encoder is connected to a real model.
	Dimensions int `yaml:"dimensions"`
	// Endpoint is the base URL for an HTTP-backed encoder, e.g.
	// "http://localhost:11434".
	Endpoint string `yaml:"endpoint"`
}

// SearchConfig tunes query-time score fusion.
type SearchConfig struct {
	// SemanticWeight weights the dense score against the sparse score
	// during fusion: combined = w*semantic + (1-w)*sparse.
	SemanticWeight float64 `yaml:"semantic_weight"`
}

// StorageConfig controls where project indexes are persisted.
type StorageConfig struct {
	// IndexPath overrides the default ~/.ctxengine/indexes base path.
	IndexPath string `yaml:"index_path"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
}

// Default returns Config populated with ctxengine's built-in defaults.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Model:      "",
			Dimensions: 384,
			Endpoint:   "",
		},
		Search: SearchConfig{
			SemanticWeight: 0.6,
		},
		Storage: StorageConfig{
			IndexPath: "",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load resolves configuration for a project at dir: built-in defaults,
// overlaid by a user config, overlaid by a project config, overlaid by
// environment variables. CTXENGINE_CONFIG, if set, is loaded instead of
// the user/project discovery and still yields to env var overrides.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if explicit := os.Getenv(ConfigPathEnv); explicit != "" {
		if err := mergeFile(cfg, explicit); err != nil {
			return nil, err
		}
	} else {
		if path, ok := userConfigPath(); ok {
			if err := mergeFile(cfg, path); err != nil {
				return nil, err
			}
		}
		projectPath := filepath.Join(dir, ProjectConfigFile)
		if fileExists(projectPath) {
			if err := mergeFile(cfg, projectPath); err != nil {
				return nil, err
			}
		}
	}

	applyEnvOverrides(cfg)
	cfg.clamp()
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	mergeNonZero(cfg, &parsed)
	return nil
}

// mergeNonZero overlays every non-zero field of other onto cfg. Zero
// values in a partially-specified YAML file are treated as "not set"
// rather than as explicit overrides to zero.
func mergeNonZero(cfg, other *Config) {
	if other.Embedding.Model != "" {
		cfg.Embedding.Model = other.Embedding.Model
	}
	if other.Embedding.Dimensions != 0 {
		cfg.Embedding.Dimensions = other.Embedding.Dimensions
	}
	if other.Embedding.Endpoint != "" {
		cfg.Embedding.Endpoint = other.Embedding.Endpoint
	}
	if other.Search.SemanticWeight != 0 {
		cfg.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Storage.IndexPath != "" {
		cfg.Storage.IndexPath = other.Storage.IndexPath
	}
	if other.Log.Level != "" {
		cfg.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		cfg.Log.Format = other.Log.Format
	}
}

// applyEnvOverrides applies the CTXENGINE_* environment variables
// described in the external-interfaces contract. These take
// precedence over every file-based source.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CTXENGINE_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("CTXENGINE_EMBEDDING_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Embedding.Dimensions = n
		} else {
			cfg.Embedding.Dimensions = 384
		}
	}
	if v := os.Getenv("CTXENGINE_SEMANTIC_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("CTXENGINE_INDEX_PATH"); v != "" {
		cfg.Storage.IndexPath = v
	}
	if v := os.Getenv("CTXENGINE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CTXENGINE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// clamp enforces valid bounds on otherwise-free-form fields, regardless
// of which source set them.
func (c *Config) clamp() {
	if c.Search.SemanticWeight < 0 {
		c.Search.SemanticWeight = 0
	}
	if c.Search.SemanticWeight > 1 {
		c.Search.SemanticWeight = 1
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Log.Format != "text" {
		c.Log.Format = "json"
	}
}

func userConfigPath() (string, bool) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		p := filepath.Join(xdg, "ctxengine", "config.yaml")
		return p, fileExists(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	p := filepath.Join(home, ".config", "ctxengine", "config.yaml")
	return p, fileExists(p)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
