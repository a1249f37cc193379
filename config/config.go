package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the index tool.
type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Corpus  CorpusConfig  `yaml:"corpus"`
	Query   QueryConfig   `yaml:"query"`
	Logging LoggingConfig `yaml:"logging"`
}

// IndexConfig chooses how the artifact is written. Both values are baked
// into the artifact at build time, so a reader must use the same ones.
type IndexConfig struct {
	Engine string `yaml:"engine"` // "sqlite" or "bolt"
	Codec  string `yaml:"codec"`  // "zstd" or "snappy"
}

// CorpusConfig selects the corpus files under the corpus root.
type CorpusConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// QueryConfig holds query-side tuning.
type QueryConfig struct {
	CachePages int `yaml:"cache_pages"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Engine: "sqlite",
			Codec:  "zstd",
		},
		Corpus: CorpusConfig{
			Includes: []string{"**/*.jsonl"},
			Excludes: []string{"**/.*/**"},
		},
		Query: QueryConfig{
			CachePages: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for encindex.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "encindex.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".encindex", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDir returns the default index artifact directory under dir.
func IndexDir(dir string) string {
	return filepath.Join(dir, ".encindex", "index")
}
