// Package config holds the endpoints and settings shared by vectorctl and the dashboard.
//
// Values are resolved in this order, later sources winning: built-in defaults,
// the TOML config file, environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "vecdash.toml"

// Config is the full set of settings for one process
type Config struct {
	Qdrant    QdrantConfig    `toml:"qdrant"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Log       LogConfig       `toml:"log"`
	Dashboard DashboardConfig `toml:"dashboard"`
}

// QdrantConfig locates the vector database's gRPC endpoint
type QdrantConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// OllamaConfig describes the embedding backend used when collections are created and searched
type OllamaConfig struct {
	URL        string `toml:"url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
}

// LogConfig configures the append-only log sink
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// DashboardConfig configures the dashboard HTTP listener
type DashboardConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when nothing else is set
func Default() Config {
	return Config{
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Ollama: OllamaConfig{
			URL:        "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		},
		Log: LogConfig{
			File:  "logs/vecdash.log",
			Level: "INFO",
		},
		Dashboard: DashboardConfig{
			Addr: ":8501",
		},
	}
}

// QdrantAddr returns host:port of the vector database
func (c Config) QdrantAddr() string {
	return net.JoinHostPort(c.Qdrant.Host, strconv.Itoa(c.Qdrant.Port))
}

// Load builds a Config from defaults, the file at path and the environment.
// A missing file is not an error when path is DefaultFile or empty.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != "" && path != DefaultFile
	if path == "" {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no config file, defaults apply
	default:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		c.Qdrant.Host = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid QDRANT_PORT %q: %w", v, err)
		}
		c.Qdrant.Port = port
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.Ollama.URL = v
	}
	if v := os.Getenv("OLLAMA_EMBED_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("VECDASH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks the settings that would otherwise fail late and obscurely
func (c Config) Validate() error {
	if c.Qdrant.Host == "" {
		return errors.New("qdrant host must not be empty")
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("qdrant port %d out of range", c.Qdrant.Port)
	}
	if c.Ollama.Model == "" {
		return errors.New("ollama model must not be empty")
	}
	if c.Ollama.Dimensions < 0 {
		return fmt.Errorf("ollama dimensions %d must not be negative", c.Ollama.Dimensions)
	}
	return nil
}
