// Package config loads the server configuration from JSON files and the
// environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the server configuration.
type Config struct {
	// Listen is the address to listen on (e.g., ":18100").
	Listen string `json:"listen"`
	// Backend selects the store implementation: "sqlite" or "neo4j".
	Backend string `json:"backend"`
	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `json:"sqlite_path"`
	// Neo4j configures the neo4j backend.
	Neo4j Neo4jConfig `json:"neo4j"`
	// Webhooks receive a POST for every graph mutation.
	Webhooks []string `json:"webhooks"`
	// LogFormat is "text" or "json".
	LogFormat string `json:"log_format"`
	// Debug enables debug logging.
	Debug bool `json:"debug"`
}

// Neo4jConfig holds the neo4j connection settings.
type Neo4jConfig struct {
	URI      string `json:"uri"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:     ":18100",
		Backend:    "sqlite",
		SQLitePath: "pagegraph.db",
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "password",
			Database: "neo4j",
		},
		LogFormat: "text",
	}
}

// Load builds the configuration in three layers: defaults, then config.json
// and config.local.json read from dir (either may be absent; the local file
// wins), then PAGEGRAPH_* environment variables.
func Load(dir string) (*Config, error) {
	cfg := Default()

	for _, name := range []string{"config.json", "config.local.json"} {
		if err := mergeFile(cfg, filepath.Join(dir, name)); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Listen = getEnv("PAGEGRAPH_LISTEN", c.Listen)
	c.Backend = getEnv("PAGEGRAPH_BACKEND", c.Backend)
	c.SQLitePath = getEnv("PAGEGRAPH_SQLITE_PATH", c.SQLitePath)
	c.Neo4j.URI = getEnv("PAGEGRAPH_NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.Username = getEnv("PAGEGRAPH_NEO4J_USER", c.Neo4j.Username)
	c.Neo4j.Password = getEnv("PAGEGRAPH_NEO4J_PASSWORD", c.Neo4j.Password)
	c.Neo4j.Database = getEnv("PAGEGRAPH_NEO4J_DATABASE", c.Neo4j.Database)
	c.LogFormat = getEnv("PAGEGRAPH_LOG_FORMAT", c.LogFormat)
	c.Debug = getEnvBool("PAGEGRAPH_DEBUG", c.Debug)
	if hooks := os.Getenv("PAGEGRAPH_WEBHOOKS"); hooks != "" {
		c.Webhooks = strings.Split(hooks, ",")
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
