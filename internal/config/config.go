package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Environment string `json:"environment"`
	Server      struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
	MongoDB struct {
		URI      string `json:"uri"`
		Database string `json:"database"`
	} `json:"mongodb"`
	Frontend struct {
		URL string `json:"url"`
	} `json:"frontend"`
	Engine struct {
		Path     string `json:"path"`     // empty: pick the bundled binary for this host
		PoolSize int    `json:"poolSize"` // idle engine handles kept warm
	} `json:"engine"`
	Matchmaking struct {
		BotWaitSeconds int `json:"botWaitSeconds"` // wait before a bot opponent steps in
		PeriodSeconds  int `json:"periodSeconds"`  // matchmaking scan interval
	} `json:"matchmaking"`
	Clock struct {
		TickSeconds int `json:"tickSeconds"` // clock tick interval
	} `json:"clock"`
}

func Load(env string) (*Config, error) {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		// Default to configs directory relative to working directory
		configDir = "configs"
	}

	filename := fmt.Sprintf("config.%s.json", env)
	configPath := filepath.Join(configDir, filename)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Replace environment variables in the config
	configStr := expandEnvVars(string(data))

	var cfg Config
	if err := json.Unmarshal([]byte(configStr), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Environment = env
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.MongoDB.URI == "" {
		c.MongoDB.URI = "mongodb://127.0.0.1:27017"
	}
	if c.MongoDB.Database == "" {
		c.MongoDB.Database = "ichess"
	}
	if c.Engine.PoolSize == 0 {
		c.Engine.PoolSize = 5
	}
	if c.Matchmaking.BotWaitSeconds == 0 {
		c.Matchmaking.BotWaitSeconds = 15
	}
	if c.Matchmaking.PeriodSeconds == 0 {
		c.Matchmaking.PeriodSeconds = 5
	}
	if c.Clock.TickSeconds == 0 {
		c.Clock.TickSeconds = 1
	}
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func GetEnv() string {
	env := os.Getenv("CHESS_ENV")
	if env == "" {
		return "dev"
	}
	return env
}
