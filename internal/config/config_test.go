package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, env, content string) {
	t.Helper()
	path := filepath.Join(dir, "config."+env+".json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "test", `{
		"server": {"host": "0.0.0.0", "port": 9090},
		"mongodb": {"uri": "mongodb://db:27017", "database": "chess_test"},
		"matchmaking": {"botWaitSeconds": 30}
	}`)
	t.Setenv("CONFIG_DIR", dir)

	cfg, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoDB.URI)
	assert.Equal(t, "chess_test", cfg.MongoDB.Database)
	assert.Equal(t, 30, cfg.Matchmaking.BotWaitSeconds)

	// Unset fields fall back to defaults.
	assert.Equal(t, 5, cfg.Engine.PoolSize)
	assert.Equal(t, 5, cfg.Matchmaking.PeriodSeconds)
	assert.Equal(t, 1, cfg.Clock.TickSeconds)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "test", `{
		"mongodb": {"uri": "${TEST_MONGO_URI}", "database": "ichess"}
	}`)
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("TEST_MONGO_URI", "mongodb://secret:27017")

	cfg, err := Load("test")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://secret:27017", cfg.MongoDB.URI)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	_, err := Load("nope")
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("CHESS_ENV", "")
	assert.Equal(t, "dev", GetEnv())

	t.Setenv("CHESS_ENV", "prod")
	assert.Equal(t, "prod", GetEnv())
}
