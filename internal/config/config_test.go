package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/eventlook/internal/domain"
)

func testdataPath(name string) string {
	return filepath.Join("..", "..", "testdata", "configs", name)
}

func TestLoad_Simple(t *testing.T) {
	cfg, err := Load(testdataPath("simple.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/eventlook/channels", cfg.LogRoot)
	assert.Equal(t, 5556, cfg.API.Port)
	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Nil(t, cfg.API.Auth)
	assert.Equal(t, 24*time.Hour, cfg.ReadRange())
	assert.True(t, cfg.NewestFirst())
	assert.Equal(t, 200000, cfg.Read.MaxEvents)
	assert.Equal(t, 1000, cfg.Live.BufferSize)
	assert.Equal(t, 256, cfg.Live.WatchBuffer)
	assert.True(t, cfg.Filters.IsEmpty())
}

func TestLoad_Expanded(t *testing.T) {
	cfg, err := Load(testdataPath("expanded.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./channels", cfg.LogRoot)
	assert.Equal(t, ".env", cfg.EnvFile)
	assert.Equal(t, 72*time.Hour, cfg.ReadRange())
	assert.False(t, cfg.NewestFirst())
	assert.Equal(t, 50000, cfg.Read.MaxEvents)

	assert.Equal(t, "0.0.0.0", cfg.API.Host)
	assert.Equal(t, 8080, cfg.API.Port)
	require.NotNil(t, cfg.API.Auth)
	assert.True(t, *cfg.API.Auth)

	hub := cfg.HubConfig()
	assert.Equal(t, 500, hub.BufferSize)
	assert.Equal(t, 64, hub.SubscriptionBuffer)

	assert.Equal(t, `"disk full"|timeout`, cfg.Filters.Message)
	assert.Equal(t, []domain.Level{domain.LevelCritical, domain.LevelError}, cfg.Filters.Levels)
	assert.Equal(t, "Service Control Manager", cfg.Filters.Provider)
	assert.Equal(t, "7000, -7036", cfg.Filters.IDs)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"invalid_port.yaml", "api.port"},
		{"invalid_range.yaml", "read.range"},
		{"invalid_filters.yaml", "filters"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := Load(testdataPath(tt.file))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestLoad_WorldWritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventlook.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_root: /tmp\n"), 0644))
	require.NoError(t, os.Chmod(path, 0666))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure permissions")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("invalid: yaml: content:"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing yaml")
}

func TestParse_UnknownLevel(t *testing.T) {
	_, err := Parse([]byte("filters:\n  levels: [loud]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown level")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "/var/lib/eventlook/channels", cfg.LogRoot)
	assert.NoError(t, Validate(cfg))
}
