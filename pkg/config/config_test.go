package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "", config.Redis.URL)
	assert.Equal(t, "gpt-4o-mini", config.TieBreak.Model)
	assert.Equal(t, 8, config.Pairing.TopK)
	assert.Equal(t, 1.5, config.Pairing.ScoreFloor)
	assert.Equal(t, 1.0, config.Pairing.MarginGap)
	assert.Equal(t, 0.5, config.Pairing.OrphanThreshold)
	assert.Equal(t, 3, config.Pairing.ProximityWindow)
	assert.False(t, config.Repair.Enabled)

	assert.NoError(t, config.Validate())
}

func TestLoadConfigNoPath(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Pairing, config.Pairing)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
pairing:
  top_k: 12
  score_floor: 2.0
repair:
  enabled: true
  schedule: "@every 5m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, 12, config.Pairing.TopK)
	assert.Equal(t, 2.0, config.Pairing.ScoreFloor)
	assert.True(t, config.Repair.Enabled)
	assert.Equal(t, "@every 5m", config.Repair.Schedule)

	// Untouched sections keep their defaults
	assert.Equal(t, 1.0, config.Pairing.MarginGap)
	assert.Equal(t, "gpt-4o-mini", config.TieBreak.Model)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("TIEBREAK_API_KEY", "env-key")
	t.Setenv("PAIRING_TOP_K", "16")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "7070", config.Server.Port)
	assert.Equal(t, "env-key", config.TieBreak.APIKey)
	assert.Equal(t, 16, config.Pairing.TopK)
}

func TestEnvOverrideBadIntIgnored(t *testing.T) {
	t.Setenv("PAIRING_TOP_K", "lots")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8, config.Pairing.TopK)
}

func TestValidate(t *testing.T) {
	config := DefaultConfig()
	config.Pairing.TopK = 0
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Pairing.MarginGap = -0.5
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Pairing.OrphanThreshold = 1.5
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.TieBreak.Timeout = 0
	assert.Error(t, config.Validate())
}
