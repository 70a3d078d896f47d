package config

import (
	"os"
	"path/filepath"
	"testing"

	"chatsync/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `{
		"database": {"path": "/tmp/chatsync-test.db"},
		"api": {"base_url": "http://localhost:9000"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultPollIntervalSec, cfg.Sync.PollIntervalSec)
	assert.Equal(t, constants.DefaultHistoryPageSize, cfg.Sync.HistoryPageSize)
	assert.Equal(t, constants.DefaultPollFailureThreshold, cfg.Sync.PollFailureThreshold)
	assert.Equal(t, constants.DefaultSendTimeoutSec, cfg.Sync.SendTimeoutSec)
	assert.Equal(t, constants.DefaultRetryBackoffMs, cfg.Retry.InitialBackoffMs)
}

func TestLoadConfigExplicitValues(t *testing.T) {
	path := writeConfigFile(t, `{
		"database": {"path": "/tmp/chatsync-test.db"},
		"api": {"base_url": "http://localhost:9000", "auth_token": "secret"},
		"sync": {"pollIntervalSec": 10, "historyPageSize": 25, "pollFailureThreshold": 5},
		"server": {"port": 9090},
		"log_level": "debug"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Sync.PollIntervalSec)
	assert.Equal(t, 25, cfg.Sync.HistoryPageSize)
	assert.Equal(t, 5, cfg.Sync.PollFailureThreshold)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.API.AuthToken)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	path := writeConfigFile(t, `{
		"database": {"path": "/tmp/original.db"},
		"api": {"base_url": "http://original:9000"}
	}`)

	t.Setenv("CHATSYNC_DB_PATH", "/tmp/override.db")
	t.Setenv("CHATSYNC_API_BASE_URL", "http://override:9001")
	t.Setenv("CHATSYNC_API_AUTH_TOKEN", "env-token")
	t.Setenv("CHATSYNC_API_USER_ID", "svc-user")
	t.Setenv("CHATSYNC_PORT", "7777")
	t.Setenv("CHATSYNC_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, "http://override:9001", cfg.API.BaseURL)
	assert.Equal(t, "env-token", cfg.API.AuthToken)
	assert.Equal(t, "svc-user", cfg.API.UserID)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfigInvalidPortOverrideIgnored(t *testing.T) {
	path := writeConfigFile(t, `{
		"database": {"path": "/tmp/chatsync-test.db"},
		"api": {"base_url": "http://localhost:9000"},
		"server": {"port": 9090}
	}`)

	t.Setenv("CHATSYNC_PORT", "not-a-port")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing database path",
			content: `{"api": {"base_url": "http://localhost:9000"}}`,
		},
		{
			name:    "missing api base url",
			content: `{"database": {"path": "/tmp/test.db"}}`,
		},
		{
			name: "negative poll interval",
			content: `{
				"database": {"path": "/tmp/test.db"},
				"api": {"base_url": "http://localhost:9000"},
				"sync": {"pollIntervalSec": -1}
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMalformedJSON(t *testing.T) {
	path := writeConfigFile(t, `{not valid json`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsTraversalPath(t *testing.T) {
	_, err := LoadConfig("../../etc/passwd")
	assert.Error(t, err)
}
