package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"chatsync/internal/constants"
	"chatsync/internal/models"
	"chatsync/internal/security"
)

var (
	ErrMissingAPIURL = models.ConfigError{Message: "missing messaging API base URL"}
	ErrMissingDBPath = models.ConfigError{Message: "missing database path"}
)

func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidatePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(c *models.Config) {
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.API.TimeoutSec == 0 {
		c.API.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}
	if c.UserService.TimeoutSec == 0 {
		c.UserService.TimeoutSec = constants.DefaultUserLookupTimeoutSec
	}
	if c.Sync.PollIntervalSec == 0 {
		c.Sync.PollIntervalSec = constants.DefaultPollIntervalSec
	}
	if c.Sync.HistoryPageSize == 0 {
		c.Sync.HistoryPageSize = constants.DefaultHistoryPageSize
	}
	if c.Sync.PollFailureThreshold == 0 {
		c.Sync.PollFailureThreshold = constants.DefaultPollFailureThreshold
	}
	if c.Sync.SendTimeoutSec == 0 {
		c.Sync.SendTimeoutSec = constants.DefaultSendTimeoutSec
	}
	if c.Sync.StalePendingSec == 0 {
		c.Sync.StalePendingSec = constants.DefaultStalePendingSec
	}
	if c.Sync.MonitorIntervalSec == 0 {
		c.Sync.MonitorIntervalSec = constants.DefaultMonitorIntervalSec
	}
	if c.Retry.InitialBackoffMs == 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs == 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = constants.DefaultFetchRetryAttempts
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if v := os.Getenv("CHATSYNC_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CHATSYNC_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CHATSYNC_API_AUTH_TOKEN"); v != "" {
		c.API.AuthToken = v
	}
	if v := os.Getenv("CHATSYNC_API_USER_ID"); v != "" {
		c.API.UserID = v
	}
	if v := os.Getenv("CHATSYNC_USER_SERVICE_URL"); v != "" {
		c.UserService.BaseURL = v
	}
	if v := os.Getenv("CHATSYNC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CHATSYNC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.API.BaseURL == "" {
		return ErrMissingAPIURL
	}
	if c.Sync.PollIntervalSec < 1 {
		return models.ConfigError{Message: "poll interval must be at least 1 second"}
	}
	if c.Sync.HistoryPageSize < 1 {
		return models.ConfigError{Message: "history page size must be positive"}
	}
	if c.Sync.PollFailureThreshold < 1 {
		return models.ConfigError{Message: "poll failure threshold must be positive"}
	}
	return nil
}
