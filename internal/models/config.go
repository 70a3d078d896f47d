package models

// Config holds the application configuration
type Config struct {
	Server      ServerConfig      `json:"server"`
	Database    DatabaseConfig    `json:"database"`
	API         APIConfig         `json:"api"`
	UserService UserServiceConfig `json:"userService"`
	Sync        SyncConfig        `json:"sync"`
	Retry       RetryConfig       `json:"retry"`
	LogLevel    string            `json:"log_level"`
}

// ServerConfig holds HTTP server related configurations
type ServerConfig struct {
	Port int `json:"port"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// APIConfig holds the messaging API endpoint used by client-side
// components (sync engine, composer).
type APIConfig struct {
	BaseURL    string `json:"base_url"`
	AuthToken  string `json:"auth_token"`
	UserID     string `json:"user_id"`
	TimeoutSec int    `json:"timeoutSec"`
}

// UserServiceConfig points at the portal's user directory, consulted
// when validating conversation participants. Empty BaseURL disables
// the lookup (all participant IDs are accepted).
type UserServiceConfig struct {
	BaseURL    string `json:"base_url"`
	TimeoutSec int    `json:"timeoutSec"`
}

// SyncConfig holds conversation sync related configurations
type SyncConfig struct {
	PollIntervalSec      int `json:"pollIntervalSec"`
	HistoryPageSize      int `json:"historyPageSize"`
	PollFailureThreshold int `json:"pollFailureThreshold"`
	SendTimeoutSec       int `json:"sendTimeoutSec"`
	StalePendingSec      int `json:"stalePendingSec"`
	MonitorIntervalSec   int `json:"monitorIntervalSec"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
