package constants

// Default sync configuration values
const (
	DefaultPollIntervalSec      = 5
	DefaultHistoryPageSize      = 50
	DefaultPollFailureThreshold = 3
	DefaultSendTimeoutSec       = 30
	DefaultStalePendingSec      = 60
	DefaultMonitorIntervalSec   = 30
)

// Default server configuration values
const (
	DefaultServerPort            = 8083
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
)

// Default client and retry values
const (
	DefaultHTTPTimeoutSec        = 30
	DefaultUserLookupTimeoutSec  = 10
	DefaultDatabaseRetryAttempts = 3
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultFetchRetryAttempts    = 3
)

// Validation limits
const (
	MaxMessageTextLength = 4096
	MaxIDLength          = 128
	MinParticipants      = 2
)

// Privacy settings
const (
	DefaultUserMaskLength     = 4
	DefaultMessageIDLogLength = 8
)

// Encryption salt for key derivation. Changing this invalidates
// existing encrypted data.
const (
	EncryptionSalt = "chatsync-message-encryption-v1"
)
