// internal/errors/codes.go
package errors

const (
	// Startup (fatal)
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrReadConfig    ErrorCode = "read_config_failed"
	ErrInitFailed    ErrorCode = "initialization_failed"

	// Register source
	ErrReadFailed ErrorCode = "read_failed"

	// Relay
	ErrQueueFull ErrorCode = "queue_full"

	// Sink transport
	ErrConnectFailed ErrorCode = "connect_failed"
	ErrSendFailed    ErrorCode = "send_failed"
	ErrNotConnected  ErrorCode = "not_connected"
)

var errorMessages = map[ErrorCode]string{
	ErrInvalidConfig: "Invalid configuration",
	ErrReadConfig:    "Failed to read configuration",
	ErrInitFailed:    "Initialization failed",
	ErrReadFailed:    "Register read failed",
	ErrQueueFull:     "Queue full",
	ErrConnectFailed: "Sink connect failed",
	ErrSendFailed:    "Sink send failed",
	ErrNotConnected:  "Sink not connected",
}

// GetErrorMessage returns the default message for code.
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return string(code)
}
