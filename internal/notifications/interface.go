package notifications

import "context"

// Alert levels
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
	LevelSuccess = "success"
)

// Notifier defines the interface for notification services
type Notifier interface {
	// SendAlert sends an alert with the specified level and message
	SendAlert(ctx context.Context, level, message string) error
}

// Nop discards every alert. It is used when no channel is configured.
type Nop struct{}

// SendAlert implements Notifier
func (Nop) SendAlert(ctx context.Context, level, message string) error {
	return nil
}
