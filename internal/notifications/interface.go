package notifications

// Notifier delivers operator alerts for trading events
type Notifier interface {
	// SendAlert sends an alert with the specified level and message
	SendAlert(level, message string) error
}

// Noop discards all alerts; used when no notifier is configured
type Noop struct{}

func (Noop) SendAlert(level, message string) error { return nil }
