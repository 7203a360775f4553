package notification

import "time"

// Notification severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Notification categories.
const (
	CategorySync        = "sync"
	CategoryProgression = "progression"
	CategoryMissions    = "missions"
	CategoryGeneral     = "general"
)

// Notification is a structured event emitted by the engine. The engine
// never renders these; a UI layer subscribes and displays them.
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier is the sink consumed by the engine. Implementations must not
// block: mutators fire notifications on their own goroutine.
type Notifier interface {
	Notify(n Notification)
}
