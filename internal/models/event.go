package models

import "time"

// Severity of log events and notifications.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// LogEvent is a single audit log entry.
type LogEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	DeviceID    string    `json:"device_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Metadata    any       `json:"metadata,omitempty"`
}

// Notification is a message fanned out to operators.
type Notification struct {
	NotificationID string    `json:"notification_id"`
	CreatedAt      time.Time `json:"created_at"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Recipients     []int     `json:"recipients"`
}

// User is an operator account.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
}

// RoleAdmin receives device notifications.
const RoleAdmin = "ADMIN"
