package notification

import "time"

type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
)

// Notification is append-only; Read is the only field mutated after creation.
type Notification struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
	StudentID string    `json:"student_id,omitempty"` // empty for system-wide notices
}

// NewNotification contains information needed to create a new Notification.
type NewNotification struct {
	Type      Type
	Message   string
	StudentID string
}

type QueryFilter struct {
	StudentID  string // empty: every notification
	UnreadOnly bool
	Limit      int
}
