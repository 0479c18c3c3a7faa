package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Message types.
const (
	TypeChat              = "chat"
	TypeAlert             = "alert"
	TypeReminder          = "reminder"
	TypeReminderCompleted = "reminder_completed"
	TypeDocDoc            = "docdoc"
)

// Alert severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// DefaultAlertText is used when an alert is raised without a custom note.
const DefaultAlertText = "Doctor flagged this report as concerning."

// Message is an append-only record. After creation only read_at changes,
// plus the single reminder to reminder_completed rewrite performed when a
// plan is completed.
type Message struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Type       string     `db:"type" json:"type"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	FromUserID uuid.UUID  `db:"from_user_id" json:"from_user_id"`
	ToUserID   uuid.UUID  `db:"to_user_id" json:"to_user_id"`
	SenderRole string     `db:"sender_role" json:"sender_role"`
	ReportID   *uuid.UUID `db:"report_id" json:"report_id,omitempty"`
	ReminderID *uuid.UUID `db:"reminder_id" json:"reminder_id,omitempty"`
	Severity   *string    `db:"severity" json:"severity,omitempty"`
	Text       string     `db:"text" json:"text"`
	DisplayAt  time.Time  `db:"display_at" json:"display_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ReadAt     *time.Time `db:"read_at" json:"read_at,omitempty"`
}

// MessageView is a Message enriched with display names resolved from the
// directory.
type MessageView struct {
	*Message
	PatientName    string `json:"patient_name,omitempty"`
	PatientEmail   string `json:"patient_email,omitempty"`
	DoctorName     string `json:"doctor_name,omitempty"`
	PeerDoctorName string `json:"peer_doctor_name,omitempty"`
}

// Thread is a derived grouping of messages sharing a key. Threads are never
// persisted.
type Thread struct {
	Key           string         `json:"key"`
	Messages      []*MessageView `json:"messages"`
	UnreadCount   int            `json:"unread_count"`
	LastMessageAt time.Time      `json:"last_message_at"`
}

// UnreadCounts reports the viewer's unread totals.
type UnreadCounts struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

var validSeverities = map[string]bool{
	SeverityLow:    true,
	SeverityMedium: true,
	SeverityHigh:   true,
}
