package messaging

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Message, error)
	ListTimeline(ctx context.Context, patientID uuid.UUID, types []string, limit int) ([]*Message, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (*UnreadCounts, error)

	// Read marking. Each variant constrains to_user_id to the caller and
	// read_at IS NULL inside the statement and reports rows updated.
	MarkReadReport(ctx context.Context, userID, reportID uuid.UUID) (int64, error)
	MarkReadPatientGeneral(ctx context.Context, doctorID, patientID uuid.UUID) (int64, error)
	MarkReadDoctorGeneral(ctx context.Context, patientID, doctorID uuid.UUID) (int64, error)
	MarkReadPeer(ctx context.Context, doctorID, patientID, otherDoctorID uuid.UUID) (int64, error)

	// Reminder plumbing. Messages are matched by reminder_id only.
	ConvertReminderMessage(ctx context.Context, reminderID uuid.UUID, newType, newText string) error
	DeleteByReminder(ctx context.Context, reminderID uuid.UUID) error
	ScheduledNoticeExists(ctx context.Context, reminderID uuid.UUID) (bool, error)
}
