package messaging

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/carebridge/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) Repository {
	return &messageRepoPG{pool: pool}
}

func (r *messageRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const messageCols = `id, type, patient_id, from_user_id, to_user_id, sender_role,
	report_id, reminder_id, severity, text, display_at, created_at, read_at`

func (r *messageRepoPG) scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.Type, &m.PatientID, &m.FromUserID, &m.ToUserID, &m.SenderRole,
		&m.ReportID, &m.ReminderID, &m.Severity, &m.Text, &m.DisplayAt, &m.CreatedAt, &m.ReadAt)
	return &m, err
}

func (r *messageRepoPG) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx,
		`INSERT INTO message (id, type, patient_id, from_user_id, to_user_id, sender_role,
			report_id, reminder_id, severity, text, display_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))
		 RETURNING display_at, created_at`,
		m.ID, m.Type, m.PatientID, m.FromUserID, m.ToUserID, m.SenderRole,
		m.ReportID, m.ReminderID, m.Severity, m.Text, nullableTime(m)).
		Scan(&m.DisplayAt, &m.CreatedAt)
}

func nullableTime(m *Message) interface{} {
	if m.DisplayAt.IsZero() {
		return nil
	}
	return m.DisplayAt
}

func (r *messageRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	return r.scanMessage(r.conn(ctx).QueryRow(ctx,
		`SELECT `+messageCols+` FROM message WHERE id = $1`, id))
}

func (r *messageRepoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+messageCols+` FROM message
		 WHERE from_user_id = $1 OR to_user_id = $1
		 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *messageRepoPG) ListTimeline(ctx context.Context, patientID uuid.UUID, types []string, limit int) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+messageCols+` FROM message
		 WHERE patient_id = $1 AND type = ANY($2)
		 ORDER BY created_at DESC LIMIT $3`, patientID, types, limit)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *messageRepoPG) collect(rows pgx.Rows) ([]*Message, error) {
	defer rows.Close()
	var msgs []*Message
	for rows.Next() {
		m, err := r.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *messageRepoPG) CountUnread(ctx context.Context, userID uuid.UUID) (*UnreadCounts, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT type, COUNT(*) FROM message
		 WHERE to_user_id = $1 AND read_at IS NULL
		 GROUP BY type`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := &UnreadCounts{ByType: make(map[string]int)}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts.ByType[typ] = n
		counts.Total += n
	}
	return counts, rows.Err()
}

func (r *messageRepoPG) MarkReadReport(ctx context.Context, userID, reportID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE message SET read_at = now()
		 WHERE to_user_id = $1 AND report_id = $2 AND read_at IS NULL`,
		userID, reportID)
	return tag.RowsAffected(), err
}

func (r *messageRepoPG) MarkReadPatientGeneral(ctx context.Context, doctorID, patientID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE message SET read_at = now()
		 WHERE to_user_id = $1 AND patient_id = $2 AND report_id IS NULL
		   AND type <> 'docdoc' AND read_at IS NULL`,
		doctorID, patientID)
	return tag.RowsAffected(), err
}

func (r *messageRepoPG) MarkReadDoctorGeneral(ctx context.Context, patientID, doctorID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE message SET read_at = now()
		 WHERE to_user_id = $1 AND from_user_id = $2 AND report_id IS NULL
		   AND read_at IS NULL`,
		patientID, doctorID)
	return tag.RowsAffected(), err
}

func (r *messageRepoPG) MarkReadPeer(ctx context.Context, doctorID, patientID, otherDoctorID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE message SET read_at = now()
		 WHERE to_user_id = $1 AND from_user_id = $2 AND patient_id = $3
		   AND type = 'docdoc' AND read_at IS NULL`,
		doctorID, otherDoctorID, patientID)
	return tag.RowsAffected(), err
}

func (r *messageRepoPG) ConvertReminderMessage(ctx context.Context, reminderID uuid.UUID, newType, newText string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE message SET type = $2, text = $3
		 WHERE reminder_id = $1 AND type = 'reminder'`,
		reminderID, newType, newText)
	return err
}

func (r *messageRepoPG) DeleteByReminder(ctx context.Context, reminderID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM message WHERE reminder_id = $1`, reminderID)
	return err
}

func (r *messageRepoPG) ScheduledNoticeExists(ctx context.Context, reminderID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM message WHERE reminder_id = $1 AND type = 'reminder')`,
		reminderID).Scan(&exists)
	return exists, err
}
