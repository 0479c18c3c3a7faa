package reminder

import (
	"context"
	"time"

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

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) Repository {
	return &planRepoPG{pool: pool}
}

func (r *planRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const planCols = `id, patient_id, doctor_id, predecessor_id, title, sector, frequency_days,
	next_due_at, last_notified_at, last_completed_at, active, notes, created_at, updated_at`

func (r *planRepoPG) scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.PredecessorID, &p.Title, &p.Sector,
		&p.FrequencyDays, &p.NextDueAt, &p.LastNotifiedAt, &p.LastCompletedAt, &p.Active,
		&p.Notes, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *planRepoPG) Create(ctx context.Context, p *Plan) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx,
		`INSERT INTO reminder_plan (id, patient_id, doctor_id, predecessor_id, title, sector,
			frequency_days, next_due_at, last_notified_at, active, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		p.ID, p.PatientID, p.DoctorID, p.PredecessorID, p.Title, p.Sector,
		p.FrequencyDays, p.NextDueAt, p.LastNotifiedAt, p.Active, p.Notes).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	return r.scanPlan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+planCols+` FROM reminder_plan WHERE id = $1`, id))
}

func (r *planRepoPG) Update(ctx context.Context, p *Plan) error {
	return r.conn(ctx).QueryRow(ctx,
		`UPDATE reminder_plan SET title = $2, sector = $3, frequency_days = $4,
			next_due_at = $5, active = $6, notes = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		p.ID, p.Title, p.Sector, p.FrequencyDays, p.NextDueAt, p.Active, p.Notes).
		Scan(&p.UpdatedAt)
}

func (r *planRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM reminder_plan WHERE id = $1`, id)
	return err
}

func (r *planRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Plan, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+planCols+` FROM reminder_plan WHERE patient_id = $1 ORDER BY next_due_at`,
		patientID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *planRepoPG) ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*Plan, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+planCols+` FROM reminder_plan
		 WHERE patient_id = $1 AND active ORDER BY next_due_at`,
		patientID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *planRepoPG) ListDue(ctx context.Context, now time.Time) ([]*Plan, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+planCols+` FROM reminder_plan
		 WHERE active AND next_due_at <= $1
		   AND last_notified_at IS DISTINCT FROM next_due_at
		 ORDER BY next_due_at`, now)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *planRepoPG) collect(rows pgx.Rows) ([]*Plan, error) {
	defer rows.Close()
	var plans []*Plan
	for rows.Next() {
		p, err := r.scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *planRepoPG) ClaimNotification(ctx context.Context, id uuid.UUID, nextDueAt time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE reminder_plan SET last_notified_at = next_due_at, updated_at = now()
		 WHERE id = $1 AND active AND next_due_at = $2
		   AND last_notified_at IS DISTINCT FROM next_due_at`,
		id, nextDueAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *planRepoPG) Deactivate(ctx context.Context, id uuid.UUID, completedAt time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE reminder_plan SET active = false, last_completed_at = $2, updated_at = now()
		 WHERE id = $1 AND active`,
		id, completedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *planRepoPG) FindSuccessor(ctx context.Context, predecessorID uuid.UUID) (*Plan, error) {
	return r.scanPlan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+planCols+` FROM reminder_plan WHERE predecessor_id = $1`, predecessorID))
}
