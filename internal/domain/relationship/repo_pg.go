package relationship

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

type relationshipRepoPG struct{ pool *pgxpool.Pool }

func NewRelationshipRepoPG(pool *pgxpool.Pool) Repository {
	return &relationshipRepoPG{pool: pool}
}

func (r *relationshipRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *relationshipRepoPG) Add(ctx context.Context, doctorID, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO care_relationship (id, doctor_id, patient_id) VALUES ($1, $2, $3)
		 ON CONFLICT (doctor_id, patient_id) DO NOTHING`,
		uuid.New(), doctorID, patientID)
	return err
}

func (r *relationshipRepoPG) Remove(ctx context.Context, doctorID, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM care_relationship WHERE doctor_id = $1 AND patient_id = $2`,
		doctorID, patientID)
	return err
}

func (r *relationshipRepoPG) Exists(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM care_relationship WHERE doctor_id = $1 AND patient_id = $2)`,
		doctorID, patientID).Scan(&exists)
	return exists, err
}

func (r *relationshipRepoPG) ListPatientIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	return r.listIDs(ctx,
		`SELECT patient_id FROM care_relationship WHERE doctor_id = $1 ORDER BY created_at`, doctorID)
}

func (r *relationshipRepoPG) ListDoctorIDs(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error) {
	return r.listIDs(ctx,
		`SELECT doctor_id FROM care_relationship WHERE patient_id = $1 ORDER BY created_at`, patientID)
}

func (r *relationshipRepoPG) listIDs(ctx context.Context, query string, arg uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
