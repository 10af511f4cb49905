package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labcore/labcore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Patient, error) {
	var p Patient
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, hn_number, name, gender, birth_date, has_lab_data
		FROM patients WHERE hn_number = $1`, number).
		Scan(&p.ID, &p.Number, &p.Name, &p.Gender, &p.BirthDate, &p.HasLabData)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", number, err)
	}
	return &p, nil
}

func (r *repoPG) MarkHasLabData(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET has_lab_data = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark patient %s has lab data: %w", id, err)
	}
	return nil
}

func (r *repoPG) AssignDoctor(ctx context.Context, patientID uuid.UUID, doctorID int64, assignedBy string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_doctor (patient_id, doctor_id, assigned_by, assigned_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (patient_id, doctor_id) DO NOTHING`,
		patientID, doctorID, assignedBy)
	if err != nil {
		return false, fmt.Errorf("assign doctor %d to patient %s: %w", doctorID, patientID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) DoctorExists(ctx context.Context, doctorID int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)`, doctorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check doctor %d: %w", doctorID, err)
	}
	return exists, nil
}
