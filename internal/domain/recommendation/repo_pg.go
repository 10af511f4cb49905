package recommendation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labcore/labcore/internal/platform/db"
	"github.com/labcore/labcore/pkg/pagination"
)

const recommendationCols = `id, hn_number, test_date, doctor_id, text, status, created_by, created_at, updated_at`

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

func scanRecommendation(row pgx.Row) (*Recommendation, error) {
	var rec Recommendation
	err := row.Scan(&rec.ID, &rec.PatientNumber, &rec.TestDate, &rec.DoctorID,
		&rec.Text, &rec.Status, &rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Recommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO recommendations (id, hn_number, test_date, doctor_id, text, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (hn_number, test_date) DO NOTHING`,
		rec.ID, rec.PatientNumber, rec.TestDate, rec.DoctorID, rec.Text, rec.Status, rec.CreatedBy)
	if err != nil {
		return fmt.Errorf("create recommendation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	rec, err := scanRecommendation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recommendationCols+` FROM recommendations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation %s: %w", id, err)
	}
	return rec, nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter, p pagination.Params) ([]*Recommendation, int, error) {
	where := []string{"TRUE"}
	args := []interface{}{}
	if filter.PatientNumber != "" {
		args = append(args, filter.PatientNumber)
		where = append(where, fmt.Sprintf("hn_number = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM recommendations WHERE `+cond, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count recommendations: %w", err)
	}

	args = append(args, p.Limit, p.Offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM recommendations WHERE %s
		 ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		recommendationCols, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []*Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan recommendation: %w", err)
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *repoPG) ExistsForPatientDate(ctx context.Context, patientNumber string, testDate time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM recommendations WHERE hn_number = $1 AND test_date = $2
		)`, patientNumber, testDate).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recommendation for %s on %s: %w",
			patientNumber, testDate.Format("2006-01-02"), err)
	}
	return exists, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE recommendations SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("update recommendation %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateText(ctx context.Context, id uuid.UUID, text string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE recommendations SET text = $1, updated_at = NOW() WHERE id = $2`,
		text, id)
	if err != nil {
		return fmt.Errorf("update recommendation %s text: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
