package labtest

import (
	"context"
	"fmt"
	"time"

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

func (r *repoPG) CreateInstance(ctx context.Context, inst *TestInstance) error {
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	if inst.Status == "" {
		inst.Status = StatusPending
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO test_instances (id, patient_id, hn_number, panel_id, test_date, doctor_id, uploaded_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		inst.ID, inst.PatientID, inst.PatientNumber, inst.PanelID,
		inst.TestDate, inst.DoctorID, inst.UploadedBy, inst.Status).
		Scan(&inst.CreatedAt)
	if err != nil {
		return fmt.Errorf("create test instance: %w", err)
	}
	return nil
}

func (r *repoPG) BulkInsertValues(ctx context.Context, values []*MeasurementValue) error {
	if len(values) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, v := range values {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		batch.Queue(`
			INSERT INTO measurement_values (id, test_instance_id, item_id, value)
			VALUES ($1, $2, $3, $4)`,
			v.ID, v.TestInstanceID, v.ItemID, v.Value)
	}
	var res pgx.BatchResults
	if tx := db.TxFromContext(ctx); tx != nil {
		res = tx.SendBatch(ctx, batch)
	} else {
		res = r.pool.SendBatch(ctx, batch)
	}
	defer res.Close()
	for range values {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("bulk insert measurement values: %w", err)
		}
	}
	return nil
}

func (r *repoPG) ValuesForInstance(ctx context.Context, instanceID uuid.UUID) ([]*StoredValue, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT mv.item_id, mi.name, mv.value, mi.demographic, mv.classification
		FROM measurement_values mv
		JOIN measurement_items mi ON mi.id = mv.item_id
		WHERE mv.test_instance_id = $1
		ORDER BY mi.name`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("values for instance %s: %w", instanceID, err)
	}
	defer rows.Close()

	var out []*StoredValue
	for rows.Next() {
		var v StoredValue
		if err := rows.Scan(&v.ItemID, &v.ItemName, &v.Value, &v.Demographic, &v.Classification); err != nil {
			return nil, fmt.Errorf("scan stored value: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (r *repoPG) SetClassifications(ctx context.Context, instanceID uuid.UUID, byItem map[int64]string) error {
	for itemID, classification := range byItem {
		_, err := r.conn(ctx).Exec(ctx, `
			UPDATE measurement_values SET classification = $1
			WHERE test_instance_id = $2 AND item_id = $3`,
			classification, instanceID, itemID)
		if err != nil {
			return fmt.Errorf("set classification for item %d: %w", itemID, err)
		}
	}
	return nil
}

func (r *repoPG) MarkCompleted(ctx context.Context, instanceID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE test_instances SET status = $1 WHERE id = $2`,
		StatusCompleted, instanceID)
	if err != nil {
		return fmt.Errorf("mark instance %s completed: %w", instanceID, err)
	}
	return nil
}

func (r *repoPG) ResultsForPatientDate(ctx context.Context, patientNumber string, testDate time.Time) ([]*PatientDateResult, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT pa.name, p.id, p.name, mi.id, mi.name, mi.unit, mi.demographic, mv.value, mv.classification
		FROM test_instances ti
		JOIN patients pa ON pa.id = ti.patient_id
		JOIN measurement_values mv ON mv.test_instance_id = ti.id
		JOIN measurement_items mi ON mi.id = mv.item_id
		JOIN panels p ON p.id = ti.panel_id
		WHERE ti.hn_number = $1 AND ti.test_date = $2
		ORDER BY p.name, mi.name`, patientNumber, testDate)
	if err != nil {
		return nil, fmt.Errorf("results for patient %s on %s: %w", patientNumber, testDate.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var out []*PatientDateResult
	for rows.Next() {
		var res PatientDateResult
		if err := rows.Scan(&res.PatientName, &res.PanelID, &res.PanelName, &res.ItemID,
			&res.ItemName, &res.Unit, &res.Demographic, &res.Value, &res.Classification); err != nil {
			return nil, fmt.Errorf("scan patient date result: %w", err)
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}
