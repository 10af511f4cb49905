package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/labcore/labcore/internal/domain/catalog"
	"github.com/labcore/labcore/internal/domain/labtest"
	"github.com/labcore/labcore/internal/domain/patient"
	"github.com/labcore/labcore/internal/platform/db"
)

// InstanceRef identifies a persisted test instance for post-commit work:
// classification and recommendation generation.
type InstanceRef struct {
	ID            uuid.UUID
	PanelID       int64
	PatientNumber string
	TestDate      time.Time
	DoctorID      int64
	Complete      bool
}

// BatchOutcome reports what one batch produced. A skipped batch carries the
// reason as a warning and created nothing.
type BatchOutcome struct {
	Instances []InstanceRef
	Warnings  []string
	Skipped   bool
}

// Coordinator persists one batch per transaction: patient and doctor checks,
// the doctor assignment, one test instance per row with its measurement
// values, and the patient's lab data flag. A failure rolls the whole batch
// back.
type Coordinator struct {
	withTx   func(ctx context.Context, fn func(ctx context.Context) error) error
	patients patient.Repository
	tests    labtest.Repository
	cat      *catalog.Catalog
}

func NewCoordinator(pool *pgxpool.Pool, patients patient.Repository, tests labtest.Repository, cat *catalog.Catalog) *Coordinator {
	return &Coordinator{
		withTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
		patients: patients,
		tests:    tests,
		cat:      cat,
	}
}

func (c *Coordinator) IngestBatch(ctx context.Context, batch *Batch, uploadedBy string) (*BatchOutcome, error) {
	outcome := &BatchOutcome{}

	err := c.withTx(ctx, func(ctx context.Context) error {
		p, err := c.patients.GetByNumber(ctx, batch.PatientNumber)
		if errors.Is(err, patient.ErrNotFound) {
			outcome.Skipped = true
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("patient %s is not registered, skipping batch", batch.PatientNumber))
			return nil
		}
		if err != nil {
			return err
		}

		exists, err := c.patients.DoctorExists(ctx, batch.DoctorID)
		if err != nil {
			return err
		}
		if !exists {
			outcome.Skipped = true
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("doctor %d does not exist, skipping batch for patient %s",
					batch.DoctorID, batch.PatientNumber))
			return nil
		}

		// Referential errors skip the whole batch before anything is
		// written, so a bad panel cannot leave partial writes behind.
		for _, row := range batch.Rows {
			if _, ok := c.cat.PanelByID(row.PanelID); !ok {
				outcome.Skipped = true
				outcome.Warnings = append(outcome.Warnings,
					fmt.Sprintf("line %d: unknown panel %d, skipping batch for patient %s",
						row.Line, row.PanelID, batch.PatientNumber))
				return nil
			}
		}

		if _, err := c.patients.AssignDoctor(ctx, p.ID, batch.DoctorID, uploadedBy); err != nil {
			return err
		}

		for _, row := range batch.Rows {
			ref, warn, err := c.ingestRow(ctx, p, batch, row, uploadedBy)
			if err != nil {
				return err
			}
			if warn != "" {
				outcome.Warnings = append(outcome.Warnings, warn)
			}
			outcome.Instances = append(outcome.Instances, ref)
		}

		return c.patients.MarkHasLabData(ctx, p.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("ingest batch for patient %s on %s: %w",
			batch.PatientNumber, batch.TestDate.Format(dateLayout), err)
	}
	return outcome, nil
}

func (c *Coordinator) ingestRow(ctx context.Context, p *patient.Patient, batch *Batch, row *Row, uploadedBy string) (InstanceRef, string, error) {
	panel, _ := c.cat.PanelByID(row.PanelID)

	inst := &labtest.TestInstance{
		PatientID:     p.ID,
		PatientNumber: p.Number,
		PanelID:       panel.ID,
		TestDate:      batch.TestDate,
		DoctorID:      batch.DoctorID,
		UploadedBy:    uploadedBy,
	}
	if err := c.tests.CreateInstance(ctx, inst); err != nil {
		return InstanceRef{}, "", err
	}

	values, warn := c.buildValues(p, panel, row, inst.ID)
	if err := c.tests.BulkInsertValues(ctx, values); err != nil {
		return InstanceRef{}, "", err
	}

	stored := make([]int64, 0, len(values))
	for _, v := range values {
		stored = append(stored, v.ItemID)
	}
	ref := InstanceRef{
		ID:            inst.ID,
		PanelID:       panel.ID,
		PatientNumber: p.Number,
		TestDate:      batch.TestDate,
		DoctorID:      batch.DoctorID,
		Complete:      catalog.Complete(panel.RequiredItemIDs(), stored),
	}
	if !ref.Complete {
		log.Warn().
			Str("instance_id", inst.ID.String()).
			Int64("panel_id", panel.ID).
			Str("hn_number", p.Number).
			Msg("panel stored with missing required items")
	}
	return ref, warn, nil
}

// buildValues assembles the measurement values for one panel run: the row's
// values for the panel's items, with the demographic item synthesized from
// the patient record when the panel requires it and the row omits it.
func (c *Coordinator) buildValues(p *patient.Patient, panel *catalog.Panel, row *Row, instanceID uuid.UUID) ([]*labtest.MeasurementValue, string) {
	var values []*labtest.MeasurementValue
	var warn string
	for _, item := range panel.Items {
		value, ok := row.Values[item.ID]
		if !ok {
			if !item.Demographic {
				continue
			}
			code, err := p.GenderCode()
			if err != nil {
				warn = fmt.Sprintf("line %d: patient %s has no usable gender for panel %d",
					row.Line, p.Number, panel.ID)
				continue
			}
			value = code
		}
		values = append(values, &labtest.MeasurementValue{
			TestInstanceID: instanceID,
			ItemID:         item.ID,
			Value:          value,
		})
	}
	return values, warn
}
