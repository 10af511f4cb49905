package labtest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	CreateInstance(ctx context.Context, inst *TestInstance) error
	BulkInsertValues(ctx context.Context, values []*MeasurementValue) error
	ValuesForInstance(ctx context.Context, instanceID uuid.UUID) ([]*StoredValue, error)
	// SetClassifications writes classifier output keyed by item id. Items
	// absent from the map keep their current classification.
	SetClassifications(ctx context.Context, instanceID uuid.UUID, byItem map[int64]string) error
	MarkCompleted(ctx context.Context, instanceID uuid.UUID) error
	ResultsForPatientDate(ctx context.Context, patientNumber string, testDate time.Time) ([]*PatientDateResult, error)
}
