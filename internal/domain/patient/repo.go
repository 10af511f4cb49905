package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a patient or doctor lookup finds no row.
var ErrNotFound = errors.New("not found")

type Repository interface {
	GetByNumber(ctx context.Context, number string) (*Patient, error)
	MarkHasLabData(ctx context.Context, id uuid.UUID) error
	// AssignDoctor creates the (patient, doctor) assignment if it does not
	// already exist. Returns true when a new row was created.
	AssignDoctor(ctx context.Context, patientID uuid.UUID, doctorID int64, assignedBy string) (bool, error)
	DoctorExists(ctx context.Context, doctorID int64) (bool, error)
}
