package recommendation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/labcore/labcore/pkg/pagination"
)

var (
	ErrNotFound = errors.New("recommendation not found")
	// ErrAlreadyExists is returned when a recommendation for the patient and
	// date is already stored.
	ErrAlreadyExists = errors.New("recommendation already exists")
	// ErrNoData is returned when no lab results exist for the patient and
	// date a recommendation was requested for.
	ErrNoData = errors.New("no lab results for patient and date")
)

// ListFilter narrows List output. Zero values mean no filtering.
type ListFilter struct {
	PatientNumber string
	Status        string
}

type Repository interface {
	Create(ctx context.Context, rec *Recommendation) error
	Get(ctx context.Context, id uuid.UUID) (*Recommendation, error)
	List(ctx context.Context, filter ListFilter, p pagination.Params) ([]*Recommendation, int, error)
	ExistsForPatientDate(ctx context.Context, patientNumber string, testDate time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateText(ctx context.Context, id uuid.UUID, text string) error
}
