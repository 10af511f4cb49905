package recommendation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/labcore/labcore/internal/domain/labtest"
	"github.com/labcore/labcore/pkg/pagination"
)

// TextGenerator drafts the interpretation text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	recs  Repository
	tests labtest.Repository
	gen   TextGenerator
}

func NewService(recs Repository, tests labtest.Repository, gen TextGenerator) *Service {
	return &Service{recs: recs, tests: tests, gen: gen}
}

// Generate drafts and stores a recommendation for the patient's results on
// the given date, attributed to the requesting doctor. Fails with ErrNoData
// when no results exist and ErrAlreadyExists when a recommendation for the
// pair is already stored.
func (s *Service) Generate(ctx context.Context, patientNumber string, testDate time.Time, doctorID int64, createdBy string) (*Recommendation, error) {
	results, err := s.tests.ResultsForPatientDate(ctx, patientNumber, testDate)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoData
	}

	exists, err := s.recs.ExistsForPatientDate(ctx, patientNumber, testDate)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyExists
	}

	patientName := results[0].PatientName
	if patientName == "" {
		patientName = patientNumber
	}
	prompt := BuildPrompt(patientName, testDate, results)
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate recommendation text: %w", err)
	}

	rec := &Recommendation{
		PatientNumber: patientNumber,
		TestDate:      testDate,
		DoctorID:      doctorID,
		Text:          text,
		Status:        StatusPending,
		CreatedBy:     createdBy,
	}
	if err := s.recs.Create(ctx, rec); err != nil {
		return nil, err
	}

	log.Info().
		Str("hn_number", patientNumber).
		Str("test_date", testDate.Format("2006-01-02")).
		Str("recommendation_id", rec.ID.String()).
		Msg("recommendation generated")
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	return s.recs.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, p pagination.Params) ([]*Recommendation, int, error) {
	if filter.Status != "" {
		if _, ok := validTransitions[filter.Status]; !ok {
			return nil, 0, fmt.Errorf("invalid status %q", filter.Status)
		}
	}
	return s.recs.List(ctx, filter, p)
}

// Approve moves a pending recommendation to approved.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	return s.transition(ctx, id, StatusApproved)
}

// Send marks a recommendation as delivered to the patient.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	return s.transition(ctx, id, StatusSent)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string) (*Recommendation, error) {
	rec, err := s.recs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(rec.Status, to) {
		return nil, fmt.Errorf("cannot move recommendation from %s to %s", rec.Status, to)
	}
	if err := s.recs.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	rec.Status = to
	return rec, nil
}

// UpdateText replaces the draft text, for staff edits before approval.
func (s *Service) UpdateText(ctx context.Context, id uuid.UUID, text string) (*Recommendation, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	rec, err := s.recs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusSent {
		return nil, fmt.Errorf("cannot edit a sent recommendation")
	}
	if err := s.recs.UpdateText(ctx, id, text); err != nil {
		return nil, err
	}
	rec.Text = text
	return rec, nil
}
