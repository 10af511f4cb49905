package recommendation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/labcore/labcore/internal/domain/labtest"
	"github.com/labcore/labcore/pkg/pagination"
)

type mockRepo struct {
	recs map[uuid.UUID]*Recommendation
}

func newMockRepo() *mockRepo {
	return &mockRepo{recs: make(map[uuid.UUID]*Recommendation)}
}

func (m *mockRepo) Create(_ context.Context, rec *Recommendation) error {
	for _, existing := range m.recs {
		if existing.PatientNumber == rec.PatientNumber && existing.TestDate.Equal(rec.TestDate) {
			return ErrAlreadyExists
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.recs[rec.ID] = rec
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Recommendation, error) {
	rec, ok := m.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, filter ListFilter, _ pagination.Params) ([]*Recommendation, int, error) {
	var out []*Recommendation
	for _, rec := range m.recs {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.PatientNumber != "" && rec.PatientNumber != filter.PatientNumber {
			continue
		}
		out = append(out, rec)
	}
	return out, len(out), nil
}

func (m *mockRepo) ExistsForPatientDate(_ context.Context, number string, date time.Time) (bool, error) {
	for _, rec := range m.recs {
		if rec.PatientNumber == number && rec.TestDate.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	rec, ok := m.recs[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	return nil
}

func (m *mockRepo) UpdateText(_ context.Context, id uuid.UUID, text string) error {
	rec, ok := m.recs[id]
	if !ok {
		return ErrNotFound
	}
	rec.Text = text
	return nil
}

type mockTests struct {
	results map[string][]*labtest.PatientDateResult
}

func (m *mockTests) CreateInstance(context.Context, *labtest.TestInstance) error { return nil }
func (m *mockTests) BulkInsertValues(context.Context, []*labtest.MeasurementValue) error {
	return nil
}
func (m *mockTests) ValuesForInstance(context.Context, uuid.UUID) ([]*labtest.StoredValue, error) {
	return nil, nil
}
func (m *mockTests) SetClassifications(context.Context, uuid.UUID, map[int64]string) error {
	return nil
}
func (m *mockTests) MarkCompleted(context.Context, uuid.UUID) error { return nil }
func (m *mockTests) ResultsForPatientDate(_ context.Context, number string, date time.Time) ([]*labtest.PatientDateResult, error) {
	return m.results[number+"|"+date.Format("2006-01-02")], nil
}

type mockGen struct {
	text    string
	err     error
	prompts []string
}

func (m *mockGen) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.text, m.err
}

var testDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func testResults() map[string][]*labtest.PatientDateResult {
	return map[string][]*labtest.PatientDateResult{
		"000000123|2024-01-15": {
			{PatientName: "Jane Doe", PanelName: "Blood Pressure", ItemName: "Systolic", Unit: "mmHg", Value: 120},
			{PatientName: "Jane Doe", PanelName: "Blood Pressure", ItemName: "Diastolic", Unit: "mmHg", Value: 80},
		},
	}
}

func TestGenerate(t *testing.T) {
	repo := newMockRepo()
	gen := &mockGen{text: "Blood pressure is within normal range."}
	svc := NewService(repo, &mockTests{results: testResults()}, gen)

	rec, err := svc.Generate(context.Background(), "000000123", testDate, 7, "staff-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if rec.Status != StatusPending {
		t.Errorf("new recommendation status = %q, want pending", rec.Status)
	}
	if rec.Text != gen.text {
		t.Errorf("unexpected text %q", rec.Text)
	}
	if rec.DoctorID != 7 {
		t.Errorf("doctor id = %d, want 7", rec.DoctorID)
	}
	if rec.CreatedBy != "staff-1" {
		t.Errorf("unexpected creator %q", rec.CreatedBy)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("expected one generation call, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "patient Jane Doe") {
		t.Errorf("prompt must name the patient, got:\n%s", gen.prompts[0])
	}
}

func TestGenerateNoData(t *testing.T) {
	svc := NewService(newMockRepo(), &mockTests{results: nil}, &mockGen{})

	_, err := svc.Generate(context.Background(), "000000999", testDate, 7, "staff-1")
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestGenerateAlreadyExists(t *testing.T) {
	repo := newMockRepo()
	gen := &mockGen{text: "ok"}
	svc := NewService(repo, &mockTests{results: testResults()}, gen)

	if _, err := svc.Generate(context.Background(), "000000123", testDate, 7, "staff-1"); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	_, err := svc.Generate(context.Background(), "000000123", testDate, 7, "staff-1")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("duplicate request must not call the generator, got %d calls", len(gen.prompts))
	}
}

func TestGenerateGeneratorFailure(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockTests{results: testResults()}, &mockGen{err: errors.New("upstream down")})

	if _, err := svc.Generate(context.Background(), "000000123", testDate, 7, "staff-1"); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.recs) != 0 {
		t.Error("failed generation must not persist a recommendation")
	}
}

func TestStatusTransitions(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockTests{results: testResults()}, &mockGen{text: "ok"})

	rec, err := svc.Generate(context.Background(), "000000123", testDate, 7, "staff-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	approved, err := svc.Approve(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Errorf("status = %q, want approved", approved.Status)
	}

	sent, err := svc.Send(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Status != StatusSent {
		t.Errorf("status = %q, want sent", sent.Status)
	}

	if _, err := svc.Approve(context.Background(), rec.ID); err == nil {
		t.Error("approving a sent recommendation must fail")
	}
	if _, err := svc.UpdateText(context.Background(), rec.ID, "edited"); err == nil {
		t.Error("editing a sent recommendation must fail")
	}
}

func TestUpdateText(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockTests{results: testResults()}, &mockGen{text: "draft"})

	rec, err := svc.Generate(context.Background(), "000000123", testDate, 7, "staff-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	updated, err := svc.UpdateText(context.Background(), rec.ID, "reviewed wording")
	if err != nil {
		t.Fatalf("UpdateText: %v", err)
	}
	if updated.Text != "reviewed wording" {
		t.Errorf("unexpected text %q", updated.Text)
	}

	if _, err := svc.UpdateText(context.Background(), rec.ID, ""); err == nil {
		t.Error("empty text must be rejected")
	}
	if _, err := svc.UpdateText(context.Background(), uuid.New(), "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
