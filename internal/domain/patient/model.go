package patient

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gender measurement encoding used across storage and classification.
const (
	GenderMale   float64 = 0
	GenderFemale float64 = 1
)

// Patient is the slice of the clinic's patient record the pipeline reads.
// Patients are registered elsewhere; the pipeline only flips HasLabData after
// a successful ingestion.
type Patient struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Number     string     `db:"hn_number" json:"hn_number"`
	Name       string     `db:"name" json:"name"`
	Gender     string     `db:"gender" json:"gender"`
	BirthDate  *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	HasLabData bool       `db:"has_lab_data" json:"has_lab_data"`
}

// GenderCode returns the patient's gender in the 0/1 measurement encoding.
func (p *Patient) GenderCode() (float64, error) {
	return ParseGender(p.Gender)
}

// ParseGender converts a gender literal to the 0/1 measurement encoding.
// Accepts the forms seen in uploads and patient records: M/F and male/female,
// case-insensitive.
func ParseGender(s string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return GenderMale, nil
	case "f", "female":
		return GenderFemale, nil
	}
	return 0, fmt.Errorf("unknown gender literal %q", s)
}

// GenderLabel renders an encoded gender value back into human-readable form.
func GenderLabel(code float64) string {
	if code == GenderMale {
		return "Male"
	}
	return "Female"
}

// GenderShort renders an encoded gender value in the classifier's vocabulary.
func GenderShort(code float64) string {
	if code == GenderMale {
		return "M"
	}
	return "F"
}

// DoctorAssignment records which doctor ordered tests for a patient. The
// (patient, doctor) pair is unique; repeated uploads reuse the existing row.
type DoctorAssignment struct {
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID   int64     `db:"doctor_id" json:"doctor_id"`
	AssignedBy string    `db:"assigned_by" json:"assigned_by"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}
