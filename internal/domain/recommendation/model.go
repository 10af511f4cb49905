package recommendation

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation statuses. A generated draft starts pending; clinic staff
// approve it and send it to the patient.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusSent     = "sent"
)

// Recommendation is the generated clinical interpretation for one patient's
// results on one test date. At most one exists per (patient, date).
type Recommendation struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientNumber string    `db:"hn_number" json:"hn_number"`
	TestDate      time.Time `db:"test_date" json:"test_date"`
	DoctorID      int64     `db:"doctor_id" json:"doctor_id"`
	Text          string    `db:"text" json:"text"`
	Status        string    `db:"status" json:"status"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// validTransitions gates status changes. Sent is terminal.
var validTransitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusSent},
	StatusApproved: {StatusSent},
	StatusSent:     {},
}

func canTransition(from, to string) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
