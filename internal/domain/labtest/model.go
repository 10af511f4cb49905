package labtest

import (
	"time"

	"github.com/google/uuid"
)

// Test instance lifecycle. A batch lands as pending and flips to completed
// once the classifier has filled in classifications.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// TestInstance is one panel run for one patient on one date, carrying the
// measurement values captured by an upload.
type TestInstance struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientNumber string    `db:"hn_number" json:"hn_number"`
	PanelID       int64     `db:"panel_id" json:"panel_id"`
	TestDate      time.Time `db:"test_date" json:"test_date"`
	DoctorID      int64     `db:"doctor_id" json:"doctor_id"`
	UploadedBy    string    `db:"uploaded_by" json:"uploaded_by"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// MeasurementValue is a single measured (or synthesized) item value within a
// test instance. Classification stays nil until the classifier reports.
type MeasurementValue struct {
	ID             uuid.UUID `db:"id" json:"id"`
	TestInstanceID uuid.UUID `db:"test_instance_id" json:"test_instance_id"`
	ItemID         int64     `db:"item_id" json:"item_id"`
	Value          float64   `db:"value" json:"value"`
	Classification *string   `db:"classification" json:"classification,omitempty"`
}

// StoredValue is a measurement value joined with its catalog item, the shape
// the classifier payload is built from.
type StoredValue struct {
	ItemID         int64   `json:"item_id"`
	ItemName       string  `json:"item_name"`
	Value          float64 `json:"value"`
	Demographic    bool    `json:"demographic"`
	Classification *string `json:"classification,omitempty"`
}

// PatientDateResult is one measurement row in the full patient-date view fed
// to recommendation generation, joined with the patient record and panel and
// item metadata and ordered by panel name then item name.
type PatientDateResult struct {
	PatientName    string  `json:"patient_name"`
	PanelID        int64   `json:"panel_id"`
	PanelName      string  `json:"panel_name"`
	ItemID         int64   `json:"item_id"`
	ItemName       string  `json:"item_name"`
	Unit           string  `json:"unit"`
	Demographic    bool    `json:"demographic"`
	Value          float64 `json:"value"`
	Classification *string `json:"classification,omitempty"`
}
