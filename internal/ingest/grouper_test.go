package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/labcore/labcore/internal/domain/catalog"
	"github.com/labcore/labcore/internal/domain/patient"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]*catalog.Panel{
		{ID: 1, Name: "Blood Pressure", Items: []catalog.Item{
			{ID: 1, Name: "Systolic", Unit: "mmHg"},
			{ID: 2, Name: "Diastolic", Unit: "mmHg"},
		}},
		{ID: 5, Name: "Uric Acid", Items: []catalog.Item{
			{ID: 18, Name: "Uric Acid", Unit: "mg/dL"},
			{ID: 9, Name: "Gender", Demographic: true},
		}},
	})
}

const uploadHeader = "hn_number,panel_id,test_date,doctor_id,Systolic,Diastolic,Uric Acid\n"

func TestParseGroupsByPatientDateDoctor(t *testing.T) {
	data := uploadHeader +
		"000000123,1,2024-01-15,7,120,80,\n" +
		"000000123,5,2024-01-15,7,,,7.2\n" +
		"000000456,1,2024-01-15,7,135,90,\n"

	res, err := Parse(strings.NewReader(data), "results.csv", testCatalog())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(res.Batches))
	}

	first := res.Batches[0]
	if first.PatientNumber != "000000123" || len(first.Rows) != 2 {
		t.Errorf("unexpected first batch: patient %s, %d rows", first.PatientNumber, len(first.Rows))
	}
	if first.Rows[0].PanelID != 1 || first.Rows[1].PanelID != 5 {
		t.Errorf("unexpected panel ids %d, %d", first.Rows[0].PanelID, first.Rows[1].PanelID)
	}
	if got := first.Rows[0].Values[1]; got != 120 {
		t.Errorf("systolic = %v, want 120", got)
	}
	if got := first.Rows[1].Values[18]; got != 7.2 {
		t.Errorf("uric acid = %v, want 7.2", got)
	}
	if _, ok := first.Rows[1].Values[1]; ok {
		t.Error("empty cells must not produce values")
	}

	second := res.Batches[1]
	if second.PatientNumber != "000000456" || len(second.Rows) != 1 {
		t.Errorf("unexpected second batch: patient %s, %d rows", second.PatientNumber, len(second.Rows))
	}
}

func TestParseSplitsBatchesByDoctor(t *testing.T) {
	data := uploadHeader +
		"000000123,1,2024-01-15,7,120,80,\n" +
		"000000123,5,2024-01-15,8,,,7.2\n"

	res, err := Parse(strings.NewReader(data), "results.csv", testCatalog())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Batches) != 2 {
		t.Fatalf("same patient under two doctors must produce 2 batches, got %d", len(res.Batches))
	}
}

func TestParseSkipsMalformedRows(t *testing.T) {
	data := uploadHeader +
		",1,2024-01-15,7,120,80,\n" +
		"000000123,x,2024-01-15,7,120,80,\n" +
		"000000123,1,15-01-2024,7,120,80,\n" +
		"000000123,1,2024-01-15,seven,120,80,\n" +
		"000000123,1,2024-01-15,7,high,80,\n" +
		"000000123,1,2024-01-15,7,120,80,\n"

	res, err := Parse(strings.NewReader(data), "results.csv", testCatalog())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Batches) != 1 || len(res.Batches[0].Rows) != 1 {
		t.Fatalf("expected the single valid row to survive, got %+v", res.Batches)
	}
	if len(res.Warnings) != 5 {
		t.Errorf("expected 5 warnings, got %d: %v", len(res.Warnings), res.Warnings)
	}
	if res.Batches[0].Rows[0].Line != 7 {
		t.Errorf("surviving row line = %d, want 7", res.Batches[0].Rows[0].Line)
	}
}

func TestParseGenderColumn(t *testing.T) {
	data := "hn_number,panel_id,test_date,doctor_id,Uric Acid,Gender\n" +
		"000000123,5,2024-01-15,7,7.2,M\n" +
		"000000456,5,2024-01-15,7,6.1,f\n" +
		"000000789,5,2024-01-15,7,5.8,male\n"

	res, err := Parse(strings.NewReader(data), "results.csv", testCatalog())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Batches) != 3 {
		t.Fatalf("expected 3 batches, got %d (warnings: %v)", len(res.Batches), res.Warnings)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("gender literals must not warn, got %v", res.Warnings)
	}
	for i, want := range []float64{patient.GenderMale, patient.GenderFemale, patient.GenderMale} {
		if got := res.Batches[i].Rows[0].Values[9]; got != want {
			t.Errorf("batch %d gender = %v, want %v", i, got, want)
		}
	}
}

func TestParseRejectsUnknownGenderLiteral(t *testing.T) {
	data := "hn_number,panel_id,test_date,doctor_id,Uric Acid,Gender\n" +
		"000000123,5,2024-01-15,7,7.2,X\n" +
		"000000456,5,2024-01-15,7,6.1,F\n"

	res, err := Parse(strings.NewReader(data), "results.csv", testCatalog())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Batches) != 1 {
		t.Fatalf("expected the valid row to survive, got %d batches", len(res.Batches))
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "Gender") {
		t.Errorf("expected a warning for the bad gender cell, got %v", res.Warnings)
	}
}

func TestParseWarnsUnknownColumns(t *testing.T) {
	data := "hn_number,panel_id,test_date,doctor_id,Systolic,Comment\n" +
		"000000123,1,2024-01-15,7,120,looks fine\n"

	res, err := Parse(strings.NewReader(data), "results.csv", testCatalog())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "Comment") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning about the Comment column, got %v", res.Warnings)
	}
	if len(res.Batches) != 1 {
		t.Fatalf("valid row must still parse, got %d batches", len(res.Batches))
	}
}

func TestParseNoData(t *testing.T) {
	if _, err := Parse(strings.NewReader(uploadHeader), "results.csv", testCatalog()); !errors.Is(err, ErrNoData) {
		t.Errorf("header-only file: expected ErrNoData, got %v", err)
	}

	allInvalid := uploadHeader + ",1,2024-01-15,7,120,80,\n"
	res, err := Parse(strings.NewReader(allInvalid), "results.csv", testCatalog())
	if !errors.Is(err, ErrNoData) {
		t.Errorf("all-invalid file: expected ErrNoData, got %v", err)
	}
	if res == nil || len(res.Warnings) != 1 {
		t.Fatalf("row rejection reasons must survive the no-data error, got %+v", res)
	}
	if !strings.Contains(res.Warnings[0], colPatientNumber) {
		t.Errorf("warning should name the missing column, got %q", res.Warnings[0])
	}
}

func TestParseRejectsUnsupportedExtension(t *testing.T) {
	if _, err := Parse(strings.NewReader("x"), "results.pdf", testCatalog()); err == nil {
		t.Error("expected error for unsupported file type")
	}
}
