package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/labcore/labcore/internal/domain/catalog"
	"github.com/labcore/labcore/internal/domain/patient"
)

// ErrNoData is returned when an upload contains no usable rows.
var ErrNoData = errors.New("file contains no usable rows")

const dateLayout = "2006-01-02"

// Fixed columns every upload row must carry. All other recognized columns
// are measurement values keyed by catalog item name.
const (
	colPatientNumber = "hn_number"
	colPanelID       = "panel_id"
	colTestDate      = "test_date"
	colDoctorID      = "doctor_id"
)

// Row is one parsed upload row: a single panel run with its sparse
// measurement values, keyed by catalog item id.
type Row struct {
	Line          int
	PatientNumber string
	PanelID       int64
	TestDate      time.Time
	DoctorID      int64
	Values        map[int64]float64
}

// Batch groups rows sharing (patient, test date, doctor). Each batch is
// persisted in a single transaction.
type Batch struct {
	PatientNumber string
	TestDate      time.Time
	DoctorID      int64
	Rows          []*Row
}

// ParseResult carries the grouped batches and the warnings accumulated for
// rows and cells that could not be used. Batches keep the order their first
// row appeared in the file.
type ParseResult struct {
	Batches  []*Batch
	Warnings []string
}

// Parse reads an upload in CSV or XLSX form, validates each row and groups
// the valid ones into batches. Malformed rows produce warnings and are
// skipped; only a file with no valid rows at all is an error.
func Parse(r io.Reader, filename string, cat *catalog.Catalog) (*ParseResult, error) {
	var records [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		records, err = readXLSX(r)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .csv or .xlsx", filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return &ParseResult{}, ErrNoData
	}

	header, warnings := mapHeader(records[0], cat)

	res := &ParseResult{Warnings: warnings}
	batches := make(map[string]*Batch)
	for i, record := range records[1:] {
		line := i + 2
		row, warn := parseRow(record, header, line)
		if warn != "" {
			res.Warnings = append(res.Warnings, warn)
			continue
		}

		key := row.PatientNumber + "|" + row.TestDate.Format(dateLayout) + "|" + strconv.FormatInt(row.DoctorID, 10)
		b, ok := batches[key]
		if !ok {
			b = &Batch{
				PatientNumber: row.PatientNumber,
				TestDate:      row.TestDate,
				DoctorID:      row.DoctorID,
			}
			batches[key] = b
			res.Batches = append(res.Batches, b)
		}
		b.Rows = append(b.Rows, row)
	}

	// Even with no surviving rows the warnings come back, so the caller
	// can report why every row was rejected.
	if len(res.Batches) == 0 {
		return res, ErrNoData
	}
	return res, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoData
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// header maps column positions to their role: the fixed columns by index,
// plus measurement columns resolved against the catalog.
type header struct {
	patientNumber int
	panelID       int
	testDate      int
	doctorID      int
	items         map[int]catalog.Item
}

func mapHeader(cols []string, cat *catalog.Catalog) (*header, []string) {
	h := &header{
		patientNumber: -1,
		panelID:       -1,
		testDate:      -1,
		doctorID:      -1,
		items:         make(map[int]catalog.Item),
	}
	var warnings []string
	for i, name := range cols {
		name = strings.TrimSpace(name)
		switch name {
		case colPatientNumber:
			h.patientNumber = i
		case colPanelID:
			h.panelID = i
		case colTestDate:
			h.testDate = i
		case colDoctorID:
			h.doctorID = i
		default:
			if item, ok := cat.ItemByColumn(name); ok {
				h.items[i] = item
			} else if name != "" {
				warnings = append(warnings, fmt.Sprintf("column %q is not a recognized measurement, ignoring", name))
			}
		}
	}
	return h, warnings
}

func parseRow(record []string, h *header, line int) (*Row, string) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := &Row{Line: line, Values: make(map[int64]float64)}

	row.PatientNumber = get(h.patientNumber)
	if row.PatientNumber == "" {
		return nil, fmt.Sprintf("line %d: missing %s, skipping row", line, colPatientNumber)
	}

	panelID, err := strconv.ParseInt(get(h.panelID), 10, 64)
	if err != nil {
		return nil, fmt.Sprintf("line %d: invalid %s %q, skipping row", line, colPanelID, get(h.panelID))
	}
	row.PanelID = panelID

	testDate, err := time.Parse(dateLayout, get(h.testDate))
	if err != nil {
		return nil, fmt.Sprintf("line %d: invalid %s %q, skipping row", line, colTestDate, get(h.testDate))
	}
	row.TestDate = testDate

	doctorID, err := strconv.ParseInt(get(h.doctorID), 10, 64)
	if err != nil {
		return nil, fmt.Sprintf("line %d: invalid %s %q, skipping row", line, colDoctorID, get(h.doctorID))
	}
	row.DoctorID = doctorID

	for idx, item := range h.items {
		cell := get(idx)
		if cell == "" {
			continue
		}
		if item.Demographic {
			code, err := patient.ParseGender(cell)
			if err != nil {
				return nil, fmt.Sprintf("line %d: invalid value %q for %s, skipping row", line, cell, item.Name)
			}
			row.Values[item.ID] = code
			continue
		}
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Sprintf("line %d: invalid value %q for %s, skipping row", line, cell, item.Name)
		}
		row.Values[item.ID] = value
	}

	return row, ""
}
