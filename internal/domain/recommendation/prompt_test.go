package recommendation

import (
	"strings"
	"testing"
	"time"

	"github.com/labcore/labcore/internal/domain/labtest"
)

func strptr(s string) *string { return &s }

func TestBuildPrompt(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	results := []*labtest.PatientDateResult{
		{PanelName: "Blood Pressure", ItemName: "Diastolic", Unit: "mmHg", Value: 80, Classification: strptr("normal")},
		{PanelName: "Blood Pressure", ItemName: "Systolic", Unit: "mmHg", Value: 135.5, Classification: strptr("high")},
		{PanelName: "Uric Acid", ItemName: "Gender", Demographic: true, Value: 1},
		{PanelName: "Uric Acid", ItemName: "Uric Acid", Unit: "mg/dL", Value: 7.2, Classification: strptr("unknown")},
	}

	prompt := BuildPrompt("Jane Doe", date, results)

	for _, want := range []string{
		"patient Jane Doe on 2024-01-15",
		"Blood Pressure:\n",
		"  - Diastolic = 80 mmHg (Status is normal)",
		"  - Systolic = 135.5 mmHg (Status is high)",
		"  - Gender = Female",
		"  - Uric Acid = 7.2 mg/dL (Status is unknown)",
		"not more than 50 words",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\nprompt:\n%s", want, prompt)
		}
	}

	if strings.Contains(prompt, "Gender = 1") {
		t.Error("demographic value must render as a label, not its encoding")
	}

	again := BuildPrompt("Jane Doe", date, results)
	if prompt != again {
		t.Error("prompt must be deterministic for the same result set")
	}
}

func TestStatusText(t *testing.T) {
	if got := statusText(nil); got != "Status is unknown" {
		t.Errorf("nil classification: got %q", got)
	}
	if got := statusText(strptr("unknown")); got != "Status is unknown" {
		t.Errorf("unknown classification: got %q", got)
	}
	if got := statusText(strptr("low")); got != "Status is low" {
		t.Errorf("low classification: got %q", got)
	}
}
