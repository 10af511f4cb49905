package recommendation

import (
	"strconv"
	"strings"
	"time"

	"github.com/labcore/labcore/internal/domain/labtest"
	"github.com/labcore/labcore/internal/domain/patient"
)

// BuildPrompt renders the full set of a patient's results on one date into
// the text generation prompt, headed by the patient's display name. Input
// must already be ordered by panel name then item name so the prompt is
// deterministic for a given result set.
func BuildPrompt(patientName string, testDate time.Time, results []*labtest.PatientDateResult) string {
	var b strings.Builder
	b.WriteString("Laboratory test results for patient ")
	b.WriteString(patientName)
	b.WriteString(" on ")
	b.WriteString(testDate.Format("2006-01-02"))
	b.WriteString(":\n")

	currentPanel := ""
	for _, res := range results {
		if res.PanelName != currentPanel {
			currentPanel = res.PanelName
			b.WriteString("\n")
			b.WriteString(currentPanel)
			b.WriteString(":\n")
		}
		b.WriteString("  - ")
		b.WriteString(res.ItemName)
		b.WriteString(" = ")
		if res.Demographic {
			b.WriteString(patient.GenderLabel(res.Value))
			b.WriteString("\n")
			continue
		}
		b.WriteString(strconv.FormatFloat(res.Value, 'f', -1, 64))
		if res.Unit != "" {
			b.WriteString(" ")
			b.WriteString(res.Unit)
		}
		b.WriteString(" (")
		b.WriteString(statusText(res.Classification))
		b.WriteString(")\n")
	}

	b.WriteString("\nGenerate an overall short and simple clinical interpretation ")
	b.WriteString("and health recommendation for this patient based on the results ")
	b.WriteString("above, in not more than 50 words.")
	return b.String()
}

func statusText(classification *string) string {
	if classification == nil || *classification == "" || *classification == "unknown" {
		return "Status is unknown"
	}
	return "Status is " + *classification
}
