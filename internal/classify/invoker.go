package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/labcore/labcore/internal/domain/labtest"
	"github.com/labcore/labcore/internal/domain/patient"
)

// UnknownClassification marks a measurement the classifier produced no match
// for. Downstream consumers render it as missing status.
const UnknownClassification = "unknown"

type result struct {
	Classification string `json:"classification"`
}

// Invoker drives one classifier call per test instance and reconciles the
// output back onto the stored measurement values.
type Invoker struct {
	tests  labtest.Repository
	runner Runner
}

func NewInvoker(tests labtest.Repository, runner Runner) *Invoker {
	return &Invoker{tests: tests, runner: runner}
}

// ClassifyInstance builds the classifier payload for a test instance, runs
// the classifier and persists the reconciled classifications. On success the
// instance moves to completed; on any failure it stays pending with its
// values intact.
func (i *Invoker) ClassifyInstance(ctx context.Context, instanceID uuid.UUID, panelID int64) error {
	values, err := i.tests.ValuesForInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("instance %s has no measurement values", instanceID)
	}

	payload, err := buildPayload(values)
	if err != nil {
		return err
	}

	raw, err := i.runner.Run(ctx, panelID, payload)
	if err != nil {
		return err
	}

	var parsed map[string]result
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("decode classifier output: %w", err)
	}

	byItem := make(map[int64]string)
	for _, v := range values {
		if v.Demographic {
			continue
		}
		c := lookupClassification(parsed, v.ItemName)
		if c == UnknownClassification {
			log.Warn().
				Str("instance_id", instanceID.String()).
				Str("item", v.ItemName).
				Msg("no classification returned for item")
		}
		byItem[v.ItemID] = c
	}

	if err := i.tests.SetClassifications(ctx, instanceID, byItem); err != nil {
		return err
	}
	return i.tests.MarkCompleted(ctx, instanceID)
}

// buildPayload renders stored values as the flat name-to-value document the
// classifier consumes. Gender travels as M/F rather than its numeric
// encoding.
func buildPayload(values []*labtest.StoredValue) ([]byte, error) {
	doc := make(map[string]interface{}, len(values))
	for _, v := range values {
		if v.Demographic {
			doc[v.ItemName] = patient.GenderShort(v.Value)
			continue
		}
		doc[v.ItemName] = v.Value
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode classifier payload: %w", err)
	}
	return payload, nil
}

// lookupClassification resolves classifier output keys that rarely match item
// names byte for byte. Tried in order: lower snake case, lowercase, the exact
// name, the name with spaces stripped. A key present with an empty
// classification does not count as a match, so a later variant can still win.
func lookupClassification(parsed map[string]result, itemName string) string {
	candidates := []string{
		strings.ToLower(strings.ReplaceAll(itemName, " ", "_")),
		strings.ToLower(itemName),
		itemName,
		strings.ReplaceAll(itemName, " ", ""),
	}
	for _, key := range candidates {
		if r, ok := parsed[key]; ok && r.Classification != "" {
			return r.Classification
		}
	}
	return UnknownClassification
}
