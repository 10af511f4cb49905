package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/labcore/labcore/internal/domain/catalog"
	"github.com/labcore/labcore/internal/domain/recommendation"
)

// Classifier runs the external classifier for one stored test instance.
type Classifier interface {
	ClassifyInstance(ctx context.Context, instanceID uuid.UUID, panelID int64) error
}

// Recommender drafts a recommendation for a patient's results on a date,
// attributed to the doctor the results were uploaded under.
type Recommender interface {
	Generate(ctx context.Context, patientNumber string, testDate time.Time, doctorID int64, createdBy string) (*recommendation.Recommendation, error)
}

// Summary is the upload response: what the file produced and every warning
// accumulated along the way.
type Summary struct {
	Patients        int      `json:"patients"`
	Batches         int      `json:"batches"`
	BatchesSkipped  int      `json:"batches_skipped"`
	Instances       int      `json:"instances"`
	Classified      int      `json:"classified"`
	Recommendations int      `json:"recommendations"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Pipeline runs a full upload: parse and group, persist batch by batch,
// classify the complete instances with bounded concurrency, then draft one
// recommendation per distinct patient and date. Classification and
// recommendation failures degrade to warnings; the stored results stand.
type Pipeline struct {
	coordinator *Coordinator
	classifier  Classifier
	recommender Recommender
	cat         *catalog.Catalog
	concurrency int
}

func NewPipeline(coordinator *Coordinator, classifier Classifier, recommender Recommender, cat *catalog.Catalog, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		coordinator: coordinator,
		classifier:  classifier,
		recommender: recommender,
		cat:         cat,
		concurrency: concurrency,
	}
}

func (p *Pipeline) Run(ctx context.Context, r io.Reader, filename, uploadedBy string) (*Summary, error) {
	parsed, err := Parse(r, filename, p.cat)
	if err != nil {
		if errors.Is(err, ErrNoData) && parsed != nil {
			return &Summary{Warnings: parsed.Warnings}, err
		}
		return nil, err
	}

	summary := &Summary{Warnings: parsed.Warnings}
	var refs []InstanceRef
	patients := make(map[string]struct{})

	for _, batch := range parsed.Batches {
		outcome, err := p.coordinator.IngestBatch(ctx, batch, uploadedBy)
		if err != nil {
			summary.Warnings = append(summary.Warnings, err.Error())
			summary.BatchesSkipped++
			continue
		}
		summary.Warnings = append(summary.Warnings, outcome.Warnings...)
		if outcome.Skipped {
			summary.BatchesSkipped++
			continue
		}
		summary.Batches++
		summary.Instances += len(outcome.Instances)
		patients[batch.PatientNumber] = struct{}{}
		refs = append(refs, outcome.Instances...)
	}
	summary.Patients = len(patients)

	// The summary still comes back so the caller can report why every
	// batch was rejected.
	if len(refs) == 0 {
		return summary, ErrNoData
	}

	classified, warnings := p.classifyAll(ctx, refs)
	summary.Classified = classified
	summary.Warnings = append(summary.Warnings, warnings...)

	recs, warnings := p.recommendAll(ctx, refs, uploadedBy)
	summary.Recommendations = recs
	summary.Warnings = append(summary.Warnings, warnings...)

	log.Info().
		Int("patients", summary.Patients).
		Int("batches", summary.Batches).
		Int("instances", summary.Instances).
		Int("classified", summary.Classified).
		Int("recommendations", summary.Recommendations).
		Int("warnings", len(summary.Warnings)).
		Str("file", filename).
		Msg("upload processed")
	return summary, nil
}

// classifyAll fans classification out over the fresh instances, at most
// concurrency classifier processes at a time. Instances missing required
// items are still sent; the warning flags them for follow-up.
func (p *Pipeline) classifyAll(ctx context.Context, refs []InstanceRef) (int, []string) {
	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var classified int
	var warnings []string

	// Incompleteness warnings are collected before any worker starts, so
	// only the workers ever append under the lock.
	for _, ref := range refs {
		if !ref.Complete {
			warnings = append(warnings, fmt.Sprintf(
				"instance %s (panel %d) is missing required items", ref.ID, ref.PanelID))
		}
	}

	for _, ref := range refs {
		wg.Add(1)
		sem <- struct{}{}
		go func(ref InstanceRef) {
			defer wg.Done()
			defer func() { <-sem }()

			err := p.classifier.ClassifyInstance(ctx, ref.ID, ref.PanelID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warnings = append(warnings, fmt.Sprintf(
					"classification failed for instance %s (panel %d): %v", ref.ID, ref.PanelID, err))
				return
			}
			classified++
		}(ref)
	}
	wg.Wait()
	return classified, warnings
}

// recommendAll drafts one recommendation per distinct (patient, date) seen in
// the upload. Existing recommendations are left alone.
func (p *Pipeline) recommendAll(ctx context.Context, refs []InstanceRef, uploadedBy string) (int, []string) {
	type key struct {
		patientNumber string
		testDate      string
	}
	seen := make(map[key]struct{})
	var generated int
	var warnings []string

	for _, ref := range refs {
		k := key{ref.PatientNumber, ref.TestDate.Format(dateLayout)}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		_, err := p.recommender.Generate(ctx, ref.PatientNumber, ref.TestDate, ref.DoctorID, uploadedBy)
		switch {
		case errors.Is(err, recommendation.ErrAlreadyExists):
			// re-upload for a pair that already has one
		case errors.Is(err, recommendation.ErrNoData):
			// nothing stored for the pair, nothing to draft
		case err != nil:
			warnings = append(warnings, fmt.Sprintf(
				"recommendation failed for patient %s on %s: %v", ref.PatientNumber, k.testDate, err))
		default:
			generated++
		}
	}
	return generated, warnings
}
