package scan

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/sensitivity"
)

// Record flattens the outcome into its persisted summary. The pet is the one
// whose assessment was worst; ties keep the first selected pet.
func (o ScanOutcome) Record() (*entity.ScanRecord, error) {
	rec := &entity.ScanRecord{
		ID:             uuid.New(),
		SessionID:      o.SessionID,
		Method:         string(o.Result.Method),
		FinalState:     o.FinalState.String(),
		FailureReason:  string(o.Reason),
		Confidence:     o.Result.Confidence,
		ProcessingTime: o.Result.ProcessingTime,
	}
	if b := o.Result.Barcode; b != nil {
		rec.Barcode = b.Value
	}
	if p := o.Result.Product; p != nil && p.ID != uuid.Nil {
		id := p.ID
		rec.ProductID = &id
	}
	if o.Quality != nil {
		rec.QualityScore = o.Quality.Overall
	}
	if len(o.Assessments) == 0 {
		return rec, nil
	}

	worst := 0
	for i, a := range o.Assessments {
		if a.SeverityLevel.Rank() > o.Assessments[worst].SeverityLevel.Rank() {
			worst = i
		}
	}
	if id := o.Assessments[worst].PetID; id != uuid.Nil {
		rec.PetID = &id
	}
	rec.Severity = string(sensitivity.Worst(o.Assessments))

	raw, err := json.Marshal(o.Assessments)
	if err != nil {
		return nil, fmt.Errorf("marshal assessments: %w", err)
	}
	rec.AssessmentJSON = raw
	return rec, nil
}
