package entity

import (
	"time"

	"github.com/google/uuid"
)

// ScanRecord is the persisted summary of one finished scan session.
type ScanRecord struct {
	ID             uuid.UUID     `json:"id"`
	SessionID      uuid.UUID     `json:"session_id"`
	ProductID      *uuid.UUID    `json:"product_id,omitempty"`
	PetID          *uuid.UUID    `json:"pet_id,omitempty"`
	Barcode        string        `json:"barcode,omitempty"`
	Method         string        `json:"method"`
	FinalState     string        `json:"final_state"`
	FailureReason  string        `json:"failure_reason,omitempty"`
	Confidence     float64       `json:"confidence"`
	QualityScore   float64       `json:"quality_score"`
	Severity       string        `json:"severity,omitempty"`
	AssessmentJSON []byte        `json:"assessment,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
	CreatedAt      time.Time     `json:"created_at"`
}

// LabelJob tracks one label file through the batch pipeline.
type LabelJob struct {
	ID           uuid.UUID  `json:"id"`
	SourcePath   string     `json:"source_path"`
	Format       string     `json:"format"`
	Status       string     `json:"status"`
	Method       string     `json:"method,omitempty"`
	Confidence   float64    `json:"confidence"`
	ProductID    *uuid.UUID `json:"product_id,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
