package scan

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/nutrition"
	"github.com/joseph-ayodele/petfood-scanner/internal/sensitivity"
)

// BarcodeResult is one decoded barcode event from the camera collaborator.
type BarcodeResult struct {
	Value      string    `json:"value"`
	Type       string    `json:"type"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// ScanMethod says which inputs produced a scan result.
type ScanMethod string

const (
	MethodBarcodeOnly ScanMethod = "barcode_only"
	MethodOCROnly     ScanMethod = "ocr_only"
	MethodHybrid      ScanMethod = "hybrid"
	MethodFailed      ScanMethod = "failed"
)

// HybridScanResult aggregates everything one scan attempt produced.
type HybridScanResult struct {
	Barcode        *BarcodeResult      `json:"barcode,omitempty"`
	Product        *entity.FoodProduct `json:"product,omitempty"`
	RawText        string              `json:"raw_text,omitempty"`
	Method         ScanMethod          `json:"method"`
	Confidence     float64             `json:"confidence"`
	ProcessingTime time.Duration       `json:"processing_time"`
	LastCapture    []byte              `json:"-"`
}

// Capture is a user label capture. Text is recognized label text supplied by
// the caller; when it is empty Image is run through the session's recognizer.
type Capture struct {
	Text       string
	Image      []byte
	Confidence float64 // recognizer confidence for Text, 0 if unknown
}

// Transition is one entry of the Updates stream.
type Transition struct {
	SessionID  uuid.UUID     `json:"session_id"`
	From       State         `json:"from"`
	To         State         `json:"to"`
	Reason     FailureReason `json:"reason,omitempty"`
	Generation uint64        `json:"generation"`
	At         time.Time     `json:"at"`
}

// ScanOutcome is emitted whenever a session reaches Completed or Failed.
// Product is the looked-up record, or the user_upload record built from the
// parsed label when no lookup succeeded.
type ScanOutcome struct {
	SessionID   uuid.UUID                  `json:"session_id"`
	FinalState  State                      `json:"final_state"`
	Reason      FailureReason              `json:"reason,omitempty"`
	Result      HybridScanResult           `json:"result"`
	Parsed      *nutrition.ParsedNutrition `json:"parsed,omitempty"`
	Quality     *nutrition.QualityReport   `json:"quality,omitempty"`
	Assessments []sensitivity.Assessment   `json:"assessments,omitempty"`
	Err         error                      `json:"-"`
}
