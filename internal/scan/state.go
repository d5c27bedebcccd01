package scan

// State is a ScanSession lifecycle state.
type State int32

const (
	Idle State = iota
	AwaitingCapture
	BarcodeDetected
	ProductLookupPending
	ProductFound
	ProductNotFound
	NutritionCapturePending
	Parsing
	AwaitingPetSelection
	Analyzing
	Completed
	Failed
)

var stateNames = [...]string{
	Idle:                    "idle",
	AwaitingCapture:         "awaiting_capture",
	BarcodeDetected:         "barcode_detected",
	ProductLookupPending:    "product_lookup_pending",
	ProductFound:            "product_found",
	ProductNotFound:         "product_not_found",
	NutritionCapturePending: "nutrition_capture_pending",
	Parsing:                 "parsing",
	AwaitingPetSelection:    "awaiting_pet_selection",
	Analyzing:               "analyzing",
	Completed:               "completed",
	Failed:                  "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText lets states appear by name in JSON and logs.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// needsAttention marks the states that put a prompt in front of the user.
// Only one of them may be active at a time.
func (s State) needsAttention() bool {
	switch s {
	case BarcodeDetected, ProductFound, ProductNotFound, NutritionCapturePending, AwaitingPetSelection:
		return true
	}
	return false
}

// inFlight marks states waiting on asynchronous work.
func (s State) inFlight() bool {
	return s == ProductLookupPending || s == Parsing || s == Analyzing
}

// FailureReason says why a session entered Failed.
type FailureReason string

const (
	ReasonNone           FailureReason = ""
	ReasonTimeout        FailureReason = "timeout"
	ReasonCaptureInvalid FailureReason = "capture_invalid"
	ReasonCancelled      FailureReason = "cancelled"
	ReasonOCRFailed      FailureReason = "ocr_failed"
	ReasonAnalysisFailed FailureReason = "analysis_failed"
)
