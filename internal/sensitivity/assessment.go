package sensitivity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/constants"
)

// Severity grades an assessment.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Rank orders severities so callers can pick the worst of several.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

// MatchKind says how an ingredient was tied to a sensitivity.
type MatchKind string

const (
	// KindDirect is a case-insensitive substring match.
	KindDirect MatchKind = "direct"
	// KindFuzzy is a shared token or a near spelling.
	KindFuzzy MatchKind = "fuzzy"
	// KindSpecies is an ingredient unsafe for the whole species.
	KindSpecies MatchKind = "species"
)

// Match is one (sensitivity, ingredient) pairing.
type Match struct {
	Sensitivity string    `json:"sensitivity"`
	Ingredient  string    `json:"ingredient"`
	Critical    bool      `json:"critical"`
	Kind        MatchKind `json:"kind"`
}

// Assessment is the result of checking one ingredient list for one pet. It is
// recomputed for every (scan, pet) pair and never edited in place.
type Assessment struct {
	PetID                 uuid.UUID         `json:"pet_id"`
	PetName               string            `json:"pet_name"`
	Species               constants.Species `json:"species"`
	HasSensitivityMatches bool              `json:"has_sensitivity_matches"`
	MatchedSensitivities  []string          `json:"matched_sensitivities"`
	SafeIngredients       []string          `json:"safe_ingredients"`
	WarningIngredients    []string          `json:"warning_ingredients"`
	SpeciesWarnings       []string          `json:"species_warnings"`
	Matches               []Match           `json:"matches"`
	Recommendations       []string          `json:"recommendations"`
	SeverityLevel         Severity          `json:"severity_level"`
}

// SeverityOf derives the severity from recorded matches alone:
// high for any critical non-fuzzy match, moderate for any other direct
// match, low when only fuzzy matches exist.
func SeverityOf(matches []Match) Severity {
	sev := SeverityNone
	for _, m := range matches {
		var s Severity
		switch {
		case m.Kind == KindFuzzy:
			s = SeverityLow
		case m.Critical:
			s = SeverityHigh
		default:
			s = SeverityModerate
		}
		if s.Rank() > sev.Rank() {
			sev = s
		}
	}
	return sev
}

// Worst returns the highest severity among assessments.
func Worst(as []Assessment) Severity {
	sev := SeverityNone
	for _, a := range as {
		if a.SeverityLevel.Rank() > sev.Rank() {
			sev = a.SeverityLevel
		}
	}
	return sev
}
