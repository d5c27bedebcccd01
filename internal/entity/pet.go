package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PetProfile represents a pet for data transfer between layers.
type PetProfile struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Species       string        `json:"species"`
	Breed         *string       `json:"breed,omitempty"`
	Sensitivities []Sensitivity `json:"sensitivities"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Sensitivity is a pet-specific reactive ingredient.
type Sensitivity struct {
	Name     string `json:"name"`
	Critical bool   `json:"critical"`
}

// SensitivityNames returns the plain names, for collaborators that only
// exchange strings.
func (p PetProfile) SensitivityNames() []string {
	out := make([]string, 0, len(p.Sensitivities))
	for _, s := range p.Sensitivities {
		out = append(out, s.Name)
	}
	return out
}

// ParseSensitivities turns "chicken,beef!" style input into sensitivities.
// A trailing "!" marks a critical one.
func ParseSensitivities(values []string) []Sensitivity {
	out := make([]Sensitivity, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		critical := strings.HasSuffix(v, "!")
		v = strings.TrimSpace(strings.TrimSuffix(v, "!"))
		if v == "" {
			continue
		}
		out = append(out, Sensitivity{Name: v, Critical: critical})
	}
	return out
}
