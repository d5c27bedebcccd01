package sensitivity

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

func pet(name, species string, sens ...string) entity.PetProfile {
	return entity.PetProfile{
		ID:            uuid.MustParse("7f6c1c1e-2a5b-4d8e-9a43-0c7a1f2b9d11"),
		Name:          name,
		Species:       species,
		Sensitivities: entity.ParseSensitivities(sens),
	}
}

func TestAssessChickenRice(t *testing.T) {
	got := Assess([]string{"chicken", "rice"}, pet("Rex", "dog", "chicken"))

	if !got.HasSensitivityMatches {
		t.Fatalf("expected a sensitivity match")
	}
	if diff := cmp.Diff([]string{"chicken"}, got.MatchedSensitivities); diff != "" {
		t.Fatalf("matched mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"rice"}, got.SafeIngredients); diff != "" {
		t.Fatalf("safe mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"chicken"}, got.WarningIngredients); diff != "" {
		t.Fatalf("warning mismatch (-want +got):\n%s", diff)
	}
	if got.SeverityLevel != SeverityModerate {
		t.Fatalf("expected moderate, got %s", got.SeverityLevel)
	}
	if got.PetName != "Rex" || got.Species != constants.Dog {
		t.Fatalf("pet fields not carried: %+v", got)
	}
	if len(got.Recommendations) == 0 || !strings.Contains(got.Recommendations[0], "Rex") || !strings.Contains(got.Recommendations[0], "chicken") {
		t.Fatalf("recommendation should name the pet and ingredient: %v", got.Recommendations)
	}
}

func TestAssessSeverity(t *testing.T) {
	tests := []struct {
		name        string
		ingredients []string
		pet         entity.PetProfile
		want        Severity
		wantMatches bool
	}{
		{
			name:        "no matches",
			ingredients: []string{"Lamb", "Rice"},
			pet:         pet("Milo", "cat", "chicken"),
			want:        SeverityNone,
		},
		{
			name:        "direct case-insensitive",
			ingredients: []string{"Chicken Meal", "Rice"},
			pet:         pet("Milo", "cat", "CHICKEN"),
			want:        SeverityModerate,
			wantMatches: true,
		},
		{
			name:        "critical direct",
			ingredients: []string{"Beef", "Rice"},
			pet:         pet("Milo", "cat", "beef!"),
			want:        SeverityHigh,
			wantMatches: true,
		},
		{
			name:        "shared token only",
			ingredients: []string{"Chicken", "Rice"},
			pet:         pet("Milo", "cat", "chicken fat"),
			want:        SeverityLow,
			wantMatches: true,
		},
		{
			name:        "near spelling only",
			ingredients: []string{"Salmon Oil"},
			pet:         pet("Milo", "cat", "salmn"),
			want:        SeverityLow,
			wantMatches: true,
		},
		{
			name:        "critical fuzzy stays low",
			ingredients: []string{"Chicken"},
			pet:         pet("Milo", "cat", "chicken liver!"),
			want:        SeverityLow,
			wantMatches: true,
		},
		{
			name:        "species rule",
			ingredients: []string{"Lamb", "Garlic Powder"},
			pet:         pet("Rex", "Canine"),
			want:        SeverityHigh,
		},
		{
			name:        "species plural",
			ingredients: []string{"Raisins"},
			pet:         pet("Rex", "dog"),
			want:        SeverityHigh,
		},
		{
			name:        "species rule does not apply to other species",
			ingredients: []string{"Xylitol"},
			pet:         pet("Milo", "cat"),
			want:        SeverityNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(tt.ingredients, tt.pet)
			if got.SeverityLevel != tt.want {
				t.Fatalf("severity = %s, want %s (matches %+v)", got.SeverityLevel, tt.want, got.Matches)
			}
			if got.HasSensitivityMatches != tt.wantMatches {
				t.Fatalf("HasSensitivityMatches = %v, want %v", got.HasSensitivityMatches, tt.wantMatches)
			}
			if got.SeverityLevel != SeverityOf(got.Matches) {
				t.Fatalf("severity is not derived from matches")
			}
			if n := len(got.SafeIngredients) + len(got.WarningIngredients); n != len(tt.ingredients) {
				t.Fatalf("every ingredient must be safe or warning, got %d of %d", n, len(tt.ingredients))
			}
		})
	}
}

func TestAssessSpeciesWarnings(t *testing.T) {
	got := Assess([]string{"Chicken", "Onion Powder", "Rice"}, pet("Rex", "dog"))
	if diff := cmp.Diff([]string{"Onion Powder"}, got.SpeciesWarnings); diff != "" {
		t.Fatalf("species warnings mismatch (-want +got):\n%s", diff)
	}
	if got.HasSensitivityMatches {
		t.Fatalf("species rules are not pet sensitivities")
	}
	if !strings.Contains(strings.Join(got.Recommendations, " "), "unsafe for dogs") {
		t.Fatalf("expected species recommendation, got %v", got.Recommendations)
	}
}

func TestAssessWithoutSpeciesRules(t *testing.T) {
	a := NewAssessor(WithSpeciesRules(nil))
	got := a.Assess([]string{"Garlic"}, pet("Rex", "dog"))
	if got.SeverityLevel != SeverityNone {
		t.Fatalf("expected species checks disabled, got %s", got.SeverityLevel)
	}
}

func TestAssessNoIngredients(t *testing.T) {
	got := Assess(nil, pet("Rex", "dog", "chicken"))
	if got.SeverityLevel != SeverityNone || got.HasSensitivityMatches {
		t.Fatalf("expected empty assessment, got %+v", got)
	}
	if len(got.Recommendations) != 1 || !strings.Contains(got.Recommendations[0], "No ingredients found") {
		t.Fatalf("expected no-ingredients guidance, got %v", got.Recommendations)
	}
	if got.SafeIngredients == nil || got.WarningIngredients == nil || got.MatchedSensitivities == nil {
		t.Fatalf("lists must be empty, not nil")
	}
}

func TestAssessUnnamedPet(t *testing.T) {
	got := Assess([]string{"Rice"}, entity.PetProfile{Species: "cat"})
	if len(got.Recommendations) != 1 || !strings.Contains(got.Recommendations[0], "your pet") {
		t.Fatalf("expected fallback pet name, got %v", got.Recommendations)
	}
}

func TestMatchedSensitivitiesUnique(t *testing.T) {
	got := Assess([]string{"Chicken", "Chicken Fat", "Dried Chicken"}, pet("Rex", "dog", "chicken", "beef"))
	if diff := cmp.Diff([]string{"chicken"}, got.MatchedSensitivities); diff != "" {
		t.Fatalf("matched mismatch (-want +got):\n%s", diff)
	}
	if len(got.Matches) != 3 {
		t.Fatalf("expected a match per ingredient, got %+v", got.Matches)
	}
	if len(got.Recommendations) != 1 || !strings.Contains(got.Recommendations[0], "Chicken, Chicken Fat and Dried Chicken") {
		t.Fatalf("expected one grouped recommendation, got %v", got.Recommendations)
	}
}

func TestWorst(t *testing.T) {
	as := []Assessment{{SeverityLevel: SeverityLow}, {SeverityLevel: SeverityHigh}, {SeverityLevel: SeverityNone}}
	if Worst(as) != SeverityHigh {
		t.Fatalf("expected high")
	}
	if Worst(nil) != SeverityNone {
		t.Fatalf("expected none for no assessments")
	}
}
