package nutrition

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScoreBounds(t *testing.T) {
	empty := Score(Nutrients{}, nil)
	if empty.Overall != 0 {
		t.Fatalf("expected 0 for an empty record, got %v", empty.Overall)
	}
	if len(empty.Missing) != len(checklist) {
		t.Fatalf("expected every checklist item missing, got %v", empty.Missing)
	}

	v := 1.0
	full := Nutrients{
		Protein: &v, Fat: &v, Fiber: &v, Moisture: &v, Ash: &v,
		Carbohydrates: &v, Sodium: &v, Calcium: &v, Phosphorus: &v,
		CaloriesPerMassUnit: &v,
	}
	ings := []string{"Chicken", "Rice", "Barley", "Peas", "Salmon", "Oats", "Egg"}
	got := Score(full, ings)
	if math.Abs(got.Overall-1) > 1e-9 {
		t.Fatalf("expected 1 for a complete record, got %v", got.Overall)
	}
	if got.Overall > 1 {
		t.Fatalf("score above 1: %v", got.Overall)
	}
	if got.Ingredients != len(ings) || got.Ingredient != 1 {
		t.Fatalf("expected capped ingredient sub-score, got %+v", got)
	}
}

func TestScoreMonotonic(t *testing.T) {
	var n Nutrients
	var ings []string
	prev := Score(n, ings).Overall

	v := 10.0
	steps := []func(){
		func() { n.Protein = &v },
		func() { ings = append(ings, "Chicken") },
		func() { n.CaloriesPerServingUnit = &v },
		func() { n.CaloriesPerMassUnit = &v },
		func() { n.Fat = &v },
		func() { ings = append(ings, "Rice") },
		func() { ings = append(ings, "Corn (ground") },
		func() { n.Phosphorus = &v },
		func() { ings = append(ings, "Peas", "Oats", "Duck", "Liver") },
	}
	for i, step := range steps {
		step()
		got := Score(n, ings).Overall
		if got < prev {
			t.Fatalf("step %d lowered the score: %v -> %v", i, prev, got)
		}
		if got < 0 || got > 1 {
			t.Fatalf("step %d left [0,1]: %v", i, got)
		}
		prev = got
	}
}

func TestScoreCalorieBasisCountsOnce(t *testing.T) {
	v := 1.0
	one := Score(Nutrients{CaloriesPerMassUnit: &v}, nil)
	both := Score(Nutrients{CaloriesPerMassUnit: &v, CaloriesPerServingUnit: &v}, nil)
	if one.Overall != both.Overall {
		t.Fatalf("second calorie basis changed the score: %v vs %v", one.Overall, both.Overall)
	}
	if diff := cmp.Diff([]string{"calories"}, one.Present); diff != "" {
		t.Fatalf("present mismatch (-want +got):\n%s", diff)
	}
}

func TestWellFormed(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Chicken", true},
		{"Minerals (Zinc, Iron)", true},
		{"Vitamin E", true},
		{"", false},
		{"  ", false},
		{"x", false},
		{"12", false},
		{"Chick-", false},
		{"Minerals (Zinc", false},
	}
	for _, tt := range tests {
		if got := wellFormed(tt.in); got != tt.want {
			t.Errorf("wellFormed(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsedQuality(t *testing.T) {
	p := Parse("Premium Dog Food\nIngredients: Chicken, Rice\nCrude Protein 25%")
	q := p.Quality()
	want := nutritionalWeight*0.1 + ingredientWeight*2.0/IngredientTarget
	if math.Abs(q.Overall-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, q.Overall)
	}
}
