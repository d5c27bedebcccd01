package nutrition

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

func TestParseEndToEnd(t *testing.T) {
	raw := "Premium Dog Food\nBrand: Acme Pet Foods\nIngredients: Chicken, Rice, Vegetables\nCrude Protein (min): 25%\nCalories: 350 kcal/cup"

	got := Parse(raw)
	want := ParsedNutrition{
		ProductName: ptr("Premium Dog Food"),
		Brand:       ptr("Acme Pet Foods"),
		Ingredients: []string{"Chicken", "Rice", "Vegetables"},
		Nutrients: Nutrients{
			Protein:                ptr(25.0),
			CaloriesPerServingUnit: ptr(350.0),
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse mismatch (-want +got):\n%s", diff)
	}
	if !got.HasMacronutrients() {
		t.Fatalf("expected HasMacronutrients to be true")
	}
	if got.HasExtendedNutrients() {
		t.Fatalf("expected HasExtendedNutrients to be false")
	}
}

func TestParseFatLines(t *testing.T) {
	got := Parse("Crude Fat (min): 15%")
	if got.Fat == nil || *got.Fat != 15 {
		t.Fatalf("expected fat 15, got %v", got.Fat)
	}

	got = Parse("Saturated Fat: 5%")
	want := ParsedNutrition{Ingredients: []string{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("saturated fat line should populate nothing (-want +got):\n%s", diff)
	}
}

func TestParseCaloriesPerKgVariants(t *testing.T) {
	for _, raw := range []string{"3013 kcal/kg", "3,013 kcal/kg", "3 013 kcal/kg", "3, 013 kcal/kg", "3013 kcal per kg", "3013 kcal/kilogram"} {
		t.Run(raw, func(t *testing.T) {
			got := Parse(raw)
			if got.CaloriesPerMassUnit == nil || *got.CaloriesPerMassUnit != 3013 {
				t.Fatalf("expected mass calories 3013, got %v", got.CaloriesPerMassUnit)
			}
			if got.CaloriesPerServingUnit != nil {
				t.Fatalf("expected serving calories unset, got %v", *got.CaloriesPerServingUnit)
			}
		})
	}
}

func TestParseCaloriesIndependentOfOrder(t *testing.T) {
	got := Parse("16 kcal per treat")
	if got.CaloriesPerServingUnit == nil || *got.CaloriesPerServingUnit != 16 {
		t.Fatalf("expected serving calories 16, got %v", got.CaloriesPerServingUnit)
	}
	if got.CaloriesPerMassUnit != nil {
		t.Fatalf("expected mass calories unset, got %v", *got.CaloriesPerMassUnit)
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"mass first", "Calorie Content: 3,500 kcal/kg\n16 kcal per treat"},
		{"treat first", "16 kcal per treat\nCalorie Content: 3,500 kcal/kg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if got.CaloriesPerMassUnit == nil || *got.CaloriesPerMassUnit != 3500 {
				t.Fatalf("expected mass calories 3500, got %v", got.CaloriesPerMassUnit)
			}
			if got.CaloriesPerServingUnit == nil || *got.CaloriesPerServingUnit != 16 {
				t.Fatalf("expected serving calories 16, got %v", got.CaloriesPerServingUnit)
			}
		})
	}
}

func TestParseBareCalorieLineAfterMass(t *testing.T) {
	// With a kcal/kg value present, a calorie line without its own serving
	// unit is not guessed into the serving field.
	for _, raw := range []string{
		"ME (calculated): 3,400 kcal/kg\nCalories: 120",
		"Calories: 120\nME (calculated): 3,400 kcal/kg",
	} {
		got := Parse(raw)
		if got.CaloriesPerMassUnit == nil || *got.CaloriesPerMassUnit != 3400 {
			t.Fatalf("%q: expected mass calories 3400, got %v", raw, got.CaloriesPerMassUnit)
		}
		if got.CaloriesPerServingUnit != nil {
			t.Fatalf("%q: expected serving calories unset, got %v", raw, *got.CaloriesPerServingUnit)
		}
	}
}

func TestParseParenthesisedME(t *testing.T) {
	for _, raw := range []string{
		"Metabolizable Energy (ME): 3500\n16 kcal per treat",
		"Calorie Content (ME): 3500\n16 kcal per treat",
		"Calorie Content (ME calculated): 3500\n16 kcal per treat",
	} {
		t.Run(raw, func(t *testing.T) {
			got := Parse(raw)
			if got.CaloriesPerMassUnit == nil || *got.CaloriesPerMassUnit != 3500 {
				t.Fatalf("expected mass calories 3500, got %v", got.CaloriesPerMassUnit)
			}
			if got.CaloriesPerServingUnit == nil || *got.CaloriesPerServingUnit != 16 {
				t.Fatalf("expected serving calories 16, got %v", got.CaloriesPerServingUnit)
			}
		})
	}
}

func TestParseMassAndServingOnOneLine(t *testing.T) {
	for _, raw := range []string{
		"Calorie Content (calculated): 3,500 kcal/kg, 350 kcal/cup",
		"Calorie content: 350 kcal per cup (3500 per kg)",
		"Calorie content: 350 kcal/cup; 3,500/kg",
	} {
		t.Run(raw, func(t *testing.T) {
			got := Parse(raw)
			if got.CaloriesPerMassUnit == nil || *got.CaloriesPerMassUnit != 3500 {
				t.Fatalf("expected mass calories 3500, got %v", got.CaloriesPerMassUnit)
			}
			if got.CaloriesPerServingUnit == nil || *got.CaloriesPerServingUnit != 350 {
				t.Fatalf("expected serving calories 350, got %v", got.CaloriesPerServingUnit)
			}
		})
	}
}

func TestParseMassNumberNotReusedForServing(t *testing.T) {
	// The only number sits before "per kg", so nothing is left for the
	// serving field even though the line names a cup.
	got := Parse("Calories: 3500 per kg, about one cup daily")
	if got.CaloriesPerMassUnit == nil || *got.CaloriesPerMassUnit != 3500 {
		t.Fatalf("expected mass calories 3500, got %v", got.CaloriesPerMassUnit)
	}
	if got.CaloriesPerServingUnit != nil {
		t.Fatalf("expected serving calories unset, got %v", *got.CaloriesPerServingUnit)
	}
}

func TestParseIngredients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "no colon",
			raw:  "Ingredients Chicken, Rice",
			want: []string{},
		},
		{
			name: "wrapped lines",
			raw:  "Ingredients: Chicken Meal, Brown Rice,\nOatmeal, Chicken Fat,\nDried Egg Product",
			want: []string{"Chicken Meal", "Brown Rice", "Oatmeal", "Chicken Fat", "Dried Egg Product"},
		},
		{
			name: "empty tokens dropped",
			raw:  "Ingredients: Chicken, , Rice,",
			want: []string{"Chicken", "Rice"},
		},
		{
			name: "parenthesised list kept whole",
			raw:  "Ingredients: Lamb, Minerals (Zinc Sulfate, Iron Proteinate), Rice",
			want: []string{"Lamb", "Minerals (Zinc Sulfate, Iron Proteinate)", "Rice"},
		},
		{
			name: "second section on the same line",
			raw:  "Ingredients: Salmon, Peas. Guaranteed Analysis: Crude Protein 30%",
			want: []string{"Salmon", "Peas"},
		},
		{
			name: "second section on the next line",
			raw:  "Ingredients: Salmon, Peas\nGuaranteed Analysis\nCrude Protein 30%",
			want: []string{"Salmon", "Peas"},
		},
		{
			name: "duplicates kept in label order",
			raw:  "Ingredients: Chicken, Rice, Chicken",
			want: []string{"Chicken", "Rice", "Chicken"},
		},
		{
			name: "ocr misreads corrected",
			raw:  "Ingredients: Chlcken, Rlce, Salrnon",
			want: []string{"Chicken", "Rice", "Salmon"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if diff := cmp.Diff(tt.want, got.Ingredients); diff != "" {
				t.Fatalf("ingredients mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseGuaranteedAnalysis(t *testing.T) {
	raw := `Healthy Bites Adult
Guaranteed Analysis
Crude Protein (min) 26.0%, Crude Fat (min) 16.0%
Crude Fiber (max) 4.5%
Moisture (max) 10%
Ash 7.2%
Calcium (min) 1.2%
Phosphorus (min) 1.0%
Sodium 0.3 %
Carbohydrates 40%`

	got := Parse(raw)
	want := Nutrients{
		Protein:       ptr(26.0),
		Fat:           ptr(16.0),
		Fiber:         ptr(4.5),
		Moisture:      ptr(10.0),
		Ash:           ptr(7.2),
		Calcium:       ptr(1.2),
		Phosphorus:    ptr(1.0),
		Sodium:        ptr(0.3),
		Carbohydrates: ptr(40.0),
	}
	if diff := cmp.Diff(want, got.Nutrients); diff != "" {
		t.Fatalf("nutrients mismatch (-want +got):\n%s", diff)
	}
	if got.ProductName == nil || *got.ProductName != "Healthy Bites Adult" {
		t.Fatalf("expected product name, got %v", got.ProductName)
	}
	if !got.HasExtendedNutrients() {
		t.Fatalf("expected extended nutrients")
	}
}

func TestParseFirstMatchWins(t *testing.T) {
	got := Parse("Crude Protein 20%\nProtein 35%\nBrand: First\nBrand: Second")
	if *got.Protein != 20 {
		t.Fatalf("expected first protein value 20, got %v", *got.Protein)
	}
	if *got.Brand != "First" {
		t.Fatalf("expected first brand, got %q", *got.Brand)
	}
	if got.ProductName != nil {
		t.Fatalf("a data row must not become the product name, got %q", *got.ProductName)
	}
}

func TestParseProductNameWithBrandMarker(t *testing.T) {
	got := Parse("Grain Free Dinner by Acme\nCrude Protein 30%")
	if got.ProductName == nil || *got.ProductName != "Grain Free Dinner" {
		t.Fatalf("expected product name before the brand marker, got %v", got.ProductName)
	}
	if got.Brand == nil || *got.Brand != "Acme" {
		t.Fatalf("expected brand Acme, got %v", got.Brand)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   \n\n\t", "@@## %%"} {
		got := Parse(raw)
		if got.Ingredients == nil {
			t.Fatalf("%q: ingredients must never be nil", raw)
		}
		if got.HasMacronutrients() || got.HasExtendedNutrients() {
			t.Fatalf("%q: expected no nutrients, got %+v", raw, got.Nutrients)
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	raw := "Premium Dog Food\nBrand: Acme Pet Foods\nIngredients: Chlcken, Rice\nCrude Protein (min): 25%\nME (calculated): 3,613 kcal/kg\n412 kcal/cup"
	a, b := Parse(raw), Parse(raw)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("parsing twice differed:\n%s", diff)
	}
}

func TestDefaultRulesOrder(t *testing.T) {
	var got []Field
	for _, r := range DefaultRules() {
		got = append(got, r.Field)
	}
	want := []Field{
		FieldBrand, FieldIngredients, FieldProtein, FieldFat, FieldFiber, FieldMoisture,
		FieldAsh, FieldCarbohydrates, FieldSodium, FieldCalcium, FieldPhosphorus, FieldCalories,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rule order changed (-want +got):\n%s", diff)
	}
}

func TestRuleFires(t *testing.T) {
	var fat Rule
	for _, r := range DefaultRules() {
		if r.Field == FieldFat {
			fat = r
		}
	}
	tests := []struct {
		line string
		want bool
	}{
		{"crude fat (min): 15%", true},
		{"saturated fat: 5%", false},
		{"omega-6 fatty acids 2.5%", false},
		{"crude protein 25%", false},
	}
	for _, tt := range tests {
		if got := fat.Fires(tt.line); got != tt.want {
			t.Errorf("Fires(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Parse("Acme Kibble\nIngredients: Beef, Rice\nProtein 22%")
	c := orig.Clone()
	*c.Protein = 99
	c.Ingredients[0] = "Pork"
	*c.ProductName = "Edited"
	if *orig.Protein != 22 || orig.Ingredients[0] != "Beef" || *orig.ProductName != "Acme Kibble" {
		t.Fatalf("editing a clone changed the original: %+v", orig)
	}
}
