package nutrition

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

// Nutrients holds the optional numeric label values. Percentages are as
// printed. The two calorie fields are populated independently and are never
// derived from one another.
type Nutrients struct {
	Protein       *float64 `json:"protein,omitempty"`
	Fat           *float64 `json:"fat,omitempty"`
	Fiber         *float64 `json:"fiber,omitempty"`
	Moisture      *float64 `json:"moisture,omitempty"`
	Ash           *float64 `json:"ash,omitempty"`
	Carbohydrates *float64 `json:"carbohydrates,omitempty"`
	Sodium        *float64 `json:"sodium,omitempty"`
	Calcium       *float64 `json:"calcium,omitempty"`
	Phosphorus    *float64 `json:"phosphorus,omitempty"`

	CaloriesPerMassUnit    *float64 `json:"calories_per_kg,omitempty"`
	CaloriesPerServingUnit *float64 `json:"calories_per_serving,omitempty"`
}

// ParsedNutrition is the typed result of one parse pass over label text.
type ParsedNutrition struct {
	ProductName *string  `json:"product_name,omitempty"`
	Brand       *string  `json:"brand,omitempty"`
	Ingredients []string `json:"ingredients"`
	Nutrients
}

// HasMacronutrients reports whether any of protein, fat, fiber, moisture or ash is present.
func (p ParsedNutrition) HasMacronutrients() bool {
	return p.Protein != nil || p.Fat != nil || p.Fiber != nil || p.Moisture != nil || p.Ash != nil
}

// HasExtendedNutrients reports whether any of carbohydrates, sodium, calcium or phosphorus is present.
func (p ParsedNutrition) HasExtendedNutrients() bool {
	return p.Carbohydrates != nil || p.Sodium != nil || p.Calcium != nil || p.Phosphorus != nil
}

// Clone returns a deep copy, used when a caller wants to edit the record.
func (p ParsedNutrition) Clone() ParsedNutrition {
	out := ParsedNutrition{
		ProductName: cloneString(p.ProductName),
		Brand:       cloneString(p.Brand),
		Ingredients: append([]string{}, p.Ingredients...),
	}
	n := p.Nutrients
	for _, f := range []struct{ dst, src **float64 }{
		{&out.Protein, &n.Protein},
		{&out.Fat, &n.Fat},
		{&out.Fiber, &n.Fiber},
		{&out.Moisture, &n.Moisture},
		{&out.Ash, &n.Ash},
		{&out.Carbohydrates, &n.Carbohydrates},
		{&out.Sodium, &n.Sodium},
		{&out.Calcium, &n.Calcium},
		{&out.Phosphorus, &n.Phosphorus},
		{&out.CaloriesPerMassUnit, &n.CaloriesPerMassUnit},
		{&out.CaloriesPerServingUnit, &n.CaloriesPerServingUnit},
	} {
		if *f.src != nil {
			v := **f.src
			*f.dst = &v
		}
	}
	return out
}

// ToFoodProduct converts a parse result into a product record tagged as a
// user upload. id and now are injected so the conversion stays deterministic.
func (p ParsedNutrition) ToFoodProduct(id uuid.UUID, barcode string, now time.Time) entity.FoodProduct {
	c := p.Clone()
	q := Score(c.Nutrients, c.Ingredients)
	fp := entity.FoodProduct{
		ID:      id,
		Barcode: barcode,
		Nutrition: entity.NutritionalInfo{
			CaloriesPerKg:      c.CaloriesPerMassUnit,
			CaloriesPerServing: c.CaloriesPerServingUnit,
			Protein:            c.Protein,
			Fat:                c.Fat,
			Fiber:              c.Fiber,
			Moisture:           c.Moisture,
			Ash:                c.Ash,
			Carbohydrates:      c.Carbohydrates,
			Sodium:             c.Sodium,
			Calcium:            c.Calcium,
			Phosphorus:         c.Phosphorus,
			Ingredients:        c.Ingredients,
			Source:             constants.SourceUserUpload,
			DataQualityScore:   q.Overall,
			LastUpdated:        now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.ProductName != nil {
		fp.Name = *c.ProductName
	}
	if c.Brand != nil {
		fp.Brand = *c.Brand
	}
	fp.Nutrition.EnsureLists()
	return fp
}

// NutrientsOf extracts the numeric label values of a product record.
func NutrientsOf(info entity.NutritionalInfo) Nutrients {
	return Nutrients{
		Protein:                info.Protein,
		Fat:                    info.Fat,
		Fiber:                  info.Fiber,
		Moisture:               info.Moisture,
		Ash:                    info.Ash,
		Carbohydrates:          info.Carbohydrates,
		Sodium:                 info.Sodium,
		Calcium:                info.Calcium,
		Phosphorus:             info.Phosphorus,
		CaloriesPerMassUnit:    info.CaloriesPerKg,
		CaloriesPerServingUnit: info.CaloriesPerServing,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
