package entity

import (
	"time"

	"github.com/google/uuid"
)

// FoodProduct represents a product record for data transfer between layers.
type FoodProduct struct {
	ID        uuid.UUID       `json:"id"`
	Barcode   string          `json:"barcode,omitempty"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand,omitempty"`
	Category  string          `json:"category,omitempty"`
	Species   string          `json:"species,omitempty"`
	Nutrition NutritionalInfo `json:"nutritional_info"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NutritionalInfo is the database-shaped nutrition record of a product.
// Percentages are "as fed"; calories keep energy density and per-serving
// values apart.
type NutritionalInfo struct {
	CaloriesPerKg      *float64 `json:"calories_per_kg,omitempty"`
	CaloriesPerServing *float64 `json:"calories_per_serving,omitempty"`
	Protein            *float64 `json:"protein,omitempty"`
	Fat                *float64 `json:"fat,omitempty"`
	Fiber              *float64 `json:"fiber,omitempty"`
	Moisture           *float64 `json:"moisture,omitempty"`
	Ash                *float64 `json:"ash,omitempty"`
	Carbohydrates      *float64 `json:"carbohydrates,omitempty"`
	Sodium             *float64 `json:"sodium,omitempty"`
	Calcium            *float64 `json:"calcium,omitempty"`
	Phosphorus         *float64 `json:"phosphorus,omitempty"`

	Ingredients []string `json:"ingredients"`
	Allergens   []string `json:"allergens"`
	Additives   []string `json:"additives"`
	Vitamins    []string `json:"vitamins"`
	Minerals    []string `json:"minerals"`

	Source           string    `json:"source"`
	ExternalID       string    `json:"external_id,omitempty"`
	DataQualityScore float64   `json:"data_quality_score"`
	LastUpdated      time.Time `json:"last_updated"`

	NutrientLevels Attributes `json:"nutrient_levels"`
	Packaging      Attributes `json:"packaging"`
	Manufacturing  Attributes `json:"manufacturing"`
}

// EnsureLists replaces nil string lists with empty ones.
func (n *NutritionalInfo) EnsureLists() {
	for _, l := range []*[]string{&n.Ingredients, &n.Allergens, &n.Additives, &n.Vitamins, &n.Minerals} {
		if *l == nil {
			*l = []string{}
		}
	}
}
