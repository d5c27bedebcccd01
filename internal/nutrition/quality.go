package nutrition

import (
	"math"
	"strings"
	"unicode"
)

const (
	nutritionalWeight = 0.7
	ingredientWeight  = 0.3

	// IngredientTarget is the number of well-formed ingredients that earns a
	// full ingredient sub-score.
	IngredientTarget = 5
)

// QualityReport is the completeness score of a nutrition record plus the
// inputs that produced it.
type QualityReport struct {
	Overall     float64  `json:"overall"`
	Nutritional float64  `json:"nutritional"`
	Ingredient  float64  `json:"ingredient"`
	Present     []string `json:"present"`
	Missing     []string `json:"missing"`
	Ingredients int      `json:"well_formed_ingredients"`
}

type checkItem struct {
	name    string
	present func(Nutrients) bool
}

// checklist is the fixed set of expected numeric fields. Either calorie basis
// satisfies the calories item.
var checklist = []checkItem{
	{"calories", func(n Nutrients) bool { return n.CaloriesPerMassUnit != nil || n.CaloriesPerServingUnit != nil }},
	{"protein", func(n Nutrients) bool { return n.Protein != nil }},
	{"fat", func(n Nutrients) bool { return n.Fat != nil }},
	{"fiber", func(n Nutrients) bool { return n.Fiber != nil }},
	{"moisture", func(n Nutrients) bool { return n.Moisture != nil }},
	{"ash", func(n Nutrients) bool { return n.Ash != nil }},
	{"carbohydrates", func(n Nutrients) bool { return n.Carbohydrates != nil }},
	{"sodium", func(n Nutrients) bool { return n.Sodium != nil }},
	{"calcium", func(n Nutrients) bool { return n.Calcium != nil }},
	{"phosphorus", func(n Nutrients) bool { return n.Phosphorus != nil }},
}

// Score computes 0.7*nutritional + 0.3*ingredient, clamped to [0,1].
// Adding a field or a well-formed ingredient never lowers the result.
func Score(n Nutrients, ingredients []string) QualityReport {
	r := QualityReport{Present: []string{}, Missing: []string{}}
	for _, c := range checklist {
		if c.present(n) {
			r.Present = append(r.Present, c.name)
		} else {
			r.Missing = append(r.Missing, c.name)
		}
	}
	r.Nutritional = float64(len(r.Present)) / float64(len(checklist))

	for _, ing := range ingredients {
		if wellFormed(ing) {
			r.Ingredients++
		}
	}
	r.Ingredient = math.Min(float64(r.Ingredients), IngredientTarget) / IngredientTarget

	r.Overall = clamp01(nutritionalWeight*r.Nutritional + ingredientWeight*r.Ingredient)
	return r
}

// Quality scores the record's own fields.
func (p ParsedNutrition) Quality() QualityReport {
	return Score(p.Nutrients, p.Ingredients)
}

// wellFormed rejects empty and obviously truncated entries: fewer than two
// letters, or a dangling hyphen or open parenthesis.
func wellFormed(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "-") || strings.Count(s, "(") > strings.Count(s, ")") {
		return false
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 2
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
