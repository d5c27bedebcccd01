package nutrition

import (
	"regexp"
	"strings"
)

// Field names a ParsedNutrition slot a rule writes to.
type Field string

const (
	FieldProductName   Field = "product_name"
	FieldBrand         Field = "brand"
	FieldIngredients   Field = "ingredients"
	FieldProtein       Field = "protein"
	FieldFat           Field = "fat"
	FieldFiber         Field = "fiber"
	FieldMoisture      Field = "moisture"
	FieldAsh           Field = "ash"
	FieldCarbohydrates Field = "carbohydrates"
	FieldSodium        Field = "sodium"
	FieldCalcium       Field = "calcium"
	FieldPhosphorus    Field = "phosphorus"
	FieldCalories      Field = "calories"
)

// Rule is one (trigger, extractor) pair. Rules are evaluated in slice order
// against every line; several may fire on the same line.
type Rule struct {
	Field    Field
	Keywords []string // any lower-case substring fires the rule
	Exclude  []string // any lower-case substring suppresses it
	Pattern  *regexp.Regexp
	Extract  func(p *pass, ln line)
}

// Fires reports whether the rule's trigger matches a lower-cased line.
func (r Rule) Fires(lower string) bool {
	for _, x := range r.Exclude {
		if strings.Contains(lower, x) {
			return false
		}
	}
	for _, k := range r.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return r.Pattern != nil && r.Pattern.MatchString(lower)
}

var (
	rePercent   = regexp.MustCompile(`(\d+(?:\.\d+)?) ?%`)
	reMETrigger = regexp.MustCompile(mePattern)
)

// DefaultRules returns the rule table in evaluation order. The product name
// rule is not part of the table; it is decided from the first non-blank line
// after the table has been consulted for that line.
func DefaultRules() []Rule {
	return []Rule{
		{Field: FieldBrand, Keywords: []string{"brand", "by "}, Extract: extractBrand},
		{Field: FieldIngredients, Keywords: []string{"ingredient"}, Extract: extractIngredients},
		percentRule(FieldProtein, []string{"protein"}, nil),
		percentRule(FieldFat, []string{"fat"}, []string{"saturated", "fatty acid"}),
		percentRule(FieldFiber, []string{"fiber", "fibre"}, nil),
		percentRule(FieldMoisture, []string{"moisture"}, nil),
		percentRule(FieldAsh, []string{"ash"}, nil),
		percentRule(FieldCarbohydrates, []string{"carbohydrate", "carbs"}, nil),
		percentRule(FieldSodium, []string{"sodium"}, nil),
		percentRule(FieldCalcium, []string{"calcium"}, nil),
		percentRule(FieldPhosphorus, []string{"phosphorus"}, nil),
		{Field: FieldCalories, Keywords: []string{"calorie", "kcal", "metabolizable"}, Pattern: reMETrigger, Extract: extractCalories},
	}
}

func percentRule(f Field, keywords, exclude []string) Rule {
	return Rule{
		Field:    f,
		Keywords: keywords,
		Exclude:  exclude,
		Extract: func(p *pass, ln line) {
			slot := p.percentSlot(f)
			if slot == nil || *slot != nil {
				return
			}
			if v, ok := percentAfter(ln.lower, keywords); ok {
				*slot = &v
			}
		},
	}
}

// percentAfter returns the first percentage at or after the keyword, falling
// back to the first percentage on the line.
func percentAfter(lower string, keywords []string) (float64, bool) {
	for _, k := range keywords {
		if i := strings.Index(lower, k); i >= 0 {
			if m := rePercent.FindStringSubmatch(lower[i:]); m != nil {
				return parseNumber(m[1])
			}
		}
	}
	if m := rePercent.FindStringSubmatch(lower); m != nil {
		return parseNumber(m[1])
	}
	return 0, false
}

func extractBrand(p *pass, ln line) {
	if p.out.Brand != nil {
		return
	}
	src := ln.text
	if len(src) != len(ln.lower) {
		src = ln.lower
	}
	for _, k := range []string{"brand", "by "} {
		i := strings.Index(ln.lower, k)
		if i < 0 {
			continue
		}
		after := trimLabel(src[i+len(k):])
		if after == "" {
			after = trimLabel(src[:i])
		}
		if after != "" {
			p.out.Brand = &after
			return
		}
	}
}

func extractIngredients(p *pass, ln line) {
	if p.ingredientsDone {
		return
	}
	p.ingredientsDone = true
	p.out.Ingredients = splitIngredients(p.ingredientSection(ln.idx))
}

func extractCalories(p *pass, ln line) {
	p.calorieLines = append(p.calorieLines, ln)
}

// trimLabel strips the separator punctuation left around a label value.
func trimLabel(s string) string {
	return strings.Trim(strings.TrimSpace(s), " :-–|.,")
}
