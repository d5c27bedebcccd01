package nutrition

import (
	"regexp"
	"strconv"
	"strings"
)

// CalorieBasis says which calorie field a value belongs to.
type CalorieBasis int

const (
	// PerMass is kcal per kilogram (metabolizable energy).
	PerMass CalorieBasis = iota + 1
	// PerServing is kcal per treat, cup, piece or serving.
	PerServing
)

func (b CalorieBasis) String() string {
	switch b {
	case PerMass:
		return "per_kg"
	case PerServing:
		return "per_serving"
	}
	return "unknown"
}

// CalorieValue is one resolved calorie reading.
type CalorieValue struct {
	Value float64
	Basis CalorieBasis
}

// Grouped thousands may be split by a space, a comma, or a comma and a space.
const numberPattern = `\d{1,3}(?:(?:,\s?| )\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`

// mePattern matches "ME:", "ME (calculated):", "(ME):" and "(ME calculated):".
const mePattern = `\bme\b(?:\s*\(?\s*calculated\s*\))?\s*\)?\s*:`

var (
	reKcalPerKg     = regexp.MustCompile(`(` + numberPattern + `)\s*kcal(?:\s*me)?\s*(?:/|per)\s*(?:kg|kilogram)\b`)
	reMENotation    = regexp.MustCompile(mePattern + `\s*(` + numberPattern + `)`)
	reNumber        = regexp.MustCompile(numberPattern)
	reServingWord   = regexp.MustCompile(`(?:per|/|each)\s*(?:treat|serving|piece|cup|can)\b`)
	reKcalPerServe  = regexp.MustCompile(`(` + numberPattern + `)\s*kcal\s*(?:per|/|each)\s*(?:treat|serving|piece|cup|can)\b`)
	reNumberPerKg   = regexp.MustCompile(`(` + numberPattern + `)\s*(?:kcal\s*)?(?:per\s*kg|/\s*kg)\b`)
	perKgSubstrings = []string{"per kg", "/kg"}
)

// ResolveCalories classifies a calorie line. Rules, first success wins:
//  1. "<n> kcal/kg" (also "per kg", "/kilogram") -> PerMass
//  2. "ME" or "ME (calculated)" followed by ":" and a number -> PerMass
//  3. a line mentioning "per kg" or "/kg": the number right before it, else
//     the first number on the line -> PerMass
//  4. the first bare number -> PerServing, but once massSeen is true only
//     when the line names its own serving unit.
func ResolveCalories(line string, massSeen bool) (CalorieValue, bool) {
	lower := strings.ToLower(line)
	if v, _, ok := resolveMass(lower); ok {
		return CalorieValue{Value: v, Basis: PerMass}, true
	}
	if massSeen && !reServingWord.MatchString(lower) {
		return CalorieValue{}, false
	}
	if m := reKcalPerServe.FindStringSubmatch(lower); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			return CalorieValue{Value: v, Basis: PerServing}, true
		}
	}
	if v, ok := firstNumber(lower); ok {
		return CalorieValue{Value: v, Basis: PerServing}, true
	}
	return CalorieValue{}, false
}

// span is the byte range of the number a calorie value was read from.
type span [2]int

func (a span) overlaps(b span) bool { return a[0] < b[1] && b[0] < a[1] }

// servingOnMassLine picks up an explicit "<n> kcal/cup" printed on the same
// line as a kcal/kg value. The number already read as the kcal/kg value is
// never reused.
func servingOnMassLine(lower string, mass span) (float64, bool) {
	for _, m := range reKcalPerServe.FindAllStringSubmatchIndex(lower, -1) {
		if (span{m[2], m[3]}).overlaps(mass) {
			continue
		}
		return parseNumber(lower[m[2]:m[3]])
	}
	return 0, false
}

// resolveMass applies rules 1-3 and reports where the number was found.
func resolveMass(lower string) (float64, span, bool) {
	for _, re := range []*regexp.Regexp{reKcalPerKg, reMENotation, reNumberPerKg} {
		if m := re.FindStringSubmatchIndex(lower); m != nil {
			if v, ok := parseNumber(lower[m[2]:m[3]]); ok {
				return v, span{m[2], m[3]}, true
			}
		}
	}
	for _, s := range perKgSubstrings {
		if strings.Contains(lower, s) {
			if loc := reNumber.FindStringIndex(lower); loc != nil {
				v, ok := parseNumber(lower[loc[0]:loc[1]])
				return v, span{loc[0], loc[1]}, ok
			}
			return 0, span{}, false
		}
	}
	return 0, span{}, false
}

func firstNumber(s string) (float64, bool) {
	m := reNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	return parseNumber(m)
}

// parseNumber drops grouping spaces and commas: "3,013" and "3 013" are 3013.
func parseNumber(s string) (float64, bool) {
	s = strings.NewReplacer(" ", "", ",", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
