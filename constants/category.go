package constants

import (
	"strings"
)

type Category string

const (
	DryFood    Category = "DryFood"
	WetFood    Category = "WetFood"
	Treat      Category = "Treat"
	Supplement Category = "Supplement"
	RawFood    Category = "RawFood"
	Other      Category = "Other"
)

var allCategories = []Category{
	DryFood,
	WetFood,
	Treat,
	Supplement,
	RawFood,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a free-form category label (including Open Food Facts
// style tags such as "en:dry-dog-food") onto a Category.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	if i := strings.IndexByte(normalized, ':'); i >= 0 {
		normalized = normalized[i+1:]
	}
	normalized = strings.ReplaceAll(normalized, "-", " ")

	// synonyms map
	synonyms := map[string]Category{
		"dry":           DryFood,
		"kibble":        DryFood,
		"dry dog food":  DryFood,
		"dry cat food":  DryFood,
		"wet":           WetFood,
		"canned":        WetFood,
		"wet dog food":  WetFood,
		"wet cat food":  WetFood,
		"pouch":         WetFood,
		"treats":        Treat,
		"dog treats":    Treat,
		"cat treats":    Treat,
		"chews":         Treat,
		"supplements":   Supplement,
		"vitamins":      Supplement,
		"raw":           RawFood,
		"freeze dried":  RawFood,
		"frozen raw":    RawFood,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	// loose match on tag fragments, first hit wins
	for _, probe := range []struct {
		word string
		cat  Category
	}{
		{"treat", Treat},
		{"wet", WetFood},
		{"canned", WetFood},
		{"dry", DryFood},
		{"raw", RawFood},
		{"supplement", Supplement},
	} {
		if strings.Contains(normalized, probe.word) {
			return probe.cat, true
		}
	}

	return Other, false
}
