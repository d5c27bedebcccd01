package sensitivity

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

// DefaultFuzzyThreshold is the Levenshtein similarity at which two tokens
// are treated as the same word.
const DefaultFuzzyThreshold = 0.8

const minTokenLen = 3

// unsafeBySpecies lists ingredients unsafe for every animal of a species,
// regardless of the pet's own sensitivities.
var unsafeBySpecies = map[constants.Species][]string{
	constants.Dog: {"xylitol", "grape", "raisin", "onion", "garlic", "chocolate", "macadamia"},
	constants.Cat: {"onion", "garlic", "chocolate", "grape", "raisin"},
}

var stopwords = map[string]struct{}{
	"and": {}, "the": {}, "with": {}, "from": {}, "for": {},
}

// Assessor matches ingredient lists against pet sensitivities.
// It holds no mutable state and is safe for concurrent use.
type Assessor struct {
	threshold float64
	species   map[constants.Species][]string
	params    *levenshtein.Params
}

// Option customises an Assessor.
type Option func(*Assessor)

// WithFuzzyThreshold sets the token similarity needed for a fuzzy match.
func WithFuzzyThreshold(t float64) Option {
	return func(a *Assessor) {
		if t > 0 && t <= 1 {
			a.threshold = t
		}
	}
}

// WithSpeciesRules replaces the species-wide unsafe ingredient table.
// A nil map disables species checks.
func WithSpeciesRules(rules map[constants.Species][]string) Option {
	return func(a *Assessor) { a.species = rules }
}

func NewAssessor(opts ...Option) *Assessor {
	a := &Assessor{
		threshold: DefaultFuzzyThreshold,
		species:   unsafeBySpecies,
		params:    levenshtein.NewParams().BonusScale(0),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

var defaultAssessor = NewAssessor()

// Assess runs the default assessor.
func Assess(ingredients []string, pet entity.PetProfile) Assessment {
	return defaultAssessor.Assess(ingredients, pet)
}

// Assess checks every ingredient against every sensitivity of pet. Each
// ingredient lands in exactly one of SafeIngredients or WarningIngredients,
// in label order.
func (a *Assessor) Assess(ingredients []string, pet entity.PetProfile) Assessment {
	species, _ := constants.CanonicalSpecies(pet.Species)
	// Casers carry state, so each call folds with its own.
	fold := cases.Fold()
	out := Assessment{
		PetID:                pet.ID,
		PetName:              pet.Name,
		Species:              species,
		MatchedSensitivities: []string{},
		SafeIngredients:      []string{},
		WarningIngredients:   []string{},
		SpeciesWarnings:      []string{},
		Matches:              []Match{},
	}

	matched := map[string]bool{}
	for _, ing := range ingredients {
		ing = strings.TrimSpace(ing)
		if ing == "" {
			continue
		}
		key := fold.String(ing)
		warned := false

		for _, s := range pet.Sensitivities {
			name := strings.TrimSpace(s.Name)
			if name == "" {
				continue
			}
			kind, ok := a.match(key, fold.String(name))
			if !ok {
				continue
			}
			out.Matches = append(out.Matches, Match{Sensitivity: name, Ingredient: ing, Critical: s.Critical, Kind: kind})
			matched[name] = true
			warned = true
		}

		if unsafe, ok := a.unsafeFor(species, key); ok {
			out.Matches = append(out.Matches, Match{Sensitivity: unsafe, Ingredient: ing, Critical: true, Kind: KindSpecies})
			out.SpeciesWarnings = appendUnique(out.SpeciesWarnings, ing)
			warned = true
		}

		if warned {
			out.WarningIngredients = append(out.WarningIngredients, ing)
		} else {
			out.SafeIngredients = append(out.SafeIngredients, ing)
		}
	}

	// Sensitivity order, not ingredient order, so the list reads like the
	// pet profile.
	for _, s := range pet.Sensitivities {
		name := strings.TrimSpace(s.Name)
		if matched[name] {
			out.MatchedSensitivities = appendUnique(out.MatchedSensitivities, name)
		}
	}
	out.HasSensitivityMatches = len(out.MatchedSensitivities) > 0
	out.SeverityLevel = SeverityOf(out.Matches)
	out.Recommendations = recommend(out, len(out.SafeIngredients)+len(out.WarningIngredients))
	return out
}

// match compares folded strings. A direct hit is the sensitivity appearing
// inside the ingredient; a fuzzy hit is a shared or near-identical token.
func (a *Assessor) match(ingredient, sensitivity string) (MatchKind, bool) {
	if strings.Contains(ingredient, sensitivity) {
		return KindDirect, true
	}
	for _, st := range tokens(sensitivity) {
		for _, it := range tokens(ingredient) {
			if st == it {
				return KindFuzzy, true
			}
			if utf8.RuneCountInString(st) > minTokenLen && utf8.RuneCountInString(it) > minTokenLen &&
				levenshtein.Similarity(st, it, a.params) >= a.threshold {
				return KindFuzzy, true
			}
		}
	}
	return "", false
}

func (a *Assessor) unsafeFor(species constants.Species, ingredient string) (string, bool) {
	for _, u := range a.species[species] {
		for _, t := range tokens(ingredient) {
			if t == u || t == u+"s" || t == u+"es" {
				return u, true
			}
		}
	}
	return "", false
}

func tokens(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsNumber(r) })
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenLen {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
