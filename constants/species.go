package constants

import "strings"

// Species is the canonical animal kind a pet profile or product targets.
type Species string

const (
	Dog          Species = "dog"
	Cat          Species = "cat"
	OtherSpecies Species = "other"
)

// CanonicalSpecies normalizes user-entered species names. Unknown values map
// to OtherSpecies with ok=false.
func CanonicalSpecies(input string) (Species, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	switch s {
	case "dog", "dogs", "canine", "puppy", "k9":
		return Dog, true
	case "cat", "cats", "feline", "kitten":
		return Cat, true
	case "other":
		return OtherSpecies, true
	}
	return OtherSpecies, false
}
