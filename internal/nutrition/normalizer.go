package nutrition

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultSimilarityThreshold is the minimum Levenshtein similarity for a
	// fuzzy correction. One edit on a seven letter word clears it; one edit on
	// a five letter word does not.
	DefaultSimilarityThreshold = 0.85

	defaultMinFuzzyLen = 6
)

var reToken = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Normalizer corrects OCR misreads in label text, one token at a time.
// It is immutable after construction and safe for concurrent use.
type Normalizer struct {
	misreads  map[string]string
	words     map[string]struct{}
	wordList  []string
	threshold float64
	minLen    int
	params    *levenshtein.Params
}

var defaultNormalizer = NewNormalizer(nil, DefaultSimilarityThreshold)

// DefaultNormalizer returns the normalizer backed by the built-in dictionary.
func DefaultNormalizer() *Normalizer { return defaultNormalizer }

// NewNormalizer builds a normalizer from the built-in dictionary plus extra
// misread->word pairs. A threshold <= 0 uses DefaultSimilarityThreshold.
func NewNormalizer(extra map[string]string, threshold float64) *Normalizer {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	n := &Normalizer{
		misreads:  make(map[string]string, len(misreads)+len(extra)),
		words:     make(map[string]struct{}, len(vocabulary)),
		threshold: threshold,
		minLen:    defaultMinFuzzyLen,
		params:    levenshtein.NewParams().BonusScale(0),
	}
	add := func(w string) {
		if _, ok := n.words[w]; !ok {
			n.words[w] = struct{}{}
			n.wordList = append(n.wordList, w)
		}
	}
	for _, w := range vocabulary {
		add(foldKey(w))
	}
	for _, w := range variants {
		n.words[foldKey(w)] = struct{}{}
	}
	for k, v := range misreads {
		n.misreads[foldKey(k)] = v
		add(foldKey(v))
	}
	for k, v := range extra {
		n.misreads[foldKey(k)] = strings.ToLower(v)
		add(foldKey(v))
	}
	return n
}

// Correct trims every line and replaces recognised misreads, keeping the
// original token's capitalisation. Unknown tokens are left alone.
func (n *Normalizer) Correct(text string) string {
	if text == "" {
		return text
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, ln := range lines {
		lines[i] = reToken.ReplaceAllStringFunc(strings.TrimSpace(ln), func(tok string) string {
			if s, ok := n.Suggestion(tok); ok {
				return matchCase(tok, s)
			}
			return tok
		})
	}
	return strings.Join(lines, "\n")
}

// IsLikelyMisspelled reports whether token has a suggestion.
func (n *Normalizer) IsLikelyMisspelled(token string) bool {
	_, ok := n.Suggestion(token)
	return ok
}

// Suggestion returns the lower-case correction for token, if any.
func (n *Normalizer) Suggestion(token string) (string, bool) {
	key := foldKey(strings.TrimSpace(token))
	if key == "" {
		return "", false
	}
	if s, ok := n.misreads[key]; ok {
		return s, true
	}
	if _, ok := n.words[key]; ok {
		return "", false
	}
	if !wordLike(key) {
		return "", false
	}

	candidate := deglyph(key)
	if candidate != key {
		if _, ok := n.words[candidate]; ok {
			return candidate, true
		}
	}
	if utf8.RuneCountInString(candidate) < n.minLen {
		return "", false
	}

	best, bestScore, tie := "", 0.0, false
	for _, w := range n.wordList {
		if inflectionOf(candidate, w) {
			return "", false
		}
		s := levenshtein.Similarity(candidate, w, n.params)
		switch {
		case s > bestScore:
			best, bestScore, tie = w, s, false
		case s == bestScore:
			tie = true
		}
	}
	if best == "" || tie || bestScore < n.threshold {
		return "", false
	}
	return best, true
}

// foldKey lower-cases and strips diacritics.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// wordLike is true for tokens that start with a letter and are mostly letters.
func wordLike(s string) bool {
	var letters, digits int
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			if i == 0 {
				return false
			}
			digits++
		}
	}
	return letters > digits
}

// deglyph undoes digit-for-letter confusions inside a word.
func deglyph(s string) string {
	return strings.NewReplacer("0", "o", "1", "l", "5", "s").Replace(s)
}

func inflectionOf(token, word string) bool {
	return token == word+"s" || token == word+"es" || word == token+"s" || word == token+"es"
}

func matchCase(orig, repl string) string {
	if orig == strings.ToUpper(orig) && orig != strings.ToLower(orig) && utf8.RuneCountInString(orig) > 1 {
		return strings.ToUpper(repl)
	}
	r, _ := utf8.DecodeRuneInString(orig)
	if unicode.IsUpper(r) {
		return cases.Title(language.English).String(repl)
	}
	return repl
}
