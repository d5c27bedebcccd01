package nutrition

import (
	"strings"
)

// sectionHeaders mark the start of a label block that follows the
// ingredient list.
var sectionHeaders = []string{
	"guaranteed analysis",
	"calorie content",
	"feeding guidelines",
	"feeding directions",
	"directions",
	"nutritional adequacy",
	"manufactured by",
	"distributed by",
	"net wt",
	"best by",
}

type line struct {
	idx   int
	text  string
	lower string
}

func (l line) blank() bool { return l.text == "" }

// pass is the mutable state of a single Parse call.
type pass struct {
	lines           []line
	out             ParsedNutrition
	ingredientsDone bool
	calorieLines    []line
}

// Parser turns label text into ParsedNutrition. The zero value is not usable;
// use NewParser or the package-level Parse.
type Parser struct {
	normalizer *Normalizer
	rules      []Rule
}

// ParserOption customises a Parser.
type ParserOption func(*Parser)

// WithNormalizer replaces the spell corrector.
func WithNormalizer(n *Normalizer) ParserOption {
	return func(p *Parser) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// WithRules replaces the rule table.
func WithRules(rules []Rule) ParserOption {
	return func(p *Parser) {
		if len(rules) > 0 {
			p.rules = rules
		}
	}
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{normalizer: DefaultNormalizer(), rules: DefaultRules()}
	for _, o := range opts {
		o(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse runs the default parser.
func Parse(raw string) ParsedNutrition { return defaultParser.Parse(raw) }

// Rules returns a copy of the parser's rule table.
func (ps *Parser) Rules() []Rule { return append([]Rule(nil), ps.rules...) }

// Parse never fails: fields it cannot find stay nil and Ingredients is
// empty rather than nil. The same input always yields the same value.
func (ps *Parser) Parse(raw string) ParsedNutrition {
	text := ps.normalizer.Correct(raw)
	p := &pass{out: ParsedNutrition{Ingredients: []string{}}}
	firstContent := -1
	for i, t := range strings.Split(text, "\n") {
		t = strings.TrimSpace(t)
		p.lines = append(p.lines, line{idx: i, text: t, lower: strings.ToLower(t)})
		if firstContent < 0 && t != "" {
			firstContent = i
		}
	}

	for _, ln := range p.lines {
		if ln.blank() {
			continue
		}
		var fired []Field
		for _, r := range ps.rules {
			if r.Fires(ln.lower) {
				fired = append(fired, r.Field)
				r.Extract(p, ln)
			}
		}
		if ln.idx == firstContent && p.out.ProductName == nil {
			if name, ok := productName(ln, fired); ok {
				p.out.ProductName = &name
			}
		}
	}
	p.resolveCalories()
	return p.out
}

// productName accepts the first non-blank line unless it is a data row (a
// percentage or any fired rule).
// A line that only carries a brand ("Premium Dog Food by Acme") yields the
// text before the brand marker.
func productName(ln line, fired []Field) (string, bool) {
	if rePercent.MatchString(ln.lower) {
		return "", false
	}
	switch {
	case len(fired) == 0:
		return ln.text, true
	case len(fired) == 1 && fired[0] == FieldBrand && len(ln.text) == len(ln.lower):
		for _, k := range []string{"by ", "brand"} {
			if i := strings.Index(ln.lower, k); i > 0 {
				if name := trimLabel(ln.text[:i]); name != "" {
					return name, true
				}
			}
		}
	}
	return "", false
}

func (p *pass) percentSlot(f Field) **float64 {
	n := &p.out.Nutrients
	switch f {
	case FieldProtein:
		return &n.Protein
	case FieldFat:
		return &n.Fat
	case FieldFiber:
		return &n.Fiber
	case FieldMoisture:
		return &n.Moisture
	case FieldAsh:
		return &n.Ash
	case FieldCarbohydrates:
		return &n.Carbohydrates
	case FieldSodium:
		return &n.Sodium
	case FieldCalcium:
		return &n.Calcium
	case FieldPhosphorus:
		return &n.Phosphorus
	}
	return nil
}

// resolveCalories runs after every line has been seen, so whether a kcal/kg
// value exists is known for the whole pass regardless of line order.
func (p *pass) resolveCalories() {
	massLine := map[int]span{}
	for _, ln := range p.calorieLines {
		if v, at, ok := resolveMass(ln.lower); ok {
			massLine[ln.idx] = at
			if p.out.CaloriesPerMassUnit == nil {
				p.out.CaloriesPerMassUnit = &v
			}
		}
	}
	massSeen := len(massLine) > 0

	for _, ln := range p.calorieLines {
		if p.out.CaloriesPerServingUnit != nil {
			return
		}
		if at, ok := massLine[ln.idx]; ok {
			if v, ok := servingOnMassLine(ln.lower, at); ok {
				p.out.CaloriesPerServingUnit = &v
			}
			continue
		}
		if cv, ok := ResolveCalories(ln.lower, massSeen); ok && cv.Basis == PerServing {
			v := cv.Value
			p.out.CaloriesPerServingUnit = &v
		}
	}
}

// ingredientSection joins the trigger line with the lines that continue it.
// The section ends at a blank line or at a line that opens another labelled
// block: one with a colon, a percentage, or a known section header.
func (p *pass) ingredientSection(start int) string {
	parts := []string{p.lines[start].text}
	for _, ln := range p.lines[start+1:] {
		if ln.blank() || strings.Contains(ln.text, ":") || strings.Contains(ln.text, "%") || headerIndex(ln.lower) >= 0 {
			break
		}
		parts = append(parts, ln.text)
	}
	return strings.Join(parts, " ")
}

// splitIngredients splits the text after the first colon on top-level
// commas. When a second colon shows another section glued onto the same
// line, the list stops there and the trailing header words are removed.
func splitIngredients(section string) []string {
	out := []string{}
	i := strings.IndexByte(section, ':')
	if i < 0 {
		return out
	}
	rest := section[i+1:]
	truncated := false
	if j := strings.IndexByte(rest, ':'); j >= 0 {
		rest, truncated = rest[:j], true
	}
	for _, tok := range splitTopLevel(rest) {
		tok = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(tok), ".;"))
		if tok != "" {
			out = append(out, tok)
		}
	}
	if truncated && len(out) > 0 {
		last := out[len(out)-1]
		out = out[:len(out)-1]
		if k := headerIndex(strings.ToLower(last)); k >= 0 && len(last) == len(strings.ToLower(last)) {
			if kept := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(last[:k]), ".;")); kept != "" {
				out = append(out, kept)
			}
		}
	}
	return out
}

// SplitIngredientList splits a bare ingredient list ("chicken, rice (brown),
// peas.") the same way label sections are split, without needing a header.
func SplitIngredientList(s string) []string {
	return splitIngredients(":" + strings.ReplaceAll(s, ":", " "))
}

// splitTopLevel splits on commas outside parentheses and brackets, so
// "vitamins (vitamin e, niacin)" stays one entry.
func splitTopLevel(s string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func headerIndex(lower string) int {
	best := -1
	for _, h := range sectionHeaders {
		if i := strings.Index(lower, h); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}
