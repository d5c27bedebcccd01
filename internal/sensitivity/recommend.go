package sensitivity

import (
	"fmt"
	"strings"
)

// recommend renders guidance for an assessment. Every message names the pet,
// and every match message names the ingredients behind it.
func recommend(a Assessment, ingredientCount int) []string {
	pet := a.PetName
	if strings.TrimSpace(pet) == "" {
		pet = "your pet"
	}
	if ingredientCount == 0 {
		return []string{fmt.Sprintf("No ingredients found on this label. Capture the ingredient list again to check it for %s.", pet)}
	}

	var out []string
	for _, group := range groupMatches(a.Matches) {
		ings := joinList(group.ingredients)
		switch {
		case group.kind == KindSpecies:
			out = append(out, fmt.Sprintf("Do not feed this to %s: %s is unsafe for %ss.", pet, ings, a.Species))
		case group.kind == KindFuzzy:
			out = append(out, fmt.Sprintf("Check %s before feeding %s: it may be related to %s's %s sensitivity.", ings, pet, pet, group.sensitivity))
		case group.critical:
			out = append(out, fmt.Sprintf("Do not feed this to %s: %s matches %s's critical %s sensitivity.", pet, ings, pet, group.sensitivity))
		default:
			out = append(out, fmt.Sprintf("Avoid this food for %s: %s matches %s's %s sensitivity.", pet, ings, pet, group.sensitivity))
		}
	}
	if len(out) == 0 {
		return []string{fmt.Sprintf("None of the %d ingredients match %s's known sensitivities.", ingredientCount, pet)}
	}
	if len(a.SafeIngredients) > 0 && a.SeverityLevel != SeverityHigh {
		out = append(out, fmt.Sprintf("Look for a product with %s but without %s.", joinList(a.SafeIngredients), joinList(a.WarningIngredients)))
	}
	return out
}

type matchGroup struct {
	sensitivity string
	kind        MatchKind
	critical    bool
	ingredients []string
}

// groupMatches collapses matches by (sensitivity, kind), keeping first-seen
// order.
func groupMatches(ms []Match) []*matchGroup {
	var groups []*matchGroup
	index := map[string]*matchGroup{}
	for _, m := range ms {
		k := string(m.Kind) + "\x00" + m.Sensitivity
		g, ok := index[k]
		if !ok {
			g = &matchGroup{sensitivity: m.Sensitivity, kind: m.Kind, critical: m.Critical}
			index[k] = g
			groups = append(groups, g)
		}
		g.ingredients = appendUnique(g.ingredients, m.Ingredient)
	}
	return groups
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
