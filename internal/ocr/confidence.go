package ocr

import (
	"regexp"
	"strings"
)

var (
	rePercentRow = regexp.MustCompile(`\d+(?:\.\d+)?\s?%`)
	reKcal       = regexp.MustCompile(`\bkcal\b`)
	reAnalysis   = regexp.MustCompile(`guaranteed analysis|crude (?:protein|fat|fiber)`)
)

// heuristicConfidence scores decoded text by how much it looks like a pet
// food label: percentage rows, calorie statements, an ingredient list and a
// guaranteed analysis block each add to a small base.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if strings.Contains(txtL, "ingredient") {
		score += 0.2
	}
	if n := len(rePercentRow.FindAllStringIndex(txtL, 4)); n > 0 {
		score += 0.05 * float32(n)
	}
	if reKcal.MatchString(txtL) {
		score += 0.15
	}
	if reAnalysis.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// blend weights engine confidence over the text heuristic when the engine
// reported one.
func blend(engine, heuristic float32) float32 {
	conf := heuristic
	if engine > 0 {
		conf = 0.7*engine + 0.3*heuristic
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
