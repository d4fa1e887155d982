package ocr

import (
	"image"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// AcceptanceThreshold is the minimum confidence for a chain to accept a result.
	AcceptanceThreshold = 0.6

	noiseThreshold   = 5
	densityThreshold = 0.001
	noiseChars       = "@#$%^&*~"
	keywordBonus     = 0.05
	dateBonus        = 0.2
	maxBaseScore     = 0.7
)

var reDate = regexp.MustCompile(`\d{2}[./-]\d{2}[./-]\d{2,4}`)

// keywords is matched against single lowercased words, so only one-word
// entries contribute to the score.
var keywords = map[string]struct{}{
	"масло":        {},
	"фильтр":       {},
	"замена":       {},
	"ремонт":       {},
	"свеча":        {},
	"руб":          {},
	"дата":         {},
	"работы":       {},
	"пробег":       {},
	"топливо":      {},
	"колодки":      {},
	"тормоза":      {},
	"аккумулятор":  {},
	"то":           {},
	"тех":          {},
	"обслуживание": {},
	"сервис":       {},
}

// EstimateConfidence scores OCR text for backends that report no confidence
// of their own. bounds is the source image area.
func EstimateConfidence(text string, bounds image.Rectangle) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text)

	score := min(float64(n)/100, maxBaseScore)

	var bonus float64
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if _, ok := keywords[w]; ok {
			bonus += keywordBonus
		}
	}
	if reDate.MatchString(text) {
		bonus += dateBonus
	}

	noise := 0
	for _, r := range text {
		if strings.ContainsRune(noiseChars, r) {
			noise++
		}
	}
	if noise > noiseThreshold {
		score *= 0.5
	}

	if area := bounds.Dx() * bounds.Dy(); area > 0 && float64(n)/float64(area) < densityThreshold {
		score *= 0.5
	}

	return min(score+bonus, 1)
}
