package heuristic

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	dateConfidence      = 0.9
	mileageKeywordConf  = 0.8
	mileageUnitConf     = 0.5
	priceKeywordConf    = 0.8
	priceCurrencyConf   = 0.5
	worksConfidence     = 0.6
	materialsConfidence = 0.5
)

const number = `(\d+(?:[ \x{00A0}]\d{3})*)`

var (
	// Digit boundaries are checked by findDates.
	reDMY = regexp.MustCompile(`(\d{2})[./-](\d{2})[./-](\d{4}|\d{2})`)
	reISO = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

	reMileageKeyword = regexp.MustCompile(`(?i)пробег\D{0,15}?` + number + `(?:\D|$)`)
	reMileageUnit    = regexp.MustCompile(`(?i)` + number + `\s*(?:км|km)`)

	rePriceKeyword  = regexp.MustCompile(`(?i)(?:итого|всего|сумма|к оплате)\D{0,20}?` + number + `([.,]\d{1,2})?`)
	rePriceCurrency = regexp.MustCompile(`(?i)` + number + `([.,]\d{1,2})?\s*(?:руб|р\.|₽)`)

	reChunk = regexp.MustCompile(`[\n;,]|\.\s`)
)

var workStems = []string{
	"замен", "ремонт", "диагност", "регулиров", "шиномонтаж", "балансиров", "развал",
	"схожден", "промыв", "чистк", "установ", "сняти", "провер", "обслуживан",
}

var materialStems = []string{
	"масл", "фильтр", "свеч", "колодк", "антифриз", "тосол", "жидкост", "аккумулятор",
	"ремн", "ремен", "ламп", "прокладк", "смазк", "герметик", "щетк",
}

func matchDate(text string) (string, float64) {
	for _, m := range findDates(reDMY, text) {
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		if d, ok := validDate(year, m[2], m[1]); ok {
			return d, dateConfidence
		}
	}
	for _, m := range findDates(reISO, text) {
		if d, ok := validDate(m[1], m[2], m[3]); ok {
			return d, dateConfidence
		}
	}
	return "", 0
}

// findDates returns submatches of re not touching another digit on either
// side. A match rejected for its boundary is retried one byte later, so a
// shorter date inside it can still be found.
func findDates(re *regexp.Regexp, text string) [][]string {
	var out [][]string
	for pos := 0; pos < len(text); {
		loc := re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if (start > 0 && isDigit(text[start-1])) || (end < len(text) && isDigit(text[end])) {
			pos = start + 1
			continue
		}
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = text[pos+loc[2*i] : pos+loc[2*i+1]]
			}
		}
		out = append(out, m)
		pos = end
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func validDate(year, month, day string) (string, bool) {
	t, err := time.Parse("2006-01-02", year+"-"+month+"-"+day)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

func matchMileage(text string) (string, float64) {
	if m := reMileageKeyword.FindStringSubmatch(text); m != nil {
		return digits(m[1]), mileageKeywordConf
	}
	if m := reMileageUnit.FindStringSubmatch(text); m != nil {
		return digits(m[1]), mileageUnitConf
	}
	return "", 0
}

func matchPrice(text string) (string, float64) {
	if all := rePriceKeyword.FindAllStringSubmatch(text, -1); len(all) > 0 {
		m := all[len(all)-1]
		return amount(m[1], m[2]), priceKeywordConf
	}
	if all := rePriceCurrency.FindAllStringSubmatch(text, -1); len(all) > 0 {
		m := all[len(all)-1]
		return amount(m[1], m[2]), priceCurrencyConf
	}
	return "", 0
}

func matchWorks(text string) (string, float64) {
	var found []string
	for _, chunk := range chunks(text) {
		if firstStemWord(chunk, workStems) >= 0 || hasWord(chunk, "то") {
			found = append(found, trimTail(chunk))
		}
	}
	return joinUnique(found), worksConfidence
}

func matchMaterials(text string) (string, float64) {
	var found []string
	for _, chunk := range chunks(text) {
		words := strings.Fields(chunk)
		if idx := firstStemWord(chunk, materialStems); idx >= 0 {
			found = append(found, trimTail(strings.Join(words[idx:], " ")))
		}
	}
	return joinUnique(found), materialsConfidence
}

func chunks(text string) []string {
	var out []string
	for _, c := range reChunk.Split(text, -1) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// firstStemWord returns the index of the first whitespace-separated word of
// chunk starting with one of stems, or -1.
func firstStemWord(chunk string, stems []string) int {
	for i, w := range strings.Fields(chunk) {
		w = strings.ToLower(strings.TrimFunc(w, isPunct))
		for _, s := range stems {
			if strings.HasPrefix(w, s) {
				return i
			}
		}
	}
	return -1
}

func hasWord(chunk, word string) bool {
	for _, w := range strings.Fields(chunk) {
		if strings.ToLower(strings.TrimFunc(w, isPunct)) == word {
			return true
		}
	}
	return false
}

// trimTail drops trailing amounts and currency marks.
func trimTail(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 {
		last := strings.ToLower(strings.TrimFunc(words[len(words)-1], isPunct))
		if last == "" || last == "руб" || last == "р" || last == "₽" || isNumeric(last) {
			words = words[:len(words)-1]
			continue
		}
		break
	}
	return strings.Join(words, " ")
}

func joinUnique(items []string) string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		key := strings.ToLower(it)
		if it == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return strings.Join(out, "; ")
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func amount(whole, frac string) string {
	v := digits(whole)
	if frac == "" {
		return v
	}
	f := digits(frac)
	if len(f) == 1 {
		f += "0"
	}
	return v + "." + f
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return err == nil
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
