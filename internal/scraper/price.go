package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// priceRe grabs the first number-looking run out of scraped text. The
// grouped alternative comes first so "1 299,00" is taken whole instead of
// stopping at the space.
var priceRe = regexp.MustCompile(`\d{1,3}(?:[.,\s]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?`)

// ParsePrice normalizes scraped price text to a number. It copes with
// currency symbols, surrounding words and both decimal conventions:
// "129,99 €", "$1,299.00" and "1.234,56 EUR" all parse. Text without a
// usable number reports false.
func ParsePrice(text string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), " ", " ")
	if cleaned == "" {
		return 0, false
	}

	raw := priceRe.FindString(cleaned)
	if raw == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(normalizeNumber(raw), 64)
	if err != nil {
		return 0, false
	}

	return value, true
}

// normalizeNumber rewrites a matched number into strconv form. With both
// separators present the rightmost one is the decimal mark. A lone
// separator followed by exactly three digits is read as a thousands
// separator, so "1.234" means 1234, not 1.234.
func normalizeNumber(raw string) string {
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.ReplaceAll(raw, "\t", "")

	lastDot := strings.LastIndex(raw, ".")
	lastComma := strings.LastIndex(raw, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.ReplaceAll(raw, ",", ".")
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(raw, ",") == 1 && len(raw)-lastComma-1 <= 2 {
			raw = strings.ReplaceAll(raw, ",", ".")
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastDot >= 0:
		if strings.Count(raw, ".") > 1 || len(raw)-lastDot-1 > 2 {
			raw = strings.ReplaceAll(raw, ".", "")
		}
	}

	return raw
}
