package matcher

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"cardwatch/internal/models"
	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Matcher decides whether a scraped title really is the watched product.
// Thresholds are supplied by the caller: a stricter one for pages a search
// redirected to directly, a looser one for listing candidates.
type Matcher struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Matcher {
	return &Matcher{log: log}
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lowercases, strips diacritics and squeezes everything that is
// not a letter or digit into single spaces, so "Pokémon  151!" and
// "pokemon 151" compare equal.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = removeDiacritics(s)
	s = nonAlphanumeric.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Score rates how well a title matches a search phrase on a 0..1 scale.
// Jaro-Winkler catches spelling variants, token coverage anchors the score
// to the phrase words actually appearing in the title.
func (m *Matcher) Score(title, phrase string) float64 {
	normTitle := Normalize(title)
	normPhrase := Normalize(phrase)
	if normTitle == "" || normPhrase == "" {
		return 0
	}

	similarity := matchr.JaroWinkler(normTitle, normPhrase, false)
	coverage := tokenCoverage(normPhrase, normTitle)

	return (similarity + coverage) / 2
}

// tokenCoverage is the share of phrase tokens present in the title.
func tokenCoverage(normPhrase, normTitle string) float64 {
	phraseTokens := strings.Fields(normPhrase)
	if len(phraseTokens) == 0 {
		return 0
	}

	titleTokens := make(map[string]struct{})
	for _, tok := range strings.Fields(normTitle) {
		titleTokens[tok] = struct{}{}
	}

	hits := 0
	for _, tok := range phraseTokens {
		if _, ok := titleTokens[tok]; ok {
			hits++
		}
	}

	return float64(hits) / float64(len(phraseTokens))
}

// ValidateTitle scores a title against the product's search phrases. Any
// exclusion term contained in the title vetoes it regardless of score, so
// a "Booster Box" watch never accepts a "Booster Box Case".
func (m *Matcher) ValidateTitle(title string, product models.Product, threshold float64) (float64, bool) {
	if strings.TrimSpace(title) == "" {
		return 0, false
	}

	lowerTitle := strings.ToLower(title)
	for _, term := range product.Exclusions {
		if term == "" {
			continue
		}
		if strings.Contains(lowerTitle, strings.ToLower(term)) {
			m.log.Debug("Title rejected by exclusion term", "title", title, "term", term, "product_id", product.ID)
			return 0, false
		}
	}

	var best float64
	for _, phrase := range product.SearchPhrases {
		if score := m.Score(title, phrase); score > best {
			best = score
		}
	}

	m.log.Debug("Title scored", "title", title, "product_id", product.ID, "score", best, "threshold", threshold)

	return best, best >= threshold
}

// SelectBestCandidate picks the highest scoring candidate at or above the
// threshold. Ties keep the earlier candidate so the ranking is stable.
func (m *Matcher) SelectBestCandidate(candidates []models.Candidate, threshold float64) (models.Candidate, bool) {
	var (
		best  models.Candidate
		found bool
	)
	for _, c := range candidates {
		if c.Score < threshold {
			continue
		}
		if !found || c.Score > best.Score {
			best = c
			found = true
		}
	}
	return best, found
}
