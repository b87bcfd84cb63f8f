package matcher_test

import (
	"io"
	"log/slog"
	"testing"

	"cardwatch/internal/matcher"
	"cardwatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher() *matcher.Matcher {
	return matcher.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase", input: "POKEMON 151", expected: "pokemon 151"},
		{name: "diacritics", input: "Pokémon Karmesin & Purpur", expected: "pokemon karmesin purpur"},
		{name: "punctuation and spacing", input: "  Booster-Box  (EN)!! ", expected: "booster box en"},
		{name: "empty", input: "", expected: ""},
		{name: "only punctuation", input: "!!??..,,", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, matcher.Normalize(tc.input))
		})
	}
}

func TestScore(t *testing.T) {
	m := newTestMatcher()

	t.Run("identical after normalization scores 1", func(t *testing.T) {
		score := m.Score("Pokémon 151 Booster-Box", "pokemon 151 booster box")
		assert.InDelta(t, 1.0, score, 0.0001)
	})

	t.Run("near match outranks unrelated title", func(t *testing.T) {
		phrase := "pokemon 151 booster box"
		near := m.Score("Pokemon 151 Booster Box Display EN", phrase)
		unrelated := m.Score("One Piece Romance Dawn Sleeves", phrase)
		assert.Greater(t, near, unrelated)
	})

	t.Run("empty inputs score 0", func(t *testing.T) {
		assert.Zero(t, m.Score("", "pokemon 151"))
		assert.Zero(t, m.Score("Pokemon 151", ""))
	})
}

func TestValidateTitle(t *testing.T) {
	m := newTestMatcher()

	product := models.Product{
		ID:            "pkm-151-bb",
		Name:          "Pokemon 151 Booster Box",
		SearchPhrases: []string{"pokemon 151 booster box", "pokemon 151 display"},
		Exclusions:    []string{"case", "japanese"},
		MaxPrice:      160,
	}

	testCases := []struct {
		name      string
		title     string
		threshold float64
		valid     bool
	}{
		{
			name:      "exact title passes strict threshold",
			title:     "Pokemon 151 Booster Box",
			threshold: 0.80,
			valid:     true,
		},
		{
			name:      "diacritic and case variant passes",
			title:     "POKÉMON 151 BOOSTER BOX",
			threshold: 0.80,
			valid:     true,
		},
		{
			name:      "exclusion term vetoes regardless of score",
			title:     "Pokemon 151 Booster Box Case",
			threshold: 0.10,
			valid:     false,
		},
		{
			name:      "exclusion is case-insensitive",
			title:     "Pokemon 151 Booster Box JAPANESE",
			threshold: 0.10,
			valid:     false,
		},
		{
			name:      "empty title is invalid",
			title:     "   ",
			threshold: 0.10,
			valid:     false,
		},
		{
			name:      "second phrase can carry the match",
			title:     "Pokemon 151 Display",
			threshold: 0.95,
			valid:     true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score, valid := m.ValidateTitle(tc.title, product, tc.threshold)

			assert.Equal(t, tc.valid, valid)
			if !tc.valid {
				assert.LessOrEqual(t, score, tc.threshold)
			}
		})
	}

	t.Run("vetoed title scores zero", func(t *testing.T) {
		score, valid := m.ValidateTitle("Pokemon 151 Booster Box Case", product, 0.5)
		assert.False(t, valid)
		assert.Zero(t, score)
	})
}

func TestSelectBestCandidate(t *testing.T) {
	m := newTestMatcher()

	testCases := []struct {
		name       string
		candidates []models.Candidate
		threshold  float64
		expected   string
		found      bool
	}{
		{
			name: "highest score above threshold wins",
			candidates: []models.Candidate{
				{Title: "a", URL: "/a", Score: 0.4},
				{Title: "b", URL: "/b", Score: 0.9},
				{Title: "c", URL: "/c", Score: 0.7},
			},
			threshold: 0.6,
			expected:  "/b",
			found:     true,
		},
		{
			name: "none above threshold",
			candidates: []models.Candidate{
				{Title: "a", URL: "/a", Score: 0.4},
				{Title: "b", URL: "/b", Score: 0.5},
			},
			threshold: 0.6,
			found:     false,
		},
		{
			name: "tie keeps the earlier candidate",
			candidates: []models.Candidate{
				{Title: "first", URL: "/first", Score: 0.8},
				{Title: "second", URL: "/second", Score: 0.8},
			},
			threshold: 0.6,
			expected:  "/first",
			found:     true,
		},
		{
			name:      "no candidates",
			threshold: 0.6,
			found:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			best, found := m.SelectBestCandidate(tc.candidates, tc.threshold)

			require.Equal(t, tc.found, found)
			if tc.found {
				assert.Equal(t, tc.expected, best.URL)
			}
		})
	}
}
