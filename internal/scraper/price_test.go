package scraper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cardwatch/internal/scraper"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{name: "euro comma decimal", text: "129,99 €", want: 129.99, ok: true},
		{name: "dollar with thousands", text: "$1,299.00", want: 1299.00, ok: true},
		{name: "german thousands and decimal", text: "1.234,56 EUR", want: 1234.56, ok: true},
		{name: "bare number", text: "1234.56", want: 1234.56, ok: true},
		{name: "integer", text: "149", want: 149, ok: true},
		{name: "lone dot thousands", text: "1.234", want: 1234, ok: true},
		{name: "lone comma thousands", text: "1,234", want: 1234, ok: true},
		{name: "space grouped", text: "1 299,00 kr", want: 1299.00, ok: true},
		{name: "nbsp grouped", text: "1 299,00 €", want: 1299.00, ok: true},
		{name: "surrounding words", text: "Price: 89.90 incl. VAT", want: 89.90, ok: true},
		{name: "empty", text: "", ok: false},
		{name: "no number", text: "Preis auf Anfrage", ok: false},
		{name: "whitespace only", text: "   ", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := scraper.ParsePrice(tc.text)

			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.want, got, 0.0001)
				assert.GreaterOrEqual(t, got, 0.0)
			}
		})
	}
}
