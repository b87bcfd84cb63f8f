package models

// Product is one watchlist entry: the sealed product to look for and the
// price band that makes it interesting. SearchPhrases are tried in order,
// most specific first. Exclusions veto a scraped title outright, so
// "Booster Box" does not match "Booster Box Case".
type Product struct {
	ID            string   `mapstructure:"id"`
	Name          string   `mapstructure:"name"`
	SearchPhrases []string `mapstructure:"search_phrases"`
	Exclusions    []string `mapstructure:"exclusions"`
	MaxPrice      float64  `mapstructure:"max_price"`
	MinPrice      float64  `mapstructure:"min_price"`
}
