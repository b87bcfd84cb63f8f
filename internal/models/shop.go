package models

import "regexp"

// EngineKind selects the fetch strategy for a shop.
type EngineKind string

const (
	// EngineStatic fetches pages with a plain HTTP client.
	EngineStatic EngineKind = "static"
	// EngineRendering fetches pages through a headless browser.
	EngineRendering EngineKind = "rendering"
)

// SelectorType is the query language of a selector.
type SelectorType string

const (
	SelectorCSS   SelectorType = "css"
	SelectorXPath SelectorType = "xpath"
	// SelectorText matches the first element whose text contains the value.
	SelectorText SelectorType = "text"
)

// ExtractKind is what gets pulled out of a matched element.
type ExtractKind string

const (
	ExtractText ExtractKind = "text"
	ExtractHref ExtractKind = "href"
	ExtractHTML ExtractKind = "html"
)

// Selector describes one piece of data on a page. Values are fallbacks
// tried in order; the first one that yields a non-empty result wins.
type Selector struct {
	Type    SelectorType `mapstructure:"type"`
	Values  []string     `mapstructure:"values"`
	Extract ExtractKind  `mapstructure:"extract"`
}

// IsZero reports whether the selector has no values configured.
func (s Selector) IsZero() bool {
	return len(s.Values) == 0
}

// SearchSelectors locate candidate rows on a search result page.
type SearchSelectors struct {
	Article Selector `mapstructure:"article"`
	Title   Selector `mapstructure:"title"`
	Link    Selector `mapstructure:"link"`
}

// ProductSelectors locate data on a product detail page. InStock and
// OutOfStock are case-insensitive substrings matched against the extracted
// availability text.
type ProductSelectors struct {
	Title        Selector `mapstructure:"title"`
	Price        Selector `mapstructure:"price"`
	Availability Selector `mapstructure:"availability"`
	InStock      []string `mapstructure:"in_stock"`
	OutOfStock   []string `mapstructure:"out_of_stock"`
}

// ShopConfig is the declarative description of one shop: which engine it
// needs, how to search it and how to read its pages. SearchURL contains a
// single %s placeholder for the escaped search phrase. DirectHit is an
// optional regexp; when the search lands on an URL matching it, the shop
// redirected straight to a product page instead of a result list.
type ShopConfig struct {
	ID        string           `mapstructure:"id"`
	Name      string           `mapstructure:"name"`
	BaseURL   string           `mapstructure:"base_url"`
	SearchURL string           `mapstructure:"search_url"`
	DirectHit string           `mapstructure:"direct_hit"`
	Engine    EngineKind       `mapstructure:"engine"`
	Enabled   bool             `mapstructure:"enabled"`
	Search    SearchSelectors  `mapstructure:"search"`
	Product   ProductSelectors `mapstructure:"product"`

	// DirectHitRe is compiled from DirectHit when the shop is loaded.
	DirectHitRe *regexp.Regexp `mapstructure:"-"`
}
