package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"cardwatch/internal/engine"
	"cardwatch/internal/models"
	"cardwatch/internal/navigator"
)

// Scraper checks one product on one shop and reports what it saw. It is
// total: whatever happens on the wire, the caller gets a result, never an
// error or a panic.
type Scraper interface {
	ScrapeProduct(ctx context.Context, product models.Product) models.ProductResult
}

// ShopScraper binds an engine to one shop and runs the full search, match
// and extract flow for a product. Each instance is single-use: the engine
// is closed when ScrapeProduct returns.
type ShopScraper struct {
	log  *slog.Logger
	eng  engine.Engine
	nav  *navigator.Navigator
	shop models.ShopConfig
}

func NewShopScraper(log *slog.Logger, eng engine.Engine, nav *navigator.Navigator, shop models.ShopConfig) *ShopScraper {
	return &ShopScraper{log: log, eng: eng, nav: nav, shop: shop}
}

// ScrapeProduct locates the product on the shop and reads price and
// availability off its page. Not finding the product is a normal outcome:
// the result then carries no URL, no price and Available false.
func (s *ShopScraper) ScrapeProduct(ctx context.Context, product models.Product) (result models.ProductResult) {
	const opn = "scraper.ScrapeProduct"
	log := s.log.With("op", opn, "shop_id", s.shop.ID, "product_id", product.ID)

	result = models.ProductResult{
		ProductID: product.ID,
		ShopID:    s.shop.ID,
		CheckedAt: time.Now().UTC(),
	}

	defer func() {
		if err := s.eng.Close(); err != nil {
			log.WarnContext(ctx, "Failed to release engine resources", "error", err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Recovered panic during scrape", "panic", r)
			result.Price = nil
			result.Available = false
		}
	}()

	hit, found := s.nav.FindProduct(ctx, s.eng, s.shop, product)
	if !found {
		return result
	}
	result.URL = hit.URL

	// A direct hit leaves the engine already on the product page.
	if current, ok := s.eng.CurrentURL(); !ok || current != hit.URL {
		if err := s.eng.Navigate(ctx, hit.URL); err != nil {
			log.WarnContext(ctx, "Failed to open product page", "url", hit.URL, "error", err)
			return result
		}
	}

	if text, ok := s.eng.Extract(s.shop.Product.Price); ok {
		if price, parsed := ParsePrice(text); parsed {
			result.Price = &price
		} else {
			log.DebugContext(ctx, "Price text did not parse", "text", text)
		}
	} else {
		log.DebugContext(ctx, "No price found on product page", "url", hit.URL)
	}

	result.Available = s.checkAvailability()

	log.InfoContext(ctx, "Product scraped", "url", result.URL, "price", result.Price, "available", result.Available)

	return result
}

// checkAvailability reads the availability element and interprets it
// through the shop's marker lists. Out-of-stock markers veto; when
// in-stock markers are configured one of them must appear; a shop without
// markers counts any availability text as in stock.
func (s *ShopScraper) checkAvailability() bool {
	text, ok := s.eng.Extract(s.shop.Product.Availability)
	if !ok {
		return false
	}

	lower := strings.ToLower(text)
	for _, marker := range s.shop.Product.OutOfStock {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return false
		}
	}

	if len(s.shop.Product.InStock) > 0 {
		for _, marker := range s.shop.Product.InStock {
			if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
				return true
			}
		}
		return false
	}

	return true
}
