package navigator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"cardwatch/internal/engine"
	"cardwatch/internal/matcher"
	"cardwatch/internal/models"
)

// Navigator drives a shop's search until it has the URL of the watched
// product, or has run out of search phrases. It owns no engine; the
// caller passes one already pointed at the shop.
type Navigator struct {
	log     *slog.Logger
	matcher *matcher.Matcher
	cfg     Config
}

// Config carries the matching thresholds and the listing cap. All three
// come from the application configuration.
type Config struct {
	DirectHitThreshold float64
	ListingThreshold   float64
	MaxCandidates      int
}

func New(log *slog.Logger, m *matcher.Matcher, cfg Config) *Navigator {
	return &Navigator{log: log, matcher: m, cfg: cfg}
}

// FindProduct tries the product's search phrases in order. Each phrase is
// searched once; a direct redirect to a product page is validated against
// the strict threshold and, when rejected, the same page is still scanned
// as a listing. The first phrase that produces a hit wins. Running out of
// phrases means "not found", not an error.
func (n *Navigator) FindProduct(
	ctx context.Context,
	eng engine.Engine,
	shop models.ShopConfig,
	product models.Product,
) (models.Candidate, bool) {
	const opn = "navigator.FindProduct"
	log := n.log.With("op", opn, "shop_id", shop.ID, "product_id", product.ID)

	for _, phrase := range product.SearchPhrases {
		searchURL := fmt.Sprintf(shop.SearchURL, url.QueryEscape(phrase))

		if err := eng.Navigate(ctx, searchURL); err != nil {
			log.WarnContext(ctx, "Search navigation failed", "phrase", phrase, "error", err)
			continue
		}

		if hit, ok := n.checkDirectHit(ctx, eng, shop, product); ok {
			log.InfoContext(ctx, "Product found via direct hit", "phrase", phrase, "url", hit.URL, "score", hit.Score)
			return hit, true
		}

		if best, ok := n.scanListing(ctx, eng, shop, product); ok {
			log.InfoContext(ctx, "Product found via listing", "phrase", phrase, "url", best.URL, "score", best.Score)
			return best, true
		}

		log.DebugContext(ctx, "No hit for phrase", "phrase", phrase)
	}

	log.InfoContext(ctx, "Product not found on shop", "phrases", len(product.SearchPhrases))

	return models.Candidate{}, false
}

// checkDirectHit detects searches that redirected straight to a product
// page. The page title must clear the strict threshold; otherwise the
// caller falls back to reading the page as a listing.
func (n *Navigator) checkDirectHit(
	ctx context.Context,
	eng engine.Engine,
	shop models.ShopConfig,
	product models.Product,
) (models.Candidate, bool) {
	if shop.DirectHitRe == nil {
		return models.Candidate{}, false
	}

	current, ok := eng.CurrentURL()
	if !ok || !shop.DirectHitRe.MatchString(current) {
		return models.Candidate{}, false
	}

	title, ok := eng.Extract(shop.Product.Title)
	if !ok {
		n.log.DebugContext(ctx, "Direct hit page has no readable title", "url", current)
		return models.Candidate{}, false
	}

	score, valid := n.matcher.ValidateTitle(title, product, n.cfg.DirectHitThreshold)
	if !valid {
		n.log.DebugContext(ctx, "Direct hit rejected by title validation",
			"url", current, "title", title, "score", score)
		return models.Candidate{}, false
	}

	return models.Candidate{Title: title, URL: current, Score: score}, true
}

// scanListing reads the first rows of the result listing, validates every
// row title against the loose threshold and picks the best survivor.
func (n *Navigator) scanListing(
	ctx context.Context,
	eng engine.Engine,
	shop models.ShopConfig,
	product models.Product,
) (models.Candidate, bool) {
	rows := eng.ExtractAll(shop.Search.Article, n.cfg.MaxCandidates)
	if len(rows) == 0 {
		return models.Candidate{}, false
	}

	var candidates []models.Candidate
	for _, row := range rows {
		title, ok := row.Extract(shop.Search.Title)
		if !ok {
			continue
		}
		href, ok := row.Extract(shop.Search.Link)
		if !ok {
			continue
		}

		score, valid := n.matcher.ValidateTitle(title, product, n.cfg.ListingThreshold)
		if !valid {
			continue
		}

		candidates = append(candidates, models.Candidate{Title: title, URL: href, Score: score})
	}

	best, ok := n.matcher.SelectBestCandidate(candidates, n.cfg.ListingThreshold)
	if !ok {
		return models.Candidate{}, false
	}

	resolved, err := resolveURL(shop.BaseURL, best.URL)
	if err != nil {
		n.log.WarnContext(ctx, "Failed to resolve candidate URL", "base", shop.BaseURL, "href", best.URL, "error", err)
		return models.Candidate{}, false
	}
	best.URL = resolved

	return best, true
}

// resolveURL makes listing hrefs absolute against the shop base URL.
// Absolute hrefs pass through untouched.
func resolveURL(base, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse href %s: %w", ref, err)
	}
	if refURL.IsAbs() {
		return refURL.String(), nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL %s: %w", base, err)
	}

	return baseURL.ResolveReference(refURL).String(), nil
}
