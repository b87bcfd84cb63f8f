package scraper

import (
	"log/slog"

	"github.com/go-rod/rod"

	"cardwatch/internal/engine"
	"cardwatch/internal/models"
	"cardwatch/internal/navigator"
)

// Factory builds single-use scrapers with the engine a shop declares.
type Factory struct {
	log  *slog.Logger
	nav  *navigator.Navigator
	opts engine.Options
}

func NewFactory(log *slog.Logger, nav *navigator.Navigator, opts engine.Options) *Factory {
	return &Factory{log: log, nav: nav, opts: opts}
}

// Create builds a scraper for the shop. Rendering shops get the shared
// browser handle; it stays open when the scraper closes its engine. A nil
// browser lets the rendering engine launch and own its own.
func (f *Factory) Create(shop models.ShopConfig, browser *rod.Browser) Scraper {
	var eng engine.Engine
	if shop.Engine == models.EngineRendering {
		eng = engine.NewRendering(f.log, f.opts, browser)
	} else {
		eng = engine.NewStatic(f.log, f.opts)
	}

	return NewShopScraper(f.log, eng, f.nav, shop)
}

// GroupByEngine partitions shops by their declared engine kind, keeping
// the input order within each group. The groups are scheduled differently:
// static shops fan out wide, rendering shops share one browser.
func GroupByEngine(shops []models.ShopConfig) (static, rendering []models.ShopConfig) {
	for _, shop := range shops {
		if shop.Engine == models.EngineRendering {
			rendering = append(rendering, shop)
		} else {
			static = append(static, shop)
		}
	}

	return static, rendering
}
