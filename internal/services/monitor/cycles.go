package monitor

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"golang.org/x/sync/errgroup"

	"cardwatch/internal/models"
)

// runStaticCycle fans the watchlist out over the static shops: a bounded
// pool of shop workers, each running a bounded pool of product workers.
// Workers always return nil; a failed pair is logged and counted, never
// propagated.
func (m *Monitor) runStaticCycle(ctx context.Context, shops []models.ShopConfig, products []models.Product, recipients []int64) {
	if len(shops) == 0 {
		return
	}

	group := new(errgroup.Group)
	group.SetLimit(m.cfg.ShopWorkers)

	for _, shop := range shops {
		group.Go(func() error {
			inner := new(errgroup.Group)
			inner.SetLimit(m.cfg.ProductWorkers)

			for _, product := range products {
				inner.Go(func() error {
					m.scanPair(ctx, shop, product, nil, recipients)
					return nil
				})
			}

			return inner.Wait()
		})
	}

	_ = group.Wait() // workers never return errors
}

// runRenderingCycle shares one browser across all rendering shops and
// walks them strictly sequentially, so at most one page is live at a time.
// Failing to get the browser aborts this cycle only; the error is returned
// so the run can report it without touching static results.
func (m *Monitor) runRenderingCycle(ctx context.Context, shops []models.ShopConfig, products []models.Product, recipients []int64) error {
	const opn = "monitor.runRenderingCycle"

	if len(shops) == 0 {
		return nil
	}

	browser, err := m.launch()
	if err != nil {
		return fmt.Errorf("%s: failed to acquire shared browser: %w", opn, err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			m.log.WarnContext(ctx, "Failed to close shared browser", "op", opn, "error", cerr)
		}
	}()

	for _, shop := range shops {
		for _, product := range products {
			m.scanPair(ctx, shop, product, browser, recipients)
		}
	}

	return nil
}

// scanPair runs one (shop, product) scan end to end: scrape, buffer,
// state update, alert decision. Every failure is contained here so sibling
// pairs keep running.
func (m *Monitor) scanPair(ctx context.Context, shop models.ShopConfig, product models.Product, browser *rod.Browser, recipients []int64) {
	const opn = "monitor.scanPair"
	log := m.log.With("op", opn, "shop_id", shop.ID, "product_id", product.ID, "engine", shop.Engine)

	defer func() {
		if r := recover(); r != nil {
			m.counters.taskErrors.Add(1)
			log.ErrorContext(ctx, "Recovered panic in scan task", "panic", r)
		}
	}()

	scr := m.factory.Create(shop, browser)
	result := scr.ScrapeProduct(ctx, product)

	m.counters.scanned.Add(1)
	if result.URL != "" {
		m.counters.found.Add(1)
	}

	m.buffer.Add(result)
	m.tracker.Observe(result)

	if !eligible(product, result) {
		return
	}
	if !m.tracker.ShouldNotify(result.ProductID, result.ShopID) {
		log.DebugContext(ctx, "Qualifying offer already alerted", "price", result.Price)
		return
	}

	alert := models.Alert{Product: product, Shop: shop, Result: result}
	if err := m.dispatcher.SendAlert(ctx, alert, recipients); err != nil {
		// Not marking keeps the pair armed, so the next cycle retries.
		m.counters.taskErrors.Add(1)
		log.ErrorContext(ctx, "Failed to dispatch alert", "error", err)
		return
	}

	m.tracker.MarkNotified(result)
	m.counters.alerts.Add(1)
	log.InfoContext(ctx, "Alert dispatched", "price", result.Price, "max_price", product.MaxPrice)
}

// eligible reports whether a result qualifies for an alert: in stock,
// priced at or under the cap, and not below the optional sanity floor that
// guards against mis-scraped prices.
func eligible(product models.Product, result models.ProductResult) bool {
	if !result.Available || result.Price == nil {
		return false
	}
	if *result.Price > product.MaxPrice {
		return false
	}
	if product.MinPrice > 0 && *result.Price < product.MinPrice {
		return false
	}
	return true
}
