package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"cardwatch/internal/models"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Rendering fetches pages through a headless browser for shops that only
// produce their data client-side. A browser supplied by the caller is
// shared and never closed here; without one the engine launches its own
// on first navigation and owns it.
type Rendering struct {
	log  *slog.Logger
	opts Options

	browser     *rod.Browser
	ownsBrowser bool
	page        *rod.Page
	router      *rod.HijackRouter
}

func NewRendering(log *slog.Logger, opts Options, browser *rod.Browser) *Rendering {
	return &Rendering{log: log, opts: opts, browser: browser}
}

// LaunchBrowser starts a headless browser and connects to it. The caller
// owns the returned instance.
func LaunchBrowser(log *slog.Logger) (*rod.Browser, error) {
	const opn = "engine.LaunchBrowser"

	u, err := launcher.New().
		Headless(true).
		NoSandbox(true).
		Launch()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to launch browser: %w", opn, err)
	}

	browser := rod.New().ControlURL(u)
	if err = browser.Connect(); err != nil {
		return nil, fmt.Errorf("%s: failed to connect browser: %w", opn, err)
	}

	log.Info("Headless browser started")

	return browser, nil
}

// Navigate opens the page (creating it on first use), waits for the DOM
// content loaded event and then a settle delay for late scripts.
func (e *Rendering) Navigate(ctx context.Context, rawURL string) error {
	const opn = "engine.Rendering.Navigate"

	if err := e.ensurePage(); err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	page := e.page.Context(ctx).Timeout(e.opts.FetchTimeout)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)

	if err := page.Navigate(rawURL); err != nil {
		return fmt.Errorf("%s: failed to navigate %s: %w", opn, rawURL, err)
	}
	wait()

	if e.opts.SettleDelay > 0 {
		time.Sleep(e.opts.SettleDelay)
	}

	e.log.DebugContext(ctx, "Page rendered", "url", rawURL)

	return nil
}

func (e *Rendering) Extract(sel models.Selector) (string, bool) {
	if e.page == nil {
		return "", false
	}
	for _, value := range sel.Values {
		el := e.lookup(e.page, sel.Type, value)
		if el == nil {
			e.log.Debug("Selector value yielded nothing", "type", sel.Type, "value", value)
			continue
		}
		if v, ok := extractFromElement(el, sel.Extract); ok {
			return v, true
		}
	}
	return "", false
}

func (e *Rendering) ExtractAll(sel models.Selector, limit int) []Node {
	if e.page == nil {
		return nil
	}
	for _, value := range sel.Values {
		els := e.lookupAll(sel.Type, value)
		if len(els) == 0 {
			continue
		}
		if limit > 0 && len(els) > limit {
			els = els[:limit]
		}
		nodes := make([]Node, 0, len(els))
		for _, el := range els {
			nodes = append(nodes, &renderNode{log: e.log, opts: e.opts, el: el})
		}
		return nodes
	}
	return nil
}

func (e *Rendering) Exists(sel models.Selector) bool {
	if e.page == nil {
		return false
	}
	for _, value := range sel.Values {
		var (
			found bool
			err   error
		)
		switch sel.Type {
		case models.SelectorXPath:
			found, _, err = e.page.HasX(value)
		case models.SelectorText:
			scope, text := splitTextValue(value)
			found, _, err = e.page.HasR(scope, textPattern(text))
		default:
			found, _, err = e.page.Has(value)
		}
		if err != nil {
			e.log.Debug("Existence check failed", "type", sel.Type, "value", value, "error", err)
			continue
		}
		if found {
			return true
		}
	}
	return false
}

func (e *Rendering) CurrentURL() (string, bool) {
	if e.page == nil {
		return "", false
	}
	info, err := e.page.Info()
	if err != nil {
		e.log.Debug("Failed to read page info", "error", err)
		return "", false
	}
	return info.URL, true
}

// Close tears down the page, the request filter and, only when launched
// here, the browser. A caller-supplied browser stays open.
func (e *Rendering) Close() error {
	var errs []error

	if e.router != nil {
		if err := e.router.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop hijack router: %w", err))
		}
		e.router = nil
	}
	if e.page != nil {
		if err := e.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
		e.page = nil
	}
	if e.ownsBrowser && e.browser != nil {
		if err := e.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		e.browser = nil
		e.ownsBrowser = false
	}

	return errors.Join(errs...)
}

// ensurePage lazily acquires the browser and opens a blank page with the
// request filter installed.
func (e *Rendering) ensurePage() error {
	if e.page != nil {
		return nil
	}

	if e.browser == nil {
		browser, err := LaunchBrowser(e.log)
		if err != nil {
			return err
		}
		e.browser = browser
		e.ownsBrowser = true
	}

	page, err := e.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}

	if e.opts.UserAgent != "" {
		if err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: e.opts.UserAgent}); err != nil {
			e.log.Debug("Failed to override user agent", "error", err)
		}
	}

	router := page.HijackRequests()
	err = router.Add("*", "", func(h *rod.Hijack) {
		switch h.Request.Type() {
		case proto.NetworkResourceTypeImage,
			proto.NetworkResourceTypeStylesheet,
			proto.NetworkResourceTypeFont,
			proto.NetworkResourceTypeMedia:
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		default:
			h.ContinueRequest(&proto.FetchContinueRequest{})
		}
	})
	if err != nil {
		_ = page.Close()
		return fmt.Errorf("failed to install request filter: %w", err)
	}
	go router.Run()

	e.page = page
	e.router = router

	return nil
}

func (e *Rendering) lookup(page *rod.Page, typ models.SelectorType, value string) *rod.Element {
	p := page.Timeout(e.opts.ElementWait)

	var (
		el  *rod.Element
		err error
	)
	switch typ {
	case models.SelectorXPath:
		el, err = p.ElementX(value)
	case models.SelectorText:
		scope, text := splitTextValue(value)
		el, err = p.ElementR(scope, textPattern(text))
	case models.SelectorCSS:
		el, err = p.Element(value)
	default:
		e.log.Debug("Unknown selector type", "type", typ)
		return nil
	}
	if err != nil {
		return nil
	}
	return el
}

// lookupAll waits for the first match to exist, then grabs the full list
// without waiting so an empty page answers quickly.
func (e *Rendering) lookupAll(typ models.SelectorType, value string) []*rod.Element {
	var (
		els rod.Elements
		err error
	)
	switch typ {
	case models.SelectorXPath:
		if first := e.lookup(e.page, typ, value); first == nil {
			return nil
		}
		els, err = e.page.ElementsX(value)
	case models.SelectorCSS:
		if first := e.lookup(e.page, typ, value); first == nil {
			return nil
		}
		els, err = e.page.Elements(value)
	default:
		// Text selectors address one element; lists are css or xpath.
		if el := e.lookup(e.page, typ, value); el != nil {
			return []*rod.Element{el}
		}
		return nil
	}
	if err != nil {
		e.log.Debug("Element list lookup failed", "type", typ, "value", value, "error", err)
		return nil
	}
	return els
}

func extractFromElement(el *rod.Element, kind models.ExtractKind) (string, bool) {
	switch kind {
	case models.ExtractHref:
		attr, err := el.Attribute("href")
		if err != nil || attr == nil {
			return "", false
		}
		href := strings.TrimSpace(*attr)
		return href, href != ""
	case models.ExtractHTML:
		markup, err := el.HTML()
		if err != nil || strings.TrimSpace(markup) == "" {
			return "", false
		}
		return markup, true
	default:
		text, err := el.Text()
		if err != nil {
			return "", false
		}
		text = strings.TrimSpace(text)
		return text, text != ""
	}
}

// renderNode scopes extraction to one element of the rendered page.
type renderNode struct {
	log  *slog.Logger
	opts Options
	el   *rod.Element
}

func (n *renderNode) Extract(sel models.Selector) (string, bool) {
	for _, value := range sel.Values {
		el := n.scopedLookup(sel.Type, value)
		if el == nil {
			continue
		}
		if v, ok := extractFromElement(el, sel.Extract); ok {
			return v, true
		}
	}
	return "", false
}

func (n *renderNode) scopedLookup(typ models.SelectorType, value string) *rod.Element {
	el := n.el.Timeout(n.opts.ElementWait)

	switch typ {
	case models.SelectorXPath:
		found, err := el.ElementX(value)
		if err != nil {
			return nil
		}
		return found
	case models.SelectorText:
		scope, text := splitTextValue(value)
		found, err := el.ElementR(scope, textPattern(text))
		if err != nil {
			return nil
		}
		return found
	case models.SelectorCSS:
		// The row element itself may be the target, e.g. when the whole
		// article is the link.
		if matches, err := n.el.Matches(value); err == nil && matches {
			return n.el
		}
		found, err := el.Element(value)
		if err != nil {
			return nil
		}
		return found
	default:
		return nil
	}
}

// textPattern builds the case-insensitive regex rod expects for text
// matching.
func textPattern(text string) string {
	return fmt.Sprintf("/%s/i", regexp.QuoteMeta(text))
}
