package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"cardwatch/internal/models"
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Static fetches pages with a plain HTTP client and parses them once into
// a DOM. It is enough for shops that render product data on the server.
type Static struct {
	log    *slog.Logger
	client *http.Client
	opts   Options

	doc     *goquery.Document
	current string
}

func NewStatic(log *slog.Logger, opts Options) *Static {
	return &Static{
		log:    log,
		opts:   opts,
		client: &http.Client{Timeout: opts.FetchTimeout},
	}
}

// Navigate fetches rawURL, follows redirects and parses the body. The
// post-redirect URL becomes the current URL, which is how shops that jump
// straight to a product page are detected.
func (e *Static) Navigate(ctx context.Context, rawURL string) error {
	const opn = "engine.Static.Navigate"

	reqURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s: failed to parse URL %s: %w", opn, rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("%s: failed to create request %s: %w", opn, reqURL.String(), err)
	}
	req.Header.Add("User-Agent", e.opts.UserAgent)

	e.log.DebugContext(ctx, "Send request", "method", req.Method, "URL", req.URL)

	res, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to request %s: %w", opn, rawURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: status code error: [%d] %s", opn, res.StatusCode, res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return fmt.Errorf("%s: data cannot be parsed as HTML: %w", opn, err)
	}

	e.doc = doc
	e.current = reqURL.String()
	if res.Request != nil && res.Request.URL != nil {
		// The request attached to the response carries the post-redirect URL.
		e.current = res.Request.URL.String()
	}
	e.log.DebugContext(ctx, "Page loaded", "status_code", res.StatusCode, "final_url", e.current)

	return nil
}

func (e *Static) Extract(sel models.Selector) (string, bool) {
	if e.doc == nil {
		return "", false
	}
	for _, value := range sel.Values {
		s := e.query(e.doc.Selection, sel.Type, value)
		if s == nil || s.Length() == 0 {
			e.log.Debug("Selector value yielded nothing", "type", sel.Type, "value", value)
			continue
		}
		if v, ok := extractFromSelection(s.First(), sel.Extract); ok {
			return v, true
		}
		e.log.Debug("Matched element has no extractable data", "type", sel.Type, "value", value, "kind", sel.Extract)
	}
	return "", false
}

func (e *Static) ExtractAll(sel models.Selector, limit int) []Node {
	if e.doc == nil {
		return nil
	}
	for _, value := range sel.Values {
		s := e.query(e.doc.Selection, sel.Type, value)
		if s == nil || s.Length() == 0 {
			continue
		}
		nodes := make([]Node, 0, s.Length())
		s.EachWithBreak(func(_ int, item *goquery.Selection) bool {
			nodes = append(nodes, &staticNode{log: e.log, sel: item})
			return limit <= 0 || len(nodes) < limit
		})
		return nodes
	}
	return nil
}

func (e *Static) Exists(sel models.Selector) bool {
	if e.doc == nil {
		return false
	}
	for _, value := range sel.Values {
		if s := e.query(e.doc.Selection, sel.Type, value); s != nil && s.Length() > 0 {
			return true
		}
	}
	return false
}

func (e *Static) CurrentURL() (string, bool) {
	if e.current == "" {
		return "", false
	}
	return e.current, true
}

// Close is a no-op: the engine owns nothing beyond the parsed document.
func (e *Static) Close() error {
	e.doc = nil
	e.current = ""
	return nil
}

// query resolves one selector value within scope. An invalid expression
// matches nothing; goquery swallows bad css itself, bad xpath is caught
// here.
func (e *Static) query(scope *goquery.Selection, typ models.SelectorType, value string) *goquery.Selection {
	switch typ {
	case models.SelectorXPath:
		if len(scope.Nodes) == 0 {
			return nil
		}
		found, err := htmlquery.QueryAll(scope.Nodes[0], value)
		if err != nil {
			e.log.Debug("Invalid xpath expression", "value", value, "error", err)
			return nil
		}
		return wrapNodes(found)
	case models.SelectorText:
		return queryByText(scope, value)
	case models.SelectorCSS:
		return scope.Find(value)
	default:
		e.log.Debug("Unknown selector type", "type", typ)
		return nil
	}
}

// queryByText finds the deepest element whose text contains the wanted
// string, case-insensitively. The value may carry a "scope::text" prefix.
func queryByText(scope *goquery.Selection, value string) *goquery.Selection {
	cssScope, text := splitTextValue(value)
	wanted := strings.ToLower(text)

	base := scope.Find(cssScope)
	if base.Length() == 0 {
		// Inside a listing row there is no body element; search the row.
		if cssScope != "body" {
			return nil
		}
		base = scope
	}
	matched := base.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.Text()), wanted)
	})
	if matched.Length() > 0 {
		// Document order puts ancestors first; the last match is the most
		// specific element containing the text.
		return matched.Last()
	}
	if strings.Contains(strings.ToLower(base.Text()), wanted) {
		return base.First()
	}
	return nil
}

func extractFromSelection(s *goquery.Selection, kind models.ExtractKind) (string, bool) {
	switch kind {
	case models.ExtractHref:
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		return href, ok && href != ""
	case models.ExtractHTML:
		markup, err := goquery.OuterHtml(s)
		if err != nil || strings.TrimSpace(markup) == "" {
			return "", false
		}
		return markup, true
	default:
		text := strings.TrimSpace(s.Text())
		return text, text != ""
	}
}

func wrapNodes(nodes []*html.Node) *goquery.Selection {
	if len(nodes) == 0 {
		return nil
	}
	sel := goquery.NewDocumentFromNode(nodes[0]).Selection
	for _, n := range nodes[1:] {
		sel = sel.AddNodes(n)
	}
	return sel
}

// staticNode scopes extraction to one element of the current page.
type staticNode struct {
	log *slog.Logger
	sel *goquery.Selection
}

func (n *staticNode) Extract(sel models.Selector) (string, bool) {
	for _, value := range sel.Values {
		s := n.scopedQuery(sel.Type, value)
		if s == nil || s.Length() == 0 {
			continue
		}
		if v, ok := extractFromSelection(s.First(), sel.Extract); ok {
			return v, true
		}
	}
	return "", false
}

func (n *staticNode) scopedQuery(typ models.SelectorType, value string) *goquery.Selection {
	switch typ {
	case models.SelectorXPath:
		if len(n.sel.Nodes) == 0 {
			return nil
		}
		found, err := htmlquery.QueryAll(n.sel.Nodes[0], value)
		if err != nil {
			n.log.Debug("Invalid xpath expression", "value", value, "error", err)
			return nil
		}
		return wrapNodes(found)
	case models.SelectorText:
		return queryByText(n.sel, value)
	case models.SelectorCSS:
		// The row element itself may be the target, e.g. when the whole
		// article is the link.
		if n.sel.Is(value) {
			return n.sel
		}
		return n.sel.Find(value)
	default:
		return nil
	}
}
