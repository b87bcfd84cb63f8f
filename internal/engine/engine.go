package engine

import (
	"context"
	"strings"
	"time"

	"cardwatch/internal/models"
)

// Engine fetches pages and reads data out of them through configured
// selectors. Extraction is fail-soft: a selector that does not resolve
// yields an absent value, never an error. Engines are stateful around the
// last navigated page and are meant to be used by one goroutine at a time.
type Engine interface {
	// Navigate loads the page at rawURL and makes it the current page.
	Navigate(ctx context.Context, rawURL string) error
	// Extract resolves the selector against the current page. The second
	// return is false when no fallback value yielded data.
	Extract(sel models.Selector) (string, bool)
	// ExtractAll returns up to limit element handles for the first
	// selector value that matches anything. limit <= 0 means no cap.
	ExtractAll(sel models.Selector, limit int) []Node
	// Exists reports whether any fallback value resolves to an element.
	Exists(sel models.Selector) bool
	// CurrentURL returns the URL of the current page, after redirects.
	// It reports false before the first successful navigation.
	CurrentURL() (string, bool)
	// Close releases everything the engine owns. Resources supplied by
	// the caller stay open.
	Close() error
}

// Node is a handle to one element, scoped for relative extraction.
type Node interface {
	Extract(sel models.Selector) (string, bool)
}

// Options carry the fetch tuning knobs shared by both engines.
type Options struct {
	FetchTimeout time.Duration
	ElementWait  time.Duration
	SettleDelay  time.Duration
	UserAgent    string
}

// textScopeSep splits a text selector value into "scope::text". The scope
// is a css selector narrowing where the text is searched; without one the
// whole body is searched.
const textScopeSep = "::"

func splitTextValue(value string) (scope, text string) {
	if before, after, found := strings.Cut(value, textScopeSep); found && before != "" {
		return before, after
	}
	return "body", value
}
