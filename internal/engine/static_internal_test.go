package engine

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"cardwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper — its a mock for http.RoundTripper.
type mockRoundTripper struct {
	response *http.Response
	err      error
}

func (m *mockRoundTripper) RoundTrip(_ *http.Request) (*http.Response, error) {
	return m.response, m.err
}

func newTestStatic() *Static {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStatic(logger, Options{
		FetchTimeout: 5 * time.Second,
		UserAgent:    "test-agent",
	})
}

func navigateHTML(t *testing.T, e *Static, pageHTML string) {
	t.Helper()

	e.client = &http.Client{
		Transport: &mockRoundTripper{
			response: &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(pageHTML)),
			},
		},
	}
	require.NoError(t, e.Navigate(t.Context(), "http://shop.test/search?q=box"))
}

const productPageHTML = `
<html>
<body>
	<main>
		<h1 class="product-title">Pokemon Karmesin &amp; Purpur 151 Booster Box</h1>
		<div class="price-box"><span class="price"> 129,99 &euro; </span></div>
		<div class="stock"><span class="availability">In stock</span></div>
		<a class="cart" href="/cart/add/151">Add to cart</a>
	</main>
</body>
</html>`

const listingPageHTML = `
<html>
<body>
	<div id="search-results">
		<article class="product-card">
			<h2 class="title">Pokemon 151 Booster Box</h2>
			<a class="details" href="/p/151-booster-box">show</a>
		</article>
		<article class="product-card">
			<h2 class="title">Pokemon 151 Elite Trainer Box</h2>
			<a class="details" href="/p/151-etb">show</a>
		</article>
		<article class="product-card">
			<h2 class="title">Pokemon 151 Booster Box Case</h2>
			<a class="details" href="/p/151-case">show</a>
		</article>
	</div>
</body>
</html>`

// =============================================================================
// Tests for network logic
// =============================================================================

func TestStaticNavigate(t *testing.T) {
	ctx := t.Context()

	testCases := []struct {
		name           string
		mockResponse   *http.Response
		mockError      error
		rawURL         string
		expectError    bool
		expectedErrMsg string
	}{
		{
			name: "Successful request (200 OK)",
			mockResponse: &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("<html><body>ok</body></html>")),
			},
			rawURL:      "http://test.com",
			expectError: false,
		},
		{
			name: "Server Error (500)",
			mockResponse: &http.Response{
				StatusCode: http.StatusInternalServerError,
				Status:     "500 Internal Server Error",
				Body:       io.NopCloser(strings.NewReader("Error")),
			},
			rawURL:         "http://test.com",
			expectError:    true,
			expectedErrMsg: "status code error: [500]",
		},
		{
			name: "Client Error (404)",
			mockResponse: &http.Response{
				StatusCode: http.StatusNotFound,
				Status:     "404 Not Found",
				Body:       io.NopCloser(strings.NewReader("nope")),
			},
			rawURL:         "http://test.com/missing",
			expectError:    true,
			expectedErrMsg: "status code error: [404]",
		},
		{
			name:           "Network error",
			mockError:      errors.New("connection failed"),
			rawURL:         "http://test.com",
			expectError:    true,
			expectedErrMsg: "connection failed",
		},
		{
			name:           "Invalid URL",
			rawURL:         "://invalid-url",
			expectError:    true,
			expectedErrMsg: "failed to parse URL",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestStatic()
			e.client = &http.Client{
				Transport: &mockRoundTripper{response: tc.mockResponse, err: tc.mockError},
			}

			err := e.Navigate(ctx, tc.rawURL)

			if tc.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				return
			}
			require.NoError(t, err)

			current, ok := e.CurrentURL()
			assert.True(t, ok)
			assert.Equal(t, tc.rawURL, current)
		})
	}
}

func TestStaticCurrentURL_FollowsRedirect(t *testing.T) {
	e := newTestStatic()

	// The request attached to the response is what the transport actually
	// fetched last, so a redirected fetch reports the landing URL.
	finalURL, err := url.Parse("http://shop.test/p/151-booster-box")
	require.NoError(t, err)

	e.client = &http.Client{
		Transport: &mockRoundTripper{
			response: &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(productPageHTML)),
				Request:    &http.Request{URL: finalURL},
			},
		},
	}

	require.NoError(t, e.Navigate(t.Context(), "http://shop.test/search?q=box"))

	current, ok := e.CurrentURL()
	assert.True(t, ok)
	assert.Equal(t, "http://shop.test/p/151-booster-box", current)
}

func TestStaticCurrentURL_BeforeNavigation(t *testing.T) {
	e := newTestStatic()

	_, ok := e.CurrentURL()
	assert.False(t, ok)
}

// =============================================================================
// Tests for extraction logic
// =============================================================================

func TestStaticExtract(t *testing.T) {
	testCases := []struct {
		name     string
		selector models.Selector
		expected string
		found    bool
	}{
		{
			name:     "css text",
			selector: models.Selector{Type: models.SelectorCSS, Values: []string{".product-title"}},
			expected: "Pokemon Karmesin & Purpur 151 Booster Box",
			found:    true,
		},
		{
			name:     "css fallback order",
			selector: models.Selector{Type: models.SelectorCSS, Values: []string{".old-price", ".price"}},
			expected: "129,99 €",
			found:    true,
		},
		{
			name: "css href",
			selector: models.Selector{
				Type:    models.SelectorCSS,
				Values:  []string{"a.cart"},
				Extract: models.ExtractHref,
			},
			expected: "/cart/add/151",
			found:    true,
		},
		{
			name:     "xpath text",
			selector: models.Selector{Type: models.SelectorXPath, Values: []string{`//span[@class='price']`}},
			expected: "129,99 €",
			found:    true,
		},
		{
			name:     "text match with scope",
			selector: models.Selector{Type: models.SelectorText, Values: []string{".stock::in stock"}},
			expected: "In stock",
			found:    true,
		},
		{
			name:     "text match without scope",
			selector: models.Selector{Type: models.SelectorText, Values: []string{"In stock"}},
			expected: "In stock",
			found:    true,
		},
		{
			name:     "absent element",
			selector: models.Selector{Type: models.SelectorCSS, Values: []string{".does-not-exist"}},
			found:    false,
		},
		{
			name:     "invalid xpath is soft",
			selector: models.Selector{Type: models.SelectorXPath, Values: []string{"///[["}},
			found:    false,
		},
		{
			name:     "unknown selector type is soft",
			selector: models.Selector{Type: "jsonpath", Values: []string{"$.price"}},
			found:    false,
		},
		{
			name: "missing attribute is soft",
			selector: models.Selector{
				Type:    models.SelectorCSS,
				Values:  []string{".product-title"},
				Extract: models.ExtractHref,
			},
			found: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestStatic()
			navigateHTML(t, e, productPageHTML)

			value, ok := e.Extract(tc.selector)

			assert.Equal(t, tc.found, ok)
			if tc.found {
				assert.Equal(t, tc.expected, value)
			}
		})
	}
}

func TestStaticExtract_HTMLKind(t *testing.T) {
	e := newTestStatic()
	navigateHTML(t, e, productPageHTML)

	markup, ok := e.Extract(models.Selector{
		Type:    models.SelectorCSS,
		Values:  []string{".price-box"},
		Extract: models.ExtractHTML,
	})

	require.True(t, ok)
	assert.Contains(t, markup, `<span class="price">`)
}

func TestStaticExtract_BeforeNavigation(t *testing.T) {
	e := newTestStatic()

	_, ok := e.Extract(models.Selector{Type: models.SelectorCSS, Values: []string{"h1"}})
	assert.False(t, ok)
}

func TestStaticExtractAll(t *testing.T) {
	articleSel := models.Selector{Type: models.SelectorCSS, Values: []string{"article.product-card"}}
	titleSel := models.Selector{Type: models.SelectorCSS, Values: []string{"h2.title"}}
	linkSel := models.Selector{Type: models.SelectorCSS, Values: []string{"a.details"}, Extract: models.ExtractHref}

	t.Run("all rows with titles and links", func(t *testing.T) {
		e := newTestStatic()
		navigateHTML(t, e, listingPageHTML)

		nodes := e.ExtractAll(articleSel, 0)
		require.Len(t, nodes, 3)

		title, ok := nodes[0].Extract(titleSel)
		require.True(t, ok)
		assert.Equal(t, "Pokemon 151 Booster Box", title)

		link, ok := nodes[2].Extract(linkSel)
		require.True(t, ok)
		assert.Equal(t, "/p/151-case", link)
	})

	t.Run("limit caps the rows", func(t *testing.T) {
		e := newTestStatic()
		navigateHTML(t, e, listingPageHTML)

		nodes := e.ExtractAll(articleSel, 2)
		assert.Len(t, nodes, 2)
	})

	t.Run("row that is itself the link", func(t *testing.T) {
		e := newTestStatic()
		navigateHTML(t, e, `<html><body>
			<a class="result" href="/p/first">Pokemon 151 Booster Box</a>
			<a class="result" href="/p/second">Pokemon 151 Display</a>
		</body></html>`)

		nodes := e.ExtractAll(models.Selector{Type: models.SelectorCSS, Values: []string{"a.result"}}, 0)
		require.Len(t, nodes, 2)

		link, ok := nodes[1].Extract(models.Selector{
			Type:    models.SelectorCSS,
			Values:  []string{"a.result"},
			Extract: models.ExtractHref,
		})
		require.True(t, ok)
		assert.Equal(t, "/p/second", link)
	})

	t.Run("no matches", func(t *testing.T) {
		e := newTestStatic()
		navigateHTML(t, e, listingPageHTML)

		nodes := e.ExtractAll(models.Selector{Type: models.SelectorCSS, Values: []string{"section.missing"}}, 0)
		assert.Empty(t, nodes)
	})
}

func TestStaticExists(t *testing.T) {
	e := newTestStatic()
	navigateHTML(t, e, productPageHTML)

	assert.True(t, e.Exists(models.Selector{Type: models.SelectorCSS, Values: []string{".price"}}))
	assert.True(t, e.Exists(models.Selector{Type: models.SelectorCSS, Values: []string{".nope", ".price"}}))
	assert.False(t, e.Exists(models.Selector{Type: models.SelectorCSS, Values: []string{".nope"}}))
	assert.True(t, e.Exists(models.Selector{Type: models.SelectorXPath, Values: []string{`//a[@class='cart']`}}))
}

func TestStaticClose(t *testing.T) {
	e := newTestStatic()
	navigateHTML(t, e, productPageHTML)

	require.NoError(t, e.Close())

	_, ok := e.CurrentURL()
	assert.False(t, ok)
	_, ok = e.Extract(models.Selector{Type: models.SelectorCSS, Values: []string{"h1"}})
	assert.False(t, ok)
}
