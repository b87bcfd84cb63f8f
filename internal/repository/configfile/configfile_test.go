package configfile_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardwatch/internal/models"
	"cardwatch/internal/repository"
	"cardwatch/internal/repository/configfile"
)

const validWatchFile = `
shops:
  - id: cardmart
    name: Cardmart
    base_url: https://cardmart.test
    search_url: https://cardmart.test/search?q=%s
    direct_hit: '/p/\d+'
    engine: static
    enabled: true
    search:
      article:
        type: css
        values: ["article.product"]
      title:
        type: css
        values: [".product-title", "h3"]
      link:
        type: css
        values: ["a.product-link"]
        extract: href
    product:
      title:
        type: css
        values: ["h1"]
      price:
        type: css
        values: [".price"]
      availability:
        type: css
        values: [".stock-status"]
      in_stock: ["in stock", "auf lager"]
      out_of_stock: ["sold out"]
  - id: jsshop
    name: JS Shop
    base_url: https://jsshop.test
    search_url: https://jsshop.test/s/%s
    engine: rendering
    enabled: false
    search:
      article:
        type: xpath
        values: ["//div[@class='result']"]
      title:
        type: css
        values: [".title"]
      link:
        type: css
        values: ["a"]
        extract: href
    product:
      price:
        type: css
        values: [".price"]
      availability:
        type: text
        values: [".buy-box::add to cart"]

products:
  - id: pkm-151-bb
    name: Pokemon 151 Booster Box
    search_phrases: ["pokemon 151 booster box", "151 booster display"]
    exclusions: ["case", "sleeve"]
    max_price: 160
    min_price: 80
  - id: pkm-paldea-etb
    name: Paldea Evolved Elite Trainer Box
    search_phrases: ["paldea evolved elite trainer box"]
    max_price: 60
`

func writeWatchFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "watch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func newRepo(t *testing.T, content string) (*configfile.Repository, error) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return configfile.New(logger, writeWatchFile(t, content))
}

func TestNew_ValidFile(t *testing.T) {
	repo, err := newRepo(t, validWatchFile)
	require.NoError(t, err)

	ctx := t.Context()

	t.Run("enabled shops only", func(t *testing.T) {
		shops, err := repo.GetEnabled(ctx)
		require.NoError(t, err)
		require.Len(t, shops, 1, "disabled shop must be filtered")

		shop := shops[0]
		assert.Equal(t, "cardmart", shop.ID)
		assert.Equal(t, models.EngineStatic, shop.Engine)
		require.NotNil(t, shop.DirectHitRe, "direct_hit must be compiled at load")
		assert.True(t, shop.DirectHitRe.MatchString("https://cardmart.test/p/42"))
		assert.Equal(t, models.SelectorCSS, shop.Search.Article.Type)
		assert.Equal(t, []string{".product-title", "h3"}, shop.Search.Title.Values)
		assert.Equal(t, models.ExtractHref, shop.Search.Link.Extract)
		assert.Equal(t, []string{"in stock", "auf lager"}, shop.Product.InStock)
	})

	t.Run("watchlist round-trips", func(t *testing.T) {
		products, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, products, 2)

		assert.Equal(t, "pkm-151-bb", products[0].ID)
		assert.Equal(t, []string{"case", "sleeve"}, products[0].Exclusions)
		assert.InDelta(t, 160, products[0].MaxPrice, 0.0001)
		assert.InDelta(t, 80, products[0].MinPrice, 0.0001)
		assert.InDelta(t, 0, products[1].MinPrice, 0.0001, "min_price is optional")
	})

	t.Run("get by id", func(t *testing.T) {
		product, err := repo.GetByID(ctx, "pkm-paldea-etb")
		require.NoError(t, err)
		assert.Equal(t, "Paldea Evolved Elite Trainer Box", product.Name)

		_, err = repo.GetByID(ctx, "nope")
		require.ErrorIs(t, err, repository.ErrProductNotFound)
	})
}

func TestNew_MissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := configfile.New(logger, filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	require.ErrorContains(t, err, "failed to read watch file")
}

func TestNew_ValidationFailures(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "shop without id",
			content: `
shops:
  - name: Anonymous
    search_url: https://x.test/?q=%s
`,
			wantErr: "id must not be empty",
		},
		{
			name: "duplicate shop id",
			content: `
shops:
  - id: cardmart
    search_url: https://a.test/?q=%s
  - id: cardmart
    search_url: https://b.test/?q=%s
`,
			wantErr: "duplicate id",
		},
		{
			name: "unknown engine kind",
			content: `
shops:
  - id: cardmart
    search_url: https://a.test/?q=%s
    engine: quantum
`,
			wantErr: "unknown engine kind",
		},
		{
			name: "search url without placeholder",
			content: `
shops:
  - id: cardmart
    search_url: https://a.test/search
`,
			wantErr: "must contain a %s placeholder",
		},
		{
			name: "invalid direct hit pattern",
			content: `
shops:
  - id: cardmart
    search_url: https://a.test/?q=%s
    direct_hit: '(['
`,
			wantErr: "invalid direct_hit pattern",
		},
		{
			name: "id with key separator",
			content: `
products:
  - id: "pkm:151"
    search_phrases: ["x"]
    max_price: 10
`,
			wantErr: "must not contain ':'",
		},
		{
			name: "product without search phrases",
			content: `
products:
  - id: pkm-151-bb
    max_price: 10
`,
			wantErr: "at least one search phrase",
		},
		{
			name: "product without max price",
			content: `
products:
  - id: pkm-151-bb
    search_phrases: ["x"]
`,
			wantErr: "max_price must be positive",
		},
		{
			name: "min price above max price",
			content: `
products:
  - id: pkm-151-bb
    search_phrases: ["x"]
    max_price: 10
    min_price: 20
`,
			wantErr: "min_price must lie between",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newRepo(t, tc.content)

			require.Error(t, err)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestGetAll_ReturnsACopy(t *testing.T) {
	repo, err := newRepo(t, validWatchFile)
	require.NoError(t, err)

	first, err := repo.GetAll(t.Context())
	require.NoError(t, err)
	first[0].MaxPrice = 1

	second, err := repo.GetAll(t.Context())
	require.NoError(t, err)
	assert.InDelta(t, 160, second[0].MaxPrice, 0.0001, "callers must not share backing storage")
}
