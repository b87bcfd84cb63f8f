package scraper_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardwatch/internal/engine"
	"cardwatch/internal/matcher"
	"cardwatch/internal/models"
	"cardwatch/internal/navigator"
	"cardwatch/internal/scraper"
)

func TestGroupByEngine(t *testing.T) {
	t.Parallel()

	shops := []models.ShopConfig{
		{ID: "a", Engine: models.EngineStatic},
		{ID: "b", Engine: models.EngineRendering},
		{ID: "c", Engine: models.EngineStatic},
		{ID: "d"}, // unset kind defaults to static scheduling
		{ID: "e", Engine: models.EngineRendering},
	}

	static, rendering := scraper.GroupByEngine(shops)

	require.Len(t, static, 3)
	require.Len(t, rendering, 2)
	assert.Equal(t, "a", static[0].ID)
	assert.Equal(t, "c", static[1].ID)
	assert.Equal(t, "d", static[2].ID)
	assert.Equal(t, "b", rendering[0].ID)
	assert.Equal(t, "e", rendering[1].ID)
}

func TestGroupByEngine_Empty(t *testing.T) {
	t.Parallel()

	static, rendering := scraper.GroupByEngine(nil)

	assert.Empty(t, static)
	assert.Empty(t, rendering)
}

func TestFactory_Create(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	nav := navigator.New(logger, matcher.New(logger), navigator.Config{MaxCandidates: 5})
	factory := scraper.NewFactory(logger, nav, engine.Options{})

	staticScraper := factory.Create(models.ShopConfig{ID: "a", Engine: models.EngineStatic}, nil)
	require.NotNil(t, staticScraper)

	// A rendering scraper without a shared browser launches lazily, so
	// construction alone must not touch a browser.
	renderScraper := factory.Create(models.ShopConfig{ID: "b", Engine: models.EngineRendering}, nil)
	require.NotNil(t, renderScraper)
}
