package config_test

import (
	"testing"
	"time"

	"cardwatch/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestMustLoad(t *testing.T) {
	t.Run("error - empty storage path", func(t *testing.T) {
		t.Setenv("CW_STORAGE_PATH", "")
		t.Setenv("CW_WATCH_FILE", "watch.yaml")

		assert.PanicsWithError(t, config.ErrEmptyStoragePath.Error(), func() {
			config.MustLoad()
		})
	})

	t.Run("error - empty watch file", func(t *testing.T) {
		t.Setenv("CW_STORAGE_PATH", "some/path/to/db")
		t.Setenv("CW_WATCH_FILE", "")

		assert.PanicsWithError(t, config.ErrEmptyWatchFile.Error(), func() {
			config.MustLoad()
		})
	})

	t.Run("success with defaults", func(t *testing.T) {
		t.Setenv("CW_ENV", "local")
		t.Setenv("CW_TELEGRAM_TOKEN", "telegramToken")
		t.Setenv("CW_STORAGE_PATH", "some/path/to/db")
		t.Setenv("CW_WATCH_FILE", "some/path/to/watch.yaml")

		cfg := config.MustLoad()

		assert.Equal(t, "local", cfg.Env)
		assert.Equal(t, "some/path/to/db", cfg.StoragePath)
		assert.Equal(t, "some/path/to/watch.yaml", cfg.WatchFile)
		assert.Equal(t, "*/15 * * * *", cfg.Schedule)
		assert.Equal(t, "telegramToken", cfg.Tg.Token)
		assert.Equal(t, 15*time.Second, cfg.Tg.Timeout)
		assert.Equal(t, 10, cfg.Scan.ShopWorkers)
		assert.Equal(t, 3, cfg.Scan.ProductWorkers)
		assert.Equal(t, 5, cfg.Scan.MaxCandidates)
		assert.Equal(t, 20*time.Second, cfg.Scan.FetchTimeout)
		assert.Equal(t, 3*time.Second, cfg.Scan.ElementWait)
		assert.Equal(t, 1500*time.Millisecond, cfg.Scan.SettleDelay)
		assert.InDelta(t, 0.80, cfg.Scan.DirectHitThreshold, 0.0001)
		assert.InDelta(t, 0.62, cfg.Scan.ListingThreshold, 0.0001)
	})

	t.Run("success with overrides", func(t *testing.T) {
		t.Setenv("CW_STORAGE_PATH", "db.sqlite")
		t.Setenv("CW_WATCH_FILE", "watch.yaml")
		t.Setenv("CW_SCHEDULE", "0 * * * *")
		t.Setenv("CW_SHOP_WORKERS", "4")
		t.Setenv("CW_PRODUCT_WORKERS", "1")
		t.Setenv("CW_LISTING_THRESHOLD", "0.5")

		cfg := config.MustLoad()

		assert.Equal(t, "0 * * * *", cfg.Schedule)
		assert.Equal(t, 4, cfg.Scan.ShopWorkers)
		assert.Equal(t, 1, cfg.Scan.ProductWorkers)
		assert.InDelta(t, 0.5, cfg.Scan.ListingThreshold, 0.0001)
	})
}
