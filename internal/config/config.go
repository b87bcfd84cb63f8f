package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrEmptyStoragePath = errors.New("error getting CW_STORAGE_PATH: variable not specified or contains an empty string")
	ErrEmptyWatchFile   = errors.New("error getting CW_WATCH_FILE: variable not specified or contains an empty string")
)

type Config struct {
	Env         string // Env is the current environment: local, dev, prod.
	StoragePath string // StoragePath is the path to the sqlite database file.
	WatchFile   string // WatchFile is the path to the YAML file with shops and products.
	Schedule    string // Schedule is the cron expression for scan runs.
	Tg          Telegram
	Scan        Scan
}

type Telegram struct {
	Token   string        // Token is an unique telegram bot token. Empty disables Telegram alerts.
	Timeout time.Duration // Timeout is a poller timeout duration.
}

// Scan holds every tuning knob of a scan cycle. All thresholds, caps and
// pool sizes live here so none of them is a literal in the scan code.
type Scan struct {
	ShopWorkers        int           // concurrent shops in the static cycle
	ProductWorkers     int           // concurrent products per static shop
	MaxCandidates      int           // search result rows considered per listing
	FetchTimeout       time.Duration // full page fetch budget
	ElementWait        time.Duration // rendering engine wait per element lookup
	SettleDelay        time.Duration // extra wait after DOM content loaded
	UserAgent          string
	DirectHitThreshold float64 // title score required on a direct product hit
	ListingThreshold   float64 // title score required for listing candidates
}

// MustLoad loads the configuration from environment variables and returns a Config struct.
func MustLoad() *Config {
	// Automatically binds environment variables to config keys
	viper.SetEnvPrefix("CW")
	viper.AutomaticEnv()

	// optional args
	viper.SetDefault("ENV", "production")
	viper.SetDefault("SCHEDULE", "*/15 * * * *")
	viper.SetDefault("TELEGRAM_TIMEOUT", "15s")
	viper.SetDefault("SHOP_WORKERS", 10)
	viper.SetDefault("PRODUCT_WORKERS", 3)
	viper.SetDefault("MAX_CANDIDATES", 5)
	viper.SetDefault("FETCH_TIMEOUT", "20s")
	viper.SetDefault("ELEMENT_WAIT", "3s")
	viper.SetDefault("SETTLE_DELAY", "1500ms")
	viper.SetDefault("USER_AGENT", "Mozilla/5.0 (compatible; GoHttpClient/1.0)")
	viper.SetDefault("DIRECT_HIT_THRESHOLD", 0.80)
	viper.SetDefault("LISTING_THRESHOLD", 0.62)

	if viper.GetString("STORAGE_PATH") == "" {
		panic(ErrEmptyStoragePath)
	}
	if viper.GetString("WATCH_FILE") == "" {
		panic(ErrEmptyWatchFile)
	}

	return &Config{
		Env:         viper.GetString("ENV"),
		StoragePath: viper.GetString("STORAGE_PATH"),
		WatchFile:   viper.GetString("WATCH_FILE"),
		Schedule:    viper.GetString("SCHEDULE"),
		Tg: Telegram{
			Token:   viper.GetString("TELEGRAM_TOKEN"),
			Timeout: viper.GetDuration("TELEGRAM_TIMEOUT"),
		},
		Scan: Scan{
			ShopWorkers:        viper.GetInt("SHOP_WORKERS"),
			ProductWorkers:     viper.GetInt("PRODUCT_WORKERS"),
			MaxCandidates:      viper.GetInt("MAX_CANDIDATES"),
			FetchTimeout:       viper.GetDuration("FETCH_TIMEOUT"),
			ElementWait:        viper.GetDuration("ELEMENT_WAIT"),
			SettleDelay:        viper.GetDuration("SETTLE_DELAY"),
			UserAgent:          viper.GetString("USER_AGENT"),
			DirectHitThreshold: viper.GetFloat64("DIRECT_HIT_THRESHOLD"),
			ListingThreshold:   viper.GetFloat64("LISTING_THRESHOLD"),
		},
	}
}
