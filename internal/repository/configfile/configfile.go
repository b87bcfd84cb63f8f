package configfile

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"cardwatch/internal/models"
	"cardwatch/internal/repository"
)

// Repository serves shop definitions and the product watchlist from one
// declarative YAML file. The file is read and validated once; both lists
// are immutable for the lifetime of the process.
type Repository struct {
	log      *slog.Logger
	shops    []models.ShopConfig
	products []models.Product
}

type watchFile struct {
	Shops    []models.ShopConfig `mapstructure:"shops"`
	Products []models.Product    `mapstructure:"products"`
}

// New reads and validates the watch file at path.
func New(log *slog.Logger, path string) (*Repository, error) {
	const opn = "configfile.New"

	vpr := viper.New()
	vpr.SetConfigFile(path)

	if err := vpr.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: failed to read watch file %s: %w", opn, path, err)
	}

	var file watchFile
	if err := vpr.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("%s: failed to parse watch file %s: %w", opn, path, err)
	}

	if err := validateShops(file.Shops); err != nil {
		return nil, fmt.Errorf("%s: invalid shop definition: %w", opn, err)
	}
	if err := validateProducts(file.Products); err != nil {
		return nil, fmt.Errorf("%s: invalid product definition: %w", opn, err)
	}

	log.Info("Watch file loaded", "op", opn, "path", path, "shops", len(file.Shops), "products", len(file.Products))

	return &Repository{log: log, shops: file.Shops, products: file.Products}, nil
}

// GetEnabled returns the shops marked enabled, in definition order.
func (r *Repository) GetEnabled(_ context.Context) ([]models.ShopConfig, error) {
	enabled := make([]models.ShopConfig, 0, len(r.shops))
	for _, shop := range r.shops {
		if shop.Enabled {
			enabled = append(enabled, shop)
		}
	}

	return enabled, nil
}

// GetAll returns every watched product.
func (r *Repository) GetAll(_ context.Context) ([]models.Product, error) {
	products := make([]models.Product, len(r.products))
	copy(products, r.products)

	return products, nil
}

// GetByID returns the product with the given ID.
func (r *Repository) GetByID(_ context.Context, id string) (models.Product, error) {
	for _, product := range r.products {
		if product.ID == id {
			return product, nil
		}
	}

	return models.Product{}, fmt.Errorf("product %s: %w", id, repository.ErrProductNotFound)
}

// validateShops checks identity, engine kind and search template and
// compiles the direct-hit patterns in place.
func validateShops(shops []models.ShopConfig) error {
	seen := make(map[string]struct{}, len(shops))

	for i := range shops {
		shop := &shops[i]

		if err := validateID(shop.ID); err != nil {
			return fmt.Errorf("shop %q: %w", shop.ID, err)
		}
		if _, dup := seen[shop.ID]; dup {
			return fmt.Errorf("shop %q: duplicate id", shop.ID)
		}
		seen[shop.ID] = struct{}{}

		switch shop.Engine {
		case models.EngineRendering:
		case models.EngineStatic:
		case "":
			shop.Engine = models.EngineStatic
		default:
			return fmt.Errorf("shop %q: unknown engine kind %q", shop.ID, shop.Engine)
		}

		if !strings.Contains(shop.SearchURL, "%s") {
			return fmt.Errorf("shop %q: search_url must contain a %%s placeholder", shop.ID)
		}

		if shop.DirectHit != "" {
			re, err := regexp.Compile(shop.DirectHit)
			if err != nil {
				return fmt.Errorf("shop %q: invalid direct_hit pattern: %w", shop.ID, err)
			}
			shop.DirectHitRe = re
		}
	}

	return nil
}

func validateProducts(products []models.Product) error {
	seen := make(map[string]struct{}, len(products))

	for _, product := range products {
		if err := validateID(product.ID); err != nil {
			return fmt.Errorf("product %q: %w", product.ID, err)
		}
		if _, dup := seen[product.ID]; dup {
			return fmt.Errorf("product %q: duplicate id", product.ID)
		}
		seen[product.ID] = struct{}{}

		if len(product.SearchPhrases) == 0 {
			return fmt.Errorf("product %q: at least one search phrase required", product.ID)
		}
		if product.MaxPrice <= 0 {
			return fmt.Errorf("product %q: max_price must be positive", product.ID)
		}
		if product.MinPrice < 0 || product.MinPrice > product.MaxPrice {
			return fmt.Errorf("product %q: min_price must lie between 0 and max_price", product.ID)
		}
	}

	return nil
}

// validateID rejects empty IDs and IDs containing the key separator used
// by the notification state.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if strings.Contains(id, ":") {
		return fmt.Errorf("id must not contain ':'")
	}
	return nil
}
