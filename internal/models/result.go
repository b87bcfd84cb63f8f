package models

import (
	"fmt"
	"time"
)

// ProductResult is the outcome of scanning one product on one shop.
// A nil Price means the price could not be determined; a not-found scan
// has an empty URL, nil Price and Available false.
type ProductResult struct {
	ProductID string
	ShopID    string
	URL       string
	Price     *float64
	Available bool
	CheckedAt time.Time
}

// Key identifies the (product, shop) pair.
func (r ProductResult) Key() string {
	return StateKey(r.ProductID, r.ShopID)
}

// HourBucket truncates the check time to the hour in UTC. Results within
// the same bucket overwrite each other on persistence.
func (r ProductResult) HourBucket() time.Time {
	return r.CheckedAt.UTC().Truncate(time.Hour)
}

// Candidate is one scored entry from a search result listing.
type Candidate struct {
	Title string
	URL   string
	Score float64
}

// Alert is the payload handed to a dispatcher when a result is worth
// telling somebody about.
type Alert struct {
	Product Product
	Shop    ShopConfig
	Result  ProductResult
}

// StateKey builds the canonical "productID:shopID" key used by the
// notification tracker and its repository.
func StateKey(productID, shopID string) string {
	return fmt.Sprintf("%s:%s", productID, shopID)
}
