package repository

import (
	"context"

	"cardwatch/internal/models"
)

// ShopRepository serves the shop definitions the monitor scans.
type ShopRepository interface {
	// GetEnabled returns the shops marked enabled, in definition order.
	GetEnabled(ctx context.Context) ([]models.ShopConfig, error)
}

// WatchlistRepository serves the products being monitored.
type WatchlistRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	// GetByID returns ErrProductNotFound for unknown IDs.
	GetByID(ctx context.Context, id string) (models.Product, error)
}

// ResultRepository persists scan results.
type ResultRepository interface {
	// UpsertHourlyBatch writes the batch in one transaction, keyed by
	// (product, shop, hour bucket); a later result replaces an earlier
	// one in the same bucket.
	UpsertHourlyBatch(ctx context.Context, results []models.ProductResult) error
}

// NotificationStateRepository persists which (product, shop) pairs have
// already fired an alert.
type NotificationStateRepository interface {
	GetAll(ctx context.Context) ([]models.NotificationState, error)
	SetBatch(ctx context.Context, states []models.NotificationState) error
	// DeleteBatch removes the given "productID:shopID" keys.
	DeleteBatch(ctx context.Context, keys []string) error
}

// SubscriberRepository tracks the chats that want to receive alerts.
type SubscriberRepository interface {
	SubscribeChat(ctx context.Context, chatID int64) error
	UnsubscribeChat(ctx context.Context, chatID int64) error
	GetSubscribedChats(ctx context.Context) ([]int64, error)
}

// AlertDispatcher delivers an alert to a set of recipients. A non-nil
// error means delivery is not confirmed and the caller must not mute the
// pair.
type AlertDispatcher interface {
	SendAlert(ctx context.Context, alert models.Alert, recipients []int64) error
}
