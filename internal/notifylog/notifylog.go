// Package notifylog provides a log-only alert dispatcher used when no
// Telegram token is configured. Alerts are written to the log instead of
// being delivered anywhere.
package notifylog

import (
	"context"
	"log/slog"

	"cardwatch/internal/models"
)

type Dispatcher struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

// SendAlert logs the alert and reports success so the notification state
// machine still marks the pair as notified.
func (d *Dispatcher) SendAlert(ctx context.Context, alert models.Alert, recipients []int64) error {
	const opn = "notifylog.SendAlert"

	price := 0.0
	if alert.Result.Price != nil {
		price = *alert.Result.Price
	}

	d.log.InfoContext(ctx, "Price alert",
		"op", opn,
		"product", alert.Product.Name,
		"shop", alert.Shop.Name,
		"price", price,
		"max_price", alert.Product.MaxPrice,
		"url", alert.Result.URL,
	)

	return nil
}
