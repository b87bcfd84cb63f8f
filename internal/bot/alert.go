package bot

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/telebot.v4"

	"cardwatch/internal/models"
)

// SendAlert delivers one price alert to every recipient chat. Failures are
// collected per recipient and joined; any non-nil return means the caller
// must not mark the pair as notified, so the next cycle retries.
func (b *Bot) SendAlert(ctx context.Context, alert models.Alert, recipients []int64) error {
	const opn = "bot.SendAlert"
	log := b.log.With("op", opn, "product_id", alert.Product.ID, "shop_id", alert.Shop.ID)

	if len(recipients) == 0 {
		log.InfoContext(ctx, "No subscribers, alert dropped")
		return nil
	}

	message := formatAlert(alert)

	var errs []error
	for _, chatID := range recipients {
		if _, err := b.bot.Send(telebot.ChatID(chatID), message, telebot.ModeMarkdown); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		log.DebugContext(ctx, "Alert delivered", "chat_id", chatID)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", opn, errors.Join(errs...))
	}

	log.InfoContext(ctx, "Alert delivered to all subscribers", "recipients", len(recipients))

	return nil
}

// formatAlert renders the Markdown alert message.
func formatAlert(alert models.Alert) string {
	price := "unknown price"
	if alert.Result.Price != nil {
		price = fmt.Sprintf("%.2f", *alert.Result.Price)
	}

	return fmt.Sprintf(
		"🎴 *%s*\nAvailable at *%s* for *%s* (cap %.2f)\n%s",
		alert.Product.Name,
		alert.Shop.Name,
		price,
		alert.Product.MaxPrice,
		alert.Result.URL,
	)
}
