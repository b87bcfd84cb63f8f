package bot

import (
	"context"
	"fmt"

	"gopkg.in/telebot.v4"
)

// startHandler processes command /start: the chat starts receiving alerts.
func (b *Bot) startHandler(tctx telebot.Context) error {
	chatID := tctx.Chat().ID
	b.log.Info("User subscribed to alerts", "username", tctx.Sender().Username, "chat_id", chatID)

	if err := b.subs.SubscribeChat(context.Background(), chatID); err != nil {
		b.log.Error("Failed to subscribe chat", "chat_id", chatID, "error", err)
		return tctx.Send("Something went wrong, please try again later.")
	}

	if err := tctx.Send("You are subscribed. I will ping you when a watched product drops below its price cap."); err != nil {
		return fmt.Errorf("failed to send greeting message: %w", err)
	}

	return nil
}

// stopHandler processes command /stop: the chat stops receiving alerts.
func (b *Bot) stopHandler(tctx telebot.Context) error {
	chatID := tctx.Chat().ID
	b.log.Info("User unsubscribed from alerts", "username", tctx.Sender().Username, "chat_id", chatID)

	if err := b.subs.UnsubscribeChat(context.Background(), chatID); err != nil {
		b.log.Error("Failed to unsubscribe chat", "chat_id", chatID, "error", err)
		return tctx.Send("Something went wrong, please try again later.")
	}

	if err := tctx.Send("You are unsubscribed. Send /start to resume alerts."); err != nil {
		return fmt.Errorf("failed to send farewell message: %w", err)
	}

	return nil
}

// statusHandler processes command /status: a short summary of the watchlist.
func (b *Bot) statusHandler(tctx telebot.Context) error {
	products, err := b.watchlist.GetAll(context.Background())
	if err != nil {
		b.log.Error("Failed to load watchlist for status", "error", err)
		return tctx.Send("Something went wrong, please try again later.")
	}

	if err = tctx.Send(fmt.Sprintf("Watching %d products.", len(products))); err != nil {
		return fmt.Errorf("failed to send status message: %w", err)
	}

	return nil
}
