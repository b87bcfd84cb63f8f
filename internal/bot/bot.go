package bot

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/telebot.v4"

	"cardwatch/internal/repository"
)

// Bot is the Telegram side of the monitor: it manages chat subscriptions
// through commands and delivers price alerts to subscribed chats.
type Bot struct {
	bot       API
	log       *slog.Logger
	subs      repository.SubscriberRepository
	watchlist repository.WatchlistRepository
}

func NewBot(
	log *slog.Logger,
	token string,
	poller time.Duration,
	subs repository.SubscriberRepository,
	watchlist repository.WatchlistRepository,
) (*Bot, error) {
	tgBot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poller},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on acount", "account", tgBot.Me.Username)

	botInstance := &Bot{bot: tgBot, log: log, subs: subs, watchlist: watchlist}

	botInstance.registerRoutes()

	return botInstance, nil
}

// Start launches the bot to listen for updates.
func (b *Bot) Start() {
	b.log.Info("Telegram bot is starting...")
	b.bot.Start()
}

// Stop gracefully stops the Telegram bot and logs the action.
func (b *Bot) Stop() {
	b.log.Info("Telegram bot is stopped...")
	b.bot.Stop()
}

// registerRoutes configures all routes (commands).
func (b *Bot) registerRoutes() {
	// Public routes.
	b.bot.Handle("/start", b.startHandler)
	b.bot.Handle("/stop", b.stopHandler)
	b.bot.Handle("/status", b.statusHandler)
}
