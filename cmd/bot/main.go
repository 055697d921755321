package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"medbook/internal/app"
	"medbook/internal/bot"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := app.LoadConfigAndLogger("bot-main")
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Error().Msg("Set telegram.bot_token in config.yaml")
		return os.ErrInvalid
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.StartMetrics(ctx)
	a.StartBackground(ctx)

	tg, err := bot.Connect(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to telegram")
		return err
	}

	telegramBot := bot.NewBot(tg, a.Chat, cfg.Telegram, bot.NewMetrics(nil), &logger)
	defer telegramBot.Stop()

	logger.Info().Msg("Bot started")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}
