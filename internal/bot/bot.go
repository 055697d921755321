// Package bot carries the chat assistant over Telegram. Each chat id is one session.
package bot

import (
	"context"
	"fmt"
	"time"

	"medbook/internal/config"
	"medbook/internal/domain"
	"medbook/internal/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultUpdateTimeout = 30 * time.Second

type Bot struct {
	bot           domain.TelegramSender
	chat          domain.ChatService
	metrics       *Metrics
	updateTimeout time.Duration
	logger        zerolog.Logger
}

func NewBot(tg domain.TelegramSender, chat domain.ChatService, cfg config.TelegramConfig, metrics *Metrics, logger *zerolog.Logger) *Bot {
	timeout := cfg.UpdateTimeout
	if timeout <= 0 {
		timeout = defaultUpdateTimeout
	}
	return &Bot{
		bot:           tg,
		chat:          chat,
		metrics:       metrics,
		updateTimeout: timeout,
		logger:        logging.Component(logger, "telegram_bot"),
	}
}

// SessionID maps a Telegram chat onto a conversation.
func SessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// Start long-polls updates until ctx is done or the channel closes.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.bot.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates.
func (b *Bot) Stop() {
	if b == nil || b.bot == nil {
		return
	}
	b.bot.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, b.updateTimeout)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.NewString()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(&l, func() {
		if update.Message == nil || update.Message.Chat == nil {
			return
		}
		if b.metrics != nil {
			b.metrics.MessagesProcessed.Inc()
		}
		b.handleMessage(updateCtx, update.Message)
	})
}
