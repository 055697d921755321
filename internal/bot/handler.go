package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	msgWelcome = "Hello! I can book a doctor's appointment for you or answer questions about documents you share.\n" +
		"Say something like \"I want to book an appointment\" to start.\n" +
		"/doc <text> adds a document, /clear starts over."
	msgCleared   = "Chat cleared. Documents and any unfinished booking were removed."
	msgDocAdded  = "Document added (%d chunks). Ask me anything about it."
	msgDocUsage  = "Usage: /doc <document text>"
	msgNeedsText = "I can only read text messages."

	// Telegram rejects messages longer than this many characters.
	maxMessageLength = 4096
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sessionID := SessionID(chatID)
	log := zerolog.Ctx(ctx).With().Int64("chat_id", chatID).Logger()

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, sessionID, &log)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		b.sendMessage(chatID, msgNeedsText)
		return
	}

	b.sendTyping(chatID)
	reply, err := b.chat.Reply(ctx, sessionID, text)
	if err != nil {
		log.Error().Err(err).Msg("chat reply failed")
		b.countError()
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	log.Debug().Str("intent", string(reply.Intent)).Str("outcome", string(reply.Outcome)).Msg("reply sent")
	b.sendMessage(chatID, reply.Text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, sessionID string, log *zerolog.Logger) {
	command := msg.Command()
	if b.metrics != nil {
		b.metrics.CommandsProcessed.WithLabelValues(command).Inc()
	}

	chatID := msg.Chat.ID
	switch command {
	case "start", "help":
		b.sendMessage(chatID, msgWelcome)
	case "clear":
		if err := b.chat.ClearSession(ctx, sessionID); err != nil {
			log.Error().Err(err).Msg("failed to clear session")
			b.countError()
			b.sendMessage(chatID, b.getErrorMessage(err))
			return
		}
		b.sendMessage(chatID, msgCleared)
	case "doc":
		text := strings.TrimSpace(msg.CommandArguments())
		if text == "" {
			b.sendMessage(chatID, msgDocUsage)
			return
		}
		name := fmt.Sprintf("telegram-%d", msg.MessageID)
		chunks, err := b.chat.AddDocument(ctx, sessionID, name, text)
		if err != nil {
			log.Error().Err(err).Msg("failed to add document")
			b.sendMessage(chatID, b.getErrorMessage(err))
			return
		}
		b.sendMessage(chatID, fmt.Sprintf(msgDocAdded, chunks))
	default:
		b.sendMessage(chatID, msgWelcome)
	}
}

func (b *Bot) countError() {
	if b.metrics != nil {
		b.metrics.ErrorsTotal.Inc()
	}
}
