package domain

import (
	"context"
	"io"
	"time"

	"medbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type BookingRepository interface {
	BookedTimes(ctx context.Context, date, specialty string) ([]string, error)
	Save(ctx context.Context, draft *models.BookingDraft) (int64, error)
	SaveChecked(ctx context.Context, draft *models.BookingDraft) (int64, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
}

type DraftRepository interface {
	GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error)
	SaveDraft(ctx context.Context, draft *models.BookingDraft) error
	DeleteDraft(ctx context.Context, sessionID string) error
}

type HistoryRepository interface {
	AppendMessages(ctx context.Context, sessionID string, msgs ...models.ChatMessage) error
	GetHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// SessionRepository is everything kept per conversation.
type SessionRepository interface {
	DraftRepository
	HistoryRepository
	CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error)
}

type Notifier interface {
	Send(ctx context.Context, to, subject, body string) bool
}

type IntentClassifier interface {
	Classify(text string) models.Intent
}

type DocumentAnswerer interface {
	AddDocument(ctx context.Context, sessionID, name, text string) (int, error)
	Answer(ctx context.Context, sessionID, question string) string
	ClearDocuments(sessionID string)
}

type ChatService interface {
	Reply(ctx context.Context, sessionID, text string) (*models.ChatReply, error)
	History(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	AddDocument(ctx context.Context, sessionID, name, text string) (int, error)
	ClearSession(ctx context.Context, sessionID string) error
}

type AdminService interface {
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ExportXLSX(ctx context.Context, filter models.BookingFilter, w io.Writer) error
	CreateBooking(ctx context.Context, draft *models.BookingDraft, force bool) (*models.Booking, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type SheetsWriter interface {
	AppendBooking(ctx context.Context, booking *models.Booking) error
}
