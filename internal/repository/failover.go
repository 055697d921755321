package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"medbook/internal/domain"
	"medbook/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionRepository serves from the fallback while the primary is failing
// and retries the primary once per recoveryInterval.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "session_store").Logger()
	}
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   l,
		now:      time.Now,
	}
}

func (r *FailoverSessionRepository) shouldTryPrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func call[T any](r *FailoverSessionRepository, op string, fn func(domain.SessionRepository) (T, error)) (T, error) {
	if r.shouldTryPrimary() {
		v, err := fn(r.primary)
		if err == nil || errors.Is(err, domain.ErrInvalidDraft) {
			if r.isDown.Swap(false) {
				r.logger.Info().Str("op", op).Msg("Primary session repository recovered")
			}
			return v, err
		}
		if !r.isDown.Swap(true) {
			r.logger.Error().Err(err).Str("op", op).Msg("Primary session repository failed, falling back to memory")
		}
		r.lastCheck.Store(r.now().UnixNano())
	}
	return fn(r.fallback)
}

func (r *FailoverSessionRepository) GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	return call(r, "get_draft", func(s domain.SessionRepository) (*models.BookingDraft, error) {
		return s.GetDraft(ctx, sessionID)
	})
}

func (r *FailoverSessionRepository) SaveDraft(ctx context.Context, draft *models.BookingDraft) error {
	_, err := call(r, "save_draft", func(s domain.SessionRepository) (struct{}, error) {
		return struct{}{}, s.SaveDraft(ctx, draft)
	})
	return err
}

func (r *FailoverSessionRepository) DeleteDraft(ctx context.Context, sessionID string) error {
	_, err := call(r, "delete_draft", func(s domain.SessionRepository) (struct{}, error) {
		return struct{}{}, s.DeleteDraft(ctx, sessionID)
	})
	return err
}

func (r *FailoverSessionRepository) AppendMessages(ctx context.Context, sessionID string, msgs ...models.ChatMessage) error {
	_, err := call(r, "append_history", func(s domain.SessionRepository) (struct{}, error) {
		return struct{}{}, s.AppendMessages(ctx, sessionID, msgs...)
	})
	return err
}

func (r *FailoverSessionRepository) GetHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return call(r, "get_history", func(s domain.SessionRepository) ([]models.ChatMessage, error) {
		return s.GetHistory(ctx, sessionID)
	})
}

func (r *FailoverSessionRepository) ClearHistory(ctx context.Context, sessionID string) error {
	_, err := call(r, "clear_history", func(s domain.SessionRepository) (struct{}, error) {
		return struct{}{}, s.ClearHistory(ctx, sessionID)
	})
	return err
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	return call(r, "rate_limit", func(s domain.SessionRepository) (bool, error) {
		return s.CheckRateLimit(ctx, sessionID, limit, window)
	})
}
