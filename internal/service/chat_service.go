package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"medbook/internal/booking"
	"medbook/internal/domain"
	"medbook/internal/events"
	"medbook/internal/logging"
	"medbook/internal/metrics"
	"medbook/internal/models"

	"github.com/rs/zerolog"
)

const (
	msgUnavailable = "⚠️ Sorry, something went wrong on our side. Please try again in a moment."
	msgRateLimited = "⏳ You're sending messages too quickly. Please wait a moment and try again."
)

type ChatOptions struct {
	RateLimit  int
	RateWindow time.Duration
}

// ChatService routes each message either into the booking conversation or to the document answerer.
type ChatService struct {
	sessions   domain.SessionRepository
	flow       *booking.Flow
	classifier domain.IntentClassifier
	answerer   domain.DocumentAnswerer
	eventBus   domain.EventPublisher
	opts       ChatOptions
	locks      *keyedMutex
	logger     zerolog.Logger
	now        func() time.Time
}

func NewChatService(
	sessions domain.SessionRepository,
	flow *booking.Flow,
	classifier domain.IntentClassifier,
	answerer domain.DocumentAnswerer,
	eventBus domain.EventPublisher,
	opts ChatOptions,
	logger *zerolog.Logger,
) *ChatService {
	return &ChatService{
		sessions:   sessions,
		flow:       flow,
		classifier: classifier,
		answerer:   answerer,
		eventBus:   eventBus,
		opts:       opts,
		locks:      newKeyedMutex(),
		logger:     logging.Component(logger, "chat_service"),
		now:        time.Now,
	}
}

// Reply handles one user message. Only an empty session id or message is reported as an error;
// every other failure becomes a reply text.
func (s *ChatService) Reply(ctx context.Context, sessionID, text string) (*models.ChatReply, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrEmptySession
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyMessage
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	log := s.logger.With().Str("session_id", sessionID).Logger()

	if s.opts.RateLimit > 0 {
		allowed, err := s.sessions.CheckRateLimit(ctx, sessionID, s.opts.RateLimit, s.opts.RateWindow)
		if err != nil {
			log.Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			metrics.IncRateLimited()
			return &models.ChatReply{SessionID: sessionID, Text: msgRateLimited, Outcome: models.OutcomeRateLimited}, nil
		}
	}

	draft, err := s.loadDraft(ctx, sessionID, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to load draft")
		return &models.ChatReply{SessionID: sessionID, Text: msgUnavailable, Intent: models.IntentGeneral, Outcome: models.OutcomeContinue}, nil
	}

	var reply *models.ChatReply
	if draft == nil && s.classifier.Classify(text) == models.IntentGeneral {
		reply = &models.ChatReply{
			SessionID: sessionID,
			Text:      s.answerer.Answer(ctx, sessionID, text),
			Intent:    models.IntentGeneral,
			Outcome:   models.OutcomeAnswered,
		}
	} else {
		if draft == nil {
			draft = models.NewBookingDraft(sessionID, s.now())
			log.Info().Msg("booking conversation started")
		}
		reply = s.handleBooking(ctx, draft, text, log)
	}
	metrics.IncChatMessage(string(reply.Intent))

	now := s.now()
	if err := s.sessions.AppendMessages(ctx, sessionID,
		models.ChatMessage{Role: models.RoleUser, Content: text, CreatedAt: now},
		models.ChatMessage{Role: models.RoleAssistant, Content: reply.Text, CreatedAt: now},
	); err != nil {
		log.Warn().Err(err).Msg("failed to append history")
	}
	return reply, nil
}

// loadDraft returns the active draft, discarding one that no longer holds its invariants.
func (s *ChatService) loadDraft(ctx context.Context, sessionID string, log zerolog.Logger) (*models.BookingDraft, error) {
	draft, err := s.sessions.GetDraft(ctx, sessionID)
	if errors.Is(err, domain.ErrInvalidDraft) {
		log.Warn().Err(err).Msg("discarding unreadable draft")
		return nil, s.sessions.DeleteDraft(ctx, sessionID)
	}
	if err != nil || draft == nil {
		return nil, err
	}

	if verr := draft.Validate(); verr != nil || !draft.Active {
		log.Warn().AnErr("reason", verr).Bool("active", draft.Active).Msg("discarding stale draft")
		return nil, s.sessions.DeleteDraft(ctx, sessionID)
	}
	return draft, nil
}

func (s *ChatService) handleBooking(ctx context.Context, draft *models.BookingDraft, text string, log zerolog.Logger) *models.ChatReply {
	res := s.flow.Handle(ctx, draft, text)
	reply := &models.ChatReply{
		SessionID: draft.SessionID,
		Text:      res.Reply,
		Intent:    models.IntentBooking,
		Outcome:   res.Outcome,
		BookingID: res.BookingID,
	}

	if res.Conflict != booking.ConflictNone {
		metrics.IncConflict(string(res.Conflict))
		s.publish(events.EventBookingConflict, events.BookingEventPayload{
			SessionID: draft.SessionID,
			Specialty: draft.Specialty,
			Date:      draft.Date,
			Time:      res.ConflictTime,
			Stage:     string(res.Conflict),
			CreatedAt: s.now(),
		})
	}

	switch res.Outcome {
	case models.OutcomeCommitted:
		metrics.IncBookingCommitted()
		metrics.IncNotification(res.EmailSent)
		log.Info().Int64("booking_id", res.BookingID).Bool("email_sent", res.EmailSent).Msg("booking committed")
		if res.Booking != nil {
			res.Booking.CreatedAt = s.now()
			s.publish(events.EventBookingConfirmed, events.PayloadFromBooking(draft.SessionID, res.Booking))
		}
	case models.OutcomeCancelled:
		metrics.IncBookingCancelled()
		log.Info().Msg("booking cancelled")
		s.publish(events.EventBookingCancelled, events.BookingEventPayload{SessionID: draft.SessionID, CreatedAt: s.now()})
	}

	if res.Draft == nil {
		if err := s.sessions.DeleteDraft(ctx, draft.SessionID); err != nil {
			log.Warn().Err(err).Msg("failed to delete finished draft")
		}
		return reply
	}

	res.Draft.UpdatedAt = s.now()
	if err := s.sessions.SaveDraft(ctx, res.Draft); err != nil {
		log.Error().Err(err).Msg("failed to save draft")
	}
	return reply
}

func (s *ChatService) publish(eventType string, payload events.BookingEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.ErrEmptySession
	}
	return s.sessions.GetHistory(ctx, sessionID)
}

func (s *ChatService) AddDocument(ctx context.Context, sessionID, name, text string) (int, error) {
	if strings.TrimSpace(sessionID) == "" {
		return 0, domain.ErrEmptySession
	}
	return s.answerer.AddDocument(ctx, sessionID, name, text)
}

// ClearSession forgets the draft, the history and the uploaded documents.
func (s *ChatService) ClearSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return domain.ErrEmptySession
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	s.answerer.ClearDocuments(sessionID)
	return errors.Join(
		s.sessions.DeleteDraft(ctx, sessionID),
		s.sessions.ClearHistory(ctx, sessionID),
	)
}

type refLock struct {
	sync.Mutex
	refs int
}

// keyedMutex serializes work per session and forgets idle sessions.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
