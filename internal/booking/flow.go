// Package booking drives the appointment conversation from the first question to the committed booking.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"medbook/internal/domain"
	"medbook/internal/logging"
	"medbook/internal/models"
	"medbook/internal/validate"

	"github.com/rs/zerolog"
)

type SlotChecker interface {
	IsAvailable(ctx context.Context, date, timeStr, specialty string) (bool, error)
	SuggestAlternatives(ctx context.Context, date, timeStr, specialty string, limit int) ([]string, error)
}

// Committer persists a confirmed draft, re-checking the slot atomically.
type Committer interface {
	SaveChecked(ctx context.Context, draft *models.BookingDraft) (int64, error)
}

type ConflictStage string

const (
	ConflictNone     ConflictStage = ""
	ConflictAdvisory ConflictStage = "advisory"
	ConflictCommit   ConflictStage = "commit"
)

// Result is what one turn produced. Draft is nil once the conversation reached a terminal outcome.
type Result struct {
	Draft     *models.BookingDraft
	Reply     string
	Outcome   models.Outcome
	BookingID int64
	Booking   *models.Booking
	EmailSent bool

	// Conflict and ConflictTime describe a slot collision during this turn.
	Conflict     ConflictStage
	ConflictTime string
}

type Options struct {
	MaxSuggestions int
	EmailSubject   string
	NotifyTimeout  time.Duration
}

type Flow struct {
	checker  SlotChecker
	repo     Committer
	notifier domain.Notifier
	opts     Options
	logger   zerolog.Logger
}

func NewFlow(checker SlotChecker, repo Committer, notifier domain.Notifier, opts Options, logger *zerolog.Logger) *Flow {
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = models.DefaultMaxSuggestions
	}
	if opts.EmailSubject == "" {
		opts.EmailSubject = "Doctor Appointment Confirmation"
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	return &Flow{
		checker:  checker,
		repo:     repo,
		notifier: notifier,
		opts:     opts,
		logger:   logging.Component(logger, "booking_flow"),
	}
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isYes(s string) bool { return s == "yes" || s == "y" }
func isNo(s string) bool  { return s == "no" || s == "n" }

// Handle applies one user message to the draft.
func (f *Flow) Handle(ctx context.Context, draft *models.BookingDraft, text string) Result {
	switch draft.State() {
	case models.StateConflictPending:
		return f.handleConflict(ctx, draft, text)
	case models.StateAwaitingConfirmation:
		return f.handleConfirmation(ctx, draft, text)
	case models.StateTerminated:
		return Result{Reply: msgCancelled, Outcome: models.OutcomeCancelled}
	default:
		return f.handleCollecting(ctx, draft, text)
	}
}

func (f *Flow) handleConflict(_ context.Context, d *models.BookingDraft, text string) Result {
	answer := normalizeAnswer(text)
	switch {
	case isYes(answer):
		d.Time = d.PendingTime
		d.ClearConflict()
		return f.next(d)
	case isNo(answer):
		d.ClearConflict()
		d.Time = ""
		d.CurrentField = models.FieldTime
		return f.reply(d, Prompt(models.FieldTime))
	default:
		return f.reply(d, msgConflictReprompt)
	}
}

func (f *Flow) handleConfirmation(ctx context.Context, d *models.BookingDraft, text string) Result {
	answer := normalizeAnswer(text)
	switch {
	case isYes(answer) || answer == "confirm":
		return f.commit(ctx, d)
	case isNo(answer) || answer == "cancel":
		d.Active = false
		return Result{Reply: msgCancelled, Outcome: models.OutcomeCancelled}
	default:
		return f.reply(d, Summary(d))
	}
}

func (f *Flow) handleCollecting(ctx context.Context, d *models.BookingDraft, text string) Result {
	field := d.CurrentField
	if field == models.FieldNone {
		return f.next(d)
	}

	value := strings.TrimSpace(text)
	if !fieldValid(field, value) {
		return f.reply(d, fieldErrors[field])
	}

	if field == models.FieldTime {
		if res, conflict := f.checkSlot(ctx, d, value); conflict {
			return res
		}
	}

	d.Set(field, value)
	d.CurrentField = models.FieldNone
	return f.next(d)
}

func fieldValid(field models.Field, value string) bool {
	switch field {
	case models.FieldEmail:
		return validate.Email(value)
	case models.FieldPhone:
		return validate.Phone(value)
	case models.FieldDate:
		return validate.Date(value)
	case models.FieldTime:
		return validate.Time(value)
	}
	return true
}

// checkSlot runs the advisory check. A failed lookup is logged and treated as available;
// the commit-time check still guards the slot.
func (f *Flow) checkSlot(ctx context.Context, d *models.BookingDraft, value string) (Result, bool) {
	available, err := f.checker.IsAvailable(ctx, d.Date, value, d.Specialty)
	if err != nil {
		f.logger.Warn().Err(err).Str("session_id", d.SessionID).Msg("advisory slot check failed")
		return Result{}, false
	}
	if available {
		return Result{}, false
	}

	suggested := f.suggest(ctx, d, value)
	d.CurrentField = models.FieldNone
	d.SlotConflict = true
	d.PendingTime = value
	d.SuggestedSlots = suggested

	res := f.reply(d, conflictMessage(suggested))
	res.Conflict = ConflictAdvisory
	res.ConflictTime = value
	return res, true
}

func (f *Flow) suggest(ctx context.Context, d *models.BookingDraft, value string) []string {
	suggested, err := f.checker.SuggestAlternatives(ctx, d.Date, value, d.Specialty, f.opts.MaxSuggestions)
	if err != nil {
		f.logger.Warn().Err(err).Str("session_id", d.SessionID).Msg("failed to suggest alternative slots")
		return nil
	}
	return suggested
}

// next asks for the first missing field or shows the summary when everything is collected.
func (f *Flow) next(d *models.BookingDraft) Result {
	if field := d.NextMissing(); field != models.FieldNone {
		d.CurrentField = field
		return f.reply(d, Prompt(field))
	}
	d.CurrentField = models.FieldNone
	return f.reply(d, Summary(d))
}

func (f *Flow) reply(d *models.BookingDraft, text string) Result {
	return Result{Draft: d, Reply: text, Outcome: models.OutcomeContinue}
}

func (f *Flow) commit(ctx context.Context, d *models.BookingDraft) Result {
	id, err := f.repo.SaveChecked(ctx, d)
	switch {
	case errors.Is(err, domain.ErrSlotTaken):
		requested := d.Time
		suggested := f.suggest(ctx, d, requested)
		d.Time = ""
		d.CurrentField = models.FieldTime
		f.logger.Info().Str("session_id", d.SessionID).Str("date", d.Date).Str("time", requested).
			Msg("slot taken at commit time")

		res := f.reply(d, slotTakenMessage(suggested))
		res.Conflict = ConflictCommit
		res.ConflictTime = requested
		return res
	case err != nil:
		f.logger.Error().Err(err).Str("session_id", d.SessionID).Msg("failed to save booking")
		return f.reply(d, msgSaveFailed)
	}

	d.Confirmed = true
	booking := models.NewBookingFromDraft(d)
	booking.ID = id

	sent := f.notify(ctx, d, id)
	d.Active = false

	return Result{
		Reply:     confirmedMessage(id, sent),
		Outcome:   models.OutcomeCommitted,
		BookingID: id,
		Booking:   booking,
		EmailSent: sent,
	}
}

func (f *Flow) notify(ctx context.Context, d *models.BookingDraft, bookingID int64) bool {
	if f.notifier == nil {
		return false
	}
	nctx, cancel := context.WithTimeout(ctx, f.opts.NotifyTimeout)
	defer cancel()

	sent := f.notifier.Send(nctx, d.Email, f.opts.EmailSubject, EmailBody(d, bookingID))
	if !sent {
		f.logger.Warn().Int64("booking_id", bookingID).Str("to", logging.MaskEmail(d.Email)).
			Msg("confirmation email not sent")
	}
	return sent
}
