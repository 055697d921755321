package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"medbook/internal/domain"
	"medbook/internal/events"
	"medbook/internal/export"
	"medbook/internal/logging"
	"medbook/internal/models"
	"medbook/internal/validate"

	"github.com/rs/zerolog"
)

// AdminService backs the operator views over committed bookings.
type AdminService struct {
	repo     domain.BookingRepository
	eventBus domain.EventPublisher
	logger   zerolog.Logger
	now      func() time.Time
}

func NewAdminService(repo domain.BookingRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *AdminService {
	return &AdminService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logging.Component(logger, "admin_service"),
		now:      time.Now,
	}
}

func (s *AdminService) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	filter.Email = strings.TrimSpace(filter.Email)
	filter.Name = strings.TrimSpace(filter.Name)
	return s.repo.ListBookings(ctx, filter)
}

func (s *AdminService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// ExportXLSX writes the filtered listing as a workbook.
func (s *AdminService) ExportXLSX(ctx context.Context, filter models.BookingFilter, w io.Writer) error {
	bookings, err := s.ListBookings(ctx, filter)
	if err != nil {
		return err
	}
	return export.Write(w, bookings)
}

// CreateBooking records a booking entered by an operator. With force the slot re-check is skipped.
func (s *AdminService) CreateBooking(ctx context.Context, draft *models.BookingDraft, force bool) (*models.Booking, error) {
	if err := checkFields(draft); err != nil {
		return nil, err
	}

	save := s.repo.SaveChecked
	if force {
		save = s.repo.Save
	}
	id, err := save(ctx, draft)
	if err != nil {
		return nil, err
	}

	b := models.NewBookingFromDraft(draft)
	b.ID = id
	b.CreatedAt = s.now()
	s.logger.Info().Int64("booking_id", id).Bool("force", force).Msg("booking created by operator")

	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(events.EventBookingConfirmed, events.PayloadFromBooking(draft.SessionID, b)); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish event")
		}
	}
	return b, nil
}

func checkFields(d *models.BookingDraft) error {
	if d == nil || !d.Complete() {
		return fmt.Errorf("%w: all fields are required", domain.ErrInvalidDraft)
	}
	switch {
	case !validate.Email(d.Email):
		return fmt.Errorf("%w: invalid email %q", domain.ErrInvalidDraft, d.Email)
	case !validate.Phone(d.Phone):
		return fmt.Errorf("%w: invalid phone %q", domain.ErrInvalidDraft, d.Phone)
	case !validate.Date(d.Date):
		return fmt.Errorf("%w: invalid date %q", domain.ErrInvalidDraft, d.Date)
	case !validate.Time(d.Time):
		return fmt.Errorf("%w: invalid time %q", domain.ErrInvalidDraft, d.Time)
	}
	return nil
}
