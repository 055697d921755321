package models

import (
	"errors"
	"fmt"
	"time"
)

// Field names one required answer of the booking conversation.
type Field string

const (
	FieldNone      Field = ""
	FieldName      Field = "name"
	FieldEmail     Field = "email"
	FieldPhone     Field = "phone"
	FieldSpecialty Field = "doctor_or_specialty"
	FieldDate      Field = "date"
	FieldTime      Field = "time"
)

// RequiredFields is the fixed collection order. Time must come after date and specialty.
var RequiredFields = []Field{FieldName, FieldEmail, FieldPhone, FieldSpecialty, FieldDate, FieldTime}

func (f Field) Known() bool {
	if f == FieldNone {
		return true
	}
	for _, rf := range RequiredFields {
		if rf == f {
			return true
		}
	}
	return false
}

type DraftState string

const (
	StateCollecting           DraftState = "collecting"
	StateConflictPending      DraftState = "conflict_pending"
	StateAwaitingConfirmation DraftState = "awaiting_confirmation"
	StateTerminated           DraftState = "terminated"
)

// BookingDraft is the in-progress booking of one conversation.
// An empty string means the field has not been answered yet.
type BookingDraft struct {
	SessionID string `json:"session_id"`

	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Specialty string `json:"doctor_or_specialty,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`

	CurrentField   Field    `json:"current_field,omitempty"`
	SlotConflict   bool     `json:"slot_conflict"`
	PendingTime    string   `json:"pending_time,omitempty"`
	SuggestedSlots []string `json:"suggested_slots,omitempty"`
	Confirmed      bool     `json:"confirmed"`
	Active         bool     `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewBookingDraft(sessionID string, now time.Time) *BookingDraft {
	return &BookingDraft{
		SessionID: sessionID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (d *BookingDraft) Value(f Field) string {
	switch f {
	case FieldName:
		return d.Name
	case FieldEmail:
		return d.Email
	case FieldPhone:
		return d.Phone
	case FieldSpecialty:
		return d.Specialty
	case FieldDate:
		return d.Date
	case FieldTime:
		return d.Time
	}
	return ""
}

func (d *BookingDraft) Set(f Field, value string) {
	switch f {
	case FieldName:
		d.Name = value
	case FieldEmail:
		d.Email = value
	case FieldPhone:
		d.Phone = value
	case FieldSpecialty:
		d.Specialty = value
	case FieldDate:
		d.Date = value
	case FieldTime:
		d.Time = value
	}
}

// NextMissing returns the first unanswered field in collection order, or FieldNone.
func (d *BookingDraft) NextMissing() Field {
	for _, f := range RequiredFields {
		if d.Value(f) == "" {
			return f
		}
	}
	return FieldNone
}

func (d *BookingDraft) Complete() bool {
	return d.NextMissing() == FieldNone
}

func (d *BookingDraft) State() DraftState {
	switch {
	case !d.Active || d.Confirmed:
		return StateTerminated
	case d.SlotConflict:
		return StateConflictPending
	case d.Complete():
		return StateAwaitingConfirmation
	default:
		return StateCollecting
	}
}

// ClearConflict drops the pending conflict together with its suggestions.
func (d *BookingDraft) ClearConflict() {
	d.SlotConflict = false
	d.PendingTime = ""
	d.SuggestedSlots = nil
}

// Validate checks the invariants a stored draft must hold.
func (d *BookingDraft) Validate() error {
	if d.SessionID == "" {
		return errors.New("draft has no session id")
	}
	if !d.CurrentField.Known() {
		return fmt.Errorf("unknown current field %q", d.CurrentField)
	}
	if d.SlotConflict && d.Confirmed {
		return errors.New("draft is both conflicted and confirmed")
	}
	if d.CurrentField != FieldNone && (d.SlotConflict || d.Complete()) {
		return fmt.Errorf("current field %q set while nothing is being collected", d.CurrentField)
	}
	if d.SlotConflict && d.PendingTime == "" {
		return errors.New("conflict pending without a proposed time")
	}
	return nil
}
