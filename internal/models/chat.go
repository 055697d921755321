package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Intent string

const (
	IntentBooking Intent = "booking"
	IntentGeneral Intent = "general"
)

// Outcome tells transports what a turn did to the booking flow.
type Outcome string

const (
	OutcomeContinue  Outcome = "continue"
	OutcomeCommitted Outcome = "committed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeAnswered  Outcome = "answered"

	// OutcomeRateLimited means the message was refused without touching the session.
	OutcomeRateLimited Outcome = "rate_limited"
)

type ChatReply struct {
	SessionID string  `json:"session_id"`
	Text      string  `json:"reply"`
	Intent    Intent  `json:"intent"`
	Outcome   Outcome `json:"outcome"`
	BookingID int64   `json:"booking_id,omitempty"`
}
