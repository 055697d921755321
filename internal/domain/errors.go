package domain

import "errors"

var (
	// ErrSlotTaken is returned by the commit-time check when another booking overlaps the slot.
	ErrSlotTaken     = errors.New("slot already booked")
	ErrInvalidDraft  = errors.New("invalid draft")
	ErrNotFound      = errors.New("not found")
	ErrEmptySession  = errors.New("session id is required")
	ErrEmptyMessage  = errors.New("message is required")
	ErrEmptyDocument = errors.New("document has no text")
)
