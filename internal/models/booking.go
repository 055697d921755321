package models

import "time"

// Booking is a persisted appointment joined with its customer.
type Booking struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Specialty  string    `json:"booking_type"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewBookingFromDraft copies the collected answers; date and time stay as entered.
func NewBookingFromDraft(d *BookingDraft) *Booking {
	return &Booking{
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Specialty: d.Specialty,
		Date:      d.Date,
		Time:      d.Time,
		Status:    StatusConfirmed,
	}
}

// BookingFilter narrows the admin listing. Empty fields match everything.
type BookingFilter struct {
	Email string
	Name  string
	Limit int
}
