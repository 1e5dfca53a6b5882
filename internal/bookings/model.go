package bookings

import (
	"errors"
	"time"
)

// Booking is a confirmed viewing appointment.
type Booking struct {
	ID       string `json:"id"`
	Property string `json:"property"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	// Date is an ISO calendar date, Time a 24-hour HH:MM clock time, both
	// in the display timezone.
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status Status `json:"status"`
	// CalendarEventID is recorded at creation so reschedule and cancel can
	// address the exact event instead of searching by phone substring.
	CalendarEventID string    `json:"calendar_event_id,omitempty"`
	CalendarLink    string    `json:"calendar_link,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Status is the booking lifecycle status.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Request carries the slots collected by a completed booking flow.
type Request struct {
	Property string
	Name     string
	Phone    string
	Email    string
	Date     string
	Time     string
}

var (
	// ErrBookingNotFound indicates no booking matched the lookup.
	ErrBookingNotFound = errors.New("bookings: booking not found")
	// ErrIncompleteRequest indicates a required slot was missing.
	ErrIncompleteRequest = errors.New("bookings: required fields missing")
)
