package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/consigliere-ai/consigliere/internal/bookings"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

type recordingMessenger struct {
	chatID string
	texts  []string
	err    error
}

func (m *recordingMessenger) SendText(ctx context.Context, chatID, text string) error {
	m.chatID = chatID
	m.texts = append(m.texts, text)
	return m.err
}

type recordingEmail struct {
	messages []EmailMessage
	err      error
}

func (e *recordingEmail) Send(ctx context.Context, msg EmailMessage) error {
	e.messages = append(e.messages, msg)
	return e.err
}

func sampleBooking() *bookings.Booking {
	return &bookings.Booking{
		ID:       "bk-1",
		Property: "Bedok Resale Condo",
		Name:     "John Tan",
		Phone:    "6591234567",
		Date:     "2026-08-30",
		Time:     "14:00",
	}
}

func TestNotifierSendsBothChannels(t *testing.T) {
	chat := &recordingMessenger{}
	email := &recordingEmail{}
	svc := NewService(chat, "777", email, "agent@example.com", logging.Default())

	svc.BookingConfirmed(context.Background(), sampleBooking())

	assert.Equal(t, "777", chat.chatID)
	assert.Len(t, chat.texts, 1)
	assert.Contains(t, chat.texts[0], "John Tan")
	assert.Contains(t, chat.texts[0], "2026-08-30")

	assert.Len(t, email.messages, 1)
	assert.Equal(t, "agent@example.com", email.messages[0].To)
	assert.Equal(t, "New viewing booked", email.messages[0].Subject)
}

func TestNotifierSwallowsFailures(t *testing.T) {
	chat := &recordingMessenger{err: errors.New("telegram down")}
	email := &recordingEmail{err: errors.New("sendgrid down")}
	svc := NewService(chat, "777", email, "agent@example.com", logging.Default())

	// Must not panic or propagate anything.
	svc.BookingRescheduled(context.Background(), sampleBooking())
	svc.BookingCancelled(context.Background(), sampleBooking())

	assert.Len(t, chat.texts, 2)
	assert.Len(t, email.messages, 2)
}

func TestNotifierSkipsUnconfiguredChannels(t *testing.T) {
	svc := NewService(nil, "", nil, "", logging.Default())
	svc.BookingConfirmed(context.Background(), sampleBooking())
}
