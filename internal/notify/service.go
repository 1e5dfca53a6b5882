// Package notify tells the human agent about booking activity over Telegram
// and email. Every send is best-effort: a notification failure never bubbles
// up into the customer conversation.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/consigliere-ai/consigliere/internal/bookings"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

const sendTimeout = 5 * time.Second

// ChatMessenger sends a plain text message to a chat. The Telegram client
// satisfies this.
type ChatMessenger interface {
	SendText(ctx context.Context, chatID, text string) error
}

// Service implements bookings.Notifier.
type Service struct {
	chat        ChatMessenger
	agentChatID string
	email       EmailSender
	agentEmail  string
	logger      *logging.Logger
}

// NewService creates an agent notification service. Chat and email may each
// be nil; missing channels are skipped.
func NewService(chat ChatMessenger, agentChatID string, email EmailSender, agentEmail string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		chat:        chat,
		agentChatID: agentChatID,
		email:       email,
		agentEmail:  agentEmail,
		logger:      logger,
	}
}

var _ bookings.Notifier = (*Service)(nil)

// BookingConfirmed notifies the agent about a new viewing.
func (s *Service) BookingConfirmed(ctx context.Context, b *bookings.Booking) {
	s.dispatch(ctx, "New viewing booked", fmt.Sprintf(
		"New viewing booked!\n\nProperty: %s\nClient: %s\nPhone: %s\nWhen: %s at %s",
		b.Property, b.Name, b.Phone, b.Date, b.Time,
	))
}

// BookingRescheduled notifies the agent about a moved viewing.
func (s *Service) BookingRescheduled(ctx context.Context, b *bookings.Booking) {
	s.dispatch(ctx, "Viewing rescheduled", fmt.Sprintf(
		"Viewing rescheduled.\n\nProperty: %s\nClient: %s\nPhone: %s\nNew slot: %s at %s",
		b.Property, b.Name, b.Phone, b.Date, b.Time,
	))
}

// BookingCancelled notifies the agent about a cancelled viewing.
func (s *Service) BookingCancelled(ctx context.Context, b *bookings.Booking) {
	s.dispatch(ctx, "Viewing cancelled", fmt.Sprintf(
		"Viewing cancelled.\n\nProperty: %s\nClient: %s\nPhone: %s\nWas: %s at %s",
		b.Property, b.Name, b.Phone, b.Date, b.Time,
	))
}

// dispatch sends the notification over every configured channel with a
// bounded timeout, detached from the request's cancellation.
func (s *Service) dispatch(ctx context.Context, subject, text string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if s.chat != nil && s.agentChatID != "" {
		if err := s.chat.SendText(ctx, s.agentChatID, text); err != nil {
			s.logger.Warn("agent chat notification failed", "error", err)
		}
	}
	if s.email != nil && s.agentEmail != "" {
		err := s.email.Send(ctx, EmailMessage{
			To:      s.agentEmail,
			Subject: subject,
			Body:    text,
		})
		if err != nil {
			s.logger.Warn("agent email notification failed", "error", err)
		}
	}
}
