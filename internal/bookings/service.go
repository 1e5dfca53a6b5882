package bookings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/consigliere-ai/consigliere/pkg/logging"
)

// Scheduler is the external calendar collaborator.
type Scheduler interface {
	// CreateViewing books the event and returns its id and share link.
	CreateViewing(ctx context.Context, b *Booking) (eventID, link string, err error)
	// UpdateViewing moves the event. The event id is preferred; the phone
	// is a best-effort fallback for events created before ids were kept.
	UpdateViewing(ctx context.Context, eventID, phone string, b *Booking) error
	// CancelViewing removes the event.
	CancelViewing(ctx context.Context, eventID, phone string) error
}

// Notifier tells the human agent about booking activity. Implementations
// must be fire-and-forget: they log failures and never return them.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *Booking)
	BookingRescheduled(ctx context.Context, b *Booking)
	BookingCancelled(ctx context.Context, b *Booking)
}

// Result reports the outcome of a booking operation. CalendarSynced is false
// when the external calendar call failed; the local record is still
// authoritative and the caller should append a soft warning to its reply.
type Result struct {
	Booking        *Booking
	CalendarSynced bool
}

// Service owns booking records and their calendar/notification side effects.
type Service struct {
	repo      Repository
	scheduler Scheduler
	notifier  Notifier
	logger    *logging.Logger
	tracer    trace.Tracer
}

// NewService creates a booking service. Scheduler and notifier may be nil.
func NewService(repo Repository, scheduler Scheduler, notifier Notifier, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		scheduler: scheduler,
		notifier:  notifier,
		logger:    logger,
		tracer:    otel.Tracer("consigliere.internal.bookings"),
	}
}

// Confirm records exactly one booking for a completed flow and runs the
// calendar and notification side effects. A calendar failure degrades to a
// successful booking with CalendarSynced=false; it never fails the turn.
func (s *Service) Confirm(ctx context.Context, req Request) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.confirm")
	defer span.End()

	if req.Property == "" || req.Name == "" || req.Phone == "" || req.Date == "" || req.Time == "" {
		return Result{}, ErrIncompleteRequest
	}

	now := time.Now().UTC()
	booking := &Booking{
		ID:        uuid.New().String(),
		Property:  req.Property,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Date:      req.Date,
		Time:      req.Time,
		Status:    StatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	synced := true
	if s.scheduler != nil {
		eventID, link, err := s.scheduler.CreateViewing(ctx, booking)
		if err != nil {
			span.RecordError(err)
			s.logger.Warn("calendar create failed, booking kept locally",
				"booking_id", booking.ID, "error", err)
			synced = false
		} else {
			booking.CalendarEventID = eventID
			booking.CalendarLink = link
		}
	}

	if err := s.repo.Add(ctx, booking); err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	if s.notifier != nil {
		s.notifier.BookingConfirmed(ctx, booking)
	}

	s.logger.Info("booking confirmed",
		"booking_id", booking.ID,
		"property", booking.Property,
		"date", booking.Date,
		"time", booking.Time,
		"calendar_synced", synced,
	)
	return Result{Booking: booking, CalendarSynced: synced}, nil
}

// Reschedule moves the most recent confirmed booking for the identity to a
// new date and time.
func (s *Service) Reschedule(ctx context.Context, req Request) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.reschedule")
	defer span.End()

	booking, err := s.repo.FindActive(ctx, req.Phone, req.Property, req.Name)
	if err != nil {
		return Result{}, err
	}

	booking.Date = req.Date
	booking.Time = req.Time
	booking.UpdatedAt = time.Now().UTC()

	synced := true
	if s.scheduler != nil {
		if err := s.scheduler.UpdateViewing(ctx, booking.CalendarEventID, booking.Phone, booking); err != nil {
			span.RecordError(err)
			s.logger.Warn("calendar update failed, reschedule kept locally",
				"booking_id", booking.ID, "error", err)
			synced = false
		}
	}

	if err := s.repo.Update(ctx, booking); err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	if s.notifier != nil {
		s.notifier.BookingRescheduled(ctx, booking)
	}

	s.logger.Info("booking rescheduled",
		"booking_id", booking.ID, "date", booking.Date, "time", booking.Time,
		"calendar_synced", synced,
	)
	return Result{Booking: booking, CalendarSynced: synced}, nil
}

// Cancel voids the most recent confirmed booking for the identity.
func (s *Service) Cancel(ctx context.Context, phone, property, name string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "bookings.cancel")
	defer span.End()

	booking, err := s.repo.FindActive(ctx, phone, property, name)
	if err != nil {
		return Result{}, err
	}

	booking.Status = StatusCancelled
	booking.UpdatedAt = time.Now().UTC()

	synced := true
	if s.scheduler != nil {
		if err := s.scheduler.CancelViewing(ctx, booking.CalendarEventID, booking.Phone); err != nil {
			span.RecordError(err)
			s.logger.Warn("calendar delete failed, cancellation kept locally",
				"booking_id", booking.ID, "error", err)
			synced = false
		}
	}

	if err := s.repo.Update(ctx, booking); err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	if s.notifier != nil {
		s.notifier.BookingCancelled(ctx, booking)
	}

	s.logger.Info("booking cancelled", "booking_id", booking.ID, "calendar_synced", synced)
	return Result{Booking: booking, CalendarSynced: synced}, nil
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
