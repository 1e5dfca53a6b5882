// Package calendar syncs confirmed viewings to the agent's Google Calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/consigliere-ai/consigliere/internal/bookings"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

const viewingDuration = time.Hour

// GoogleScheduler implements bookings.Scheduler on the Google Calendar API.
type GoogleScheduler struct {
	svc        *gcal.Service
	calendarID string
	agentEmail string
	loc        *time.Location
	logger     *logging.Logger
	tracer     trace.Tracer
}

// NewGoogleScheduler builds a scheduler from service account credentials.
func NewGoogleScheduler(ctx context.Context, credentialsJSON []byte, calendarID, agentEmail string, loc *time.Location, logger *logging.Logger) (*GoogleScheduler, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("calendar: google credentials are required")
	}
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create service: %w", err)
	}
	return newGoogleScheduler(svc, calendarID, agentEmail, loc, logger), nil
}

func newGoogleScheduler(svc *gcal.Service, calendarID, agentEmail string, loc *time.Location, logger *logging.Logger) *GoogleScheduler {
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleScheduler{
		svc:        svc,
		calendarID: calendarID,
		agentEmail: agentEmail,
		loc:        loc,
		logger:     logger,
		tracer:     otel.Tracer("consigliere.internal.calendar"),
	}
}

var _ bookings.Scheduler = (*GoogleScheduler)(nil)

// CreateViewing inserts a one-hour viewing event and returns its id and link.
func (s *GoogleScheduler) CreateViewing(ctx context.Context, b *bookings.Booking) (string, string, error) {
	ctx, span := s.tracer.Start(ctx, "calendar.create_viewing")
	defer span.End()

	start, end, err := s.eventWindow(b)
	if err != nil {
		return "", "", err
	}

	event := &gcal.Event{
		Summary:     fmt.Sprintf("Property Viewing - %s", b.Name),
		Description: eventDescription(b),
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 60},
			},
		},
	}
	if s.agentEmail != "" {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: s.agentEmail})
	}
	if b.Email != "" {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: b.Email})
	}

	created, err := s.svc.Events.Insert(s.calendarID, event).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		return "", "", fmt.Errorf("calendar: event insert failed: %w", err)
	}

	s.logger.Info("calendar event created", "event_id", created.Id, "booking_id", b.ID)
	return created.Id, created.HtmlLink, nil
}

// UpdateViewing moves the event to the booking's new date and time.
func (s *GoogleScheduler) UpdateViewing(ctx context.Context, eventID, phone string, b *bookings.Booking) error {
	ctx, span := s.tracer.Start(ctx, "calendar.update_viewing")
	defer span.End()

	eventID, err := s.resolveEventID(ctx, eventID, phone)
	if err != nil {
		span.RecordError(err)
		return err
	}

	start, end, err := s.eventWindow(b)
	if err != nil {
		return err
	}

	patch := &gcal.Event{
		Start: &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:   &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	if _, err := s.svc.Events.Patch(s.calendarID, eventID, patch).SendUpdates("all").Context(ctx).Do(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("calendar: event patch failed: %w", err)
	}

	s.logger.Info("calendar event moved", "event_id", eventID, "booking_id", b.ID)
	return nil
}

// CancelViewing removes the event.
func (s *GoogleScheduler) CancelViewing(ctx context.Context, eventID, phone string) error {
	ctx, span := s.tracer.Start(ctx, "calendar.cancel_viewing")
	defer span.End()

	eventID, err := s.resolveEventID(ctx, eventID, phone)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.svc.Events.Delete(s.calendarID, eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("calendar: event delete failed: %w", err)
	}

	s.logger.Info("calendar event deleted", "event_id", eventID)
	return nil
}

// resolveEventID returns the stored event id, or searches upcoming events by
// phone substring for bookings recorded before event ids were kept.
func (s *GoogleScheduler) resolveEventID(ctx context.Context, eventID, phone string) (string, error) {
	if eventID != "" {
		return eventID, nil
	}
	if phone == "" {
		return "", errors.New("calendar: no event id or phone to locate event")
	}

	list, err := s.svc.Events.List(s.calendarID).
		Q(phone).
		TimeMin(time.Now().In(s.loc).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(10).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("calendar: event search failed: %w", err)
	}

	for _, ev := range list.Items {
		if strings.Contains(ev.Description, phone) {
			return ev.Id, nil
		}
	}
	return "", fmt.Errorf("calendar: no upcoming event found for phone %s", phone)
}

func (s *GoogleScheduler) eventWindow(b *bookings.Booking) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.Time, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("calendar: invalid booking slot %q %q: %w", b.Date, b.Time, err)
	}
	return start, start.Add(viewingDuration), nil
}

func eventDescription(b *bookings.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Client: %s\n", b.Name)
	fmt.Fprintf(&sb, "Phone: %s\n", b.Phone)
	if b.Email != "" {
		fmt.Fprintf(&sb, "Email: %s\n", b.Email)
	}
	fmt.Fprintf(&sb, "Property: %s\n", b.Property)
	sb.WriteString("\nScheduled via Consigliere")
	return sb.String()
}
