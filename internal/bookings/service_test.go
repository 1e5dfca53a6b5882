package bookings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consigliere-ai/consigliere/pkg/logging"
)

type stubScheduler struct {
	createErr   error
	updateErr   error
	cancelErr   error
	lastEventID string
	lastPhone   string
}

func (s *stubScheduler) CreateViewing(ctx context.Context, b *Booking) (string, string, error) {
	if s.createErr != nil {
		return "", "", s.createErr
	}
	return "evt-123", "https://calendar.example/evt-123", nil
}

func (s *stubScheduler) UpdateViewing(ctx context.Context, eventID, phone string, b *Booking) error {
	s.lastEventID = eventID
	s.lastPhone = phone
	return s.updateErr
}

func (s *stubScheduler) CancelViewing(ctx context.Context, eventID, phone string) error {
	s.lastEventID = eventID
	s.lastPhone = phone
	return s.cancelErr
}

type stubNotifier struct {
	confirmed   int
	rescheduled int
	cancelled   int
}

func (n *stubNotifier) BookingConfirmed(ctx context.Context, b *Booking)   { n.confirmed++ }
func (n *stubNotifier) BookingRescheduled(ctx context.Context, b *Booking) { n.rescheduled++ }
func (n *stubNotifier) BookingCancelled(ctx context.Context, b *Booking)   { n.cancelled++ }

func validRequest() Request {
	return Request{
		Property: "Bedok Resale Condo",
		Name:     "John Tan",
		Phone:    "6591234567",
		Email:    "john@example.com",
		Date:     "2026-08-30",
		Time:     "14:00",
	}
}

func TestServiceConfirm(t *testing.T) {
	repo := NewInMemoryRepository()
	notifier := &stubNotifier{}
	svc := NewService(repo, &stubScheduler{}, notifier, logging.Default())

	result, err := svc.Confirm(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, result.CalendarSynced)
	assert.NotEmpty(t, result.Booking.ID)
	assert.Equal(t, "evt-123", result.Booking.CalendarEventID)
	assert.Equal(t, StatusConfirmed, result.Booking.Status)
	assert.Equal(t, 1, notifier.confirmed)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestServiceConfirmRejectsMissingFields(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil, nil, logging.Default())

	req := validRequest()
	req.Phone = ""
	_, err := svc.Confirm(context.Background(), req)
	assert.ErrorIs(t, err, ErrIncompleteRequest)

	// Email is optional.
	req = validRequest()
	req.Email = ""
	_, err = svc.Confirm(context.Background(), req)
	assert.NoError(t, err)
}

func TestServiceConfirmKeepsBookingOnCalendarFailure(t *testing.T) {
	repo := NewInMemoryRepository()
	sched := &stubScheduler{createErr: errors.New("calendar unavailable")}
	svc := NewService(repo, sched, nil, logging.Default())

	result, err := svc.Confirm(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, result.CalendarSynced)
	assert.Empty(t, result.Booking.CalendarEventID)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusConfirmed, list[0].Status)
}

func TestServiceRescheduleUsesEventID(t *testing.T) {
	repo := NewInMemoryRepository()
	sched := &stubScheduler{}
	notifier := &stubNotifier{}
	svc := NewService(repo, sched, notifier, logging.Default())

	_, err := svc.Confirm(context.Background(), validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.Date = "2026-09-02"
	req.Time = "10:00"
	result, err := svc.Reschedule(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.CalendarSynced)
	assert.Equal(t, "evt-123", sched.lastEventID)
	assert.Equal(t, "2026-09-02", result.Booking.Date)
	assert.Equal(t, "10:00", result.Booking.Time)
	assert.Equal(t, 1, notifier.rescheduled)
}

func TestServiceRescheduleUnknownBooking(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil, nil, logging.Default())

	_, err := svc.Reschedule(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestServiceCancel(t *testing.T) {
	repo := NewInMemoryRepository()
	sched := &stubScheduler{}
	notifier := &stubNotifier{}
	svc := NewService(repo, sched, notifier, logging.Default())

	_, err := svc.Confirm(context.Background(), validRequest())
	require.NoError(t, err)

	result, err := svc.Cancel(context.Background(), "6591234567", "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Booking.Status)
	assert.Equal(t, "evt-123", sched.lastEventID)
	assert.Equal(t, 1, notifier.cancelled)

	// A cancelled booking is no longer active.
	_, err = svc.Cancel(context.Background(), "6591234567", "", "")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestRepositoryFindActiveFallsBackToNameAndProperty(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, nil, nil, logging.Default())

	_, err := svc.Confirm(context.Background(), validRequest())
	require.NoError(t, err)

	// Unknown phone, matching name and property.
	b, err := repo.FindActive(context.Background(), "", "bedok resale condo", "john tan")
	require.NoError(t, err)
	assert.Equal(t, "Bedok Resale Condo", b.Property)

	// Name alone is not enough.
	_, err = repo.FindActive(context.Background(), "", "", "john tan")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestServiceCalendarFailureNeverFailsCancel(t *testing.T) {
	repo := NewInMemoryRepository()
	sched := &stubScheduler{cancelErr: errors.New("calendar unavailable")}
	svc := NewService(repo, sched, nil, logging.Default())

	_, err := svc.Confirm(context.Background(), validRequest())
	require.NoError(t, err)

	result, err := svc.Cancel(context.Background(), "6591234567", "", "")
	require.NoError(t, err)
	assert.False(t, result.CalendarSynced)
	assert.Equal(t, StatusCancelled, result.Booking.Status)
}
