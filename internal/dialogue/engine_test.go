package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consigliere-ai/consigliere/internal/bookings"
	"github.com/consigliere-ai/consigliere/internal/property"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

type fakeScheduler struct {
	createErr error
	updateErr error
	cancelErr error
	created   int
	updated   int
	cancelled int
}

func (f *fakeScheduler) CreateViewing(ctx context.Context, b *bookings.Booking) (string, string, error) {
	f.created++
	if f.createErr != nil {
		return "", "", f.createErr
	}
	return "evt-1", "https://calendar.example/evt-1", nil
}

func (f *fakeScheduler) UpdateViewing(ctx context.Context, eventID, phone string, b *bookings.Booking) error {
	f.updated++
	return f.updateErr
}

func (f *fakeScheduler) CancelViewing(ctx context.Context, eventID, phone string) error {
	f.cancelled++
	return f.cancelErr
}

// Saturday afternoon in the display timezone; "tomorrow" is Sunday Aug 30.
func testNow() time.Time {
	sgt := time.FixedZone("SGT", 8*3600)
	return time.Date(2026, 8, 29, 15, 30, 0, 0, sgt)
}

func newTestEngine(t *testing.T, sched bookings.Scheduler) (*Engine, *bookings.InMemoryRepository) {
	t.Helper()
	repo := bookings.NewInMemoryRepository()
	svc := bookings.NewService(repo, sched, nil, logging.Default())
	eng := NewEngine(property.NewCatalog(nil), svc, "Marcus", testNow().Location(), logging.Default())
	eng.now = testNow
	return eng, repo
}

func send(t *testing.T, eng *Engine, st *State, text string) Turn {
	t.Helper()
	return eng.Handle(context.Background(), st, Inbound{Channel: "telegram", UserID: "12345", Text: text})
}

func TestEngineFullBookingFlow(t *testing.T) {
	sched := &fakeScheduler{}
	eng, repo := newTestEngine(t, sched)
	st := NewState()

	turn := send(t, eng, st, "hello there")
	assert.False(t, turn.Handled, "idle free text belongs to the reply generator")

	turn = send(t, eng, st, "I'd like to book a viewing")
	require.True(t, turn.Handled)
	assert.Equal(t, StepBookProperty, st.Step)
	assert.Contains(t, turn.Reply, "Bedok Resale Condo")
	assert.Len(t, turn.Buttons, 3)

	turn = send(t, eng, st, "Bedok")
	require.Equal(t, StepBookName, st.Step)
	assert.Equal(t, "Bedok Resale Condo", st.Get(SlotProperty))

	// Single-character name is rejected and the step does not advance.
	turn = send(t, eng, st, "J")
	assert.Equal(t, StepBookName, st.Step)
	assert.Contains(t, turn.Reply, "full name")

	send(t, eng, st, "John Tan")
	require.Equal(t, StepBookPhone, st.Step)

	turn = send(t, eng, st, "call me maybe")
	assert.Equal(t, StepBookPhone, st.Step)
	assert.Contains(t, turn.Reply, "doesn't look right")

	send(t, eng, st, "91234567")
	require.Equal(t, StepBookEmail, st.Step)
	assert.Equal(t, "6591234567", st.Get(SlotPhone))

	send(t, eng, st, "john@example.com")
	require.Equal(t, StepBookDate, st.Step)

	send(t, eng, st, "tomorrow")
	require.Equal(t, StepBookTime, st.Step)
	assert.Equal(t, "2026-08-30", st.Get(SlotDate))

	turn = send(t, eng, st, "2pm")
	require.Equal(t, StepBookConfirm, st.Step)
	assert.Equal(t, "14:00", st.Get(SlotTime))
	assert.Contains(t, turn.Reply, "John Tan")
	assert.Equal(t, []string{"Confirm", "Edit", "Cancel"}, turn.Buttons)

	turn = send(t, eng, st, "Confirm")
	assert.Equal(t, StepIdle, st.Step)
	assert.Empty(t, st.Data)
	assert.Contains(t, turn.Reply, "You're all set")
	assert.Contains(t, turn.Reply, "Marcus")
	assert.NotContains(t, turn.Reply, "Heads up")

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bookings.StatusConfirmed, list[0].Status)
	assert.Equal(t, "evt-1", list[0].CalendarEventID)
	assert.Equal(t, 1, sched.created)
}

func TestEngineCalendarFailureKeepsBooking(t *testing.T) {
	sched := &fakeScheduler{createErr: errors.New("calendar unavailable")}
	eng, repo := newTestEngine(t, sched)
	st := NewState()

	send(t, eng, st, "book a viewing")
	send(t, eng, st, "Tampines")
	send(t, eng, st, "Mei Lin")
	send(t, eng, st, "81234567")
	send(t, eng, st, "mei@example.com")
	send(t, eng, st, "monday")
	send(t, eng, st, "morning")
	turn := send(t, eng, st, "yes")

	assert.Contains(t, turn.Reply, "You're all set")
	assert.Contains(t, turn.Reply, "Heads up")

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bookings.StatusConfirmed, list[0].Status)
	assert.Empty(t, list[0].CalendarEventID)
}

func TestEngineEditRestartsCollection(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeScheduler{})
	st := NewState()

	send(t, eng, st, "book a viewing")
	send(t, eng, st, "Pasir Ris")
	send(t, eng, st, "Alex Wong")
	send(t, eng, st, "98765432")
	send(t, eng, st, "alex@example.com")
	send(t, eng, st, "friday")
	send(t, eng, st, "evening")
	require.Equal(t, StepBookConfirm, st.Step)

	turn := send(t, eng, st, "Edit")
	assert.Equal(t, StepBookProperty, st.Step)
	assert.NotEmpty(t, turn.Buttons)
	// Collected slots survive the edit.
	assert.Equal(t, "Alex Wong", st.Get(SlotName))
}

func TestEngineAbortMidFlow(t *testing.T) {
	eng, repo := newTestEngine(t, &fakeScheduler{})
	st := NewState()

	send(t, eng, st, "book a viewing")
	send(t, eng, st, "Bedok")
	send(t, eng, st, "John Tan")
	turn := send(t, eng, st, "nevermind")

	assert.Equal(t, StepIdle, st.Step)
	assert.Empty(t, st.Data)
	assert.Contains(t, turn.Reply, "No worries")

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEngineAmbiguousPropertyOffersChoices(t *testing.T) {
	catalog := property.NewCatalog([]property.Listing{
		{Name: "Marina One Residences", Price: "$2.1M"},
		{Name: "Marina Bay Suites", Price: "$2.4M"},
	})
	repo := bookings.NewInMemoryRepository()
	svc := bookings.NewService(repo, nil, nil, logging.Default())
	eng := NewEngine(catalog, svc, "Marcus", testNow().Location(), logging.Default())
	eng.now = testNow
	st := NewState()

	send(t, eng, st, "book a viewing")
	turn := send(t, eng, st, "marina")

	assert.Equal(t, StepBookProperty, st.Step, "ambiguous match must not auto-advance")
	assert.Equal(t, []string{"Marina One Residences", "Marina Bay Suites"}, turn.Buttons)

	send(t, eng, st, "Marina Bay Suites")
	assert.Equal(t, StepBookName, st.Step)
	assert.Equal(t, "Marina Bay Suites", st.Get(SlotProperty))
}

func seedBooking(t *testing.T, eng *Engine) {
	t.Helper()
	st := NewState()
	send(t, eng, st, "book a viewing")
	send(t, eng, st, "Bedok")
	send(t, eng, st, "John Tan")
	send(t, eng, st, "91234567")
	send(t, eng, st, "john@example.com")
	send(t, eng, st, "tomorrow")
	send(t, eng, st, "2pm")
	send(t, eng, st, "confirm")
}

func TestEngineRescheduleFlow(t *testing.T) {
	sched := &fakeScheduler{}
	eng, repo := newTestEngine(t, sched)
	seedBooking(t, eng)

	st := NewState()
	turn := send(t, eng, st, "I need to reschedule my viewing")
	require.True(t, turn.Handled)
	assert.Equal(t, StepRescheduleProperty, st.Step)

	send(t, eng, st, "Bedok")
	send(t, eng, st, "John Tan")
	send(t, eng, st, "wednesday")
	turn = send(t, eng, st, "10am")
	require.Equal(t, StepRescheduleConfirm, st.Step)
	assert.Contains(t, turn.Reply, "2026-09-02")

	turn = send(t, eng, st, "confirm")
	assert.Equal(t, StepIdle, st.Step)
	assert.Contains(t, turn.Reply, "now on 2026-09-02 at 10:00")
	assert.Equal(t, 1, sched.updated)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2026-09-02", list[0].Date)
	assert.Equal(t, "10:00", list[0].Time)
}

func TestEngineRescheduleUnknownBooking(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeScheduler{})
	st := NewState()

	send(t, eng, st, "reschedule please")
	send(t, eng, st, "Bedok")
	send(t, eng, st, "Nobody Here")
	send(t, eng, st, "friday")
	send(t, eng, st, "3pm")
	turn := send(t, eng, st, "confirm")

	assert.Equal(t, StepIdle, st.Step)
	assert.Contains(t, turn.Reply, "couldn't find")
}

func TestEngineCancelFlow(t *testing.T) {
	sched := &fakeScheduler{}
	eng, repo := newTestEngine(t, sched)
	seedBooking(t, eng)

	st := NewState()
	turn := send(t, eng, st, "cancel my viewing")
	require.True(t, turn.Handled)
	assert.Equal(t, StepCancelProperty, st.Step)

	send(t, eng, st, "Bedok")
	turn = send(t, eng, st, "John Tan")
	require.Equal(t, StepCancelConfirm, st.Step)
	assert.Equal(t, []string{"Yes, cancel it", "Keep it"}, turn.Buttons)

	turn = send(t, eng, st, "Yes, cancel it")
	assert.Equal(t, StepIdle, st.Step)
	assert.Contains(t, turn.Reply, "cancelled")
	assert.Equal(t, 1, sched.cancelled)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bookings.StatusCancelled, list[0].Status)
}

func TestEngineCancelKeepsOnDecline(t *testing.T) {
	eng, repo := newTestEngine(t, &fakeScheduler{})
	seedBooking(t, eng)

	st := NewState()
	send(t, eng, st, "cancel my viewing")
	send(t, eng, st, "Bedok")
	send(t, eng, st, "John Tan")
	turn := send(t, eng, st, "Keep it")

	assert.Equal(t, StepIdle, st.Step)
	assert.Contains(t, turn.Reply, "stays as planned")

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bookings.StatusConfirmed, list[0].Status)
}

func TestEngineNumericPropertySelection(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeScheduler{})
	st := NewState()

	send(t, eng, st, "book a viewing")
	send(t, eng, st, "2")
	assert.Equal(t, StepBookName, st.Step)
	assert.Equal(t, "Tampines New Launch", st.Get(SlotProperty))

	// Out-of-range numbers fall through to normal matching.
	st2 := NewState()
	send(t, eng, st2, "book a viewing")
	turn := send(t, eng, st2, "9")
	assert.Equal(t, StepBookProperty, st2.Step)
	assert.Contains(t, turn.Reply, "couldn't find")
}

func TestEnginePhoneSeededFromSenderIdentity(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeScheduler{})
	st := NewState()

	eng.Handle(context.Background(), st, Inbound{
		Channel: "whatsapp",
		UserID:  "whatsapp:+6591234567",
		Text:    "reschedule my viewing",
	})
	assert.Equal(t, "6591234567", st.Get(SlotPhone))
}
