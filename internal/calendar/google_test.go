package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/consigliere-ai/consigliere/internal/bookings"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

func newTestScheduler(t *testing.T, handler http.Handler) *GoogleScheduler {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gcal.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(srv.URL),
	)
	require.NoError(t, err)

	sgt := time.FixedZone("SGT", 8*3600)
	return newGoogleScheduler(svc, "primary", "agent@example.com", sgt, logging.Default())
}

func testBooking() *bookings.Booking {
	return &bookings.Booking{
		ID:       "bk-1",
		Property: "Bedok Resale Condo",
		Name:     "John Tan",
		Phone:    "6591234567",
		Email:    "john@example.com",
		Date:     "2026-08-30",
		Time:     "14:00",
	}
}

func TestCreateViewing(t *testing.T) {
	var gotEvent gcal.Event
	sched := newTestScheduler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEvent))
		json.NewEncoder(w).Encode(gcal.Event{
			Id:       "evt-9",
			HtmlLink: "https://calendar.google.com/event?eid=evt-9",
		})
	}))

	eventID, link, err := sched.CreateViewing(context.Background(), testBooking())
	require.NoError(t, err)
	assert.Equal(t, "evt-9", eventID)
	assert.Contains(t, link, "evt-9")

	assert.Equal(t, "Property Viewing - John Tan", gotEvent.Summary)
	assert.Contains(t, gotEvent.Description, "6591234567")
	assert.Contains(t, gotEvent.Description, "Bedok Resale Condo")
	// One hour slot anchored in the display timezone.
	assert.Equal(t, "2026-08-30T14:00:00+08:00", gotEvent.Start.DateTime)
	assert.Equal(t, "2026-08-30T15:00:00+08:00", gotEvent.End.DateTime)
	require.Len(t, gotEvent.Attendees, 2)
}

func TestUpdateViewingPrefersEventID(t *testing.T) {
	var patchedPath string
	sched := newTestScheduler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		patchedPath = r.URL.Path
		json.NewEncoder(w).Encode(gcal.Event{Id: "evt-9"})
	}))

	b := testBooking()
	b.Date = "2026-09-02"
	b.Time = "10:00"
	err := sched.UpdateViewing(context.Background(), "evt-9", b.Phone, b)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(patchedPath, "/events/evt-9"), patchedPath)
}

func TestCancelViewingFallsBackToPhoneSearch(t *testing.T) {
	var deletedPath string
	sched := newTestScheduler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "6591234567", r.URL.Query().Get("q"))
			json.NewEncoder(w).Encode(gcal.Events{Items: []*gcal.Event{
				{Id: "evt-other", Description: "Client: Someone Else\nPhone: 6598765432"},
				{Id: "evt-match", Description: "Client: John Tan\nPhone: 6591234567"},
			}})
		case http.MethodDelete:
			deletedPath = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}))

	err := sched.CancelViewing(context.Background(), "", "6591234567")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(deletedPath, "/events/evt-match"), deletedPath)
}

func TestCancelViewingNoIdentifier(t *testing.T) {
	sched := newTestScheduler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	err := sched.CancelViewing(context.Background(), "", "")
	assert.Error(t, err)
}
