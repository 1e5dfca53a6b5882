// Package handlers holds the admin HTTP endpoints: read access to leads and
// bookings, plus a test-send endpoint for verifying channel credentials.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/consigliere-ai/consigliere/internal/bookings"
	"github.com/consigliere-ai/consigliere/internal/leads"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

// TextSender sends a plain text message to a channel-specific recipient.
type TextSender interface {
	SendText(ctx context.Context, to, text string) error
}

// Admin serves the admin API.
type Admin struct {
	leads    leads.Repository
	bookings bookings.Repository
	senders  map[string]TextSender
	logger   *logging.Logger
}

// NewAdmin creates the admin handler set. senders maps channel name to a
// sender used by the test-send endpoint; nil entries are tolerated.
func NewAdmin(leadRepo leads.Repository, bookingRepo bookings.Repository, senders map[string]TextSender, logger *logging.Logger) *Admin {
	if logger == nil {
		logger = logging.Default()
	}
	return &Admin{
		leads:    leadRepo,
		bookings: bookingRepo,
		senders:  senders,
		logger:   logger,
	}
}

// ListLeads returns all leads ordered by most recent activity.
func (a *Admin) ListLeads(w http.ResponseWriter, r *http.Request) {
	list, err := a.leads.List(r.Context())
	if err != nil {
		a.logger.Error("admin list leads failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"leads": list, "count": len(list)})
}

// ListBookings returns all bookings, newest first.
func (a *Admin) ListBookings(w http.ResponseWriter, r *http.Request) {
	list, err := a.bookings.List(r.Context())
	if err != nil {
		a.logger.Error("admin list bookings failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"bookings": list, "count": len(list)})
}

type testSendRequest struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Text    string `json:"text"`
}

// TestSend sends a one-off message through a channel's sender so operators
// can verify credentials without a live conversation.
func (a *Admin) TestSend(w http.ResponseWriter, r *http.Request) {
	var req testSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.To == "" || req.Text == "" {
		http.Error(w, "to and text are required", http.StatusBadRequest)
		return
	}

	sender, ok := a.senders[req.Channel]
	if !ok || sender == nil {
		http.Error(w, "unknown or unconfigured channel", http.StatusBadRequest)
		return
	}
	if err := sender.SendText(r.Context(), req.To, req.Text); err != nil {
		a.logger.Error("admin test send failed", "channel", req.Channel, "error", err)
		http.Error(w, "send failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"status": "sent"})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
	}
}
