package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/consigliere-ai/consigliere/internal/assistant"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

// TurnProcessor runs one conversation turn.
type TurnProcessor interface {
	Handle(ctx context.Context, in assistant.InboundMessage) (assistant.OutboundReply, error)
}

// webhookEvent mirrors the Cloud API webhook envelope.
type webhookEvent struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

// WebhookHandler handles Meta webhook verification and inbound messages.
type WebhookHandler struct {
	verifyToken string
	processor   TurnProcessor
	client      *Client
	logger      *logging.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(verifyToken string, processor TurnProcessor, client *Client, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		processor:   processor,
		client:      client,
		logger:      logger,
	}
}

// HandleVerification handles the GET webhook verification challenge from Meta.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook events. Meta is always acked with 200;
// failures are logged and the message dropped rather than retried forever.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("whatsapp webhook panic recovered", "panic", rec)
		}
	}()

	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.logger.Warn("whatsapp webhook decode failed", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusOK)

	ctx := context.WithoutCancel(r.Context())
	for _, in := range extractMessages(event) {
		h.process(ctx, in)
	}
}

func (h *WebhookHandler) process(ctx context.Context, in assistant.InboundMessage) {
	if h.client != nil && in.MessageID != "" {
		if err := h.client.MarkRead(ctx, in.MessageID); err != nil {
			h.logger.Warn("whatsapp mark-read failed", "message_id", in.MessageID, "error", err)
		}
	}

	out, err := h.processor.Handle(ctx, in)
	if err != nil {
		h.logger.Error("whatsapp turn failed", "user_id", in.UserID, "error", err)
		return
	}
	if out.Text == "" || h.client == nil {
		return
	}
	if err := h.client.SendReply(ctx, in.UserID, out); err != nil {
		h.logger.Error("whatsapp reply send failed", "user_id", in.UserID, "error", err)
	}
}

func extractMessages(event webhookEvent) []assistant.InboundMessage {
	var out []assistant.InboundMessage
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				in := assistant.InboundMessage{
					Channel:    assistant.ChannelWhatsApp,
					UserID:     m.From,
					MessageID:  m.ID,
					ReceivedAt: parseTimestamp(m.Timestamp),
				}
				switch {
				case m.Text != nil:
					in.Text = m.Text.Body
				case m.Interactive != nil && m.Interactive.ButtonReply != nil:
					in.ButtonText = m.Interactive.ButtonReply.Title
				default:
					continue
				}
				out = append(out, in)
			}
		}
	}
	return out
}

func parseTimestamp(ts string) time.Time {
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(secs, 0)
}
