package twiliowa

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/consigliere-ai/consigliere/internal/assistant"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

// TurnProcessor runs one conversation turn.
type TurnProcessor interface {
	Handle(ctx context.Context, in assistant.InboundMessage) (assistant.OutboundReply, error)
}

// WebhookHandler answers Twilio WhatsApp webhooks with synchronous TwiML.
type WebhookHandler struct {
	authToken  string
	webhookURL string
	processor  TurnProcessor
	logger     *logging.Logger
}

// NewWebhookHandler creates a webhook handler. When authToken is empty,
// signature validation is skipped (local development).
func NewWebhookHandler(authToken, webhookURL string, processor TurnProcessor, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		authToken:  authToken,
		webhookURL: webhookURL,
		processor:  processor,
		logger:     logger,
	}
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// HandleInbound handles the POST webhook and replies inside the TwiML body.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("twilio webhook panic recovered", "panic", rec)
		}
	}()

	if h.authToken != "" && !ValidateSignature(r, h.authToken, h.webhookURL) {
		h.logger.Warn("twilio webhook signature rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("twilio webhook form parse failed", "error", err)
		writeTwiML(w, "")
		return
	}

	from := strings.TrimPrefix(r.PostFormValue("From"), "whatsapp:")
	body := r.PostFormValue("Body")
	sid := r.PostFormValue("MessageSid")
	if from == "" || body == "" {
		writeTwiML(w, "")
		return
	}

	out, err := h.processor.Handle(r.Context(), assistant.InboundMessage{
		Channel:    assistant.ChannelTwilio,
		UserID:     from,
		Text:       body,
		MessageID:  sid,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		h.logger.Error("twilio turn failed", "user_id", from, "error", err)
		writeTwiML(w, "")
		return
	}
	writeTwiML(w, renderReply(out))
}

// renderReply folds quick-reply buttons into the message text, since the
// Twilio WhatsApp gateway has no interactive buttons in TwiML.
func renderReply(out assistant.OutboundReply) string {
	if out.Text == "" {
		return ""
	}
	if len(out.Buttons) == 0 {
		return out.Text
	}
	var b strings.Builder
	b.WriteString(out.Text)
	b.WriteString("\n\nReply with one of:")
	for i, btn := range out.Buttons {
		fmt.Fprintf(&b, "\n%d. %s", i+1, btn)
	}
	return b.String()
}

func writeTwiML(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, xml.Header)
	out, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		fmt.Fprint(w, "<Response></Response>")
		return
	}
	w.Write(out)
}
