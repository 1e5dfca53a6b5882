package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/consigliere-ai/consigliere/internal/assistant"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

// TurnProcessor runs one conversation turn.
type TurnProcessor interface {
	Handle(ctx context.Context, in assistant.InboundMessage) (assistant.OutboundReply, error)
}

// Update is the Telegram Bot API webhook payload.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		From      struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Date int64  `json:"date"`
		Text string `json:"text"`
	} `json:"message"`
	CallbackQuery *struct {
		ID   string `json:"id"`
		From struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Message *struct {
			Chat struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
		Data string `json:"data"`
	} `json:"callback_query"`
}

// WebhookHandler receives Telegram updates, runs the turn, and sends the
// reply through the bot client. Telegram is always acked with 200; a retry
// storm over one bad update helps nobody.
type WebhookHandler struct {
	processor TurnProcessor
	client    *Client
	logger    *logging.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(processor TurnProcessor, client *Client, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		processor: processor,
		client:    client,
		logger:    logger,
	}
}

// HandleUpdate is the POST webhook endpoint.
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("telegram webhook panic recovered", "panic", rec)
		}
	}()

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("telegram webhook decode failed", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusOK)

	in, callbackID, ok := parseUpdate(update)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if callbackID != "" && h.client != nil {
		if err := h.client.AnswerCallback(ctx, callbackID); err != nil {
			h.logger.Warn("telegram callback ack failed", "error", err)
		}
	}

	out, err := h.processor.Handle(ctx, in)
	if err != nil {
		h.logger.Error("telegram turn failed", "user_id", in.UserID, "error", err)
		return
	}
	if out.Text == "" || h.client == nil {
		return
	}
	if err := h.client.SendReply(ctx, in.UserID, out); err != nil {
		h.logger.Error("telegram reply send failed", "user_id", in.UserID, "error", err)
	}
}

func parseUpdate(update Update) (assistant.InboundMessage, string, bool) {
	switch {
	case update.Message != nil && update.Message.Text != "":
		m := update.Message
		return assistant.InboundMessage{
			Channel:    assistant.ChannelTelegram,
			UserID:     fmt.Sprintf("%d", m.Chat.ID),
			Text:       m.Text,
			MessageID:  fmt.Sprintf("%d", m.MessageID),
			ReceivedAt: time.Unix(m.Date, 0),
		}, "", true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		cq := update.CallbackQuery
		return assistant.InboundMessage{
			Channel:    assistant.ChannelTelegram,
			UserID:     fmt.Sprintf("%d", cq.Message.Chat.ID),
			ButtonText: cq.Data,
			MessageID:  fmt.Sprintf("cb:%s", cq.ID),
			ReceivedAt: time.Now(),
		}, cq.ID, true
	default:
		return assistant.InboundMessage{}, "", false
	}
}
