// Package whatsapp adapts the Meta WhatsApp Business Cloud API to the
// assistant pipeline.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/consigliere-ai/consigliere/internal/assistant"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v18.0"
	defaultHTTPTimeout  = 10 * time.Second

	// Interactive reply buttons allow at most 3 entries with 20-char titles.
	maxButtons     = 3
	maxButtonTitle = 20
)

// Client sends messages via the WhatsApp Business Cloud API.
type Client struct {
	phoneNumberID string
	accessToken   string
	graphAPIBase  string
	httpClient    *http.Client
	logger        *logging.Logger
}

// NewClient creates a new Cloud API client.
func NewClient(phoneNumberID, accessToken string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		graphAPIBase:  defaultGraphAPIBase,
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
		logger:        logger,
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *Client) SetGraphAPIBase(base string) {
	c.graphAPIBase = base
}

type textPayload struct {
	Body string `json:"body"`
}

type interactiveButton struct {
	Type  string `json:"type"`
	Reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reply"`
}

type interactivePayload struct {
	Type string `json:"type"`
	Body struct {
		Text string `json:"text"`
	} `json:"body"`
	Action struct {
		Buttons []interactiveButton `json:"buttons"`
	} `json:"action"`
}

type sendRequest struct {
	MessagingProduct string              `json:"messaging_product"`
	To               string              `json:"to,omitempty"`
	Type             string              `json:"type,omitempty"`
	Text             *textPayload        `json:"text,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
	Status           string              `json:"status,omitempty"`
	MessageID        string              `json:"message_id,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	return c.send(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: text},
	})
}

// SendButtons sends an interactive reply-button message. Titles are truncated
// to the API's 20-character limit and at most three buttons are sent.
func (c *Client) SendButtons(ctx context.Context, to, text string, buttons []string) error {
	if len(buttons) > maxButtons {
		buttons = buttons[:maxButtons]
	}
	interactive := &interactivePayload{Type: "button"}
	interactive.Body.Text = text
	for i, title := range buttons {
		var btn interactiveButton
		btn.Type = "reply"
		btn.Reply.ID = fmt.Sprintf("btn_%d", i)
		if len(title) > maxButtonTitle {
			title = title[:maxButtonTitle]
		}
		btn.Reply.Title = title
		interactive.Action.Buttons = append(interactive.Action.Buttons, btn)
	}
	return c.send(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      interactive,
	})
}

// SendReply delivers an assistant reply, choosing buttons when present.
func (c *Client) SendReply(ctx context.Context, to string, out assistant.OutboundReply) error {
	if out.Text == "" {
		return nil
	}
	if len(out.Buttons) > 0 {
		return c.SendButtons(ctx, to, out.Text, out.Buttons)
	}
	return c.SendText(ctx, to, out.Text)
}

// MarkRead marks an inbound message as read.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	return c.send(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	})
}

func (c *Client) send(ctx context.Context, req sendRequest) error {
	if c.accessToken == "" || c.phoneNumberID == "" {
		return errors.New("whatsapp: credentials missing")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.graphAPIBase, c.phoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("whatsapp: read response: %w", err)
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("whatsapp: unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("whatsapp: API error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whatsapp: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
