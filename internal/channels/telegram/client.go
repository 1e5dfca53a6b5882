// Package telegram adapts the Telegram Bot API to the assistant pipeline.
package telegram

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
	defaultAPIBase     = "https://api.telegram.org"
	defaultHTTPTimeout = 10 * time.Second
)

// Client sends messages via the Telegram Bot API.
type Client struct {
	token      string
	apiBase    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a new bot client.
func NewClient(token string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		token:      token,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}
}

// SetAPIBase overrides the API base URL (useful for testing).
func (c *Client) SetAPIBase(base string) {
	c.apiBase = base
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID      string                `json:"chat_id"`
	Text        string                `json:"text"`
	ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// SendText sends a plain text message to a chat.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	return c.call(ctx, "sendMessage", sendMessageRequest{ChatID: chatID, Text: text})
}

// SendReply delivers an assistant reply, attaching quick-reply buttons as an
// inline keyboard when present.
func (c *Client) SendReply(ctx context.Context, chatID string, out assistant.OutboundReply) error {
	if out.Text == "" {
		return nil
	}
	req := sendMessageRequest{ChatID: chatID, Text: out.Text}
	if len(out.Buttons) > 0 {
		markup := &inlineKeyboardMarkup{}
		for _, b := range out.Buttons {
			markup.InlineKeyboard = append(markup.InlineKeyboard,
				[]inlineKeyboardButton{{Text: b, CallbackData: b}})
		}
		req.ReplyMarkup = markup
	}
	return c.call(ctx, "sendMessage", req)
}

// AnswerCallback acknowledges a button tap so the client stops its spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackQueryID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]string{
		"callback_query_id": callbackQueryID,
	})
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	if c.token == "" {
		return errors.New("telegram: bot token missing")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram: read response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("telegram: unmarshal response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram: %s failed: %s", method, parsed.Description)
	}
	return nil
}
