package twiliowa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/consigliere-ai/consigliere/pkg/logging"
)

var senderTracer = otel.Tracer("consigliere.internal.channels.twiliowa")

const defaultTwilioAPIBase = "https://api.twilio.com"

// Sender posts proactive WhatsApp messages using Twilio's REST API. Webhook
// replies go out as TwiML instead; this is for messages outside a webhook
// exchange.
type Sender struct {
	accountSID string
	authToken  string
	from       string
	apiBase    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewSender builds a sender with sane defaults. from is the WhatsApp-enabled
// Twilio number, with or without the whatsapp: prefix.
func NewSender(accountSID, authToken, from string, logger *logging.Logger) *Sender {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       ensureWhatsAppPrefix(from),
		apiBase:    defaultTwilioAPIBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// SetAPIBase overrides the API base URL (useful for testing).
func (s *Sender) SetAPIBase(base string) {
	s.apiBase = base
}

// SendText dispatches a single WhatsApp message, retrying transient failures.
func (s *Sender) SendText(ctx context.Context, to, body string) error {
	if s.accountSID == "" || s.authToken == "" {
		return errors.New("twiliowa: credentials missing")
	}
	if to == "" {
		return errors.New("twiliowa: to required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("twiliowa: body required")
	}

	ctx, span := senderTracer.Start(ctx, "twiliowa.send")
	defer span.End()

	payload := url.Values{}
	payload.Set("To", ensureWhatsAppPrefix(to))
	payload.Set("From", s.from)
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.apiBase, s.accountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				s.logger.Info("twilio whatsapp message sent", "to", to)
				return nil
			}
			lastErr = fmt.Errorf("twiliowa: send failed: %s", formatAPIError(resp.StatusCode, respBody))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			time.Sleep(time.Duration(200+rand.Intn(300)) * time.Millisecond)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return lastErr
}

func ensureWhatsAppPrefix(number string) string {
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}
	return "whatsapp:" + number
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func formatAPIError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
