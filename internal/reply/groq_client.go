package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/consigliere-ai/consigliere/internal/dialogue"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

var groqTracer = otel.Tracer("consigliere.internal.reply.groq")

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqLLMClient implements LLMClient against Groq's OpenAI-compatible chat
// completions API.
type GroqLLMClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewGroqLLMClient builds a client with sane defaults.
func NewGroqLLMClient(apiKey, model string, logger *logging.Logger) (*GroqLLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("reply: groq api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "llama-3.3-70b-versatile"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GroqLLMClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGroqBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}, nil
}

type groqChatRequest struct {
	Model       string                `json:"model"`
	Messages    []dialogue.ChatMessage `json:"messages"`
	MaxTokens   int32                 `json:"max_tokens,omitempty"`
	Temperature float32               `json:"temperature,omitempty"`
	TopP        float32               `json:"top_p,omitempty"`
}

type groqChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int32 `json:"prompt_tokens"`
		CompletionTokens int32 `json:"completion_tokens"`
		TotalTokens      int32 `json:"total_tokens"`
	} `json:"usage"`
}

type groqAPIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends a chat completion request, retrying transient failures.
func (c *GroqLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(req.Messages) == 0 {
		return LLMResponse{}, errors.New("reply: groq requires at least one message")
	}

	ctx, span := groqTracer.Start(ctx, "reply.groq.complete")
	defer span.End()

	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]dialogue.ChatMessage, 0, len(req.System)+len(req.Messages))
	for _, sys := range req.System {
		if strings.TrimSpace(sys) == "" {
			continue
		}
		messages = append(messages, dialogue.ChatMessage{Role: dialogue.ChatRoleSystem, Content: sys})
	}
	messages = append(messages, req.Messages...)

	payload, err := json.Marshal(groqChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		return LLMResponse{}, fmt.Errorf("reply: groq request marshal failed: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			lastErr = err
			break
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return parseGroqResponse(body)
			}
			lastErr = fmt.Errorf("reply: groq completion failed: %s", formatGroqError(resp.StatusCode, body))
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
	return LLMResponse{}, lastErr
}

func parseGroqResponse(body []byte) (LLMResponse, error) {
	var parsed groqChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return LLMResponse{}, fmt.Errorf("reply: groq response decode failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return LLMResponse{}, errors.New("reply: groq returned no choices")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return LLMResponse{}, errors.New("reply: groq returned empty content")
	}
	return LLMResponse{
		Text:       text,
		StopReason: parsed.Choices[0].FinishReason,
		Usage: TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
	}, nil
}

func formatGroqError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed groqAPIError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Sprintf("status %d: %s", status, parsed.Error.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
