// Package reply generates the assistant's free-conversation replies: an LLM
// chain steered by a fixed persona prompt, backed by a deterministic keyword
// responder so the assistant always answers even with every provider down.
package reply

import (
	"context"

	"github.com/consigliere-ai/consigliere/internal/dialogue"
)

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []dialogue.ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
