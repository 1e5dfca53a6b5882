// Package assistant is the channel-agnostic core of the conversation
// pipeline: it serializes turns per identity, drops webhook replays, records
// leads, and routes each turn to the dialogue flow or the reply generator.
package assistant

import "time"

// Channel names as used in identities, metrics, and lead records.
const (
	ChannelTelegram = "telegram"
	ChannelWhatsApp = "whatsapp"
	ChannelTwilio   = "twilio-whatsapp"
)

// InboundMessage is one user message normalized by a channel adapter.
type InboundMessage struct {
	Channel string
	// UserID is the provider's stable sender id (chat id or phone number).
	UserID string
	Text   string
	// ButtonText is the title of a tapped quick-reply button, if any.
	ButtonText string
	// MessageID is the provider's message id, used for replay dedupe.
	MessageID  string
	ReceivedAt time.Time
}

// OutboundReply is what the channel adapter should send back. An empty Text
// means nothing should be sent (e.g. a dropped duplicate).
type OutboundReply struct {
	Text    string
	Buttons []string
}
