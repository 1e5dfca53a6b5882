package leads

import "time"

// Status is the canonical lead lifecycle status. The priority tier derived
// from the engagement score is tracked separately as Tier.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
)

// Tier is the coarse priority bucket derived from a lead's numeric score.
type Tier string

const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)

// Message is one inbound message attributed to a lead, in arrival order.
type Message struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Lead is the engagement record for one inbound-message-originating identity.
type Lead struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	UserID    string    `json:"user_id"`
	Phone     string    `json:"phone,omitempty"`
	Name      string    `json:"name,omitempty"`
	Status    Status    `json:"status"`
	Score     int       `json:"score"`
	Tier      Tier      `json:"tier"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity returns the store key for a lead, "{channel}:{userID}".
func Identity(channel, userID string) string {
	return channel + ":" + userID
}
