package leads

import "strings"

// buyingSignals each contribute +10 when present in the recent window.
var buyingSignals = []string{
	"buy", "purchase", "viewing", "schedule", "interested", "price",
	"budget", "loan", "approve", "condo", "property", "apartment",
}

// urgencySignals each contribute +15 when present in the recent window.
var urgencySignals = []string{
	"now", "immediately", "urgent", "asap", "this week", "ready to",
}

const (
	baseScore    = 20
	recentWindow = 5
	maxScore     = 100
)

// Score computes the engagement score for a message history, clamped to
// [0,100]. Any engagement earns the base score; volume bonuses do not stack;
// each distinct signal keyword in the last five messages counts once.
func Score(history []Message) int {
	if len(history) == 0 {
		return 0
	}

	score := baseScore

	switch n := len(history); {
	case n > 10:
		score += 25
	case n > 5:
		score += 15
	case n > 2:
		score += 10
	}

	start := len(history) - recentWindow
	if start < 0 {
		start = 0
	}
	var recent strings.Builder
	for _, msg := range history[start:] {
		recent.WriteString(strings.ToLower(msg.Text))
		recent.WriteString(" ")
	}
	window := recent.String()

	for _, signal := range buyingSignals {
		if strings.Contains(window, signal) {
			score += 10
		}
	}
	for _, signal := range urgencySignals {
		if strings.Contains(window, signal) {
			score += 15
		}
	}

	if score > maxScore {
		return maxScore
	}
	return score
}

// TierFor maps a score to its priority tier.
func TierFor(score int) Tier {
	switch {
	case score >= 70:
		return TierHot
	case score >= 40:
		return TierWarm
	default:
		return TierCold
	}
}
