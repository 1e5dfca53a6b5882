package leads

import (
	"fmt"
	"testing"
	"time"
)

func messagesOf(texts ...string) []Message {
	msgs := make([]Message, 0, len(texts))
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i, text := range texts {
		msgs = append(msgs, Message{Text: text, At: at.Add(time.Duration(i) * time.Minute)})
	}
	return msgs
}

func TestScoreEmptyHistory(t *testing.T) {
	if got := Score(nil); got != 0 {
		t.Errorf("Score(nil) = %d; want 0", got)
	}
}

func TestScoreBase(t *testing.T) {
	if got := Score(messagesOf("hello there")); got != 20 {
		t.Errorf("single neutral message = %d; want 20", got)
	}
}

func TestScoreVolumeTiersDoNotStack(t *testing.T) {
	neutral := func(n int) []Message {
		texts := make([]string, n)
		for i := range texts {
			texts[i] = "hello"
		}
		return messagesOf(texts...)
	}

	cases := map[int]int{
		1:  20,
		3:  30,
		6:  35,
		11: 45,
	}
	for count, want := range cases {
		if got := Score(neutral(count)); got != want {
			t.Errorf("%d neutral messages = %d; want %d", count, got, want)
		}
	}
}

func TestScoreKeywordBonuses(t *testing.T) {
	// One buying signal in a single message: 20 + 10.
	if got := Score(messagesOf("what is the price")); got != 30 {
		t.Errorf("buying signal = %d; want 30", got)
	}

	// One urgency signal: 20 + 15.
	if got := Score(messagesOf("asap please")); got != 35 {
		t.Errorf("urgency signal = %d; want 35", got)
	}

	// Distinct signals count once each even when repeated.
	repeated := messagesOf("price price price", "price again")
	if got := Score(repeated); got != 30 {
		t.Errorf("repeated signal = %d; want 30", got)
	}
}

func TestScoreOnlyScansRecentWindow(t *testing.T) {
	history := messagesOf("budget approved", "hi", "hi", "hi", "hi", "hi", "hi")
	// The "budget" signal has scrolled out of the last five messages.
	if got := Score(history); got != 35 {
		t.Errorf("old signal still counted: %d; want 35", got)
	}
}

func TestScoreClampedAt100(t *testing.T) {
	loaded := messagesOf(
		"hi", "hi", "hi", "hi", "hi", "hi", "hi",
		"I want to buy a condo this week, budget approved",
		"ready to purchase the property now",
		"urgent, schedule a viewing asap, interested in the apartment",
		"what is the price, loan approved immediately",
	)
	if got := Score(loaded); got != 100 {
		t.Errorf("loaded history = %d; want clamp at 100", got)
	}
}

func TestScoreMonotonicInMessageCount(t *testing.T) {
	prev := 0
	for n := 1; n <= 15; n++ {
		texts := make([]string, n)
		for i := range texts {
			texts[i] = "looking at the price"
		}
		got := Score(messagesOf(texts...))
		if got < prev {
			t.Fatalf("score decreased at %d messages: %d < %d", n, got, prev)
		}
		if got > 100 {
			t.Fatalf("score above clamp at %d messages: %d", n, got)
		}
		prev = got
	}
}

func TestTierFor(t *testing.T) {
	cases := map[int]Tier{
		0: TierCold, 39: TierCold,
		40: TierWarm, 69: TierWarm,
		70: TierHot, 100: TierHot,
	}
	for score, want := range cases {
		if got := TierFor(score); got != want {
			t.Errorf("TierFor(%d) = %s; want %s", score, got, want)
		}
	}
}

func TestScoreTableExamples(t *testing.T) {
	tests := []struct {
		texts []string
		want  int
	}{
		{[]string{"hello"}, 20},
		{[]string{"hi", "looking for a condo", "budget is 1.5m"}, 20 + 10 + 10 + 10},
	}
	for i, tc := range tests {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			if got := Score(messagesOf(tc.texts...)); got != tc.want {
				t.Errorf("Score = %d; want %d", got, tc.want)
			}
		})
	}
}
