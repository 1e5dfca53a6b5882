// Package dialogue holds the per-conversation state machine that drives the
// structured booking, reschedule, and cancel flows, plus the durable state
// store behind it.
package dialogue

import "time"

// Step is the current stage of a conversation's structured flow.
type Step string

const (
	StepIdle Step = "idle"

	StepBookProperty Step = "book_property"
	StepBookName     Step = "book_name"
	StepBookPhone    Step = "book_phone"
	StepBookEmail    Step = "book_email"
	StepBookDate     Step = "book_date"
	StepBookTime     Step = "book_time"
	StepBookConfirm  Step = "book_confirm"

	StepRescheduleProperty Step = "reschedule_property"
	StepRescheduleName     Step = "reschedule_name"
	StepRescheduleNewDate  Step = "reschedule_new_date"
	StepRescheduleNewTime  Step = "reschedule_new_time"
	StepRescheduleConfirm  Step = "reschedule_confirm"

	StepCancelProperty Step = "cancel_property"
	StepCancelName     Step = "cancel_name"
	StepCancelConfirm  Step = "cancel_confirm"
)

// Slot names collected during a flow.
const (
	SlotProperty = "property"
	SlotName     = "name"
	SlotPhone    = "phone"
	SlotEmail    = "email"
	SlotDate     = "date"
	SlotTime     = "time"
)

// State is the durable dialogue state for one (channel, user) identity.
type State struct {
	Step Step `json:"step"`
	// Data maps slot name to collected value. Slots accumulate within a
	// flow and are cleared on completion or cancellation.
	Data map[string]string `json:"data"`
	// Funnel is the implicit qualification stage used by the reply
	// generator outside the structured flow. It never gates transitions.
	Funnel    string    `json:"funnel,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState returns a fresh idle state.
func NewState() *State {
	return &State{
		Step: StepIdle,
		Data: make(map[string]string),
	}
}

// Reset returns the state to idle and discards collected slots. The funnel
// stage survives so free conversation can resume where it left off.
func (s *State) Reset() {
	s.Step = StepIdle
	s.Data = make(map[string]string)
}

// InFlow reports whether a structured flow owns the turn.
func (s *State) InFlow() bool {
	return s.Step != StepIdle
}

// Set stores a slot value, allocating the map when needed.
func (s *State) Set(slot, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[slot] = value
}

// Get returns a slot value, tolerating a nil map.
func (s *State) Get(slot string) string {
	if s.Data == nil {
		return ""
	}
	return s.Data[slot]
}

// ChatMessage is one transcript entry used for LLM context and the reply
// generator's stage inference.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)
