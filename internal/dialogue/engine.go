package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/consigliere-ai/consigliere/internal/bookings"
	"github.com/consigliere-ai/consigliere/internal/property"
	"github.com/consigliere-ai/consigliere/internal/timeparse"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

// Inbound is one normalized user turn handed to the engine.
type Inbound struct {
	Channel string
	UserID  string
	Text    string
	// ButtonText is the title of a tapped quick-reply button, if any.
	ButtonText string
}

// Turn is the engine's output for one inbound message.
type Turn struct {
	Reply   string
	Buttons []string
	// Handled is false when the conversation is idle free text and the
	// reply generator owns the turn instead.
	Handled bool
	// Booked is true when this turn completed a booking confirmation.
	Booked bool
}

// Engine is the per-conversation dialogue state machine. It mutates the
// passed State in place; callers persist it after the turn.
type Engine struct {
	catalog   *property.Catalog
	bookings  *bookings.Service
	agentName string
	loc       *time.Location
	logger    *logging.Logger
	now       func() time.Time
}

// NewEngine creates a dialogue engine anchored to the display timezone.
func NewEngine(catalog *property.Catalog, svc *bookings.Service, agentName string, loc *time.Location, logger *logging.Logger) *Engine {
	if svc == nil {
		panic("dialogue: booking service cannot be nil")
	}
	if catalog == nil {
		catalog = property.NewCatalog(nil)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		catalog:   catalog,
		bookings:  svc,
		agentName: agentName,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

var abortWords = map[string]struct{}{
	"cancel":     {},
	"stop":       {},
	"nevermind":  {},
	"never mind": {},
}

// Handle advances the state machine for one turn. Validation failures
// re-enter the same step with a corrective prompt; the step never advances
// on invalid input.
func (e *Engine) Handle(ctx context.Context, st *State, in Inbound) Turn {
	input := strings.TrimSpace(in.ButtonText)
	if input == "" {
		input = strings.TrimSpace(in.Text)
	}
	lower := strings.ToLower(input)

	if st.InFlow() {
		if _, abort := abortWords[lower]; abort {
			st.Reset()
			return Turn{
				Handled: true,
				Reply:   "No worries, I've cleared that. Just message me when you're ready.",
			}
		}
	}

	switch st.Step {
	case StepIdle:
		return e.handleIdle(st, in, lower)
	case StepBookProperty:
		return e.collectProperty(st, input, StepBookName, "Great choice! Could I get your name?")
	case StepBookName:
		return e.collectName(st, input, StepBookPhone, "What's the best number to reach you on?")
	case StepBookPhone:
		return e.collectPhone(st, input, StepBookEmail, "Got it. And your email address?")
	case StepBookEmail:
		return e.collectEmail(st, input)
	case StepBookDate:
		return e.collectDate(st, input, StepBookTime, "What time works for you? (e.g. 2pm, morning)")
	case StepBookTime:
		return e.collectTime(st, input, StepBookConfirm)
	case StepBookConfirm:
		return e.confirmBooking(ctx, st, lower)
	case StepRescheduleProperty:
		return e.collectProperty(st, input, StepRescheduleName, "And the name the booking is under?")
	case StepRescheduleName:
		return e.collectName(st, input, StepRescheduleNewDate, "When would you like to move it to?")
	case StepRescheduleNewDate:
		return e.collectDate(st, input, StepRescheduleNewTime, "And what time?")
	case StepRescheduleNewTime:
		return e.collectTime(st, input, StepRescheduleConfirm)
	case StepRescheduleConfirm:
		return e.confirmReschedule(ctx, st, lower)
	case StepCancelProperty:
		return e.collectProperty(st, input, StepCancelName, "And the name it's booked under?")
	case StepCancelName:
		return e.collectCancelName(st, input)
	case StepCancelConfirm:
		return e.confirmCancel(ctx, st, lower)
	default:
		// Unknown step from an older state blob: recover to idle rather
		// than strand the conversation.
		e.logger.Warn("unknown dialogue step, resetting", "step", string(st.Step))
		st.Reset()
		return Turn{Handled: false}
	}
}

func (e *Engine) handleIdle(st *State, in Inbound, lower string) Turn {
	switch {
	case strings.Contains(lower, "reschedule") || strings.Contains(lower, "change my viewing"):
		st.Step = StepRescheduleProperty
		e.captureIdentityPhone(st, in)
		return Turn{
			Handled: true,
			Reply:   "Sure, which property is your viewing for?",
			Buttons: e.propertyButtons(),
		}
	case strings.Contains(lower, "cancel"):
		st.Step = StepCancelProperty
		e.captureIdentityPhone(st, in)
		return Turn{
			Handled: true,
			Reply:   "Which property's viewing would you like to cancel?",
			Buttons: e.propertyButtons(),
		}
	case strings.Contains(lower, "book") || strings.Contains(lower, "viewing") || strings.Contains(lower, "schedule"):
		st.Step = StepBookProperty
		e.captureIdentityPhone(st, in)
		return Turn{
			Handled: true,
			Reply:   "Let's get you a viewing! Which property are you interested in?\n\n" + e.renderCatalog(),
			Buttons: e.propertyButtons(),
		}
	default:
		return Turn{Handled: false}
	}
}

// captureIdentityPhone seeds the phone slot from the sender identity when the
// channel addresses users by phone number (WhatsApp, Twilio).
func (e *Engine) captureIdentityPhone(st *State, in Inbound) {
	if phone := NormalizePhone(in.UserID); phone != "" {
		st.Set(SlotPhone, phone)
	}
}

func (e *Engine) collectProperty(st *State, input string, next Step, prompt string) Turn {
	// Channels without buttons render listings as a numbered menu, so a bare
	// number picks by position.
	if n, err := strconv.Atoi(strings.TrimSpace(input)); err == nil {
		if listings := e.catalog.Listings(); n >= 1 && n <= len(listings) {
			st.Set(SlotProperty, listings[n-1].Name)
			st.Step = next
			return Turn{Handled: true, Reply: prompt}
		}
	}

	m := e.catalog.Match(input)
	switch m.Kind {
	case property.MatchExact, property.MatchConfident:
		st.Set(SlotProperty, m.Listing.Name)
		st.Step = next
		return Turn{Handled: true, Reply: prompt}
	case property.MatchAmbiguous:
		names := make([]string, 0, len(m.Candidates))
		for _, c := range m.Candidates {
			names = append(names, c.Name)
		}
		return Turn{
			Handled: true,
			Reply:   "A few listings match that. Which one do you mean?",
			Buttons: names,
		}
	default:
		return Turn{
			Handled: true,
			Reply:   "Hmm, I couldn't find that one. Here's what we have:\n\n" + e.renderCatalog(),
			Buttons: e.propertyButtons(),
		}
	}
}

func (e *Engine) collectName(st *State, input string, next Step, prompt string) Turn {
	if !ValidName(input) {
		return Turn{Handled: true, Reply: "Could I get your full name?"}
	}
	st.Set(SlotName, strings.TrimSpace(input))
	st.Step = next
	return Turn{Handled: true, Reply: prompt}
}

func (e *Engine) collectPhone(st *State, input string, next Step, prompt string) Turn {
	phone := NormalizePhone(input)
	if phone == "" {
		return Turn{Handled: true, Reply: "That number doesn't look right. Could you share it again? (e.g. 91234567)"}
	}
	st.Set(SlotPhone, phone)
	st.Step = next
	return Turn{Handled: true, Reply: prompt}
}

func (e *Engine) collectEmail(st *State, input string) Turn {
	if !ValidEmail(input) {
		return Turn{Handled: true, Reply: "That email doesn't look quite right. Mind checking it?"}
	}
	st.Set(SlotEmail, strings.TrimSpace(input))
	st.Step = StepBookDate
	return Turn{Handled: true, Reply: "When would you like to view? You can say tomorrow, a weekday, or a date like 5 Sep."}
}

func (e *Engine) collectDate(st *State, input string, next Step, prompt string) Turn {
	date, ok := timeparse.ParseDate(input, e.now(), e.loc)
	if !ok {
		return Turn{Handled: true, Reply: "Sorry, I didn't catch that date. Try tomorrow, a weekday, or something like 5 Sep."}
	}
	st.Set(SlotDate, date)
	st.Step = next
	return Turn{Handled: true, Reply: prompt}
}

func (e *Engine) collectTime(st *State, input string, next Step) Turn {
	clock, ok := timeparse.ParseTime(input)
	if !ok {
		return Turn{Handled: true, Reply: "Sorry, I didn't catch the time. Try something like 2pm or 14:30."}
	}
	st.Set(SlotTime, clock)
	st.Step = next

	if next == StepRescheduleConfirm {
		return Turn{
			Handled: true,
			Reply: fmt.Sprintf("Move your %s viewing to %s at %s?",
				st.Get(SlotProperty), st.Get(SlotDate), st.Get(SlotTime)),
			Buttons: []string{"Confirm", "Cancel"},
		}
	}
	return Turn{
		Handled: true,
		Reply:   e.renderBookingSummary(st),
		Buttons: []string{"Confirm", "Edit", "Cancel"},
	}
}

func (e *Engine) confirmBooking(ctx context.Context, st *State, lower string) Turn {
	switch {
	case isConfirm(lower):
		result, err := e.bookings.Confirm(ctx, bookings.Request{
			Property: st.Get(SlotProperty),
			Name:     st.Get(SlotName),
			Phone:    st.Get(SlotPhone),
			Email:    st.Get(SlotEmail),
			Date:     st.Get(SlotDate),
			Time:     st.Get(SlotTime),
		})
		if err != nil {
			e.logger.Error("booking confirm failed", "error", err)
			st.Reset()
			return Turn{Handled: true, Reply: "Something went wrong saving your booking. Could you try again in a bit?"}
		}
		reply := fmt.Sprintf("You're all set! %s on %s at %s. %s will see you there.",
			result.Booking.Property, result.Booking.Date, result.Booking.Time, e.agentName)
		if !result.CalendarSynced {
			reply += "\n\nHeads up: the calendar invite didn't go through, but your booking is confirmed."
		}
		st.Reset()
		return Turn{Handled: true, Booked: true, Reply: reply}
	case isEdit(lower):
		st.Step = StepBookProperty
		return Turn{
			Handled: true,
			Reply:   "No problem, let's go over it again. Which property?",
			Buttons: e.propertyButtons(),
		}
	default:
		return Turn{
			Handled: true,
			Reply:   e.renderBookingSummary(st),
			Buttons: []string{"Confirm", "Edit", "Cancel"},
		}
	}
}

func (e *Engine) confirmReschedule(ctx context.Context, st *State, lower string) Turn {
	if !isConfirm(lower) {
		return Turn{
			Handled: true,
			Reply: fmt.Sprintf("Move your %s viewing to %s at %s?",
				st.Get(SlotProperty), st.Get(SlotDate), st.Get(SlotTime)),
			Buttons: []string{"Confirm", "Cancel"},
		}
	}

	result, err := e.bookings.Reschedule(ctx, bookings.Request{
		Property: st.Get(SlotProperty),
		Name:     st.Get(SlotName),
		Phone:    st.Get(SlotPhone),
		Date:     st.Get(SlotDate),
		Time:     st.Get(SlotTime),
	})
	st.Reset()
	if err != nil {
		if errors.Is(err, bookings.ErrBookingNotFound) {
			return Turn{Handled: true, Reply: "I couldn't find a confirmed viewing under your details. Want to book a fresh one instead?"}
		}
		e.logger.Error("reschedule failed", "error", err)
		return Turn{Handled: true, Reply: "Something went wrong moving your booking. Could you try again in a bit?"}
	}

	reply := fmt.Sprintf("Done! Your %s viewing is now on %s at %s.",
		result.Booking.Property, result.Booking.Date, result.Booking.Time)
	if !result.CalendarSynced {
		reply += "\n\nHeads up: the calendar didn't update, but your new slot is locked in with us."
	}
	return Turn{Handled: true, Reply: reply}
}

func (e *Engine) collectCancelName(st *State, input string) Turn {
	if !ValidName(input) {
		return Turn{Handled: true, Reply: "Could I get your full name?"}
	}
	st.Set(SlotName, strings.TrimSpace(input))
	st.Step = StepCancelConfirm
	return Turn{
		Handled: true,
		Reply: fmt.Sprintf("Cancel your %s viewing for %s?",
			st.Get(SlotProperty), st.Get(SlotName)),
		Buttons: []string{"Yes, cancel it", "Keep it"},
	}
}

func (e *Engine) confirmCancel(ctx context.Context, st *State, lower string) Turn {
	switch {
	case isConfirm(lower):
		result, err := e.bookings.Cancel(ctx, st.Get(SlotPhone), st.Get(SlotProperty), st.Get(SlotName))
		st.Reset()
		if err != nil {
			if errors.Is(err, bookings.ErrBookingNotFound) {
				return Turn{Handled: true, Reply: "I couldn't find a confirmed viewing under your details, so there's nothing to cancel."}
			}
			e.logger.Error("cancel failed", "error", err)
			return Turn{Handled: true, Reply: "Something went wrong cancelling your booking. Could you try again in a bit?"}
		}
		reply := fmt.Sprintf("Done, your %s viewing is cancelled. Message me anytime to rebook.", result.Booking.Property)
		if !result.CalendarSynced {
			reply += "\n\nHeads up: the calendar entry may still show until it syncs."
		}
		return Turn{Handled: true, Reply: reply}
	case strings.Contains(lower, "keep") || strings.HasPrefix(lower, "no"):
		st.Reset()
		return Turn{Handled: true, Reply: "No changes made. Your viewing stays as planned."}
	default:
		return Turn{
			Handled: true,
			Reply: fmt.Sprintf("Cancel your %s viewing for %s?",
				st.Get(SlotProperty), st.Get(SlotName)),
			Buttons: []string{"Yes, cancel it", "Keep it"},
		}
	}
}

func (e *Engine) renderBookingSummary(st *State) string {
	return fmt.Sprintf(
		"Here's your viewing summary:\n\n%s\n%s\n%s\n%s\n%s at %s\n\nShall I confirm?",
		st.Get(SlotProperty), st.Get(SlotName), st.Get(SlotPhone),
		st.Get(SlotEmail), st.Get(SlotDate), st.Get(SlotTime),
	)
}

func (e *Engine) renderCatalog() string {
	var b strings.Builder
	for i, l := range e.catalog.Listings() {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, l.Name, l.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) propertyButtons() []string {
	names := e.catalog.Names()
	if len(names) > 3 {
		names = names[:3]
	}
	return names
}

func isConfirm(lower string) bool {
	switch {
	case strings.HasPrefix(lower, "confirm"),
		strings.HasPrefix(lower, "yes"),
		strings.HasPrefix(lower, "yep"),
		strings.HasPrefix(lower, "yeah"),
		lower == "ok", lower == "okay", lower == "sure":
		return true
	case strings.Contains(lower, "looks good"), strings.Contains(lower, "sounds good"):
		return true
	default:
		return false
	}
}

func isEdit(lower string) bool {
	return strings.HasPrefix(lower, "edit") || strings.HasPrefix(lower, "change")
}
