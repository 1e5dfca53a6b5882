package reply

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/consigliere-ai/consigliere/internal/dialogue"
	"github.com/consigliere-ai/consigliere/internal/property"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

// Qualification funnel stages tracked in State.Funnel. The funnel is implicit
// conversation progress, separate from the structured booking flow.
const (
	FunnelNew      = "new"
	FunnelBudget   = "budget"
	FunnelLocation = "location"
	FunnelBedrooms = "bedrooms"
	FunnelLaunch   = "launch"
	FunnelViewing  = "viewing"
)

const historyWindow = 6

var digitRe = regexp.MustCompile(`\d`)

// Generator produces the assistant's reply for free conversation. It tries
// the LLM chain first and falls back to deterministic keyword responses, so
// it always returns a non-empty reply.
type Generator struct {
	llm       LLMClient
	catalog   *property.Catalog
	agentName string
	logger    *logging.Logger
	tracer    trace.Tracer
	randInt   func(n int) int
}

// NewGenerator creates a reply generator. The LLM client may be nil, in which
// case only keyword replies are produced.
func NewGenerator(llm LLMClient, catalog *property.Catalog, agentName string, logger *logging.Logger) *Generator {
	if catalog == nil {
		catalog = property.NewCatalog(nil)
	}
	if agentName == "" {
		agentName = "the agent"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{
		llm:       llm,
		catalog:   catalog,
		agentName: agentName,
		logger:    logger,
		tracer:    otel.Tracer("consigliere.internal.reply"),
		randInt:   rand.Intn,
	}
}

// Reply answers one free-conversation turn. It advances the qualification
// funnel on st, then produces a reply and optional quick-reply buttons.
func (g *Generator) Reply(ctx context.Context, userText string, history []dialogue.ChatMessage, st *dialogue.State) (string, []string) {
	ctx, span := g.tracer.Start(ctx, "reply.generate")
	defer span.End()

	g.advanceFunnel(st, history, userText)

	if g.llm != nil {
		if text := g.llmReply(ctx, userText, history, st); text != "" {
			return text, nil
		}
	}
	return g.keywordReply(userText)
}

func (g *Generator) llmReply(ctx context.Context, userText string, history []dialogue.ChatMessage, st *dialogue.State) string {
	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}
	messages := make([]dialogue.ChatMessage, 0, len(window)+1)
	messages = append(messages, window...)
	messages = append(messages, dialogue.ChatMessage{Role: dialogue.ChatRoleUser, Content: userText})

	resp, err := g.llm.Complete(ctx, LLMRequest{
		System:      []string{g.systemPrompt(st)},
		Messages:    messages,
		MaxTokens:   220,
		Temperature: 0.7,
	})
	if err != nil {
		g.logger.Warn("llm reply failed, using keyword fallback", "error", err)
		return ""
	}
	return strings.TrimSpace(resp.Text)
}

func (g *Generator) systemPrompt(st *dialogue.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the friendly WhatsApp/Telegram assistant of %s, a Singapore real estate agent specialising in East-side condos. ", g.agentName)
	b.WriteString("Keep replies short (under 3 sentences), warm, and always steer the conversation toward booking a property viewing. ")
	b.WriteString("Never invent listings. Current listings:\n")
	for _, l := range g.catalog.Listings() {
		fmt.Fprintf(&b, "- %s, %s, %s, %s\n", l.Name, l.Price, l.Bedrooms, l.District)
	}
	b.WriteString("If the user wants to view a property, tell them to say 'book a viewing'.\n")
	b.WriteString("Next qualification question to work in naturally: " + g.nextQuestion(st.Funnel))
	return b.String()
}

func (g *Generator) nextQuestion(funnel string) string {
	switch funnel {
	case FunnelBudget:
		return "which area they prefer."
	case FunnelLocation:
		return "how many bedrooms they need."
	case FunnelBedrooms:
		return "whether they want a new launch or a resale unit."
	case FunnelLaunch, FunnelViewing:
		return "when they would like to come for a viewing."
	default:
		return "what their budget range is."
	}
}

// advanceFunnel inspects the user's answer to the previous outbound question
// and moves the implicit qualification stage forward.
func (g *Generator) advanceFunnel(st *dialogue.State, history []dialogue.ChatMessage, userText string) {
	if st.Funnel == "" {
		st.Funnel = FunnelNew
	}
	asked := strings.ToLower(lastAssistantTurn(history))
	if asked == "" {
		return
	}
	answer := strings.ToLower(userText)

	switch {
	case strings.Contains(asked, "budget") || strings.Contains(asked, "price range"):
		if digitRe.MatchString(answer) || strings.Contains(answer, "$") {
			st.Funnel = FunnelBudget
		}
	case strings.Contains(asked, "area") || strings.Contains(asked, "location") || strings.Contains(asked, "district"):
		if containsAreaKeyword(answer) {
			st.Funnel = FunnelLocation
		}
	case strings.Contains(asked, "bedroom"):
		if digitRe.MatchString(answer) || strings.Contains(answer, "br") {
			st.Funnel = FunnelBedrooms
		}
	case strings.Contains(asked, "new launch") || strings.Contains(asked, "resale"):
		if strings.Contains(answer, "launch") || strings.Contains(answer, "resale") || strings.Contains(answer, "new") {
			st.Funnel = FunnelLaunch
		}
	case strings.Contains(asked, "viewing"):
		if strings.Contains(answer, "yes") || strings.Contains(answer, "sure") || strings.Contains(answer, "ok") {
			st.Funnel = FunnelViewing
		}
	}
}

func lastAssistantTurn(history []dialogue.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == dialogue.ChatRoleAssistant {
			return history[i].Content
		}
	}
	return ""
}

var areaKeywords = []string{"east", "west", "north", "central", "bedok", "tampines", "pasir ris", "simei", "changi"}

func containsAreaKeyword(answer string) bool {
	for _, kw := range areaKeywords {
		if strings.Contains(answer, kw) {
			return true
		}
	}
	return false
}

// Keyword categories in fixed priority order. The first matching category
// answers; the generic pool guarantees a reply for anything else.
func (g *Generator) keywordReply(userText string) (string, []string) {
	words := tokenize(userText)

	switch {
	case matchesAny(words, "hello", "hi", "hey", "howdy") || hasPhrase(userText, "good morning", "good afternoon", "good evening"):
		return g.pick(
			fmt.Sprintf("Hello! I'm %s's assistant. Looking for a place in the East? I can share listings or set up a viewing for you.", g.agentName),
			fmt.Sprintf("Hi there! %s here (well, the assistant). Ask me about our condos or say 'book a viewing' anytime.", g.agentName),
			"Hey! Great to hear from you. Want to hear about our latest East-side listings?",
		), nil
	case matchesAny(words, "condo", "property", "apartment", "unit", "listing", "listings", "launch", "flat", "house"):
		return g.pick(
			"Here's what we have right now:\n\n"+g.catalogLines()+"\n\nWant to book a viewing for any of these?",
			"We have some lovely East-side options:\n\n"+g.catalogLines()+"\n\nHappy to arrange a viewing, just say the word!",
		), g.catalog.Names()
	case matchesAny(words, "price", "cost", "budget", "afford", "psf") || hasPhrase(userText, "how much"):
		return g.pick(
			"Our current listings:\n\n"+g.catalogLines()+"\n\nWhat budget range are you working with?",
			"Prices right now:\n\n"+g.catalogLines()+"\n\nI can help you find something that fits your budget.",
		), nil
	case matchesAny(words, "visit", "tour", "see", "interested"):
		return g.pick(
			"I'd love to show you around! Just say 'book a viewing' and I'll sort out the details.",
			"The best way to get a feel for a place is to see it. Say 'book a viewing' and we'll lock in a slot.",
		), g.catalog.Names()
	case matchesAny(words, "thanks", "thank", "appreciate"):
		return g.pick(
			"You're most welcome! Let me know if you'd like to see any of our listings.",
			"Anytime! I'm here whenever you're ready to take the next step.",
		), nil
	case matchesAny(words, "ok", "okay", "sure", "noted", "alright", "yes", "yup"):
		return g.pick(
			"Great! Whenever you're ready, just say 'book a viewing'.",
			"Sounds good. I'm around if you have questions about any listing.",
		), nil
	default:
		return g.pick(
			fmt.Sprintf("Thanks for your message! I'm %s's assistant and I can help with listings, prices, and viewings. What are you looking for?", g.agentName),
			"I can help you find your next home in the East. Curious about any of our listings, or shall we book a viewing?",
			"Happy to help! Ask me about our condos, prices, or say 'book a viewing' to see one in person.",
		), nil
	}
}

func (g *Generator) catalogLines() string {
	var b strings.Builder
	for i, l := range g.catalog.Listings() {
		fmt.Fprintf(&b, "%d. %s - %s (%s, %s)\n", i+1, l.Name, l.Price, l.Bedrooms, l.District)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (g *Generator) pick(options ...string) string {
	return options[g.randInt(len(options))]
}

var wordSplitRe = regexp.MustCompile(`[a-z']+`)

func tokenize(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordSplitRe.FindAllString(strings.ToLower(text), -1) {
		out[w] = struct{}{}
	}
	return out
}

func matchesAny(words map[string]struct{}, candidates ...string) bool {
	for _, c := range candidates {
		if _, ok := words[c]; ok {
			return true
		}
	}
	return false
}

func hasPhrase(text string, phrases ...string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
