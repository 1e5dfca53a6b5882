package assistant

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/consigliere-ai/consigliere/internal/dialogue"
	"github.com/consigliere-ai/consigliere/internal/leads"
	"github.com/consigliere-ai/consigliere/internal/observability/metrics"
	"github.com/consigliere-ai/consigliere/internal/reply"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

// Processor runs one conversation turn end to end. Turns for the same
// identity are serialized; turns for different identities run concurrently.
type Processor struct {
	store     *dialogue.Store
	history   *dialogue.HistoryStore
	engine    *dialogue.Engine
	generator *reply.Generator
	leads     leads.Repository
	dedupe    *Deduper
	metrics   *metrics.AssistantMetrics
	logger    *logging.Logger
	tracer    trace.Tracer

	locks sync.Map // identity -> *sync.Mutex
}

// NewProcessor wires the conversation pipeline. Metrics may be nil.
func NewProcessor(
	store *dialogue.Store,
	history *dialogue.HistoryStore,
	engine *dialogue.Engine,
	generator *reply.Generator,
	leadRepo leads.Repository,
	dedupe *Deduper,
	m *metrics.AssistantMetrics,
	logger *logging.Logger,
) *Processor {
	if store == nil {
		panic("assistant: state store cannot be nil")
	}
	if engine == nil {
		panic("assistant: dialogue engine cannot be nil")
	}
	if generator == nil {
		panic("assistant: reply generator cannot be nil")
	}
	if leadRepo == nil {
		panic("assistant: lead repository cannot be nil")
	}
	if dedupe == nil {
		dedupe = NewDeduper(nil, logger)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{
		store:     store,
		history:   history,
		engine:    engine,
		generator: generator,
		leads:     leadRepo,
		dedupe:    dedupe,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("consigliere.internal.assistant"),
	}
}

// Handle processes one inbound message and returns the reply to send. A
// duplicate delivery returns an empty reply and no error.
func (p *Processor) Handle(ctx context.Context, in InboundMessage) (OutboundReply, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "assistant.handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("consigliere.channel", in.Channel),
		attribute.String("consigliere.user_id", in.UserID),
	)

	p.metrics.ObserveInbound(in.Channel)

	if p.dedupe.Seen(ctx, in.Channel, in.MessageID) {
		p.metrics.ObserveDuplicate(in.Channel)
		p.logger.Info("duplicate webhook delivery dropped",
			"channel", in.Channel, "message_id", in.MessageID)
		return OutboundReply{}, nil
	}

	identity := leads.Identity(in.Channel, in.UserID)
	mu := p.lockFor(identity)
	mu.Lock()
	defer mu.Unlock()

	userText := in.Text
	if userText == "" {
		userText = in.ButtonText
	}

	lead, err := p.leads.Record(ctx, in.Channel, in.UserID, userText, in.ReceivedAt)
	if err != nil {
		span.RecordError(err)
		p.logger.Error("lead record failed", "identity", identity, "error", err)
	} else {
		p.metrics.ObserveLeadTier(string(lead.Tier))
	}

	st := p.store.Load(ctx, identity)

	turn := p.engine.Handle(ctx, st, dialogue.Inbound{
		Channel:    in.Channel,
		UserID:     in.UserID,
		Text:       in.Text,
		ButtonText: in.ButtonText,
	})

	source := "flow"
	out := OutboundReply{Text: turn.Reply, Buttons: turn.Buttons}
	if !turn.Handled {
		source = "generator"
		transcript := p.loadHistory(ctx, identity)
		out.Text, out.Buttons = p.generator.Reply(ctx, userText, transcript, st)
	}

	p.updateLeadStatus(ctx, in, lead, turn)

	p.store.Save(ctx, identity, st)
	if p.history != nil {
		p.history.Append(ctx, identity,
			dialogue.ChatMessage{Role: dialogue.ChatRoleUser, Content: userText},
			dialogue.ChatMessage{Role: dialogue.ChatRoleAssistant, Content: out.Text},
		)
	}

	if turn.Booked {
		p.metrics.ObserveBooking("confirm")
	}
	p.metrics.ObserveReply(in.Channel, source)
	p.metrics.ObserveTurnLatency(in.Channel, time.Since(start).Seconds())
	return out, nil
}

func (p *Processor) lockFor(identity string) *sync.Mutex {
	v, _ := p.locks.LoadOrStore(identity, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (p *Processor) loadHistory(ctx context.Context, identity string) []dialogue.ChatMessage {
	if p.history == nil {
		return nil
	}
	return p.history.Load(ctx, identity)
}

// updateLeadStatus advances the lead lifecycle from this turn's outcome:
// first reply moves new to contacted, a warm or hot tier marks the lead
// qualified, and a completed booking converts it.
func (p *Processor) updateLeadStatus(ctx context.Context, in InboundMessage, lead *leads.Lead, turn dialogue.Turn) {
	if lead == nil {
		return
	}

	status := lead.Status
	switch {
	case turn.Booked:
		status = leads.StatusConverted
	case lead.Status == leads.StatusNew:
		status = leads.StatusContacted
		if lead.Tier != leads.TierCold {
			status = leads.StatusQualified
		}
	case lead.Status == leads.StatusContacted && lead.Tier != leads.TierCold:
		status = leads.StatusQualified
	}
	if status == lead.Status {
		return
	}
	if err := p.leads.SetStatus(ctx, in.Channel, in.UserID, status); err != nil {
		p.logger.Warn("lead status update failed",
			"identity", leads.Identity(in.Channel, in.UserID), "error", err)
	}
}
