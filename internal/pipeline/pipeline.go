// Package pipeline wires stage-change events through normalization, identity
// resolution, the content gate, composition, and delivery. Every entry point
// is safe to run detached from the webhook request that triggered it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/salesrelay/salesrelay/internal/channels"
	"github.com/salesrelay/salesrelay/internal/crm"
	"github.com/salesrelay/salesrelay/internal/feedback"
	"github.com/salesrelay/salesrelay/internal/identity"
	"github.com/salesrelay/salesrelay/internal/ids"
	"github.com/salesrelay/salesrelay/internal/knowledge"
	"github.com/salesrelay/salesrelay/internal/provider"
	"github.com/salesrelay/salesrelay/internal/store"
	"github.com/salesrelay/salesrelay/internal/stream"
	"github.com/salesrelay/salesrelay/internal/timeline"
)

// Pipeline owns the full event flow from normalized payload to logged
// delivery. Timeline, Stream, and Generator are optional; the pipeline
// degrades to template composition and skips mirroring when they are nil.
type Pipeline struct {
	store      *store.Store
	resolver   *identity.Resolver
	channel    channels.Channel
	secondary  channels.Channel
	generator  provider.Generator
	tl         *timeline.Service
	pub        *stream.Publisher
	pmmTarget  string
	operatorID string
	log        *slog.Logger
	now        func() time.Time
}

type Options struct {
	Store     *store.Store
	Resolver  *identity.Resolver
	Channel   channels.Channel
	Secondary channels.Channel
	Generator provider.Generator
	Timeline  *timeline.Service
	Stream    *stream.Publisher
	PMMTarget string
	// OperatorID is the secondary-channel operator address used when a rep
	// has no secondary registration of their own.
	OperatorID string
	Logger     *slog.Logger
}

func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:      opts.Store,
		resolver:   opts.Resolver,
		channel:    opts.Channel,
		secondary:  opts.Secondary,
		generator:  opts.Generator,
		tl:         opts.Timeline,
		pub:        opts.Stream,
		pmmTarget:  opts.PMMTarget,
		operatorID: opts.OperatorID,
		log:        logger,
		now:        time.Now,
	}
}

// Detach runs fn on its own goroutine, recovering and logging panics so a
// malformed payload can never take the gateway down. The continuation gets a
// fresh background context: once it starts it runs to completion or failure,
// with outbound calls bounded only by their own HTTP client timeouts.
func (p *Pipeline) Detach(traceID, op string, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("pipeline panic", "op", op, "trace_id", traceID, "panic", r)
			}
		}()
		fn(context.Background())
	}()
}

// HandleStageChange processes one CRM stage-change payload end to end.
func (p *Pipeline) HandleStageChange(ctx context.Context, traceID string, payload map[string]any) {
	stage := crm.ExtractStage(payload)
	class := crm.Classify(stage)
	if class == crm.StageIgnore {
		p.log.Debug("stage not actionable", "trace_id", traceID, "stage", stage)
		p.record(traceID, timeline.KindPipelineSkipped, "", "", "stage not actionable: "+stage)
		return
	}

	deal := crm.Normalize(payload)
	p.log.Info("stage change accepted",
		"trace_id", traceID,
		"deal", deal.DealName,
		"stage", stage,
		"source", string(deal.SourceCRM))

	if class == crm.StageOutcome {
		p.handleOutcome(ctx, traceID, deal, stage)
		return
	}
	p.handleEnablement(ctx, traceID, deal)
}

func (p *Pipeline) handleEnablement(ctx context.Context, traceID string, deal crm.Deal) {
	deal = p.resolver.Resolve(ctx, deal)
	if !deal.IdentityResolved {
		p.log.Warn("rep unresolved, skipping delivery",
			"trace_id", traceID, "deal", deal.DealName, "email", deal.RepEmail)
		p.record(traceID, timeline.KindPipelineSkipped, deal.DealName, "", "rep unresolved")
		return
	}

	kb, err := p.store.Knowledge()
	if err != nil {
		p.fail(traceID, deal.DealName, fmt.Errorf("load knowledge base: %w", err))
		return
	}
	if !knowledge.Gate(&kb) {
		p.log.Warn("knowledge base not configured, delivery blocked",
			"trace_id", traceID, "deal", deal.DealName)
		p.record(traceID, timeline.KindPipelineSkipped, deal.DealName, "", "knowledge base not configured")
		return
	}

	comp := knowledge.Compose(deal, &kb)
	text := comp.Text
	if p.generator != nil {
		generated, err := p.generator.Generate(ctx, knowledge.ComposePrompt(deal, &kb))
		if err != nil {
			p.log.Warn("generation failed, sending template package",
				"trace_id", traceID, "deal", deal.DealName, "error", err)
		} else {
			text = generated
		}
	}

	deliveryID := ids.Delivery(p.now())
	recipient := deal.RepMessagingID
	if recipient == "" {
		recipient = deal.RepEmail
	}
	err = p.channel.Send(ctx, &channels.Message{
		Recipient:           recipient,
		Text:                text,
		DeliveryID:          deliveryID,
		WithFeedbackButtons: true,
	})
	if err != nil {
		p.fail(traceID, deal.DealName, fmt.Errorf("send delivery: %w", err))
		return
	}

	delivery := feedback.Delivery{
		DeliveryID:     deliveryID,
		DealName:       deal.DealName,
		DealStage:      deal.DealStage,
		Industry:       deal.Industry,
		Competitor:     deal.Competitor,
		RepID:          recipient,
		CaseStudyIDs:   comp.CaseStudyIDs,
		PositioningIDs: comp.PositioningIDs,
		Channel:        p.channel.Name(),
		Timestamp:      p.now().UTC(),
	}
	if err := p.store.AppendDelivery(delivery); err != nil {
		p.fail(traceID, deal.DealName, fmt.Errorf("log delivery: %w", err))
		return
	}
	p.pub.Publish(stream.Record{
		Kind:      stream.KindDelivery,
		ID:        deliveryID,
		Payload:   delivery,
		Timestamp: delivery.Timestamp,
	})
	p.recordDelivery(traceID, deal.DealName, deliveryID)
	p.log.Info("delivery sent",
		"trace_id", traceID, "deal", deal.DealName, "delivery_id", deliveryID, "rep", recipient)

	p.mirrorSecondary(ctx, traceID, deal, deliveryID, text)
}

// mirrorSecondary sends a best-effort copy of the package over the secondary
// channel: to the rep's own registration when present, else to the operator.
// The same delivery id rides along so secondary-channel feedback correlates.
func (p *Pipeline) mirrorSecondary(ctx context.Context, traceID string, deal crm.Deal, deliveryID, text string) {
	if p.secondary == nil {
		return
	}
	dir, err := p.store.Directory()
	if err != nil {
		p.log.Warn("secondary mirror skipped", "trace_id", traceID, "error", err)
		return
	}
	target, method := identity.ResolveSecondary(dir, deal.RepEmail, p.operatorID)
	if target == "" {
		return
	}
	err = p.secondary.Send(ctx, &channels.Message{
		Recipient:           target,
		Text:                text,
		DeliveryID:          deliveryID,
		WithFeedbackButtons: method == identity.MethodDirectory,
	})
	if err != nil {
		p.log.Warn("secondary mirror failed",
			"trace_id", traceID, "delivery_id", deliveryID, "method", method, "error", err)
		return
	}
	p.log.Info("secondary mirror sent",
		"trace_id", traceID, "delivery_id", deliveryID, "method", method)
}

func (p *Pipeline) handleOutcome(ctx context.Context, traceID string, deal crm.Deal, stage string) {
	var correlated feedback.Delivery
	var found bool
	if dlog, err := p.store.Deliveries(); err != nil {
		p.log.Warn("load deliveries for outcome", "trace_id", traceID, "error", err)
	} else {
		correlated, found = feedback.CorrelateByDealName(dlog.Entries, deal.DealName)
	}

	entry := feedback.Entry{
		FeedbackID: ids.Feedback(p.now()),
		Source:     feedback.SourceOutcome,
		Value:      stage,
		DealName:   deal.DealName,
		Timestamp:  p.now().UTC(),
	}
	if found {
		entry.DeliveryID = correlated.DeliveryID
		entry.RepID = correlated.RepID
	}
	if err := p.store.AppendFeedback(entry); err != nil {
		p.fail(traceID, deal.DealName, fmt.Errorf("log outcome: %w", err))
		return
	}
	p.pub.Publish(stream.Record{
		Kind:      stream.KindFeedback,
		ID:        entry.FeedbackID,
		Payload:   entry,
		Timestamp: entry.Timestamp,
	})
	p.record(traceID, timeline.KindOutcomeRecorded, deal.DealName, entry.DeliveryID, stage)
	p.notifyPMM(ctx, outcomeNotice(deal.DealName, stage, correlated, found))
	p.log.Info("outcome recorded",
		"trace_id", traceID, "deal", deal.DealName, "outcome", stage, "correlated", found)
}

// HandleFeedback normalizes one inbound feedback payload. The returned string
// is non-empty only for URL verification challenges, which the gateway must
// echo back synchronously.
func (p *Pipeline) HandleFeedback(ctx context.Context, traceID string, payload map[string]any) string {
	res := feedback.Normalize(payload)
	if res == nil {
		p.log.Debug("unrecognized feedback payload ignored", "trace_id", traceID)
		return ""
	}
	if res.Challenge != "" {
		return res.Challenge
	}

	entry := *res.Entry
	entry.FeedbackID = ids.Feedback(p.now())
	entry.Timestamp = p.now().UTC()
	var correlated feedback.Delivery
	var found bool
	if entry.DeliveryID != "" {
		if dlog, err := p.store.Deliveries(); err == nil {
			if d, ok := feedback.CorrelateByID(dlog.Entries, entry.DeliveryID); ok {
				correlated, found = d, true
				entry.DealName = d.DealName
				if entry.RepID == "" {
					entry.RepID = d.RepID
				}
			}
		}
	}
	if err := p.store.AppendFeedback(entry); err != nil {
		p.fail(traceID, entry.DealName, fmt.Errorf("log feedback: %w", err))
		return ""
	}
	p.pub.Publish(stream.Record{
		Kind:      stream.KindFeedback,
		ID:        entry.FeedbackID,
		Payload:   entry,
		Timestamp: entry.Timestamp,
	})
	p.record(traceID, timeline.KindFeedbackRecorded, entry.DealName, entry.DeliveryID, string(entry.Source)+"/"+entry.Value)
	p.notifyPMM(ctx, feedbackNotice(entry, correlated, found))
	p.log.Info("feedback recorded",
		"trace_id", traceID,
		"feedback_id", entry.FeedbackID,
		"source", string(entry.Source),
		"delivery_id", entry.DeliveryID)
	return ""
}

// RecordWebhook logs webhook receipt in the timeline. Called by the gateway
// before it detaches the continuation.
func (p *Pipeline) RecordWebhook(traceID, channel string) {
	if err := p.tl.Record(&timeline.Event{
		TraceID:   traceID,
		Kind:      timeline.KindWebhookReceived,
		Channel:   channel,
		Timestamp: p.now().UTC(),
	}); err != nil {
		p.log.Warn("record webhook event", "trace_id", traceID, "error", err)
	}
}

func (p *Pipeline) notifyPMM(ctx context.Context, text string) {
	if p.pmmTarget == "" {
		return
	}
	err := p.channel.Send(ctx, &channels.Message{Recipient: p.pmmTarget, Text: text})
	if err != nil {
		p.log.Warn("pmm notification failed", "target", p.pmmTarget, "error", err)
	}
}

// noticeValueMax caps the feedback value quoted in a PMM notice so a long
// call-intel summary stays readable in chat.
const noticeValueMax = 300

// feedbackNotice summarizes one feedback event for the PMM target. When the
// delivery correlated, the notice carries the delivery context; otherwise it
// falls back to whatever deal name the feedback itself carried.
func feedbackNotice(e feedback.Entry, d feedback.Delivery, found bool) string {
	deal := e.DealName
	if deal == "" {
		deal = "unknown deal"
	}
	value := e.Value
	if r := []rune(value); len(r) > noticeValueMax {
		value = string(r[:noticeValueMax]) + "…"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "💬 Rep feedback (%s) on %s: %s.", e.Source, deal, value)
	if !found {
		return b.String()
	}
	fmt.Fprintf(&b, " Relates to delivery %s sent %s.",
		d.DeliveryID, d.Timestamp.Format("2006-01-02"))
	if len(d.CaseStudyIDs) > 0 {
		fmt.Fprintf(&b, " Case studies used: %s.", strings.Join(d.CaseStudyIDs, ", "))
	}
	return b.String()
}

func outcomeNotice(dealName, stage string, d feedback.Delivery, found bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Deal outcome: %s reached %s.", dealName, stage)
	if !found {
		b.WriteString(" No enablement delivery on record for this deal.")
		return b.String()
	}
	fmt.Fprintf(&b, " Enablement delivered %s (%s).",
		d.Timestamp.Format("2006-01-02"), d.DeliveryID)
	if len(d.CaseStudyIDs) > 0 {
		fmt.Fprintf(&b, " Case studies used: %s.", strings.Join(d.CaseStudyIDs, ", "))
	}
	if len(d.PositioningIDs) > 0 {
		fmt.Fprintf(&b, " Positioning used: %s.", strings.Join(d.PositioningIDs, ", "))
	}
	return b.String()
}

func (p *Pipeline) record(traceID, kind, dealName, deliveryID, detail string) {
	if err := p.tl.Record(&timeline.Event{
		TraceID:    traceID,
		Kind:       kind,
		DealName:   dealName,
		DeliveryID: deliveryID,
		Detail:     detail,
		Timestamp:  p.now().UTC(),
	}); err != nil {
		p.log.Warn("record timeline event", "trace_id", traceID, "kind", kind, "error", err)
	}
}

func (p *Pipeline) recordDelivery(traceID, dealName, deliveryID string) {
	p.record(traceID, timeline.KindDeliverySent, dealName, deliveryID, "")
}

func (p *Pipeline) fail(traceID, dealName string, err error) {
	p.log.Error("pipeline error", "trace_id", traceID, "deal", dealName, "error", err)
	p.record(traceID, timeline.KindError, dealName, "", err.Error())
}
