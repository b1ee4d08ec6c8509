package triage

import (
	"context"
	"log/slog"
	"sync"

	"triagebot/internal/domain"
)

const cannotAnswerReply = "Sorry, I can't answer that one — a moderator has been notified and will follow up."

// Handler is the pipeline's front door. Every public entry point recovers
// panics and degrades gracefully: a single malformed or hostile event must
// not take down the loop serving all other chats.
type Handler struct {
	gate       *Gate
	classifier *Classifier
	deliverer  *Deliverer
	notifier   *Notifier
	retractor  *Retractor
	admin      *Admin

	api                 domain.ChatAPI
	replyOnCannotAnswer bool
	logger              *slog.Logger
}

type HandlerConfig struct {
	Gate       *Gate
	Classifier *Classifier
	Deliverer  *Deliverer
	Notifier   *Notifier
	Retractor  *Retractor
	Admin      *Admin

	API                 domain.ChatAPI
	ReplyOnCannotAnswer bool
	Logger              *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		gate:                cfg.Gate,
		classifier:          cfg.Classifier,
		deliverer:           cfg.Deliverer,
		notifier:            cfg.Notifier,
		retractor:           cfg.Retractor,
		admin:               cfg.Admin,
		api:                 cfg.API,
		replyOnCannotAnswer: cfg.ReplyOnCannotAnswer,
		logger:              cfg.Logger,
	}
}

// Run consumes events from the bus until ctx is cancelled or the bus closes.
// Each event is an independent unit of work; up to workers of them execute
// concurrently so one slow classification never blocks other chats.
func (h *Handler) Run(ctx context.Context, bus domain.EventBus, workers int) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	events := bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case ev, ok := <-events:
			if !ok {
				wg.Wait()
				return
			}
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				h.HandleEvent(ctx, ev)
			}()
		}
	}
}

// HandleEvent dispatches one event by variant.
func (h *Handler) HandleEvent(ctx context.Context, ev domain.Event) {
	switch ev.Kind {
	case domain.EventMessage:
		if ev.Message != nil {
			h.HandleMessage(ctx, *ev.Message)
		}
	case domain.EventReaction:
		if ev.Reaction != nil {
			h.HandleReaction(ctx, *ev.Reaction)
		}
	case domain.EventCommand:
		if ev.Message != nil {
			h.HandleCommand(ctx, ev.Command, *ev.Message)
		}
	default:
		h.logger.Warn("unknown event kind", "kind", ev.Kind)
	}
}

// HandleMessage runs the triage pipeline for one message. Fire-and-forget:
// it never raises past its boundary.
func (h *Handler) HandleMessage(ctx context.Context, msg domain.IncomingMessage) {
	ec := NewEventContext(msg)
	defer h.recover(ec, "message")

	if d := h.gate.Check(ec, msg); !d.Proceed {
		return
	}

	// Best-effort presence indicator; failure is irrelevant to the outcome.
	if err := h.api.SendTyping(ctx, msg.ChatID); err != nil {
		h.logger.Debug("typing indicator failed", append(ec.LogAttrs(), "err", err)...)
	}

	cls, errDetail := h.classifier.Classify(ctx, ec, msg.Text)

	switch cls.Outcome {
	case domain.OutcomeNotQuestion:
		return

	case domain.OutcomeCannotAnswer:
		if h.replyOnCannotAnswer {
			if err := h.api.ReplyTo(ctx, msg.ChatID, msg.MessageID, cannotAnswerReply, domain.ParsePlain); err != nil {
				h.logger.Warn("cannot-answer reply failed", append(ec.LogAttrs(), "err", err)...)
			}
		}
		h.notifier.Escalate(ctx, ec, domain.EscalationRecord{
			Reason:          domain.ReasonCannotAnswer,
			Message:         msg,
			ProcessingError: errDetail,
		})

	case domain.OutcomeAnswered:
		out := h.deliverer.Deliver(ctx, ec, msg, cls.Answer)
		if !out.Delivered {
			h.notifier.Escalate(ctx, ec, domain.EscalationRecord{
				Reason:   domain.ReasonDeliveryFailed,
				Message:  msg,
				Attempts: out.Attempts,
				Answer:   cls.Answer,
			})
		}
	}
}

// HandleReaction runs the retraction state machine for one reaction event.
func (h *Handler) HandleReaction(ctx context.Context, ev domain.ReactionEvent) {
	ec := NewReactionContext(ev)
	defer h.recover(ec, "reaction")
	h.retractor.Handle(ctx, ec, ev)
}

// HandleCommand runs one admin command.
func (h *Handler) HandleCommand(ctx context.Context, cmd string, msg domain.IncomingMessage) {
	ec := NewEventContext(msg)
	defer h.recover(ec, "command")
	h.admin.Handle(ctx, ec, cmd, msg)
}

func (h *Handler) recover(ec EventContext, entry string) {
	if r := recover(); r != nil {
		h.logger.Error("handler panic recovered",
			append(ec.LogAttrs(), "entry", entry, "panic", r)...)
	}
}
