package triage

import (
	"context"
	"log/slog"
	"slices"

	"triagebot/internal/domain"
	"triagebot/internal/metrics"
)

// Retractor lets a privileged operator delete a previously sent message by
// reacting with the designated downvote emoji. It is a second, independent
// entry point, separate from the message-answering path.
type Retractor struct {
	auth   AuthConfig
	api    domain.ChatAPI
	emoji  string
	audit  domain.AuditStore
	logger *slog.Logger
}

func NewRetractor(auth AuthConfig, api domain.ChatAPI, downvoteEmoji string, audit domain.AuditStore, logger *slog.Logger) *Retractor {
	if downvoteEmoji == "" {
		downvoteEmoji = "👎"
	}
	return &Retractor{auth: auth, api: api, emoji: downvoteEmoji, audit: audit, logger: logger}
}

// Handle runs the retraction state machine for one reaction event.
// Re-processing the same reaction state twice never issues a second delete:
// only a newly added downvote triggers.
func (r *Retractor) Handle(ctx context.Context, ec EventContext, ev domain.ReactionEvent) {
	// Anonymous aggregate reactions carry no accountable actor; ignore them.
	if !ev.HasActor {
		r.logger.Debug("reaction without identifiable actor ignored", ec.LogAttrs()...)
		return
	}
	if !r.auth.IsOperator(ev.ActorID) {
		r.logger.Debug("non-operator reaction ignored", ec.LogAttrs()...)
		return
	}
	if !slices.Contains(ev.Added, r.emoji) {
		r.logger.Debug("not a new downvote, ignoring", ec.LogAttrs()...)
		return
	}
	if r.auth.ModerationConfigured() && ev.ChatID == r.auth.ModerationChatID() {
		// Leave the audit trail in the moderation channel intact.
		r.logger.Info("downvote in moderation channel, skipping deletion", ec.LogAttrs()...)
		return
	}

	if err := r.api.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		// Deleting is itself a moderation action; no second-order escalation.
		r.logger.Error("failed to delete message",
			append(ec.LogAttrs(), "message_id", ev.MessageID, "err", err)...)
		r.recordAudit(ctx, ec, ev, "retraction_failed", err.Error())
		return
	}

	metrics.Retractions.Inc()
	r.logger.Info("message deleted on operator downvote",
		append(ec.LogAttrs(), "message_id", ev.MessageID)...)
	r.recordAudit(ctx, ec, ev, "retraction", "")
}

func (r *Retractor) recordAudit(ctx context.Context, ec EventContext, ev domain.ReactionEvent, action, details string) {
	if err := r.audit.Record(ctx, domain.AuditEntry{
		EventID:   ec.EventID,
		Action:    action,
		ChatID:    ev.ChatID,
		MessageID: ev.MessageID,
		ActorID:   ev.ActorID,
		Details:   details,
	}); err != nil {
		r.logger.Warn("audit write failed", append(ec.LogAttrs(), "err", err)...)
	}
}
