package triage

import (
	"context"
	"fmt"
	"log/slog"

	"triagebot/internal/domain"
	"triagebot/internal/knowledge"
)

const refusalReply = "Sorry, this command is only available to operators."

// Admin handles the privileged commands that read and write the activation
// flag and report aggregate health.
type Admin struct {
	auth       AuthConfig
	state      *State
	kb         *knowledge.Base
	classifier *Classifier
	audit      domain.AuditStore
	api        domain.ChatAPI
	logger     *slog.Logger
}

type AdminConfig struct {
	Auth       AuthConfig
	State      *State
	Knowledge  *knowledge.Base
	Classifier *Classifier
	Audit      domain.AuditStore
	API        domain.ChatAPI
	Logger     *slog.Logger
}

func NewAdmin(cfg AdminConfig) *Admin {
	return &Admin{
		auth:       cfg.Auth,
		state:      cfg.State,
		kb:         cfg.Knowledge,
		classifier: cfg.Classifier,
		audit:      cfg.Audit,
		api:        cfg.API,
		logger:     cfg.Logger,
	}
}

// Handle dispatches one command. Non-operators get a fixed refusal and no
// state change regardless of the command.
func (a *Admin) Handle(ctx context.Context, ec EventContext, cmd string, msg domain.IncomingMessage) {
	switch cmd {
	case "start", "stop", "status":
	default:
		a.logger.Debug("unknown command ignored", append(ec.LogAttrs(), "command", cmd)...)
		return
	}

	if !a.auth.IsOperator(msg.SenderID) {
		a.logger.Warn("non-operator attempted admin command",
			append(ec.LogAttrs(), "command", cmd)...)
		a.reply(ctx, ec, msg, refusalReply, domain.ParsePlain)
		return
	}

	switch cmd {
	case "start":
		prev := a.state.SetActive(true)
		a.logger.Info("assistant activated",
			append(ec.LogAttrs(), "previous", prev)...)
		a.reply(ctx, ec, msg, "✅ Assistant is now active and will respond to questions.", domain.ParsePlain)
	case "stop":
		prev := a.state.SetActive(false)
		a.logger.Info("assistant deactivated",
			append(ec.LogAttrs(), "previous", prev)...)
		a.reply(ctx, ec, msg, "⏹️ Assistant is now inactive and will not respond to questions.", domain.ParsePlain)
	case "status":
		snap := a.Snapshot(ctx)
		a.logger.Info("status requested", ec.LogAttrs()...)
		a.reply(ctx, ec, msg, formatStatus(snap), domain.ParseMarkdown)
	}
}

// Snapshot collects the health fields reported by /status and exposed on
// the health endpoint. Read-only.
func (a *Admin) Snapshot(ctx context.Context) domain.HealthSnapshot {
	snap := domain.HealthSnapshot{
		Active:               a.state.Active(),
		KnowledgeLoaded:      a.kb.Loaded(),
		KnowledgeChars:       a.kb.Len(),
		ProviderReachable:    a.classifier.Reachable(ctx),
		Operators:            a.auth.OperatorCount(),
		ModerationConfigured: a.auth.ModerationConfigured(),
		AllowlistSize:        a.auth.AllowlistSize(),
	}
	if n, err := a.audit.CountByAction(ctx, "escalation"); err == nil {
		snap.Escalations = n
	}
	if n, err := a.audit.CountByAction(ctx, "retraction"); err == nil {
		snap.Retractions = n
	}
	return snap
}

func formatStatus(s domain.HealthSnapshot) string {
	onOff := func(b bool, yes, no string) string {
		if b {
			return yes
		}
		return no
	}
	return fmt.Sprintf(
		"📊 **Status Report**\n\n"+
			"• Assistant: %s\n"+
			"• Knowledge base: %s (%d chars)\n"+
			"• Completion service: %s\n"+
			"• Operators: %d configured\n"+
			"• Moderation channel: %s\n"+
			"• Chat allowlist: %d chats\n"+
			"• Escalations: %d\n"+
			"• Retractions: %d",
		onOff(s.Active, "🟢 Active", "🔴 Inactive"),
		onOff(s.KnowledgeLoaded, "✅ Loaded", "❌ Not loaded"), s.KnowledgeChars,
		onOff(s.ProviderReachable, "✅ Reachable", "❌ Unreachable"),
		s.Operators,
		onOff(s.ModerationConfigured, "✅ Configured", "❌ Not configured"),
		s.AllowlistSize,
		s.Escalations,
		s.Retractions,
	)
}

func (a *Admin) reply(ctx context.Context, ec EventContext, msg domain.IncomingMessage, text string, mode domain.ParseMode) {
	if err := a.api.ReplyTo(ctx, msg.ChatID, msg.MessageID, text, mode); err != nil {
		a.logger.Warn("command reply failed", append(ec.LogAttrs(), "err", err)...)
	}
}
