package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"triagebot/internal/domain"
	"triagebot/internal/metrics"
)

// Notifier formats and sends moderator-facing alerts. It is best-effort:
// failures are logged and swallowed, never raised past its boundary.
type Notifier struct {
	api    domain.ChatAPI
	auth   AuthConfig
	audit  domain.AuditStore
	logger *slog.Logger
}

func NewNotifier(api domain.ChatAPI, auth AuthConfig, audit domain.AuditStore, logger *slog.Logger) *Notifier {
	return &Notifier{api: api, auth: auth, audit: audit, logger: logger}
}

// Escalate sends the moderator alert for rec. At most one escalation is
// emitted per triggering message; the caller guarantees single invocation.
func (n *Notifier) Escalate(ctx context.Context, ec EventContext, rec domain.EscalationRecord) {
	if !n.auth.ModerationConfigured() {
		// Answer-only mode is a valid deployment; this is not an error.
		n.logger.Warn("escalation skipped: no moderation channel configured",
			append(ec.LogAttrs(), "reason", string(rec.Reason))...)
		return
	}

	var text string
	var mode domain.ParseMode
	switch rec.Reason {
	case domain.ReasonDeliveryFailed:
		text = deliveryFailedAlert(rec)
		mode = domain.ParsePlain
	default:
		text = questionAlert(rec)
		mode = domain.ParseMarkdown
	}

	if err := n.api.SendMessage(ctx, n.auth.ModerationChatID(), text, mode); err != nil {
		n.logger.Error("failed to notify moderation channel",
			append(ec.LogAttrs(), "reason", string(rec.Reason), "err", err)...)
		return
	}

	metrics.Escalations.Inc()
	n.logger.Info("moderator escalation sent",
		append(ec.LogAttrs(), "reason", string(rec.Reason))...)

	if err := n.audit.Record(ctx, domain.AuditEntry{
		EventID:   ec.EventID,
		Action:    "escalation",
		ChatID:    rec.Message.ChatID,
		MessageID: rec.Message.MessageID,
		ActorID:   rec.Message.SenderID,
		Details:   string(rec.Reason),
	}); err != nil {
		n.logger.Warn("audit write failed", append(ec.LogAttrs(), "err", err)...)
	}
}

// questionAlert is the cannot-answer template: enough context for a
// moderator to jump into the chat and answer by hand.
func questionAlert(rec domain.EscalationRecord) string {
	m := rec.Message
	chatTitle := m.ChatTitle
	if chatTitle == "" {
		chatTitle = fmt.Sprintf("Chat %d", m.ChatID)
	}

	errorInfo := ""
	if rec.ProcessingError != "" {
		errorInfo = "\n**Error:** " + rec.ProcessingError
	}

	return fmt.Sprintf(
		"❓ **Unanswered Question Alert**\n"+
			"**Chat:** %s (ID: %d)\n"+
			"**User:** %s (@%s) (ID: %d)\n"+
			"**Question:** %s\n"+
			"**Link:** %s%s",
		chatTitle, m.ChatID,
		m.SenderName, usernameOr(m.SenderUsername), m.SenderID,
		truncate(m.Text, 500),
		BuildMessageLink(m.ChatID, m.MessageID),
		errorInfo,
	)
}

// deliveryFailedAlert lists every attempted strategy and carries the full
// answer so the moderator can forward it manually. Sent without markup:
// the answer text already failed to parse once.
func deliveryFailedAlert(rec domain.EscalationRecord) string {
	m := rec.Message

	var attempts strings.Builder
	for _, a := range rec.Attempts {
		mark := "❌"
		if a.OK {
			mark = "✅"
		}
		fmt.Fprintf(&attempts, "- %s: %s %s\n", a.Strategy, mark, a.Err)
	}

	chatTitle := m.ChatTitle
	if chatTitle == "" {
		chatTitle = fmt.Sprintf("Chat %d", m.ChatID)
	}

	return fmt.Sprintf(
		"🚨 Failed to deliver answer\n"+
			"User: %s (@%s) (ID: %d)\n"+
			"Chat: %s (ID: %d)\n"+
			"Query: %s\n\n"+
			"Delivery Attempts:\n%s\n"+
			"Answer:\n%s",
		m.SenderName, usernameOr(m.SenderUsername), m.SenderID,
		chatTitle, m.ChatID,
		truncate(m.Text, 300),
		attempts.String(),
		truncate(rec.Answer, 1000),
	)
}

// BuildMessageLink builds a deep link to a message. Supergroup and broadcast
// chat ids carry a -100 prefix that must be stripped before embedding in the
// link path.
func BuildMessageLink(chatID int64, messageID int) string {
	s := strconv.FormatInt(chatID, 10)
	if rest, ok := strings.CutPrefix(s, "-100"); ok {
		return fmt.Sprintf("https://t.me/c/%s/%d", rest, messageID)
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", s, messageID)
}

func usernameOr(username string) string {
	if username == "" {
		return "no_username"
	}
	return username
}
