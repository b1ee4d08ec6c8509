package triage

import (
	"github.com/google/uuid"

	"triagebot/internal/domain"
)

// EventContext is the single immutable record of user/chat context threaded
// through every handler and into every log call for one unit of work.
type EventContext struct {
	EventID    string
	ChatID     int64
	ChatTitle  string
	SenderID   int64
	SenderName string
	Username   string
}

// NewEventContext assigns a fresh correlation id and extracts the logging
// context from a message.
func NewEventContext(msg domain.IncomingMessage) EventContext {
	return EventContext{
		EventID:    uuid.NewString(),
		ChatID:     msg.ChatID,
		ChatTitle:  msg.ChatTitle,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Username:   msg.SenderUsername,
	}
}

// NewReactionContext builds the context for a reaction unit of work.
func NewReactionContext(ev domain.ReactionEvent) EventContext {
	return EventContext{
		EventID:  uuid.NewString(),
		ChatID:   ev.ChatID,
		SenderID: ev.ActorID,
	}
}

// LogAttrs returns the context as alternating slog key-value pairs.
func (c EventContext) LogAttrs() []any {
	return []any{
		"event_id", c.EventID,
		"chat_id", c.ChatID,
		"sender_id", c.SenderID,
	}
}

// truncate shortens s to at most n runes, appending an ellipsis when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
