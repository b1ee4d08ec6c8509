package channel

import (
	"time"

	"triagebot/internal/domain"
)

// Raw Bot API update shapes. Decoded here rather than through the library's
// Update struct because message_reaction is newer than the library's schema.

type rawUpdate struct {
	UpdateID        int          `json:"update_id"`
	Message         *rawMessage  `json:"message"`
	MessageReaction *rawReaction `json:"message_reaction"`
}

type rawMessage struct {
	MessageID int      `json:"message_id"`
	From      *rawUser `json:"from"`
	Chat      rawChat  `json:"chat"`
	Date      int64    `json:"date"`
	Text      string   `json:"text"`
}

type rawUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type rawChat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type rawReaction struct {
	Chat        rawChat           `json:"chat"`
	MessageID   int               `json:"message_id"`
	User        *rawUser          `json:"user"`
	ActorChat   *rawChat          `json:"actor_chat"`
	OldReaction []rawReactionType `json:"old_reaction"`
	NewReaction []rawReactionType `json:"new_reaction"`
}

type rawReactionType struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

func normalizeMessage(m *rawMessage) *domain.IncomingMessage {
	out := &domain.IncomingMessage{
		MessageID:  m.MessageID,
		ChatID:     m.Chat.ID,
		ChatTitle:  m.Chat.Title,
		ChatKind:   domain.ChatKind(m.Chat.Type),
		Text:       m.Text,
		ReceivedAt: time.Unix(m.Date, 0),
	}
	if m.From != nil {
		out.SenderID = m.From.ID
		out.SenderUsername = m.From.Username
		out.SenderName = displayName(m.From)
	}
	return out
}

func normalizeReaction(r *rawReaction) *domain.ReactionEvent {
	out := &domain.ReactionEvent{
		ChatID:    r.Chat.ID,
		MessageID: r.MessageID,
	}
	// Reactions set on behalf of a chat (anonymous admins, channels) carry
	// actor_chat instead of user; those stay anonymous.
	if r.User != nil {
		out.ActorID = r.User.ID
		out.HasActor = true
	}

	old := make(map[string]bool, len(r.OldReaction))
	for _, rt := range r.OldReaction {
		if rt.Type == "emoji" {
			old[rt.Emoji] = true
		}
	}
	for _, rt := range r.NewReaction {
		if rt.Type == "emoji" && !old[rt.Emoji] {
			out.Added = append(out.Added, rt.Emoji)
		}
	}
	return out
}

func displayName(u *rawUser) string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
