package domain

import "time"

// ChatKind distinguishes the kinds of chat a message can originate from.
type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

// IncomingMessage is a normalized text message from the transport layer.
// It is immutable once constructed and consumed exactly once by the pipeline.
type IncomingMessage struct {
	MessageID      int
	ChatID         int64
	ChatTitle      string
	ChatKind       ChatKind
	SenderID       int64
	SenderUsername string
	SenderName     string
	Text           string
	ReceivedAt     time.Time
}

// ReactionEvent is a normalized reaction update. It has a lifecycle
// independent of IncomingMessage and may reference a message the pipeline
// never saw.
type ReactionEvent struct {
	ChatID    int64
	MessageID int
	// ActorID is zero and HasActor false for anonymous aggregate reactions.
	ActorID  int64
	HasActor bool
	// Added holds the emoji newly present in this update's reaction set.
	Added []string
}

// EventKind tags the variants of Event.
type EventKind string

const (
	EventMessage  EventKind = "message"
	EventReaction EventKind = "reaction"
	EventCommand  EventKind = "command"
)

// Event is the tagged union the transport publishes to the pipeline.
// Exactly one payload field is set, according to Kind; Command events carry
// both the command name and the message it arrived in.
type Event struct {
	Kind     EventKind
	Message  *IncomingMessage
	Reaction *ReactionEvent
	Command  string
}
