package domain

import (
	"context"
	"time"
)

// CompletionRequest is a single request to the completion service.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer is the interface completion-service clients must implement.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
	Healthy(ctx context.Context) error
}

// ParseMode selects the markup mode for an outbound chat message.
type ParseMode string

const (
	ParseMarkdown ParseMode = "Markdown"
	ParsePlain    ParseMode = ""
)

// ChatAPI is the outbound surface toward the chat platform. All methods are
// single calls with no local state; errors are the caller's to classify.
type ChatAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string, mode ParseMode) error
	ReplyTo(ctx context.Context, chatID int64, messageID int, text string, mode ParseMode) error
	SendTyping(ctx context.Context, chatID int64) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// EventBus decouples the transport from the pipeline.
type EventBus interface {
	Publish(ev Event)
	Subscribe() <-chan Event
	Close()
}

// AuditEntry is one row in the audit trail.
type AuditEntry struct {
	EventID   string
	Action    string
	ChatID    int64
	MessageID int
	ActorID   int64
	Details   string
	CreatedAt time.Time
}

// AuditStore persists audit entries. Implementations must be safe for
// concurrent use.
type AuditStore interface {
	Record(ctx context.Context, entry AuditEntry) error
	CountByAction(ctx context.Context, action string) (int64, error)
	Close() error
}

// HealthSnapshot mirrors the /status command's fields for external probing.
type HealthSnapshot struct {
	Active               bool  `json:"active"`
	KnowledgeLoaded      bool  `json:"knowledge_loaded"`
	KnowledgeChars       int   `json:"knowledge_chars"`
	ProviderReachable    bool  `json:"provider_reachable"`
	Operators            int   `json:"operators"`
	ModerationConfigured bool  `json:"moderation_configured"`
	AllowlistSize        int   `json:"allowlist_size"`
	Escalations          int64 `json:"escalations"`
	Retractions          int64 `json:"retractions"`
}
