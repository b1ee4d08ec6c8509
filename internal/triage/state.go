// Package triage implements the message-triage and escalation pipeline:
// access gating, classification against a fixed knowledge base, answer
// delivery with fallback formatting, moderator escalation, and
// reaction-triggered retraction.
package triage

import (
	"sync"

	"triagebot/internal/metrics"
)

// AuthConfig is the read-only authorization surface, built once at startup.
type AuthConfig struct {
	operators        map[int64]bool
	moderationChatID int64
	chatAllowlist    map[int64]bool // nil = all chats allowed
}

func NewAuthConfig(operators []int64, moderationChatID int64, chatAllowlist []int64) AuthConfig {
	a := AuthConfig{
		operators:        make(map[int64]bool, len(operators)),
		moderationChatID: moderationChatID,
	}
	for _, id := range operators {
		a.operators[id] = true
	}
	if len(chatAllowlist) > 0 {
		a.chatAllowlist = make(map[int64]bool, len(chatAllowlist))
		for _, id := range chatAllowlist {
			a.chatAllowlist[id] = true
		}
	}
	return a
}

func (a AuthConfig) IsOperator(userID int64) bool { return a.operators[userID] }

func (a AuthConfig) OperatorIDs() []int64 {
	ids := make([]int64, 0, len(a.operators))
	for id := range a.operators {
		ids = append(ids, id)
	}
	return ids
}

func (a AuthConfig) OperatorCount() int { return len(a.operators) }

// ChatAllowed reports whether the chat may trigger the assistant. An empty
// allowlist admits every chat.
func (a AuthConfig) ChatAllowed(chatID int64) bool {
	if a.chatAllowlist == nil {
		return true
	}
	return a.chatAllowlist[chatID]
}

func (a AuthConfig) AllowlistSize() int { return len(a.chatAllowlist) }

func (a AuthConfig) ModerationChatID() int64 { return a.moderationChatID }

func (a AuthConfig) ModerationConfigured() bool { return a.moderationChatID != 0 }

// State holds the activation flag shared by every concurrent handler.
// Reads vastly outnumber writes, so a read-write lock keeps the hot path
// cheap while writes stay atomic and immediately visible.
type State struct {
	mu     sync.RWMutex
	active bool
}

// NewState returns a State with the assistant active.
func NewState() *State {
	metrics.ActiveFlag.Set(1)
	return &State{active: true}
}

func (s *State) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetActive updates the flag and returns the previous value for audit.
func (s *State) SetActive(v bool) bool {
	s.mu.Lock()
	prev := s.active
	s.active = v
	s.mu.Unlock()

	if v {
		metrics.ActiveFlag.Set(1)
	} else {
		metrics.ActiveFlag.Set(0)
	}
	return prev
}
