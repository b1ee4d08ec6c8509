package triage

import (
	"context"
	"strings"
	"testing"

	"triagebot/internal/domain"
)

func TestBuildMessageLink(t *testing.T) {
	tests := []struct {
		name      string
		chatID    int64
		messageID int
		want      string
	}{
		{"supergroup prefix stripped", -1001234567890, 42, "https://t.me/c/1234567890/42"},
		{"plain negative id kept", -12345, 7, "https://t.me/c/-12345/7"},
		{"positive id kept", 99, 1, "https://t.me/c/99/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildMessageLink(tt.chatID, tt.messageID); got != tt.want {
				t.Errorf("BuildMessageLink(%d, %d) = %q, want %q", tt.chatID, tt.messageID, got, tt.want)
			}
		})
	}
}

func TestNotifier_QuestionAlert(t *testing.T) {
	api := &fakeChatAPI{}
	audit := &fakeAudit{}
	auth := NewAuthConfig([]int64{1}, -1009999, nil)
	n := NewNotifier(api, auth, audit, testLogger())

	rec := domain.EscalationRecord{
		Reason: domain.ReasonCannotAnswer,
		Message: domain.IncomingMessage{
			ChatID:         -1001234567890,
			MessageID:      42,
			ChatTitle:      "Support Group",
			SenderID:       555,
			SenderName:     "Alice",
			SenderUsername: "alice",
			Text:           "how do I reset my password?",
		},
	}
	n.Escalate(context.Background(), EventContext{EventID: "ev-1"}, rec)

	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	sent := api.sent[0]
	if sent.ChatID != -1009999 {
		t.Errorf("sent to chat %d, want moderation channel", sent.ChatID)
	}
	if sent.Mode != domain.ParseMarkdown {
		t.Errorf("mode = %q, want markdown", sent.Mode)
	}
	for _, want := range []string{
		"Unanswered Question Alert",
		"Support Group",
		"Alice",
		"@alice",
		"how do I reset my password?",
		"https://t.me/c/1234567890/42",
	} {
		if !strings.Contains(sent.Text, want) {
			t.Errorf("alert missing %q:\n%s", want, sent.Text)
		}
	}
	if strings.Contains(sent.Text, "**Error:**") {
		t.Error("alert carries error section without a processing error")
	}

	if len(audit.entries) != 1 || audit.entries[0].Action != "escalation" {
		t.Fatalf("audit entries = %+v, want one escalation", audit.entries)
	}
	if audit.entries[0].EventID != "ev-1" {
		t.Errorf("audit event id = %q", audit.entries[0].EventID)
	}
}

func TestNotifier_QuestionAlertWithError(t *testing.T) {
	api := &fakeChatAPI{}
	auth := NewAuthConfig(nil, 123, nil)
	n := NewNotifier(api, auth, &fakeAudit{}, testLogger())

	rec := domain.EscalationRecord{
		Reason:          domain.ReasonCannotAnswer,
		Message:         domain.IncomingMessage{ChatID: 1, MessageID: 2, Text: "q?"},
		ProcessingError: "connection refused",
	}
	n.Escalate(context.Background(), EventContext{}, rec)

	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	if !strings.Contains(api.sent[0].Text, "connection refused") {
		t.Errorf("alert missing error detail:\n%s", api.sent[0].Text)
	}
}

func TestNotifier_QuestionTruncated(t *testing.T) {
	api := &fakeChatAPI{}
	auth := NewAuthConfig(nil, 123, nil)
	n := NewNotifier(api, auth, &fakeAudit{}, testLogger())

	long := strings.Repeat("x", 600)
	rec := domain.EscalationRecord{
		Reason:  domain.ReasonCannotAnswer,
		Message: domain.IncomingMessage{ChatID: 1, MessageID: 2, Text: long},
	}
	n.Escalate(context.Background(), EventContext{}, rec)

	text := api.sent[0].Text
	if strings.Contains(text, long) {
		t.Error("question was not truncated")
	}
	if !strings.Contains(text, strings.Repeat("x", 500)+"...") {
		t.Error("truncated question missing ellipsis at 500 runes")
	}
}

func TestNotifier_DeliveryFailedAlert(t *testing.T) {
	api := &fakeChatAPI{}
	auth := NewAuthConfig(nil, 123, nil)
	n := NewNotifier(api, auth, &fakeAudit{}, testLogger())

	rec := domain.EscalationRecord{
		Reason: domain.ReasonDeliveryFailed,
		Message: domain.IncomingMessage{
			ChatID:     -100777,
			MessageID:  3,
			SenderName: "Bob",
			Text:       "where is the config?",
		},
		Attempts: []domain.DeliveryAttempt{
			{Strategy: StrategyRich, Err: "can't parse entities"},
			{Strategy: StrategySanitized, Err: "can't parse entities"},
			{Strategy: StrategyPlain, Err: "forbidden"},
		},
		Answer: "the *answer*",
	}
	n.Escalate(context.Background(), EventContext{}, rec)

	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	sent := api.sent[0]
	if sent.Mode != domain.ParsePlain {
		t.Errorf("mode = %q, want plain for delivery-failed alert", sent.Mode)
	}
	for _, want := range []string{
		"Failed to deliver answer",
		"Bob",
		"@no_username",
		"where is the config?",
		"rich", "sanitized", "plain",
		"can't parse entities",
		"forbidden",
		"the *answer*",
	} {
		if !strings.Contains(sent.Text, want) {
			t.Errorf("alert missing %q:\n%s", want, sent.Text)
		}
	}
}

func TestNotifier_SkipsWithoutModerationChannel(t *testing.T) {
	api := &fakeChatAPI{}
	audit := &fakeAudit{}
	n := NewNotifier(api, NewAuthConfig(nil, 0, nil), audit, testLogger())

	n.Escalate(context.Background(), EventContext{}, domain.EscalationRecord{
		Reason:  domain.ReasonCannotAnswer,
		Message: domain.IncomingMessage{ChatID: 1, MessageID: 2, Text: "q?"},
	})

	if len(api.sent) != 0 {
		t.Errorf("sent %d messages, want none", len(api.sent))
	}
	if len(audit.entries) != 0 {
		t.Errorf("audit entries = %d, want none", len(audit.entries))
	}
}

func TestNotifier_SendFailureSwallowed(t *testing.T) {
	api := &fakeChatAPI{sendErr: context.DeadlineExceeded}
	audit := &fakeAudit{}
	n := NewNotifier(api, NewAuthConfig(nil, 123, nil), audit, testLogger())

	n.Escalate(context.Background(), EventContext{}, domain.EscalationRecord{
		Reason:  domain.ReasonCannotAnswer,
		Message: domain.IncomingMessage{ChatID: 1, MessageID: 2, Text: "q?"},
	})

	// No panic, no audit record for a failed send.
	if len(audit.entries) != 0 {
		t.Errorf("audit entries = %d, want none after send failure", len(audit.entries))
	}
}
