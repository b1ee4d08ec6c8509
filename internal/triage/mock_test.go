package triage

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"triagebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMsg struct {
	ChatID    int64
	MessageID int
	Text      string
	Mode      domain.ParseMode
}

type deletedMsg struct {
	ChatID    int64
	MessageID int
}

// fakeChatAPI records every outbound call and fails on demand: replyErrs is
// consumed one error per ReplyTo call (nil entries succeed), and sendErr
// fails every SendMessage.
type fakeChatAPI struct {
	mu        sync.Mutex
	sent      []sentMsg
	replies   []sentMsg
	typing    []int64
	deleted   []deletedMsg
	replyErrs []error
	sendErr   error
	deleteErr error
}

func (f *fakeChatAPI) SendMessage(ctx context.Context, chatID int64, text string, mode domain.ParseMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMsg{ChatID: chatID, Text: text, Mode: mode})
	return nil
}

func (f *fakeChatAPI) ReplyTo(ctx context.Context, chatID int64, messageID int, text string, mode domain.ParseMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if len(f.replyErrs) > 0 {
		err = f.replyErrs[0]
		f.replyErrs = f.replyErrs[1:]
	}
	if err != nil {
		return err
	}
	f.replies = append(f.replies, sentMsg{ChatID: chatID, MessageID: messageID, Text: text, Mode: mode})
	return nil
}

func (f *fakeChatAPI) SendTyping(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, chatID)
	return nil
}

func (f *fakeChatAPI) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, deletedMsg{ChatID: chatID, MessageID: messageID})
	return nil
}

// fakeCompleter scripts a single response or error and counts calls.
type fakeCompleter struct {
	mu        sync.Mutex
	resp      string
	err       error
	healthErr error
	calls     int
}

func (f *fakeCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.resp, f.err
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Healthy(ctx context.Context) error { return f.healthErr }

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeAudit records entries in memory.
type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (f *fakeAudit) Record(ctx context.Context, entry domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) CountByAction(ctx context.Context, action string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.entries {
		if e.Action == action {
			n++
		}
	}
	return n, nil
}

func (f *fakeAudit) Close() error { return nil }
