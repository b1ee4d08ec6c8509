package bus

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"triagebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(4, testLogger())
	defer b.Close()

	msg := domain.IncomingMessage{ChatID: 1, MessageID: 2, Text: "hi"}
	b.Publish(domain.Event{Kind: domain.EventMessage, Message: &msg})

	select {
	case ev := <-b.Subscribe():
		if ev.Kind != domain.EventMessage || ev.Message == nil || ev.Message.Text != "hi" {
			t.Errorf("received %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event never arrived")
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	b := New(16, testLogger())
	defer b.Close()

	for i := 1; i <= 5; i++ {
		msg := domain.IncomingMessage{MessageID: i}
		b.Publish(domain.Event{Kind: domain.EventMessage, Message: &msg})
	}

	events := b.Subscribe()
	for i := 1; i <= 5; i++ {
		select {
		case ev := <-events:
			if ev.Message.MessageID != i {
				t.Fatalf("event %d arrived with id %d", i, ev.Message.MessageID)
			}
		case <-time.After(time.Second):
			t.Fatal("bus delivered fewer events than published")
		}
	}
}

func TestPublishAfterCloseIsNoOp(t *testing.T) {
	b := New(4, testLogger())
	b.Close()

	// Must not panic on the closed channel.
	b.Publish(domain.Event{Kind: domain.EventCommand, Command: "status"})

	if _, ok := <-b.Subscribe(); ok {
		t.Error("closed bus still delivering events")
	}
}

func TestCloseIdempotent(t *testing.T) {
	b := New(4, testLogger())
	b.Close()
	b.Close()
}

func TestPublishWaitsWhenFull(t *testing.T) {
	b := New(1, testLogger())
	defer b.Close()

	m1 := domain.IncomingMessage{MessageID: 1}
	m2 := domain.IncomingMessage{MessageID: 2}
	b.Publish(domain.Event{Kind: domain.EventMessage, Message: &m1})

	done := make(chan struct{})
	go func() {
		b.Publish(domain.Event{Kind: domain.EventMessage, Message: &m2})
		close(done)
	}()

	// Drain one slot; the blocked publish must then complete well inside
	// its 10s patience window.
	<-b.Subscribe()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish still blocked after buffer drained")
	}

	select {
	case ev := <-b.Subscribe():
		if ev.Message.MessageID != 2 {
			t.Errorf("got id %d, want the waited event", ev.Message.MessageID)
		}
	case <-time.After(time.Second):
		t.Fatal("waited event never delivered")
	}
}
