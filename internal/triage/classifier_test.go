package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"triagebot/internal/domain"
	"triagebot/internal/knowledge"
)

func testKB(content string) *knowledge.Base {
	return &knowledge.Base{Content: content}
}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name        string
		completer   *fakeCompleter
		kb          *knowledge.Base
		text        string
		wantOutcome domain.Outcome
		wantAnswer  string
		wantDetail  string
		wantCalls   int
	}{
		{
			name:        "answer passed through",
			completer:   &fakeCompleter{resp: "Office hours are *9 to 5*."},
			kb:          testKB("Office hours: 9 to 5."),
			text:        "What are the office hours?",
			wantOutcome: domain.OutcomeAnswered,
			wantAnswer:  "Office hours are *9 to 5*.",
			wantCalls:   1,
		},
		{
			name:        "answer trimmed",
			completer:   &fakeCompleter{resp: "  yes  \n"},
			kb:          testKB("facts"),
			text:        "is it?",
			wantOutcome: domain.OutcomeAnswered,
			wantAnswer:  "yes",
			wantCalls:   1,
		},
		{
			name:        "not a question marker",
			completer:   &fakeCompleter{resp: NotQuestionMarker},
			kb:          testKB("facts"),
			text:        "good morning everyone",
			wantOutcome: domain.OutcomeNotQuestion,
			wantCalls:   1,
		},
		{
			name:        "marker with surrounding whitespace",
			completer:   &fakeCompleter{resp: " " + CannotAnswerMarker + "\n"},
			kb:          testKB("facts"),
			text:        "what is the meaning of life?",
			wantOutcome: domain.OutcomeCannotAnswer,
			wantCalls:   1,
		},
		{
			name:        "empty response is cannot answer",
			completer:   &fakeCompleter{resp: ""},
			kb:          testKB("facts"),
			text:        "hello?",
			wantOutcome: domain.OutcomeCannotAnswer,
			wantCalls:   1,
		},
		{
			name:        "service error is cannot answer with detail",
			completer:   &fakeCompleter{err: errors.New("connection refused")},
			kb:          testKB("facts"),
			text:        "why?",
			wantOutcome: domain.OutcomeCannotAnswer,
			wantDetail:  "connection refused",
			wantCalls:   1,
		},
		{
			name:        "blank text short-circuits",
			completer:   &fakeCompleter{resp: "should not be called"},
			kb:          testKB("facts"),
			text:        "   \n\t ",
			wantOutcome: domain.OutcomeNotQuestion,
			wantCalls:   0,
		},
		{
			name:        "empty knowledge base short-circuits",
			completer:   &fakeCompleter{resp: "should not be called"},
			kb:          testKB(""),
			text:        "where is the manual?",
			wantOutcome: domain.OutcomeCannotAnswer,
			wantCalls:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(ClassifierConfig{
				Completer: tt.completer,
				Knowledge: tt.kb,
				Logger:    testLogger(),
			})
			ec := NewEventContext(domain.IncomingMessage{ChatID: -100123, SenderID: 42})

			cls, detail := c.Classify(context.Background(), ec, tt.text)
			if cls.Outcome != tt.wantOutcome {
				t.Errorf("outcome = %q, want %q", cls.Outcome, tt.wantOutcome)
			}
			if cls.Answer != tt.wantAnswer {
				t.Errorf("answer = %q, want %q", cls.Answer, tt.wantAnswer)
			}
			if detail != tt.wantDetail {
				t.Errorf("errDetail = %q, want %q", detail, tt.wantDetail)
			}
			if got := tt.completer.callCount(); got != tt.wantCalls {
				t.Errorf("completer called %d times, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestClassifier_NilCompleter(t *testing.T) {
	c := NewClassifier(ClassifierConfig{
		Knowledge: testKB("facts"),
		Logger:    testLogger(),
	})
	cls, detail := c.Classify(context.Background(), EventContext{}, "anything?")
	if cls.Outcome != domain.OutcomeCannotAnswer {
		t.Errorf("outcome = %q, want %q", cls.Outcome, domain.OutcomeCannotAnswer)
	}
	if detail != "" {
		t.Errorf("errDetail = %q, want empty", detail)
	}
}

type panickingCompleter struct{}

func (panickingCompleter) Complete(context.Context, domain.CompletionRequest) (string, error) {
	panic("boom")
}
func (panickingCompleter) Name() string { return "panicking" }
func (panickingCompleter) Healthy(context.Context) error { return nil }

func TestClassifier_RecoversPanic(t *testing.T) {
	c := NewClassifier(ClassifierConfig{
		Completer: panickingCompleter{},
		Knowledge: testKB("facts"),
		Logger:    testLogger(),
	})
	cls, detail := c.Classify(context.Background(), EventContext{}, "will you crash?")
	if cls.Outcome != domain.OutcomeCannotAnswer {
		t.Errorf("outcome = %q, want %q", cls.Outcome, domain.OutcomeCannotAnswer)
	}
	if !strings.Contains(detail, "boom") {
		t.Errorf("errDetail = %q, want panic detail", detail)
	}
}

func TestClassifier_PromptCarriesKnowledge(t *testing.T) {
	var captured domain.CompletionRequest
	fc := &captureCompleter{fn: func(req domain.CompletionRequest) (string, error) {
		captured = req
		return "ok", nil
	}}
	c := NewClassifier(ClassifierConfig{
		Completer:   fc,
		Knowledge:   testKB("The wifi password is hunter2."),
		Temperature: 0.2,
		MaxTokens:   1000,
		Timeout:     time.Second,
		Logger:      testLogger(),
	})
	c.Classify(context.Background(), EventContext{}, "what is the wifi password?")

	if !strings.Contains(captured.System, "The wifi password is hunter2.") {
		t.Error("system prompt missing knowledge base content")
	}
	if !strings.Contains(captured.System, NotQuestionMarker) || !strings.Contains(captured.System, CannotAnswerMarker) {
		t.Error("system prompt missing sentinel markers")
	}
	if captured.User != "what is the wifi password?" {
		t.Errorf("user prompt = %q", captured.User)
	}
	if captured.Temperature != 0.2 || captured.MaxTokens != 1000 {
		t.Errorf("request params = (%v, %d), want (0.2, 1000)", captured.Temperature, captured.MaxTokens)
	}
}

type captureCompleter struct {
	fn func(domain.CompletionRequest) (string, error)
}

func (c *captureCompleter) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	return c.fn(req)
}
func (c *captureCompleter) Name() string { return "capture" }
func (c *captureCompleter) Healthy(context.Context) error { return nil }

func TestClassifier_Reachable(t *testing.T) {
	healthy := NewClassifier(ClassifierConfig{Completer: &fakeCompleter{}, Knowledge: testKB("x"), Logger: testLogger()})
	if !healthy.Reachable(context.Background()) {
		t.Error("healthy completer reported unreachable")
	}
	sick := NewClassifier(ClassifierConfig{Completer: &fakeCompleter{healthErr: errors.New("down")}, Knowledge: testKB("x"), Logger: testLogger()})
	if sick.Reachable(context.Background()) {
		t.Error("failing completer reported reachable")
	}
	none := NewClassifier(ClassifierConfig{Knowledge: testKB("x"), Logger: testLogger()})
	if none.Reachable(context.Background()) {
		t.Error("nil completer reported reachable")
	}
}
