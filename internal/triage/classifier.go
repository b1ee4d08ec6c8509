package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"triagebot/internal/domain"
	"triagebot/internal/knowledge"
	"triagebot/internal/metrics"
)

// Sentinel strings the completion service is instructed to return verbatim.
const (
	NotQuestionMarker  = "[NOT_A_QUESTION]"
	CannotAnswerMarker = "[CANNOT_ANSWER]"
)

const systemPromptTmpl = `You are a helpful assistant for a group chat. Your knowledge is limited to the following reference text:

--- BEGIN REFERENCE ---
%s
--- END REFERENCE ---

Instructions:
1. If the user's message is not a question (e.g., greetings, statements), respond with: %s
2. If the message is a question:
   - Answer briefly and clearly using only the reference text (use bullet points if necessary), combining relevant parts if necessary.
   - Do not mention the reference text in your answer.
   - If the question cannot be answered with the reference text, respond with: %s

Ensure your response is in valid Markdown format, with proper syntax for *, _, ` + "`" + `, [], and (). Be concise and helpful.`

// Classifier turns message text plus the knowledge base into a
// Classification by invoking the completion service once, with fail-safe
// defaults: every failure path folds into CannotAnswer.
type Classifier struct {
	completer   domain.Completer
	kb          *knowledge.Base
	timeout     time.Duration
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

type ClassifierConfig struct {
	Completer   domain.Completer
	Knowledge   *knowledge.Base
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return &Classifier{
		completer:   cfg.Completer,
		kb:          cfg.Knowledge,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Classify is total: it returns exactly one of the three outcomes for any
// input and any completion-service behavior, and never panics past its
// boundary. The second return value carries the service error detail, if
// any, for the escalation template.
func (c *Classifier) Classify(ctx context.Context, ec EventContext, text string) (cls domain.Classification, errDetail string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classifier panic recovered", append(ec.LogAttrs(), "panic", r)...)
			cls = domain.Classification{Outcome: domain.OutcomeCannotAnswer}
			errDetail = fmt.Sprintf("panic: %v", r)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return domain.Classification{Outcome: domain.OutcomeNotQuestion}, ""
	}
	if c.completer == nil {
		c.logger.Error("completion service not configured", ec.LogAttrs()...)
		return domain.Classification{Outcome: domain.OutcomeCannotAnswer}, ""
	}
	if !c.kb.Loaded() {
		c.logger.Warn("knowledge base empty, cannot answer", ec.LogAttrs()...)
		return domain.Classification{Outcome: domain.OutcomeCannotAnswer}, ""
	}

	metrics.MessagesClassified.Inc()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Single attempt, no retries: the delivery chain and escalation
	// downstream already cover failure, and a retry would double latency
	// on a user-facing path.
	raw, err := c.completer.Complete(ctx, domain.CompletionRequest{
		System:      fmt.Sprintf(systemPromptTmpl, c.kb.Content, NotQuestionMarker, CannotAnswerMarker),
		User:        text,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Error("completion request failed",
			append(ec.LogAttrs(), "err", err, "elapsed", elapsed)...)
		return domain.Classification{Outcome: domain.OutcomeCannotAnswer}, err.Error()
	}

	raw = strings.TrimSpace(raw)

	var out domain.Classification
	switch raw {
	case "":
		// Model silence is failure, not "not a question".
		out = domain.Classification{Outcome: domain.OutcomeCannotAnswer}
	case NotQuestionMarker:
		out = domain.Classification{Outcome: domain.OutcomeNotQuestion}
	case CannotAnswerMarker:
		out = domain.Classification{Outcome: domain.OutcomeCannotAnswer}
	default:
		out = domain.Classification{Outcome: domain.OutcomeAnswered, Answer: raw}
	}

	switch out.Outcome {
	case domain.OutcomeNotQuestion:
		metrics.NotQuestions.Inc()
	case domain.OutcomeCannotAnswer:
		metrics.CannotAnswers.Inc()
	case domain.OutcomeAnswered:
		metrics.Answered.Inc()
	}

	c.logger.Info("message classified", append(ec.LogAttrs(),
		"outcome", string(out.Outcome),
		"elapsed", elapsed,
		"answer_len", len(out.Answer),
	)...)
	return out, ""
}

// Reachable reports whether the completion service answers a health probe.
func (c *Classifier) Reachable(ctx context.Context) bool {
	if c.completer == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return c.completer.Healthy(ctx) == nil
}
