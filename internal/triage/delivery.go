package triage

import (
	"context"
	"log/slog"

	"triagebot/internal/domain"
	"triagebot/internal/metrics"
)

// Delivery strategy names, in fallback order.
const (
	StrategyRich      = "rich"
	StrategySanitized = "sanitized"
	StrategyPlain     = "plain"
)

// strategy is one named formatting attempt. text is computed lazily so the
// sanitizer only runs when the rich attempt has already failed.
type strategy struct {
	name string
	text func() string
	mode domain.ParseMode
}

// Deliverer hands an answer back to the requester through an ordered chain
// of formatting strategies, stopping at the first success.
type Deliverer struct {
	api    domain.ChatAPI
	logger *slog.Logger
}

func NewDeliverer(api domain.ChatAPI, logger *slog.Logger) *Deliverer {
	return &Deliverer{api: api, logger: logger}
}

// Deliver runs the chain. Every attempt is recorded whether it succeeds or
// fails; only errors from the outbound send count as failure.
func (d *Deliverer) Deliver(ctx context.Context, ec EventContext, msg domain.IncomingMessage, answer string) domain.DeliveryOutcome {
	strategies := []strategy{
		{name: StrategyRich, text: func() string { return answer }, mode: domain.ParseMarkdown},
		{name: StrategySanitized, text: func() string { return SanitizeMarkup(answer) }, mode: domain.ParseMarkdown},
		{name: StrategyPlain, text: func() string { return answer }, mode: domain.ParsePlain},
	}

	var out domain.DeliveryOutcome
	for _, s := range strategies {
		err := d.api.ReplyTo(ctx, msg.ChatID, msg.MessageID, s.text(), s.mode)
		attempt := domain.DeliveryAttempt{Strategy: s.name, OK: err == nil}
		if err != nil {
			attempt.Err = err.Error()
			d.logger.Debug("delivery attempt failed",
				append(ec.LogAttrs(), "strategy", s.name, "err", err)...)
		}
		out.Attempts = append(out.Attempts, attempt)
		if err == nil {
			out.Delivered = true
			break
		}
	}

	if out.Delivered {
		metrics.Deliveries.Inc()
		d.logger.Info("answer delivered", append(ec.LogAttrs(),
			"strategy", out.Attempts[len(out.Attempts)-1].Strategy,
			"attempts", len(out.Attempts),
		)...)
	} else {
		metrics.DeliveryFailures.Inc()
		d.logger.Warn("answer delivery exhausted all strategies",
			append(ec.LogAttrs(), "attempts", len(out.Attempts))...)
	}
	return out
}
