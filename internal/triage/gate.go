package triage

import (
	"log/slog"
	"strings"

	"triagebot/internal/domain"
	"triagebot/internal/metrics"
)

// Ignore reasons reported by the gate.
const (
	IgnoreUnauthorizedChat = "unauthorized chat"
	IgnoreOperatorMessage  = "operator message"
	IgnoreInactive         = "inactive"
	IgnoreCommandOrEmpty   = "command or empty"
)

// GateDecision is the outcome of the access gate for one message.
type GateDecision struct {
	Proceed bool
	Reason  string
}

// Gate decides, per incoming message, whether the pipeline runs at all.
// It is cheap and non-blocking and never calls the completion service.
type Gate struct {
	auth   AuthConfig
	state  *State
	logger *slog.Logger
}

func NewGate(auth AuthConfig, state *State, logger *slog.Logger) *Gate {
	return &Gate{auth: auth, state: state, logger: logger}
}

// Check runs the ordered checks; first match wins.
func (g *Gate) Check(ec EventContext, msg domain.IncomingMessage) GateDecision {
	text := strings.TrimSpace(msg.Text)

	var reason string
	switch {
	case !g.auth.ChatAllowed(msg.ChatID):
		reason = IgnoreUnauthorizedChat
	case g.auth.IsOperator(msg.SenderID):
		// Operators never trigger the assistant, even when active.
		reason = IgnoreOperatorMessage
	case !g.state.Active():
		reason = IgnoreInactive
	case text == "" || strings.HasPrefix(text, "/"):
		reason = IgnoreCommandOrEmpty
	default:
		return GateDecision{Proceed: true}
	}

	metrics.MessagesGated.Inc()
	g.logger.Info("message ignored", append(ec.LogAttrs(), "reason", reason)...)
	return GateDecision{Reason: reason}
}
