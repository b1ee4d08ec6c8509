package domain

// Outcome is the result of classifying one message.
type Outcome string

const (
	OutcomeNotQuestion  Outcome = "not_question"
	OutcomeCannotAnswer Outcome = "cannot_answer"
	OutcomeAnswered     Outcome = "answered"
)

// Classification is produced exactly once per message that reaches the
// classifier. Answer is set only for OutcomeAnswered.
type Classification struct {
	Outcome Outcome
	Answer  string
}

// DeliveryAttempt records one formatting strategy's try.
type DeliveryAttempt struct {
	Strategy string
	OK       bool
	Err      string
}

// DeliveryOutcome is the result of running the delivery chain for one answer.
type DeliveryOutcome struct {
	Delivered bool
	Attempts  []DeliveryAttempt
}

// EscalationReason tags the two moderator alert templates.
type EscalationReason string

const (
	ReasonCannotAnswer   EscalationReason = "cannot-answer"
	ReasonDeliveryFailed EscalationReason = "delivery-failed"
)

// EscalationRecord carries everything a moderator needs to act on an
// unanswerable or undeliverable message. Attempts and Answer are set only
// for ReasonDeliveryFailed; ProcessingError is set when the classifier
// folded a service failure into cannot-answer.
type EscalationRecord struct {
	Reason          EscalationReason
	Message         IncomingMessage
	Attempts        []DeliveryAttempt
	Answer          string
	ProcessingError string
}
