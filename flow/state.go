package flow

import (
	"parley/fault"
	"parley/model"
)

// Phase tags the current conversation state variant. Exactly one phase is
// current at any time.
type Phase string

const (
	// PhaseInitial - no interaction yet.
	PhaseInitial Phase = "initial"
	// PhaseLoading - startup fetch in flight.
	PhaseLoading Phase = "loading"
	// PhaseSuccess - steady state; re-entered on every update.
	PhaseSuccess Phase = "success"
	// PhaseError - unrecoverable startup failure.
	PhaseError Phase = "error"
)

// State is the single current conversation state exposed to the rendering
// layer. Anything the user might need to see again after a redraw lives
// here, never in an Effect.
type State struct {
	Phase      Phase
	Messages   []model.Message
	Processing bool

	// Err holds a recoverable error in PhaseSuccess so it survives a
	// rebuild of the rendering layer. Cleared by EventDismissError.
	Err *fault.Error

	// Cause and Recoverable describe the failure in PhaseError.
	Cause       *fault.Error
	Recoverable bool
}

// EventKind enumerates the closed set of user events.
type EventKind string

const (
	EventScreenLoaded      EventKind = "screen_loaded"
	EventSendMessage       EventKind = "send_message"
	EventRetryMessage      EventKind = "retry_message"
	EventClearConversation EventKind = "clear_conversation"
	EventDismissError      EventKind = "dismiss_error"
)

// Event is a user action fed into the machine by the rendering layer.
type Event struct {
	Kind      EventKind
	Text      string // EventSendMessage
	MessageID string // EventRetryMessage
}

// EffectKind enumerates the closed set of one-shot effects.
type EffectKind string

const (
	// EffectNotice shows a transient message.
	EffectNotice EffectKind = "notice"
	// EffectNavigate asks the rendering layer to move somewhere.
	EffectNavigate EffectKind = "navigate"
)

// Effect is a one-shot notification, delivered at most once and never
// reconstructed from State. Losing one (no active subscriber, full buffer)
// is acceptable.
type Effect struct {
	Kind    EffectKind
	Message string
	Target  string // EffectNavigate destination
}
