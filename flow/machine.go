// Package flow is the conversation state machine: it consumes user events
// and orchestrator outcomes and produces a single current State plus a
// stream of one-shot Effects for the rendering layer.
//
// The rendering layer subscribes to States() and Effects(), feeds user
// actions into Dispatch, and never mutates state or the message store
// directly.
package flow

import (
	"context"
	"strings"

	"parley/fault"
	"parley/model"
	"parley/pubsub"
	"parley/store"
)

// effectBuffer bounds the effect stream. When the buffer is full the oldest
// effect is dropped in favor of the newest; effects are non-critical by
// contract, and dropping beats blocking the orchestrator.
const effectBuffer = 16

// Orchestrator is the use-case dependency of the machine.
type Orchestrator interface {
	SendMessage(ctx context.Context, text string) (model.Message, error)
	RetryMessage(ctx context.Context, failedID string) (model.Message, error)
	Clear() error
}

// outcome carries an orchestrator completion back into the event loop.
type outcome struct {
	err error
}

// Machine runs the conversation state machine. All state transitions happen
// on a single event-loop goroutine started by Run.
type Machine struct {
	orch     Orchestrator
	messages *store.MessageStore

	// load fetches the initial snapshot during PhaseLoading. Kept as a
	// field so tests can exercise the unrecoverable startup path.
	load func() ([]model.Message, error)

	events   chan Event
	outcomes chan outcome
	states   *pubsub.Slot[State]
	effects  chan Effect
}

// NewMachine creates a machine over the orchestrator and message store.
func NewMachine(orch Orchestrator, messages *store.MessageStore) *Machine {
	m := &Machine{
		orch:     orch,
		messages: messages,
		events:   make(chan Event, 16),
		outcomes: make(chan outcome, 16),
		states:   pubsub.NewSlotWith(State{Phase: PhaseInitial}),
		effects:  make(chan Effect, effectBuffer),
	}
	m.load = func() ([]model.Message, error) { return messages.Snapshot(), nil }
	return m
}

// Dispatch feeds a user event into the machine. Safe for concurrent use.
func (m *Machine) Dispatch(ev Event) {
	m.events <- ev
}

// States attaches a state observer: current state first, then every
// transition, conflated for slow observers.
func (m *Machine) States() *pubsub.Subscription[State] {
	return m.states.Subscribe()
}

// Effects returns the one-shot effect stream.
func (m *Machine) Effects() <-chan Effect {
	return m.effects
}

// Run executes the event loop until ctx is cancelled. Work started by a
// user event is scoped to ctx: tearing down the machine cancels in-flight
// orchestrator calls, whose placeholders then resolve to retryable FAILED
// entries.
func (m *Machine) Run(ctx context.Context) {
	state := State{Phase: PhaseInitial}

	sub := m.messages.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case snapshot := <-sub.Updates():
			if state.Phase != PhaseSuccess {
				continue
			}
			state.Messages = snapshot
			m.publish(&state)

		case out := <-m.outcomes:
			state.Processing = false
			m.applyOutcome(&state, out)
			m.publish(&state)

		case ev := <-m.events:
			m.handle(ctx, &state, ev)
		}
	}
}

func (m *Machine) handle(ctx context.Context, state *State, ev Event) {
	switch ev.Kind {
	case EventScreenLoaded:
		if state.Phase != PhaseInitial {
			return
		}
		state.Phase = PhaseLoading
		m.publish(state)

		snapshot, err := m.load()
		if err != nil {
			classified := fault.Classify(err)
			state.Phase = PhaseError
			state.Cause = classified
			state.Recoverable = classified.Retryable()
			m.publish(state)
			return
		}
		state.Phase = PhaseSuccess
		state.Messages = snapshot
		m.publish(state)

	case EventSendMessage:
		if strings.TrimSpace(ev.Text) == "" {
			// No state change: blank input is not redisplayable information,
			// just a one-shot nudge.
			m.emit(Effect{Kind: EffectNotice, Message: "Nothing to send"})
			return
		}
		state.Processing = true
		m.publish(state)
		text := ev.Text
		go func() {
			_, err := m.orch.SendMessage(ctx, text)
			select {
			case m.outcomes <- outcome{err: err}:
			case <-ctx.Done():
			}
		}()

	case EventRetryMessage:
		state.Processing = true
		m.publish(state)
		id := ev.MessageID
		go func() {
			_, err := m.orch.RetryMessage(ctx, id)
			select {
			case m.outcomes <- outcome{err: err}:
			case <-ctx.Done():
			}
		}()

	case EventClearConversation:
		if err := m.orch.Clear(); err != nil {
			// Recoverable: keep the conversation visible and let the error
			// survive a redraw by putting it in state, not an effect.
			state.Err = fault.Classify(err)
			m.publish(state)
			return
		}
		m.emit(Effect{Kind: EffectNotice, Message: "Conversation cleared"})

	case EventDismissError:
		if state.Err == nil {
			return
		}
		state.Err = nil
		m.publish(state)
	}
}

// applyOutcome folds an orchestrator completion into the state. A failed
// send or retry already resolved to a FAILED message entry, so the state's
// inline error stays clear; only failures with no message entry to carry
// them surface differently.
func (m *Machine) applyOutcome(state *State, out outcome) {
	if out.err == nil {
		return
	}
	if fault.IsKind(out.err, fault.KindNotFound) {
		// Retry raced a clear: the failed entry is gone. Deliberately a
		// different user-facing message than a network failure.
		m.emit(Effect{Kind: EffectNotice, Message: "That message no longer exists"})
		return
	}
}

// emit delivers an effect, dropping the oldest buffered effect when the
// buffer is full.
func (m *Machine) emit(e Effect) {
	for {
		select {
		case m.effects <- e:
			return
		default:
			select {
			case <-m.effects:
			default:
			}
		}
	}
}

func (m *Machine) publish(state *State) {
	snapshot := *state
	snapshot.Messages = append([]model.Message(nil), state.Messages...)
	m.states.Publish(snapshot)
}
