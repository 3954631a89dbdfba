// Package gateway is the single choke point for asking the model something.
//
// It owns precondition checks (prompt, mode availability, credential),
// dispatch to the configured provider, and classification of every failure
// into the shared taxonomy. It never retries: retry policy belongs to the
// orchestrator where it is observable and testable in isolation.
package gateway

import (
	"context"
	"strings"
	"unicode"

	"parley/config"
	"parley/fault"
	"parley/model"
	"parley/provider"
	"parley/pubsub"
)

// StatusState is the coarse service state exposed to the rendering layer.
type StatusState string

const (
	StatusAvailable   StatusState = "available"
	StatusUnavailable StatusState = "unavailable"
	StatusError       StatusState = "error"
)

// Status is the service-status signal published after gateway activity.
// It is observable independently of individual calls.
type Status struct {
	State       StatusState
	Reason      string
	Recoverable bool
}

// Factory builds a provider from resolved configuration. Swappable so tests
// can substitute a mock without a network.
type Factory func(cfg provider.Config) (model.Provider, error)

// Gateway validates, dispatches, and classifies model calls.
type Gateway struct {
	factory Factory
	status  *pubsub.Slot[Status]
}

// New creates a gateway backed by the real provider factory.
func New() *Gateway {
	return NewWithFactory(provider.NewProvider)
}

// NewWithFactory creates a gateway with a custom provider factory.
func NewWithFactory(factory Factory) *Gateway {
	return &Gateway{
		factory: factory,
		status:  pubsub.NewSlotWith(Status{State: StatusAvailable}),
	}
}

// Ask runs the precondition chain in order, short-circuiting on the first
// failure, then performs the model call and classifies any failure:
//
//  1. prompt must be non-blank → INVALID_ARGUMENT
//  2. the selected mode must be available on this deployment → UNAVAILABLE
//     (never a silent fallback to another mode)
//  3. the credential for the selected mode must be present and well-formed
//     → UNAUTHENTICATED or INVALID_ARGUMENT depending on cause
func (g *Gateway) Ask(ctx context.Context, prompt string, settings config.Settings) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fault.New(fault.KindInvalidArgument, "prompt must not be blank")
	}

	if settings.Mode == model.ModeOffline {
		err := fault.New(fault.KindUnavailable, "on-device mode is not available yet")
		g.status.Publish(Status{State: StatusUnavailable, Reason: err.Message, Recoverable: true})
		return "", err
	}
	if settings.Mode != model.ModeOnline {
		err := fault.Newf(fault.KindUnavailable, "mode %q is not available", settings.Mode)
		g.status.Publish(Status{State: StatusUnavailable, Reason: err.Message, Recoverable: true})
		return "", err
	}

	if err := checkCredential(settings.Credential); err != nil {
		g.status.Publish(Status{State: StatusError, Reason: fault.Classify(err).Message, Recoverable: false})
		return "", err
	}

	p, err := g.factory(provider.Config{
		Type:    provider.ProviderTypeRelay,
		BaseURL: settings.Relay.BaseURL,
		APIKey:  settings.Credential,
	})
	if err != nil {
		classified := fault.Wrap(fault.KindInternal, "could not reach the assistant service", err)
		g.status.Publish(Status{State: StatusError, Reason: classified.Message, Recoverable: true})
		return "", classified
	}

	text, err := p.Ask(ctx, prompt, settings.Params)
	if err != nil {
		classified := fault.Classify(err)
		g.status.Publish(Status{
			State:       StatusError,
			Reason:      classified.Message,
			Recoverable: classified.Retryable(),
		})
		return "", classified
	}

	g.status.Publish(Status{State: StatusAvailable})
	return text, nil
}

// Status attaches an observer to the service-status signal. The current
// status is delivered first, then every change.
func (g *Gateway) Status() *pubsub.Subscription[Status] {
	return g.status.Subscribe()
}

func checkCredential(credential string) error {
	if credential == "" {
		return fault.New(fault.KindUnauthenticated, "no credential is configured for online mode")
	}
	for _, r := range credential {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fault.New(fault.KindInvalidArgument, "the configured credential is malformed")
		}
	}
	return nil
}
