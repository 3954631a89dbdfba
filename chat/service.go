// Package chat implements the conversation use cases: send a message, retry
// a failed one, clear the conversation.
//
// Each operation is an explicit multi-step protocol over the message store,
// the configuration store, and the AI gateway. Partial failure always
// resolves to a visible message update: a send that fails leaves a FAILED
// entry with a retry affordance, never a silently dropped message.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"parley/config"
	"parley/fault"
	"parley/model"
	"parley/store"
)

// Asker is the gateway dependency. Only the dispatch entry point is needed
// here; status observation is wired directly to the rendering layer.
type Asker interface {
	Ask(ctx context.Context, prompt string, settings config.Settings) (string, error)
}

// SettingsReader is the configuration dependency. Read never fails.
type SettingsReader interface {
	Read() config.Settings
}

// Service composes the message store, the configuration store, and the AI
// gateway into the three user-facing conversation operations.
type Service struct {
	store    *store.MessageStore
	gateway  Asker
	settings SettingsReader

	now   func() time.Time
	newID func() string
}

// NewService creates the orchestrator. All dependencies are constructor
// injected so tests can run it against fakes.
func NewService(messages *store.MessageStore, gateway Asker, settings SettingsReader) *Service {
	return &Service{
		store:    messages,
		gateway:  gateway,
		settings: settings,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// SendMessage appends the user's message, inserts a PROCESSING assistant
// placeholder so subscribers see the pending reply immediately, asks the
// gateway, and resolves the placeholder to SENT or FAILED.
//
// The returned message is the final state of the assistant entry; err is
// the classified failure when that state is FAILED. Cancelling ctx
// mid-flight resolves the placeholder to a retryable FAILED entry rather
// than leaving it PROCESSING forever.
func (s *Service) SendMessage(ctx context.Context, text string) (model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return model.Message{}, fault.New(fault.KindInvalidArgument, "message must not be blank")
	}

	userMsg := model.Message{
		ID:        s.newID(),
		Sender:    model.SenderUser,
		Content:   text,
		CreatedAt: s.now(),
		Status:    model.StatusSent,
	}
	if err := s.store.Append(userMsg); err != nil {
		return model.Message{}, fault.Wrap(fault.KindInternal, "could not record the message", err)
	}

	placeholder := model.Message{
		ID:        s.newID(),
		Sender:    model.SenderAssistant,
		CreatedAt: s.now(),
		Status:    model.StatusProcessing,
	}
	if err := s.store.Append(placeholder); err != nil {
		return model.Message{}, fault.Wrap(fault.KindInternal, "could not record the reply placeholder", err)
	}

	return s.resolve(ctx, placeholder, text)
}

// RetryMessage re-runs the ask that produced a failed assistant message,
// replacing (not appending) the failed entry in place.
//
// A missing ID — the conversation was cleared between failure and retry —
// is reported as NOT_FOUND, deliberately distinct from a network failure so
// the rendering layer can word the two differently.
//
// Locating the prompt relies on the nearest preceding USER message. The
// rendering layer guarantees a user cannot submit while a reply is
// PROCESSING, so exactly one such predecessor exists under normal
// operation; the orchestrator cannot verify that invariant independently.
func (s *Service) RetryMessage(ctx context.Context, failedID string) (model.Message, error) {
	failed, ok := s.store.Get(failedID)
	if !ok {
		return model.Message{}, fault.New(fault.KindNotFound, "that message no longer exists")
	}
	if failed.Status != model.StatusFailed {
		return model.Message{}, fault.New(fault.KindInvalidArgument, "only failed messages can be retried")
	}

	origin, ok := s.store.PrecedingUserMessage(failedID)
	if !ok {
		return model.Message{}, fault.New(fault.KindInternal, "could not locate the original message")
	}

	pending := failed
	pending.Status = model.StatusProcessing
	pending.Failure = nil
	if err := s.store.Replace(pending); err != nil {
		return model.Message{}, fault.Wrap(fault.KindInternal, "could not update the failed message", err)
	}

	return s.resolve(ctx, pending, origin.Content)
}

// Clear removes the whole conversation.
func (s *Service) Clear() error {
	if err := s.store.Clear(); err != nil {
		return fault.Wrap(fault.KindInternal, "could not clear the conversation", err)
	}
	return nil
}

// resolve performs steps 4-7 of the send protocol: read configuration, ask
// the gateway, and replace the placeholder with the terminal result.
func (s *Service) resolve(ctx context.Context, placeholder model.Message, prompt string) (model.Message, error) {
	settings := s.settings.Read()

	text, askErr := s.gateway.Ask(ctx, prompt, settings)

	final := placeholder
	if askErr != nil {
		classified := fault.Classify(askErr)
		final.Status = model.StatusFailed
		final.Failure = &model.Failure{
			Cause:     classified.Kind,
			Message:   classified.Message,
			Retryable: classified.Retryable(),
		}
		// The replace may race a concurrent Clear; the failed entry is then
		// gone, which is fine - the classified error still reaches the caller.
		_ = s.store.Replace(final)
		return final, classified
	}

	final.Status = model.StatusSent
	final.Content = text
	if err := s.store.Replace(final); err != nil {
		return final, fault.Wrap(fault.KindInternal, "could not record the reply", err)
	}
	return final, nil
}
