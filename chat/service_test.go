package chat

import (
	"context"
	"fmt"
	"testing"

	"parley/config"
	"parley/fault"
	"parley/model"
	"parley/store"
)

type fakeGateway struct {
	askFunc func(ctx context.Context, prompt string, settings config.Settings) (string, error)
	prompts []string
}

func (f *fakeGateway) Ask(ctx context.Context, prompt string, settings config.Settings) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.askFunc != nil {
		return f.askFunc(ctx, prompt, settings)
	}
	return "reply to: " + prompt, nil
}

type fakeSettings struct {
	settings config.Settings
}

func (f *fakeSettings) Read() config.Settings { return f.settings }

func newTestService(gw *fakeGateway) (*Service, *store.MessageStore) {
	messages := store.NewMessageStore()
	reader := &fakeSettings{settings: config.DefaultSettings()}
	svc := NewService(messages, gw, reader)

	// Deterministic IDs for assertions.
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("msg-%d", n)
	}
	return svc, messages
}

func TestSendMessageSuccess(t *testing.T) {
	gw := &fakeGateway{}
	svc, messages := newTestService(gw)

	reply, err := svc.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	if reply.Sender != model.SenderAssistant {
		t.Errorf("reply.Sender = %v, want assistant", reply.Sender)
	}
	if reply.Status != model.StatusSent {
		t.Errorf("reply.Status = %v, want SENT", reply.Status)
	}
	if reply.Content != "reply to: hello" {
		t.Errorf("reply.Content = %q", reply.Content)
	}

	snapshot := messages.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("store has %d messages, want 2", len(snapshot))
	}
	if snapshot[0].Sender != model.SenderUser || snapshot[0].Content != "hello" {
		t.Errorf("first message = %+v, want user 'hello'", snapshot[0])
	}
	if snapshot[1].ID != reply.ID {
		t.Errorf("placeholder was appended again instead of replaced")
	}
}

func TestSendMessageBlankRejectedWithoutMutation(t *testing.T) {
	gw := &fakeGateway{}
	svc, messages := newTestService(gw)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.SendMessage(context.Background(), text)
		if !fault.IsKind(err, fault.KindInvalidArgument) {
			t.Errorf("SendMessage(%q) kind = %v, want INVALID_ARGUMENT", text, fault.KindOf(err))
		}
	}
	if messages.Len() != 0 {
		t.Errorf("store has %d messages after blank sends, want 0", messages.Len())
	}
	if len(gw.prompts) != 0 {
		t.Error("gateway was called for a blank message")
	}
}

func TestSendMessageFailureLeavesRetryableEntry(t *testing.T) {
	gw := &fakeGateway{
		askFunc: func(ctx context.Context, prompt string, settings config.Settings) (string, error) {
			return "", fault.New(fault.KindUnavailable, "the assistant service is unreachable")
		},
	}
	svc, messages := newTestService(gw)

	reply, err := svc.SendMessage(context.Background(), "hello")
	if !fault.IsKind(err, fault.KindUnavailable) {
		t.Fatalf("SendMessage() kind = %v, want UNAVAILABLE", fault.KindOf(err))
	}

	if reply.Status != model.StatusFailed {
		t.Errorf("reply.Status = %v, want FAILED", reply.Status)
	}
	if reply.Failure == nil {
		t.Fatal("reply.Failure is nil")
	}
	if reply.Failure.Cause != fault.KindUnavailable {
		t.Errorf("Failure.Cause = %v, want UNAVAILABLE", reply.Failure.Cause)
	}
	if !reply.Failure.Retryable {
		t.Error("UNAVAILABLE failure should be retryable")
	}

	// The user message stays in the conversation alongside the failed reply.
	snapshot := messages.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("store has %d messages, want 2", len(snapshot))
	}
	if snapshot[1].Status != model.StatusFailed {
		t.Errorf("stored reply status = %v, want FAILED", snapshot[1].Status)
	}
}

func TestSendMessageNonRetryableFailure(t *testing.T) {
	gw := &fakeGateway{
		askFunc: func(ctx context.Context, prompt string, settings config.Settings) (string, error) {
			return "", fault.New(fault.KindUnauthenticated, "no credential is configured")
		},
	}
	svc, _ := newTestService(gw)

	reply, _ := svc.SendMessage(context.Background(), "hello")
	if reply.Failure == nil {
		t.Fatal("reply.Failure is nil")
	}
	if reply.Failure.Retryable {
		t.Error("UNAUTHENTICATED failure must not be marked retryable")
	}
}

func TestSendMessageCancellation(t *testing.T) {
	gw := &fakeGateway{
		askFunc: func(ctx context.Context, prompt string, settings config.Settings) (string, error) {
			return "", ctx.Err()
		},
	}
	svc, messages := newTestService(gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := svc.SendMessage(ctx, "hello")
	if !fault.IsKind(err, fault.KindUnavailable) {
		t.Fatalf("SendMessage() kind = %v, want UNAVAILABLE", fault.KindOf(err))
	}
	if reply.Status != model.StatusFailed {
		t.Errorf("reply.Status = %v, want FAILED", reply.Status)
	}
	if reply.Failure == nil || !reply.Failure.Retryable {
		t.Error("cancellation should produce a retryable FAILED entry")
	}

	stored, ok := messages.Get(reply.ID)
	if !ok {
		t.Fatal("placeholder vanished from the store")
	}
	if stored.Status == model.StatusProcessing {
		t.Error("placeholder left PROCESSING after cancellation")
	}
}

func TestRetryMessageSuccess(t *testing.T) {
	calls := 0
	gw := &fakeGateway{}
	gw.askFunc = func(ctx context.Context, prompt string, settings config.Settings) (string, error) {
		calls++
		if calls == 1 {
			return "", fault.New(fault.KindUnavailable, "unreachable")
		}
		return "second time lucky", nil
	}
	svc, messages := newTestService(gw)

	failed, _ := svc.SendMessage(context.Background(), "hello")

	reply, err := svc.RetryMessage(context.Background(), failed.ID)
	if err != nil {
		t.Fatalf("RetryMessage() error = %v", err)
	}
	if reply.ID != failed.ID {
		t.Errorf("retry produced a new message %q, want in-place replace of %q", reply.ID, failed.ID)
	}
	if reply.Status != model.StatusSent {
		t.Errorf("reply.Status = %v, want SENT", reply.Status)
	}
	if reply.Content != "second time lucky" {
		t.Errorf("reply.Content = %q", reply.Content)
	}
	if reply.Failure != nil {
		t.Error("Failure not cleared on successful retry")
	}

	// The original prompt was re-sent, not the placeholder content.
	if got := gw.prompts[len(gw.prompts)-1]; got != "hello" {
		t.Errorf("retried prompt = %q, want %q", got, "hello")
	}

	if messages.Len() != 2 {
		t.Errorf("store has %d messages after retry, want 2", messages.Len())
	}
}

func TestRetryMessageAfterClearNotFound(t *testing.T) {
	gw := &fakeGateway{
		askFunc: func(ctx context.Context, prompt string, settings config.Settings) (string, error) {
			return "", fault.New(fault.KindUnavailable, "unreachable")
		},
	}
	svc, _ := newTestService(gw)

	failed, _ := svc.SendMessage(context.Background(), "hello")
	if err := svc.Clear(); err != nil {
		t.Fatal(err)
	}

	_, err := svc.RetryMessage(context.Background(), failed.ID)
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("RetryMessage() after clear kind = %v, want NOT_FOUND", fault.KindOf(err))
	}
}

func TestRetryMessageRejectsNonFailed(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	reply, err := svc.SendMessage(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.RetryMessage(context.Background(), reply.ID)
	if !fault.IsKind(err, fault.KindInvalidArgument) {
		t.Errorf("RetryMessage() on SENT message kind = %v, want INVALID_ARGUMENT", fault.KindOf(err))
	}
}

func TestClearEmptiesConversation(t *testing.T) {
	gw := &fakeGateway{}
	svc, messages := newTestService(gw)

	svc.SendMessage(context.Background(), "one")
	svc.SendMessage(context.Background(), "two")
	if messages.Len() != 4 {
		t.Fatalf("store has %d messages, want 4", messages.Len())
	}

	if err := svc.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if messages.Len() != 0 {
		t.Errorf("store has %d messages after clear, want 0", messages.Len())
	}
}
