package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"parley/config"
	"parley/fault"
	"parley/model"
	"parley/provider"
	"parley/provider/testutil"
)

func onlineSettings() config.Settings {
	s := config.DefaultSettings()
	s.Credential = "tok-abc123"
	return s
}

func newTestGateway(mock *testutil.MockProvider) *Gateway {
	return NewWithFactory(func(cfg provider.Config) (model.Provider, error) {
		return mock, nil
	})
}

func recvStatus(t *testing.T, ch <-chan Status) Status {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for status")
		return Status{}
	}
}

func TestAskBlankPromptRejected(t *testing.T) {
	mock := testutil.NewMockProvider("test-model")
	g := newTestGateway(mock)

	for _, prompt := range []string{"", "   ", "\n\t"} {
		_, err := g.Ask(context.Background(), prompt, onlineSettings())
		if !fault.IsKind(err, fault.KindInvalidArgument) {
			t.Errorf("Ask(%q) kind = %v, want INVALID_ARGUMENT", prompt, fault.KindOf(err))
		}
	}
	if len(mock.Prompts) != 0 {
		t.Errorf("provider called %d times for blank prompts, want 0", len(mock.Prompts))
	}
}

func TestAskBlankPromptLeavesStatusUnchanged(t *testing.T) {
	g := newTestGateway(testutil.NewMockProvider("test-model"))

	g.Ask(context.Background(), "  ", onlineSettings())

	sub := g.Status()
	defer sub.Close()
	status := recvStatus(t, sub.Updates())
	if status.State != StatusAvailable {
		t.Errorf("status after blank prompt = %v, want %v", status.State, StatusAvailable)
	}
}

func TestAskOfflineModeUnavailable(t *testing.T) {
	mock := testutil.NewMockProvider("test-model")
	g := newTestGateway(mock)

	settings := onlineSettings()
	settings.Mode = model.ModeOffline

	_, err := g.Ask(context.Background(), "hello", settings)
	if !fault.IsKind(err, fault.KindUnavailable) {
		t.Fatalf("Ask() kind = %v, want UNAVAILABLE", fault.KindOf(err))
	}
	if len(mock.Prompts) != 0 {
		t.Error("offline mode must not fall back to the online provider")
	}

	sub := g.Status()
	defer sub.Close()
	status := recvStatus(t, sub.Updates())
	if status.State != StatusUnavailable {
		t.Errorf("status = %v, want %v", status.State, StatusUnavailable)
	}
	if !status.Recoverable {
		t.Error("offline-mode status should be recoverable")
	}
}

func TestAskCredentialChecks(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		wantKind   fault.Kind
	}{
		{"missing", "", fault.KindUnauthenticated},
		{"embedded space", "tok abc", fault.KindInvalidArgument},
		{"control character", "tok\x00abc", fault.KindInvalidArgument},
		{"trailing newline", "tok-abc\n", fault.KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockProvider("test-model")
			g := newTestGateway(mock)

			settings := onlineSettings()
			settings.Credential = tt.credential

			_, err := g.Ask(context.Background(), "hello", settings)
			if !fault.IsKind(err, tt.wantKind) {
				t.Errorf("Ask() kind = %v, want %v", fault.KindOf(err), tt.wantKind)
			}
			if len(mock.Prompts) != 0 {
				t.Error("provider must not be called when the credential check fails")
			}

			sub := g.Status()
			defer sub.Close()
			status := recvStatus(t, sub.Updates())
			if status.State != StatusError {
				t.Errorf("status = %v, want %v", status.State, StatusError)
			}
			if status.Recoverable {
				t.Error("credential failures are not recoverable without reconfiguration")
			}
		})
	}
}

func TestAskSuccess(t *testing.T) {
	mock := testutil.NewMockProvider("test-model")
	mock.AskFunc = func(ctx context.Context, prompt string, params model.ModelParams) (string, error) {
		return "the answer", nil
	}
	g := newTestGateway(mock)

	text, err := g.Ask(context.Background(), "hello", onlineSettings())
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if text != "the answer" {
		t.Errorf("Ask() = %q, want %q", text, "the answer")
	}

	sub := g.Status()
	defer sub.Close()
	status := recvStatus(t, sub.Updates())
	if status.State != StatusAvailable {
		t.Errorf("status after success = %v, want %v", status.State, StatusAvailable)
	}
}

func TestAskClassifiesProviderFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind fault.Kind
		wantRec  bool
	}{
		{"context canceled", context.Canceled, fault.KindUnavailable, true},
		{"deadline exceeded", context.DeadlineExceeded, fault.KindUnavailable, true},
		{"already classified", fault.New(fault.KindPermissionDenied, "model not allowed"), fault.KindPermissionDenied, false},
		{"unknown error", errors.New("boom"), fault.KindInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockProvider("test-model")
			mock.AskFunc = func(ctx context.Context, prompt string, params model.ModelParams) (string, error) {
				return "", tt.err
			}
			g := newTestGateway(mock)

			_, err := g.Ask(context.Background(), "hello", onlineSettings())
			if !fault.IsKind(err, tt.wantKind) {
				t.Errorf("Ask() kind = %v, want %v", fault.KindOf(err), tt.wantKind)
			}

			sub := g.Status()
			defer sub.Close()
			status := recvStatus(t, sub.Updates())
			if status.State != StatusError {
				t.Errorf("status = %v, want %v", status.State, StatusError)
			}
			if status.Recoverable != tt.wantRec {
				t.Errorf("status.Recoverable = %v, want %v", status.Recoverable, tt.wantRec)
			}
		})
	}
}

func TestAskRecoversAfterFailure(t *testing.T) {
	mock := testutil.NewMockProvider("test-model")
	fail := true
	mock.AskFunc = func(ctx context.Context, prompt string, params model.ModelParams) (string, error) {
		if fail {
			return "", errors.New("transient")
		}
		return "ok", nil
	}
	g := newTestGateway(mock)

	sub := g.Status()
	defer sub.Close()
	if s := recvStatus(t, sub.Updates()); s.State != StatusAvailable {
		t.Fatalf("initial status = %v, want %v", s.State, StatusAvailable)
	}

	g.Ask(context.Background(), "hello", onlineSettings())
	if s := recvStatus(t, sub.Updates()); s.State != StatusError {
		t.Fatalf("status after failure = %v, want %v", s.State, StatusError)
	}

	fail = false
	if _, err := g.Ask(context.Background(), "hello again", onlineSettings()); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if s := recvStatus(t, sub.Updates()); s.State != StatusAvailable {
		t.Errorf("status after recovery = %v, want %v", s.State, StatusAvailable)
	}
}

func TestAskFactoryFailure(t *testing.T) {
	g := NewWithFactory(func(cfg provider.Config) (model.Provider, error) {
		return nil, errors.New("no such provider")
	})

	_, err := g.Ask(context.Background(), "hello", onlineSettings())
	if !fault.IsKind(err, fault.KindInternal) {
		t.Errorf("Ask() kind = %v, want INTERNAL", fault.KindOf(err))
	}
}
