package testutil

import (
	"context"

	"parley/model"
)

// MockProvider implements model.Provider for testing
type MockProvider struct {
	// Configurable responses
	AskFunc  func(ctx context.Context, prompt string, params model.ModelParams) (string, error)
	PingFunc func(ctx context.Context) error

	// State
	currentModel string

	// Recorded calls
	Prompts []string
}

// NewMockProvider creates a mock provider with default implementations
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{
		currentModel: modelName,
	}
	mock.AskFunc = mock.defaultAsk
	mock.PingFunc = mock.defaultPing
	return mock
}

func (m *MockProvider) defaultAsk(ctx context.Context, prompt string, params model.ModelParams) (string, error) {
	return "Mock response", nil
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) Ask(ctx context.Context, prompt string, params model.ModelParams) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	return m.AskFunc(ctx, prompt, params)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) SetModel(modelName string) {
	m.currentModel = modelName
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
