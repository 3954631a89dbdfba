package model

import "context"

// Provider abstracts the underlying model call (relay proxy, Ollama, OpenAI,
// Anthropic) behind one opaque function: prompt in, text or error out.
//
// The interface lives in the model package (not provider) so that provider
// implementations can import model without an import cycle, mirroring how
// the rest of the core stays provider-agnostic.
type Provider interface {
	// Ask sends a single prompt and returns the full response text.
	Ask(ctx context.Context, prompt string, params ModelParams) (string, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks whether the provider is reachable.
	Ping(ctx context.Context) error
}
