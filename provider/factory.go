// Package provider implements the concrete model-call backends behind the
// model.Provider interface.
//
// The client's online path talks to the Parley relay proxy; the relay
// itself (and self-hosted deployments) talk to a real model backend: a
// local Ollama server, OpenAI, or Anthropic. All implementations share one
// contract: a prompt goes in, the full response text or a classified error
// comes out. Streaming, tool use, and multi-turn context are deliberately
// not part of this interface.
package provider

import (
	"fmt"

	"parley/model"
)

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeRelay     ProviderType = "relay"
	ProviderTypeOllama    ProviderType = "ollama"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // required for relay/OpenAI/Anthropic, unused for Ollama
}

// NewProvider creates a provider based on configuration.
//
// This is the centralized factory for every provider type; it dispatches to
// the matching constructor based on Config.Type.
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeRelay:
		return NewRelayProvider(cfg.BaseURL, cfg.APIKey)
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}
