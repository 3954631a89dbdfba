package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"parley/fault"
	"parley/model"
)

// RelayProvider implements the Provider interface against the Parley relay
// proxy's wire contract. The relay owns the upstream credential and model
// selection; the client only presents its own bearer token.
type RelayProvider struct {
	httpClient *http.Client
	baseURL    string
	token      string

	mu        sync.Mutex
	lastModel string // model name reported by the most recent response
}

// ChatRequest is the relay request payload.
type ChatRequest struct {
	Message         string             `json:"message"`
	ModelParameters *model.ModelParams `json:"modelParameters,omitempty"`
}

// ChatResponse is the relay success payload.
type ChatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// ErrorEnvelope is the relay failure payload. Status carries one of the five
// shared taxonomy kinds, so both sides of the wire agree on meaning.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// NewRelayProvider creates a relay provider instance.
func NewRelayProvider(baseURL, token string) (*RelayProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:8787"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}

	return &RelayProvider{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}, nil
}

// Ask implements Provider.Ask over the relay wire contract.
func (p *RelayProvider) Ask(ctx context.Context, prompt string, params model.ModelParams) (string, error) {
	body, err := json.Marshal(ChatRequest{Message: prompt, ModelParameters: &params})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", decodeRelayError(resp.StatusCode, data)
	}

	var chat ChatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return "", fault.Wrap(fault.KindInternal, "the relay returned an unreadable response", err)
	}

	p.mu.Lock()
	p.lastModel = chat.Model
	p.mu.Unlock()

	return chat.Response, nil
}

// GetModel returns the model name the relay last answered with. Empty until
// the first successful response; the relay owns model selection.
func (p *RelayProvider) GetModel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastModel
}

// SetModel is a no-op: the relay decides which upstream model serves a
// request.
func (p *RelayProvider) SetModel(string) {}

// Ping implements Provider.Ping against the relay health endpoint.
func (p *RelayProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay ping failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay ping failed: status %d", resp.StatusCode)
	}
	return nil
}

// decodeRelayError turns a non-200 relay response into a classified error.
// The envelope's status string is authoritative; the HTTP status code is
// only a fallback for responses that carry no envelope.
func decodeRelayError(statusCode int, data []byte) error {
	var envelope ErrorEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Status != "" {
		return &fault.Error{
			Kind:    fault.ParseKind(envelope.Error.Status),
			Message: envelope.Error.Message,
			Detail:  envelope.Error.Detail,
		}
	}
	return fault.Newf(fault.FromStatusCode(statusCode), "the relay rejected the request (status %d)", statusCode)
}
