package model

import "parley/fault"

// Mode selects how the assistant request is served.
type Mode string

const (
	// ModeOnline routes requests through the relay proxy.
	ModeOnline Mode = "online"
	// ModeOffline is the on-device path. Not yet implemented: selecting it
	// reports UNAVAILABLE rather than silently falling back to online.
	ModeOffline Mode = "offline"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeOnline || m == ModeOffline
}

// ModelParams are the generation parameters sent with every model call.
// The same ranges are enforced by the client configuration store and the
// server request validator.
type ModelParams struct {
	Temperature     float64 `toml:"temperature" json:"temperature"`
	TopK            int     `toml:"top_k" json:"topK"`
	TopP            float64 `toml:"top_p" json:"topP"`
	MaxOutputTokens int     `toml:"max_output_tokens" json:"maxOutputTokens"`
}

// DefaultParams returns the parameter set used when nothing is configured.
func DefaultParams() ModelParams {
	return ModelParams{
		Temperature:     1.0,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
	}
}

// Validate checks every parameter range, reporting the first violation as
// an INVALID_ARGUMENT fault.
func (p ModelParams) Validate() error {
	if p.Temperature < 0.0 || p.Temperature > 2.0 {
		return fault.Newf(fault.KindInvalidArgument, "temperature must be between 0.0 and 2.0, got %g", p.Temperature)
	}
	if p.TopK <= 0 {
		return fault.Newf(fault.KindInvalidArgument, "topK must be positive, got %d", p.TopK)
	}
	if p.TopP < 0.0 || p.TopP > 1.0 {
		return fault.Newf(fault.KindInvalidArgument, "topP must be between 0.0 and 1.0, got %g", p.TopP)
	}
	if p.MaxOutputTokens <= 0 {
		return fault.Newf(fault.KindInvalidArgument, "maxOutputTokens must be positive, got %d", p.MaxOutputTokens)
	}
	return nil
}
