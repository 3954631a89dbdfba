package model

import (
	"testing"

	"parley/fault"
)

func TestModelParamsValidate(t *testing.T) {
	valid := DefaultParams()

	tests := []struct {
		name   string
		mutate func(*ModelParams)
		ok     bool
	}{
		{"defaults", func(p *ModelParams) {}, true},
		{"temperature floor", func(p *ModelParams) { p.Temperature = 0.0 }, true},
		{"temperature ceiling", func(p *ModelParams) { p.Temperature = 2.0 }, true},
		{"temperature too high", func(p *ModelParams) { p.Temperature = 2.1 }, false},
		{"temperature negative", func(p *ModelParams) { p.Temperature = -0.1 }, false},
		{"topK one", func(p *ModelParams) { p.TopK = 1 }, true},
		{"topK zero", func(p *ModelParams) { p.TopK = 0 }, false},
		{"topP ceiling", func(p *ModelParams) { p.TopP = 1.0 }, true},
		{"topP too high", func(p *ModelParams) { p.TopP = 1.01 }, false},
		{"maxOutputTokens zero", func(p *ModelParams) { p.MaxOutputTokens = 0 }, false},
		{"maxOutputTokens negative", func(p *ModelParams) { p.MaxOutputTokens = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.ok && !fault.IsKind(err, fault.KindInvalidArgument) {
				t.Errorf("Validate() kind = %v, want INVALID_ARGUMENT", fault.KindOf(err))
			}
		})
	}
}

func TestModeValid(t *testing.T) {
	if !ModeOnline.Valid() || !ModeOffline.Valid() {
		t.Error("known modes reported invalid")
	}
	if Mode("hybrid").Valid() {
		t.Error("unknown mode reported valid")
	}
}
