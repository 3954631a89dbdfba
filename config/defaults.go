package config

import "parley/model"

func DefaultSettings() Settings {
	return Settings{
		Mode: model.ModeOnline,
		Relay: RelaySettings{
			BaseURL: "http://localhost:8787",
		},
		Params: model.DefaultParams(),
	}
}

func GenerateSettingsTemplate() string {
	return `# Parley Configuration
# Location: <data_directory>/settings.toml
# This file uses TOML format: https://toml.io

# Request mode: "online" (through the relay proxy) or "offline" (on-device)
mode = "online"

[relay]
# Relay proxy base URL
base_url = "http://localhost:8787"

[model]
# Sampling temperature, 0.0 - 2.0
temperature = 1.0

# Top-K sampling cutoff, must be positive
top_k = 40

# Nucleus sampling threshold, 0.0 - 1.0
top_p = 0.95

# Response length cap, must be positive
max_output_tokens = 1024
`
}
