package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"parley/fault"
	"parley/model"
)

// RelaySettings locate the server-side proxy used for online requests.
type RelaySettings struct {
	BaseURL string `toml:"base_url"`
}

// Settings is the single-slot configuration the orchestrator reads at send
// time. Instances are replace-only: a Settings value is never mutated in
// place after it has been handed out.
type Settings struct {
	Mode   model.Mode        `toml:"mode"`
	Relay  RelaySettings     `toml:"relay"`
	Params model.ModelParams `toml:"model"`

	// Credential is the API token for the online path. It lives in the
	// credential store, not in settings.toml.
	Credential string `toml:"-"`
}

// Validate rejects settings that must never be persisted.
func (s Settings) Validate() error {
	if !s.Mode.Valid() {
		return fault.Newf(fault.KindInvalidArgument, "unknown mode: %s", s.Mode)
	}
	if s.Mode == model.ModeOnline && s.Relay.BaseURL == "" {
		return fault.New(fault.KindInvalidArgument, "relay base URL is required for online mode")
	}
	return s.Params.Validate()
}

var Debug = false
var DebugLog *log.Logger

// CheckDebug reports whether debug logging was requested via environment.
func CheckDebug() bool {
	debug := os.Getenv("PARLEY_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens the debug log file inside the data directory.
func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600 - the log may contain request metadata
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (PARLEY_DEBUG=%s) ===", os.Getenv("PARLEY_DEBUG"))
}

// applyEnvOverrides lets environment variables win over the settings file.
func (s *Settings) applyEnvOverrides() {
	if mode := os.Getenv("PARLEY_MODE"); mode != "" {
		s.Mode = model.Mode(mode)
	}
	if url := os.Getenv("PARLEY_RELAY_URL"); url != "" {
		s.Relay.BaseURL = url
	}
	if token := os.Getenv("PARLEY_TOKEN"); token != "" {
		s.Credential = token
	}
}
