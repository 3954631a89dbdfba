package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"parley/pubsub"
)

// Store is the durable, validated, observable configuration slot.
//
// Read never fails: any I/O or parse problem is logged and the last known
// good settings are returned instead, trading strict correctness for
// availability on non-critical state. Write validates before persisting, so
// an invalid Settings value is never on disk.
type Store struct {
	mu       sync.Mutex
	path     string
	creds    *CredentialStore
	logger   *log.Logger
	lastGood Settings
	slot     *pubsub.Slot[Settings]
}

// NewStore opens (or creates) the settings file inside dataDir. creds may be
// nil when no credential persistence is wanted; logger may be nil to
// silence recovery logging.
func NewStore(dataDir string, creds *CredentialStore, logger *log.Logger) (*Store, error) {
	if err := EnsureDir(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, "settings.toml")
	if !FileExists(path) {
		if err := os.WriteFile(path, []byte(GenerateSettingsTemplate()), 0600); err != nil {
			return nil, fmt.Errorf("failed to write default settings: %w", err)
		}
	}

	s := &Store{
		path:     path,
		creds:    creds,
		logger:   logger,
		lastGood: DefaultSettings(),
	}
	s.lastGood = s.load()
	s.slot = pubsub.NewSlotWith(s.lastGood)
	return s, nil
}

// Read returns the current settings. It never fails: a corrupted or
// unreadable file yields the last known good value.
func (s *Store) Read() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastGood = s.load()
	return s.lastGood
}

// Write validates, persists, and publishes new settings. Subsequent Read
// calls and the Observe stream reflect the new value once Write returns.
func (s *Store) Write(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 0600 - settings identify the relay endpoint
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(settings); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if s.creds != nil {
		if err := s.creds.Save(settings.Credential); err != nil {
			return fmt.Errorf("failed to save credential: %w", err)
		}
	}

	s.lastGood = settings
	s.slot.Publish(settings)
	return nil
}

// Observe attaches a subscriber that receives the current settings
// immediately, then one emission per successful Write, in write order.
func (s *Store) Observe() *pubsub.Subscription[Settings] {
	return s.slot.Subscribe()
}

// load reads and validates the on-disk settings, falling back to the last
// known good value on any failure. Called with s.mu held (or from NewStore
// before the store is shared).
func (s *Store) load() Settings {
	settings := DefaultSettings()
	if _, err := toml.DecodeFile(s.path, &settings); err != nil {
		s.logf("settings file unreadable, using last known good: %v", err)
		return s.withCredential(s.lastGood)
	}
	settings = s.withCredential(settings)
	settings.applyEnvOverrides()
	if err := settings.Validate(); err != nil {
		s.logf("settings file invalid, using last known good: %v", err)
		return s.withCredential(s.lastGood)
	}
	return settings
}

func (s *Store) withCredential(settings Settings) Settings {
	if s.creds == nil {
		return settings
	}
	cred, err := s.creds.Load()
	if err != nil {
		s.logf("credential unreadable, continuing without: %v", err)
		return settings
	}
	settings.Credential = cred
	return settings
}

func (s *Store) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf("[Config] "+format, args...)
	}
}
