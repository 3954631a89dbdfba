package config

import (
	"strings"
	"testing"
)

func TestCredentialPlainTextRoundTrip(t *testing.T) {
	store := NewCredentialStore(SecurityPlainText, t.TempDir())

	if err := store.Save("tok-12345"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "tok-12345" {
		t.Errorf("Load() = %q, want %q", got, "tok-12345")
	}
}

func TestCredentialEncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewCredentialStore(SecurityPassphrase, dir)
	store.SetPassphrase("correct horse")

	if err := store.Save("tok-secret"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A fresh store with the right passphrase decrypts.
	reader := NewCredentialStore(SecurityPassphrase, dir)
	reader.SetPassphrase("correct horse")
	got, err := reader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "tok-secret" {
		t.Errorf("Load() = %q, want %q", got, "tok-secret")
	}
}

func TestCredentialWrongPassphraseFails(t *testing.T) {
	dir := t.TempDir()
	store := NewCredentialStore(SecurityPassphrase, dir)
	store.SetPassphrase("right")
	if err := store.Save("tok-secret"); err != nil {
		t.Fatal(err)
	}

	reader := NewCredentialStore(SecurityPassphrase, dir)
	reader.SetPassphrase("wrong")
	if _, err := reader.Load(); err == nil {
		t.Error("Load() with wrong passphrase succeeded")
	}
}

func TestCredentialMissingFileIsEmpty(t *testing.T) {
	store := NewCredentialStore(SecurityPlainText, t.TempDir())
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "" {
		t.Errorf("Load() = %q, want empty", got)
	}
}

func TestCredentialEncryptionRequiresPassphrase(t *testing.T) {
	store := NewCredentialStore(SecurityPassphrase, t.TempDir())
	err := store.Save("tok")
	if err == nil || !strings.Contains(err.Error(), "passphrase") {
		t.Errorf("Save() error = %v, want passphrase requirement", err)
	}
}

func TestCredentialEmptySaveRemovesFile(t *testing.T) {
	dir := t.TempDir()
	store := NewCredentialStore(SecurityPlainText, dir)
	if err := store.Save("tok"); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(""); err != nil {
		t.Fatalf("Save(empty) error = %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("Load() after removal = %q, want empty", got)
	}
}
