package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
)

// SecurityMethod defines the credential storage method
type SecurityMethod string

const (
	SecurityPlainText  SecurityMethod = "plaintext"
	SecurityPassphrase SecurityMethod = "passphrase"
)

// CredentialStore manages the relay API token at rest, either as plain text
// or AES-GCM encrypted under a scrypt-derived key.
type CredentialStore struct {
	method     SecurityMethod
	dataDir    string
	passphrase string
}

type credentialFile struct {
	Method SecurityMethod `json:"method"`
	Salt   []byte         `json:"salt,omitempty"`
	Nonce  []byte         `json:"nonce,omitempty"`
	Data   []byte         `json:"data"`
}

// NewCredentialStore creates a credential store rooted at dataDir.
func NewCredentialStore(method SecurityMethod, dataDir string) *CredentialStore {
	return &CredentialStore{method: method, dataDir: dataDir}
}

// SetPassphrase sets the passphrase used to derive the encryption key.
func (c *CredentialStore) SetPassphrase(passphrase string) {
	c.passphrase = passphrase
}

func (c *CredentialStore) path() string {
	return filepath.Join(c.dataDir, "credential.json")
}

// Load reads the stored credential. A missing file is not an error: it
// yields an empty credential.
func (c *CredentialStore) Load() (string, error) {
	data, err := os.ReadFile(c.path())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}

	var file credentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("failed to parse credential file: %w", err)
	}

	switch file.Method {
	case SecurityPlainText:
		return string(file.Data), nil

	case SecurityPassphrase:
		if c.passphrase == "" {
			return "", fmt.Errorf("credential is encrypted - passphrase required")
		}
		plain, err := c.decrypt(file)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt credential: %w", err)
		}
		return string(plain), nil

	default:
		return "", fmt.Errorf("unknown security method: %s", file.Method)
	}
}

// Save writes the credential to disk using the configured security method.
// An empty credential removes the file.
func (c *CredentialStore) Save(credential string) error {
	if credential == "" {
		if err := os.Remove(c.path()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credential file: %w", err)
		}
		return nil
	}

	var file credentialFile
	switch c.method {
	case SecurityPlainText:
		file = credentialFile{Method: SecurityPlainText, Data: []byte(credential)}

	case SecurityPassphrase:
		if c.passphrase == "" {
			return fmt.Errorf("passphrase required to encrypt credential")
		}
		encrypted, err := c.encrypt([]byte(credential))
		if err != nil {
			return fmt.Errorf("failed to encrypt credential: %w", err)
		}
		file = encrypted

	default:
		return fmt.Errorf("unknown security method: %s", c.method)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential file: %w", err)
	}

	// 0600 - the file holds an API token
	if err := os.WriteFile(c.path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

func (c *CredentialStore) encrypt(plain []byte) (credentialFile, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return credentialFile{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := c.cipher(salt)
	if err != nil {
		return credentialFile{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return credentialFile{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return credentialFile{
		Method: SecurityPassphrase,
		Salt:   salt,
		Nonce:  nonce,
		Data:   gcm.Seal(nil, nonce, plain, nil),
	}, nil
}

func (c *CredentialStore) decrypt(file credentialFile) ([]byte, error) {
	gcm, err := c.cipher(file.Salt)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, file.Nonce, file.Data, nil)
}

func (c *CredentialStore) cipher(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(c.passphrase), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
