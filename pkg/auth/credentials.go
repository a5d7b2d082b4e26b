// Package auth stores the session credentials the content source needs. A
// Manager chains the system keychain, an encrypted file, and environment
// variables, trying each in order.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Credentials are the session cookies for one login.
type Credentials struct {
	Username     string    `json:"username"`
	SessionID    string    `json:"session_id"`
	CSRFToken    string    `json:"csrf_token"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store persists credentials by username.
type Store interface {
	Store(creds *Credentials) error
	Retrieve(username string) (*Credentials, error)
	List() ([]*Credentials, error)
	Delete(username string) error
	Exists(username string) bool
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

// Manager chains credential stores with fallback.
type Manager struct {
	stores []Store
}

// NewManager builds the default store chain: keychain when available, then
// the encrypted file, then environment variables.
func NewManager() (*Manager, error) {
	var stores []Store

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves credentials to the first store that accepts them.
func (m *Manager) Store(creds *Credentials) error {
	if creds.Username == "" {
		return errors.New("username is required")
	}
	if creds.SessionID == "" {
		return errors.New("session ID is required")
	}
	if creds.CSRFToken == "" {
		return errors.New("CSRF token is required")
	}

	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(creds); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them.
func (m *Manager) Retrieve(username string) (*Credentials, error) {
	for _, store := range m.stores {
		if creds, err := store.Retrieve(username); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("credentials not found for user: %s", username)
}

// RetrieveDefault returns environment credentials when present, otherwise
// the first stored login.
func (m *Manager) RetrieveDefault() (*Credentials, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if creds, err := envStore.Retrieve(""); err == nil && creds != nil {
			return creds, nil
		}
	}

	all, err := m.List()
	if err == nil && len(all) > 0 {
		return all[0], nil
	}

	return nil, ErrCredentialsNotFound
}

// List merges all stored logins, preferring the most recently modified
// version of each username.
func (m *Manager) List() ([]*Credentials, error) {
	byUser := make(map[string]*Credentials)

	for _, store := range m.stores {
		all, err := store.List()
		if err != nil {
			continue
		}
		for _, creds := range all {
			if existing, ok := byUser[creds.Username]; !ok || creds.LastModified.After(existing.LastModified) {
				byUser[creds.Username] = creds
			}
		}
	}

	var result []*Credentials
	for _, creds := range byUser {
		result = append(result, creds)
	}
	return result, nil
}

// Delete removes credentials from every store that holds them.
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credentials not found for user: %s", username)
	}
	return nil
}

func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igcrawler")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igcrawler")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igcrawler")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igcrawler")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Masked returns a copy with the secrets obscured, safe for logging.
func (c *Credentials) Masked() *Credentials {
	if c == nil {
		return nil
	}
	return &Credentials{
		Username:     c.Username,
		SessionID:    maskString(c.SessionID),
		CSRFToken:    maskString(c.CSRFToken),
		UserAgent:    c.UserAgent,
		LastModified: c.LastModified,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
