package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads credentials from IGCRAWLER_* environment variables.
// It is read-only and sits last in the Manager's fallback chain.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is unsupported for environment variables.
func (e *EnvironmentStore) Store(_ *Credentials) error {
	return ErrInvalidCredentials
}

// Retrieve reads session credentials from the environment. The username
// argument is ignored; the environment holds at most one login.
func (e *EnvironmentStore) Retrieve(_ string) (*Credentials, error) {
	sessionID := os.Getenv("IGCRAWLER_SESSION_ID")
	csrfToken := os.Getenv("IGCRAWLER_CSRF_TOKEN")
	if sessionID == "" || csrfToken == "" {
		return nil, ErrCredentialsNotFound
	}

	username := os.Getenv("IGCRAWLER_USERNAME")
	if username == "" {
		username = "environment"
	}

	return &Credentials{
		Username:     username,
		SessionID:    sessionID,
		CSRFToken:    csrfToken,
		UserAgent:    os.Getenv("IGCRAWLER_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is unsupported for environment variables.
func (e *EnvironmentStore) Delete(_ string) error {
	return ErrCredentialsNotFound
}

func (e *EnvironmentStore) Exists(_ string) bool {
	_, err := e.Retrieve("")
	return err == nil
}
