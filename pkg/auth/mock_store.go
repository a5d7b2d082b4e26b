package auth

import "sync"

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu    sync.RWMutex
	creds map[string]*Credentials

	// FailStore, when set, makes Store return this error.
	FailStore error
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{creds: make(map[string]*Credentials)}
}

func (m *MockStore) Store(creds *Credentials) error {
	if m.FailStore != nil {
		return m.FailStore
	}
	if creds == nil || creds.Username == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *creds
	m.creds[creds.Username] = &copied
	return nil
}

func (m *MockStore) Retrieve(username string) (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	creds, ok := m.creds[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	copied := *creds
	return &copied, nil
}

func (m *MockStore) List() ([]*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Credentials, 0, len(m.creds))
	for _, creds := range m.creds {
		copied := *creds
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MockStore) Delete(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.creds[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.creds, username)
	return nil
}

func (m *MockStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.creds[username]
	return ok
}
