package client

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenStore persists the bearer token to a local file so the
// dashboard stays logged in between sessions. It is the only
// client-side persisted state. Satisfies api.TokenSource.
type TokenStore struct {
	path string

	mu    sync.RWMutex
	token string
}

// NewTokenStore loads any previously saved token from path.
func NewTokenStore(path string) (*TokenStore, error) {
	ts := &TokenStore{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ts, nil
		}
		return nil, err
	}
	ts.token = strings.TrimSpace(string(data))
	return ts, nil
}

// Token returns the current bearer token, empty if logged out.
func (ts *TokenStore) Token() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.token
}

// Save stores a new token in memory and on disk.
func (ts *TokenStore) Save(token string) error {
	ts.mu.Lock()
	ts.token = token
	ts.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(ts.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(ts.path, []byte(token), 0o600)
}

// Clear wipes the token in memory and on disk (logout).
func (ts *TokenStore) Clear() error {
	ts.mu.Lock()
	ts.token = ""
	ts.mu.Unlock()

	err := os.Remove(ts.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
