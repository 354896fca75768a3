package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TokenStore persists the opaque bearer credential between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the credential in a JSON file with owner-only
// permissions, by default under the user config directory.
type FileTokenStore struct {
	path string
}

type tokenFile struct {
	Token string `json:"token"`
}

// NewFileTokenStore creates a store at path. An empty path falls back to
// <user config dir>/readstack/credentials.json.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "readstack", "credentials.json")
	}
	return &FileTokenStore{path: path}, nil
}

func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("failed to parse credential file: %w", err)
	}
	return tf.Token, nil
}

func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential dir: %w", err)
	}
	data, err := json.Marshal(tokenFile{Token: token})
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}

// MemoryTokenStore holds the credential in process memory only. Used in
// tests and when persistence is disabled.
type MemoryTokenStore struct {
	token string
}

func (s *MemoryTokenStore) Load() (string, error)     { return s.token, nil }
func (s *MemoryTokenStore) Save(token string) error   { s.token = token; return nil }
func (s *MemoryTokenStore) Clear() error              { s.token = ""; return nil }
