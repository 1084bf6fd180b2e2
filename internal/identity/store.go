package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the anonymous session id across runs. It is the
// moral equivalent of the browser's fixed localStorage slot.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, sessionID string) error
}

// ErrNoSession means no anonymous session id has been persisted yet.
var ErrNoSession = errors.New("no persisted session")

// MemoryStore keeps the session id for the process lifetime only.
type MemoryStore struct {
	mu sync.Mutex
	id string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == "" {
		return "", ErrNoSession
	}
	return s.id, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = sessionID
	return nil
}

// FileStore persists the session id as a small JSON file, surviving
// restarts the way a browser profile survives reloads.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type fileSession struct {
	SessionID string `json:"session_id"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("read session file: %w", err)
	}

	var sess fileSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return "", fmt.Errorf("decode session file: %w", err)
	}
	if sess.SessionID == "" {
		return "", ErrNoSession
	}
	return sess.SessionID, nil
}

func (s *FileStore) Save(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.Marshal(fileSession{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
