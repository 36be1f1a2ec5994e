package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

const (
	configDirName   = "dropvault"
	credentialsFile = "credentials.json"
)

// Keys used by the session controller and verification flow. Absence of
// a key is a valid state, not an error.
const (
	KeyToken        = "token"
	KeyUser         = "user"
	KeySessionID    = "sessionid"
	KeyPendingEmail = "pendingVerificationEmail"
)

// Store is durable local storage for session-related values. It performs
// no validation; callers decide what a stored value means.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// FileStore persists values as a JSON object in
// ~/.config/dropvault/credentials.json.
type FileStore struct {
	path string
	log  zerolog.Logger

	mu     sync.Mutex
	values map[string]string
	loaded bool
}

// CredentialsPath returns the path to the credentials file.
func CredentialsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName, credentialsFile), nil
}

// NewFileStore creates a file-backed store at the default location.
func NewFileStore(log zerolog.Logger) (*FileStore, error) {
	path, err := CredentialsPath()
	if err != nil {
		return nil, err
	}
	return NewFileStoreAt(path, log), nil
}

// NewFileStoreAt creates a file-backed store at an explicit path.
func NewFileStoreAt(path string, log zerolog.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

// load reads the file once. A missing file is an empty store; an
// unreadable or malformed file is treated as empty rather than fatal.
func (s *FileStore) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.values = make(map[string]string)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("Failed to read credentials file")
		}
		return
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("Corrupt credentials file, starting empty")
		s.values = make(map[string]string)
	}
}

func (s *FileStore) flush() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	return nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.load()
	value, ok := s.values[key]
	return value, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.load()
	s.values[key] = value
	return s.flush()
}

func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.load()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flush()
}

// Memory is a map-backed Store for tests and embedding.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
