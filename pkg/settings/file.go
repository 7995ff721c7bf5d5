package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/utils"
)

// FileStore keeps all values in one JSON object on disk. Every Set
// rewrites the file with a temp file + rename.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.values[key]
	s.values[key] = value
	if err := s.saveAtomic(); err != nil {
		if existed {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return fmt.Errorf("failed to save settings atomically: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// saveAtomic must be called with the lock held.
func (s *FileStore) saveAtomic() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return utils.WriteFileAtomic(s.path, data, 0o600, 0o755)
}
