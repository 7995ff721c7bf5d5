package thread

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/utils"
)

var ErrNotFound = errors.New("thread not found")

// Manager owns the set of live threads and persists each one as
// <storage>/<id>.json. An empty storage path keeps threads in memory only.
type Manager struct {
	threads map[string]*ThreadState
	mu      sync.RWMutex
	storage string
}

func NewManager(storage string) (*Manager, error) {
	m := &Manager{
		threads: make(map[string]*ThreadState),
		storage: storage,
	}
	if storage == "" {
		return m, nil
	}
	if err := os.MkdirAll(storage, 0o755); err != nil {
		return nil, fmt.Errorf("create thread storage: %w", err)
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetOrCreate returns the thread with id, creating it (seeded with
// systemPrompt when non-empty) if it does not exist.
func (m *Manager) GetOrCreate(id, systemPrompt string) *ThreadState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.threads[id]; ok {
		return t
	}
	t := NewWithSystemPrompt(id, systemPrompt)
	m.threads[t.ID()] = t
	return t
}

func (m *Manager) Get(id string) (*ThreadState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.threads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// List returns thread ids in lexical order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.threads))
	for id := range m.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Save writes the thread to disk. The thread lock is held only while
// marshaling; file I/O happens afterwards.
func (m *Manager) Save(id string) error {
	if m.storage == "" {
		return nil
	}
	t, err := m.Get(id)
	if err != nil {
		return err
	}
	path, err := m.pathFor(id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal thread %s: %w", id, err)
	}
	if err := utils.WriteFileAtomic(path, data, 0o600, 0o755); err != nil {
		return fmt.Errorf("failed to save thread atomically: %w", err)
	}
	return nil
}

func (m *Manager) SaveAll() error {
	var errs []error
	for _, id := range m.List() {
		if err := m.Save(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, ok := m.threads[id]
	delete(m.threads, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if m.storage == "" {
		return nil
	}
	path, err := m.pathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (m *Manager) pathFor(id string) (string, error) {
	filename := strings.ReplaceAll(id, ":", "_")
	if filename == "." || !filepath.IsLocal(filename) || strings.ContainsAny(filename, `/\`) {
		return "", os.ErrInvalid
	}
	return filepath.Join(m.storage, filename+".json"), nil
}

func (m *Manager) load() error {
	files, err := os.ReadDir(m.storage)
	if err != nil {
		return fmt.Errorf("read thread storage: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		path := filepath.Join(m.storage, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		t := &ThreadState{}
		if err := json.Unmarshal(data, t); err != nil || t.ID() == "" {
			logger.WarnCF("thread", "Skipping unreadable thread file", map[string]any{
				"path": path,
			})
			continue
		}
		m.threads[t.ID()] = t
	}
	return nil
}
