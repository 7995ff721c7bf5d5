package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/logger"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/settings"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

const keyPrefix = "observationalMemory:"

// Key returns the settings key holding a thread's observational memory.
func Key(threadID string) string {
	return keyPrefix + threadID
}

// Store keeps a thread's observational memory in its metadata and mirrors
// every committed blob to a settings store.
type Store struct {
	settings settings.Store
	limit    int
	// serializes read-modify-write cycles issued through this Store
	mu sync.Mutex
}

// NewStore returns a Store; a nil settings store keeps memory in thread
// metadata only.
func NewStore(s settings.Store, limit int) *Store {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &Store{settings: s, limit: limit}
}

func (s *Store) Limit() int { return s.limit }

// Entries returns the parsed memory of t. Corrupt blobs read as empty.
func (s *Store) Entries(t *thread.ThreadState) []Entry {
	entries, ok := ParseLenient(t.Metadata().ObservationalMemory)
	if !ok {
		logger.WarnCF("memory", "Observational memory unreadable, treating as empty", map[string]any{
			"thread_id": t.ID(),
		})
	}
	return entries
}

// Hydrate copies the persisted blob into t when t has none yet.
func (s *Store) Hydrate(ctx context.Context, t *thread.ThreadState) error {
	if s.settings == nil || t.Metadata().ObservationalMemory != "" {
		return nil
	}
	blob, ok, err := s.settings.Get(ctx, Key(t.ID()))
	if err != nil {
		return fmt.Errorf("load observational memory: %w", err)
	}
	if !ok {
		return nil
	}
	if _, valid := ParseLenient(blob); !valid {
		logger.WarnCF("memory", "Ignoring corrupt persisted observational memory", map[string]any{
			"thread_id": t.ID(),
		})
		return nil
	}
	return t.Update(func(d *thread.Data) error {
		if d.Metadata.ObservationalMemory == "" {
			d.Metadata.ObservationalMemory = blob
		}
		return nil
	})
}

// Add appends one observation to t and persists the result.
func (s *Store) Add(ctx context.Context, t *thread.ThreadState, p Priority, content string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := NewEntry(p, content)
	var blob string
	err := t.Update(func(d *thread.Data) error {
		current, _ := ParseLenient(d.Metadata.ObservationalMemory)
		next, err := Append(current, e, s.limit)
		if err != nil {
			return err
		}
		blob, err = Encode(next)
		if err != nil {
			return err
		}
		d.Metadata.ObservationalMemory = blob
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return e, s.Persist(ctx, t.ID(), blob)
}

// Replace swaps the memory of t from prev to next and persists next. It
// reports false, and writes nothing, when the blob no longer equals prev.
func (s *Store) Replace(ctx context.Context, t *thread.ThreadState, prev, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	swapped := false
	err := t.Update(func(d *thread.Data) error {
		if d.Metadata.ObservationalMemory != prev {
			return nil
		}
		d.Metadata.ObservationalMemory = next
		swapped = true
		return nil
	})
	if err != nil || !swapped {
		return false, err
	}
	return true, s.Persist(ctx, t.ID(), next)
}

// Persist writes an already validated blob to the settings store.
func (s *Store) Persist(ctx context.Context, threadID, blob string) error {
	if s.settings == nil {
		return nil
	}
	if err := s.settings.Set(ctx, Key(threadID), blob); err != nil {
		return fmt.Errorf("persist observational memory: %w", err)
	}
	return nil
}

// Load reads the persisted entries of a thread straight from the settings
// store. Missing or corrupt blobs read as empty.
func (s *Store) Load(ctx context.Context, threadID string) ([]Entry, error) {
	if s.settings == nil {
		return []Entry{}, nil
	}
	blob, ok, err := s.settings.Get(ctx, Key(threadID))
	if err != nil {
		return nil, fmt.Errorf("load observational memory: %w", err)
	}
	if !ok {
		return []Entry{}, nil
	}
	entries, _ := ParseLenient(blob)
	return entries, nil
}

// Save replaces the memory of t with entries, enforcing the cap.
func (s *Store) Save(ctx context.Context, t *thread.ThreadState, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := Encode(EvictOldest(entries, s.limit))
	if err != nil {
		return err
	}
	if err := t.Update(func(d *thread.Data) error {
		d.Metadata.ObservationalMemory = blob
		return nil
	}); err != nil {
		return err
	}
	return s.Persist(ctx, t.ID(), blob)
}
