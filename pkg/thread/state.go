// Package thread holds the per-conversation state mutated by the input
// gate and the background compaction services.
package thread

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ThreadState is one conversation. All reads and writes go through its
// mutex; the identity of a ThreadState never changes during its lifetime.
type ThreadState struct {
	id        string
	createdAt time.Time

	mu      sync.Mutex
	data    Data
	updated time.Time
}

// New creates an empty thread. An empty id gets a generated one.
func New(id string) *ThreadState {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &ThreadState{
		id:        id,
		createdAt: now,
		updated:   now,
		data:      Data{Messages: []ChatMessage{}},
	}
}

// NewWithSystemPrompt creates a thread whose first message is the system prompt.
func NewWithSystemPrompt(id, systemPrompt string) *ThreadState {
	s := New(id)
	if systemPrompt != "" {
		s.data.Messages = append(s.data.Messages, NewMessage(RoleSystem, systemPrompt))
	}
	return s
}

func (s *ThreadState) ID() string { return s.id }

func (s *ThreadState) CreatedAt() time.Time { return s.createdAt }

func (s *ThreadState) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

// Snapshot returns a deep copy of the mutable fields.
func (s *ThreadState) Snapshot() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone()
}

// Update runs fn on a copy of the thread data while holding the lock and
// commits the copy only when fn returns nil.
func (s *ThreadState) Update(fn func(d *Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(&working); err != nil {
		return err
	}
	s.data = working
	s.updated = time.Now().UTC()
	return nil
}

func (s *ThreadState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.Messages)
}

func (s *ThreadState) Messages() []ChatMessage {
	return s.Snapshot().Messages
}

func (s *ThreadState) Metadata() Metadata {
	return s.Snapshot().Metadata
}

// Append adds messages to the end of the thread.
func (s *ThreadState) Append(msgs ...ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Messages = append(s.data.Messages, msgs...)
	s.updated = time.Now().UTC()
}

// AppendUser is a shorthand used by callers feeding raw input.
func (s *ThreadState) AppendUser(content string) ChatMessage {
	m := NewMessage(RoleUser, content)
	s.Append(m)
	return m
}

type persisted struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Messages  []ChatMessage `json:"messages"`
	Metadata  Metadata      `json:"metadata"`
}

func (s *ThreadState) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	p := persisted{
		ID:        s.id,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updated,
		Messages:  s.data.Messages,
		Metadata:  s.data.Metadata,
	}
	data, err := json.Marshal(p)
	s.mu.Unlock()
	return data, err
}

func (s *ThreadState) UnmarshalJSON(b []byte) error {
	var p persisted
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Messages == nil {
		p.Messages = []ChatMessage{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = p.ID
	s.createdAt = p.CreatedAt
	s.updated = p.UpdatedAt
	s.data = Data{Messages: p.Messages, Metadata: p.Metadata}
	return nil
}
