package thread

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithSystemPrompt(t *testing.T) {
	s := NewWithSystemPrompt("t1", "be brief")

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.True(t, HasSystemPrompt(msgs))
	assert.NotEmpty(t, msgs[0].ID)
}

func TestNew_GeneratesID(t *testing.T) {
	a, b := New(""), New("")
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSnapshot_IsDetached(t *testing.T) {
	s := New("t1")
	s.AppendUser("hello")

	snap := s.Snapshot()
	snap.Messages[0].Content = "changed"
	snap.Metadata.InputTimestamps = append(snap.Metadata.InputTimestamps, 1)

	assert.Equal(t, "hello", s.Messages()[0].Content)
	assert.Empty(t, s.Metadata().InputTimestamps)
}

func TestUpdate_CommitsOnlyOnSuccess(t *testing.T) {
	s := New("t1")
	s.AppendUser("one")

	err := s.Update(func(d *Data) error {
		d.Messages = append(d.Messages, NewMessage(RoleAssistant, "two"))
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.Equal(t, 1, s.Len())

	err = s.Update(func(d *Data) error {
		d.Messages = append(d.Messages, NewMessage(RoleAssistant, "two"))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestUpdate_Serializes(t *testing.T) {
	s := New("t1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(func(d *Data) error {
				d.Messages = append(d.Messages, NewMessage(RoleUser, "x"))
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}

func TestThreadState_JSONRoundTrip(t *testing.T) {
	s := NewWithSystemPrompt("t1", "sys")
	s.AppendUser("hi")
	require.NoError(t, s.Update(func(d *Data) error {
		d.Metadata.ObservationalMemory = `[]`
		d.Metadata.InputTimestamps = []int64{1, 2}
		d.Messages = append(d.Messages, NewSummaryMessage("- 🔴 digest"))
		return nil
	}))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"_conversationSummary":true`)
	assert.Contains(t, string(data), `"_inputTimestamps":[1,2]`)

	restored := &ThreadState{}
	require.NoError(t, json.Unmarshal(data, restored))
	assert.Equal(t, "t1", restored.ID())
	assert.Equal(t, s.Messages(), restored.Messages())
	assert.Equal(t, `[]`, restored.Metadata().ObservationalMemory)
}

func TestLatestIndex(t *testing.T) {
	msgs := []ChatMessage{
		NewMessage(RoleSystem, "s"),
		NewMessage(RoleUser, "u1"),
		NewMessage(RoleAssistant, "a1"),
		NewMessage(RoleUser, "u2"),
		NewMessage(RoleAssistant, "a2"),
	}
	assert.Equal(t, 3, LatestIndex(msgs, RoleUser))
	assert.Equal(t, 4, LatestIndex(msgs, RoleAssistant))
	assert.Equal(t, -1, LatestIndex(msgs[:1], RoleUser))
	assert.Equal(t, 3, Data{Messages: msgs}.LatestUserIndex())
}

func TestWithContent_NewIdentity(t *testing.T) {
	m := NewMessage(RoleUser, "a​b")
	c := m.WithContent("ab")

	assert.Equal(t, RoleUser, c.Role)
	assert.Equal(t, "ab", c.Content)
	assert.NotEqual(t, m.ID, c.ID)
	assert.Equal(t, "a​b", m.Content)
}
