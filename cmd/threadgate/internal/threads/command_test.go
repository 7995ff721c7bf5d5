package threads

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

func TestNewThreadsCommand(t *testing.T) {
	cmd := NewThreadsCommand()

	require.NotNil(t, cmd)
	assert.Equal(t, "threads", cmd.Use)
	assert.True(t, cmd.HasSubCommands())

	names := make([]string, 0, 2)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "show"}, names)
}

func TestThreadsCommand_ListEmpty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("THREADGATE_CONFIG", "")
	t.Setenv("THREADGATE_HOME", "")
	t.Setenv("THREADGATE_SETTINGS_BACKEND", "memory")

	cmd := NewThreadsCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"list"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "No threads.", strings.TrimSpace(out.String()))
}

func TestThreadsCommand_ShowMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("THREADGATE_CONFIG", "")
	t.Setenv("THREADGATE_HOME", "")
	t.Setenv("THREADGATE_SETTINGS_BACKEND", "memory")

	cmd := NewThreadsCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"show", "nope"})
	assert.ErrorIs(t, cmd.Execute(), thread.ErrNotFound)
}

func TestPrintThread(t *testing.T) {
	st := thread.NewWithSystemPrompt("t1", "sys")
	st.AppendUser(strings.Repeat("x", 300))
	st.Append(thread.NewSummaryMessage("- 🔴 digest"))

	var out bytes.Buffer
	printThread(&out, st)
	text := out.String()

	assert.Contains(t, text, "Thread t1 (3 messages)")
	assert.Contains(t, text, "assistant [summary]")
	assert.NotContains(t, text, strings.Repeat("x", 300))
}
