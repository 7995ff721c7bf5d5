package thread

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SaveAndReload(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	require.NoError(t, err)

	th := m.GetOrCreate("cli:default", "system prompt")
	th.AppendUser("remember the milk")
	require.NoError(t, m.Save("cli:default"))

	_, err = os.Stat(filepath.Join(dir, "cli_default.json"))
	require.NoError(t, err)

	reloaded, err := NewManager(dir)
	require.NoError(t, err)
	got, err := reloaded.Get("cli:default")
	require.NoError(t, err)
	msgs := got.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "remember the milk", msgs[1].Content)
}

func TestManager_GetOrCreate_ReturnsSameState(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	a := m.GetOrCreate("t1", "sys")
	b := m.GetOrCreate("t1", "other")
	assert.Same(t, a, b)
	assert.Equal(t, "sys", b.Messages()[0].Content)
}

func TestManager_GetMissing(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	_, err = m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_ListSorted(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)
	m.GetOrCreate("b", "")
	m.GetOrCreate("a", "")
	m.GetOrCreate("c", "")

	assert.Equal(t, []string{"a", "b", "c"}, m.List())
}

func TestManager_Delete(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	m.GetOrCreate("t1", "")
	require.NoError(t, m.Save("t1"))
	require.NoError(t, m.Delete("t1"))

	_, err = os.Stat(filepath.Join(dir, "t1.json"))
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, m.Delete("t1"), ErrNotFound)
}

func TestManager_RejectsUnsafeIDs(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	m.GetOrCreate("../escape", "")
	assert.ErrorIs(t, m.Save("../escape"), os.ErrInvalid)
}

func TestManager_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{oops"), 0o600))

	m, err := NewManager(dir)
	require.NoError(t, err)
	assert.Empty(t, m.List())
}
