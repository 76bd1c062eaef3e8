package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(s.Cleanup)
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	sess := s.NewSession("/work")
	sess.Messages = append(sess.Messages,
		llm.Message{Role: llm.RoleUser, Content: "edit main.go"},
		llm.Message{Role: llm.RoleAssistant, Content: "ok", ToolCalls: []llm.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: llm.ToolCallFunction{Name: llm.ToolFileRead, Arguments: `{"path":"main.go"}`},
		}}},
		llm.Message{Role: llm.RoleTool, ToolCallID: "call_1", Content: "package main\n"},
	)
	require.NoError(t, s.SaveSession(sess))

	loaded, err := s.LoadSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "/work", loaded.WorkingDirectory)
	assert.Equal(t, sess.Messages, loaded.Messages)
	assert.WithinDuration(t, sess.UpdatedAt, loaded.UpdatedAt, time.Second)
}

func TestLoadSessionNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.LoadSession("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.LoadSession("../escape")
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestSaveSessionLeavesNoTempFiles(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.SaveSession(s.NewSession("/w")))

	entries, err := os.ReadDir(filepath.Join(s.Root(), "sessions"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".yaml", filepath.Ext(entries[0].Name()))
}

func TestListSessions(t *testing.T) {
	s := setupTestStore(t)

	older := s.NewSession("/a")
	require.NoError(t, s.SaveSession(older))
	time.Sleep(10 * time.Millisecond)

	newer := s.NewSession("/b")
	newer.Messages = []llm.Message{{Role: llm.RoleUser, Content: "hello there"}}
	require.NoError(t, s.SaveSession(newer))

	// Garbage is skipped
	os.WriteFile(filepath.Join(s.Root(), "sessions", "bad.yaml"), []byte("id: [unclosed"), 0644)

	list, err := s.ListSessions()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, 1, list[0].MessageCount)
	assert.Positive(t, list[0].Tokens)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Zero(t, list[1].MessageCount)
}

func TestDeleteSession(t *testing.T) {
	s := setupTestStore(t)
	sess := s.NewSession("/w")
	require.NoError(t, s.SaveSession(sess))

	require.NoError(t, s.DeleteSession(sess.ID))
	_, err := s.LoadSession(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, s.DeleteSession(sess.ID), ErrSessionNotFound)
}
