package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
)

// Session is one persisted conversation.
type Session struct {
	ID               string        `yaml:"id"`
	WorkingDirectory string        `yaml:"working_directory"`
	Messages         []llm.Message `yaml:"messages"`
	CreatedAt        time.Time     `yaml:"created_at"`
	UpdatedAt        time.Time     `yaml:"updated_at"`
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	ID               string
	WorkingDirectory string
	MessageCount     int
	Tokens           int
	UpdatedAt        time.Time
	Locked           bool
}

// NewSession creates an empty session for workDir. It is not written until
// SaveSession.
func (s *Store) NewSession(workDir string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:               uuid.NewString(),
		WorkingDirectory: workDir,
		Messages:         []llm.Message{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// SaveSession writes a session atomically and bumps UpdatedAt.
func (s *Store) SaveSession(sess *Session) error {
	path, err := s.sessionPath(sess.ID)
	if err != nil {
		return err
	}

	sess.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return writeFileAtomic(path, data, 0644)
}

// LoadSession reads a session by id.
func (s *Store) LoadSession(id string) (*Session, error) {
	path, err := s.sessionPath(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if sess.Messages == nil {
		sess.Messages = []llm.Message{}
	}
	return &sess, nil
}

// ListSessions returns summaries of all sessions, most recently updated
// first. Unreadable session files are skipped.
func (s *Store) ListSessions() ([]SessionSummary, error) {
	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionSummary{}, nil
		}
		return nil, err
	}

	summaries := []SessionSummary{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		sess, err := s.LoadSession(strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			continue
		}
		lockPath, _ := s.sessionLockPath(sess.ID)
		summaries = append(summaries, SessionSummary{
			ID:               sess.ID,
			WorkingDirectory: sess.WorkingDirectory,
			MessageCount:     len(sess.Messages),
			Tokens:           llm.EstimateMessagesTokens(sess.Messages),
			UpdatedAt:        sess.UpdatedAt,
			Locked:           IsLocked(lockPath),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// DeleteSession removes a session file. Locked sessions cannot be deleted.
func (s *Store) DeleteSession(id string) error {
	path, err := s.sessionPath(id)
	if err != nil {
		return err
	}
	lockPath, err := s.sessionLockPath(id)
	if err != nil {
		return err
	}
	if IsLocked(lockPath) {
		return ErrSessionLocked
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
