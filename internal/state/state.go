package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Sentinel errors for expected conditions.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLocked   = errors.New("session is locked by another process")
	ErrCommandNotFound = errors.New("command run not found")
)

// Store owns the on-disk layout under the friendev home directory:
//
//	<root>/sessions/<id>.yaml   chat sessions
//	<root>/sessions/<id>.lock   PID lock of the session being written
//	<root>/commands.json        background command registry
type Store struct {
	root     string
	locked   string // session id locked by this instance
	Commands *CommandRegistry
}

// DefaultRoot returns ~/.friendev, falling back to the temp directory when
// the home directory is unknown.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".friendev")
	}
	return filepath.Join(home, ".friendev")
}

// Open creates the directory structure under root if needed.
func Open(root string) (*Store, error) {
	s := &Store{root: root}
	if err := os.MkdirAll(s.sessionsDir(), 0755); err != nil {
		return nil, err
	}
	s.Commands = NewCommandRegistry(filepath.Join(root, "commands.json"))
	return s, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) sessionsDir() string {
	return filepath.Join(s.root, "sessions")
}

func (s *Store) sessionPath(id string) (string, error) {
	return SafeJoin(s.sessionsDir(), id+".yaml")
}

func (s *Store) sessionLockPath(id string) (string, error) {
	return SafeJoin(s.sessionsDir(), id+".lock")
}

// Lock takes the PID lock of a session. A lock this instance held before is
// released once the new one is held.
func (s *Store) Lock(id string) error {
	if s.locked == id {
		return nil
	}
	path, err := s.sessionLockPath(id)
	if err != nil {
		return err
	}
	if err := AcquireLock(path); err != nil {
		if info := LockInfo(path); info != "" {
			return fmt.Errorf("%w (%s)", err, info)
		}
		return err
	}
	s.Cleanup()
	s.locked = id
	return nil
}

// Cleanup releases any locks held by this instance.
func (s *Store) Cleanup() {
	if s.locked == "" {
		return
	}
	if path, err := s.sessionLockPath(s.locked); err == nil {
		ReleaseLock(path)
	}
	s.locked = ""
}
