package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Background command statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// CommandRecord tracks one background run_command invocation.
type CommandRecord struct {
	ID         string     `json:"id"`
	Command    string     `json:"command"`
	WorkingDir string     `json:"working_dir"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Status     string     `json:"status"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	Output     string     `json:"output,omitempty"`
}

// CommandRegistry persists background command records to a JSON file.
// Every update is a locked read-modify-write of the whole file, so the
// interactive loop and detached command goroutines can share one registry.
type CommandRegistry struct {
	mu   sync.Mutex
	path string
}

// NewCommandRegistry returns a registry backed by path. The file is created
// on first write.
func NewCommandRegistry(path string) *CommandRegistry {
	return &CommandRegistry{path: path}
}

// Create records a new running command and returns it.
func (r *CommandRegistry) Create(command, workDir string) (*CommandRecord, error) {
	rec := CommandRecord{
		ID:         uuid.NewString(),
		Command:    command,
		WorkingDir: workDir,
		StartTime:  time.Now().UTC(),
		Status:     StatusRunning,
	}

	err := r.update(func(records map[string]CommandRecord) error {
		records[rec.ID] = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Complete marks a run as finished. A nil runErr with exit code 0 is
// completed; anything else is failed.
func (r *CommandRegistry) Complete(id string, exitCode int, output string, runErr error) error {
	return r.update(func(records map[string]CommandRecord) error {
		rec, ok := records[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrCommandNotFound, id)
		}
		end := time.Now().UTC()
		rec.EndTime = &end
		rec.ExitCode = &exitCode
		rec.Output = output
		rec.Status = StatusCompleted
		if runErr != nil || exitCode != 0 {
			rec.Status = StatusFailed
		}
		if runErr != nil && output == "" {
			rec.Output = runErr.Error()
		}
		records[id] = rec
		return nil
	})
}

// Get returns one record by id.
func (r *CommandRegistry) Get(id string) (*CommandRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}
	rec, ok := records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, id)
	}
	return &rec, nil
}

// List returns all records, newest first.
func (r *CommandRegistry) List() ([]CommandRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}
	list := make([]CommandRecord, 0, len(records))
	for _, rec := range records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].StartTime.After(list[j].StartTime)
	})
	return list, nil
}

func (r *CommandRegistry) update(fn func(map[string]CommandRecord) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(records); err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}
	return writeFileAtomic(r.path, data, 0644)
}

func (r *CommandRegistry) load() (map[string]CommandRecord, error) {
	records := make(map[string]CommandRecord)
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return records, nil
}
