package approval

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetStderr(io.Discard)
}

type fakePrompter struct {
	decision   Decision
	promptErr  error
	detailOK   bool
	detailErr  error
	prompts    int
	details    int
	lastDetail string
}

func (f *fakePrompter) PromptApproval(action, description, preview string) (Decision, error) {
	f.prompts++
	return f.decision, f.promptErr
}

func (f *fakePrompter) ShowDetail(action, path, content string) (bool, error) {
	f.details++
	f.lastDetail = content
	return f.detailOK, f.detailErr
}

func TestCache(t *testing.T) {
	c := NewCache()
	assert.False(t, c.IsApproved("file_write"))

	c.ApproveForSession("file_write")
	c.ApproveForSession("run_command")
	assert.True(t, c.IsApproved("file_write"))
	assert.False(t, c.IsApproved("file_replace"))
	assert.Equal(t, []string{"file_write", "run_command"}, c.Kinds())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.ApproveForSession("k")
		}()
		go func() {
			defer wg.Done()
			c.IsApproved("k")
		}()
	}
	wg.Wait()
	assert.True(t, c.IsApproved("k"))
}

func TestGateCheck(t *testing.T) {
	req := Request{Kind: "file_write", Action: "Write", Description: "a.txt", Preview: "x", Detail: "full"}

	tests := []struct {
		name        string
		prompter    *fakePrompter
		wantErr     error
		remembered  bool
		wantDetails int
	}{
		{"approve once", &fakePrompter{decision: Decision{Approved: true}}, nil, false, 0},
		{"reject", &fakePrompter{decision: Decision{}}, ErrRejected, false, 0},
		{"always", &fakePrompter{decision: Decision{Approved: true, Remember: true}}, nil, true, 0},
		{"detail then continue", &fakePrompter{decision: Decision{ShowDetail: true}, detailOK: true}, nil, false, 1},
		{"detail then abort", &fakePrompter{decision: Decision{ShowDetail: true}}, ErrCancelled, false, 1},
		{"prompt failure", &fakePrompter{promptErr: io.EOF}, ErrCancelled, false, 0},
		{"detail failure", &fakePrompter{decision: Decision{ShowDetail: true}, detailErr: io.EOF}, ErrCancelled, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(NewCache(), tt.prompter)
			err := gate.Check(req)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			assert.Equal(t, tt.remembered, gate.Cache().IsApproved("file_write"))
			assert.Equal(t, tt.wantDetails, tt.prompter.details)
			if tt.wantDetails > 0 {
				assert.Equal(t, "full", tt.prompter.lastDetail)
			}
		})
	}
}

func TestGateSkipsPromptWhenCached(t *testing.T) {
	p := &fakePrompter{decision: Decision{Approved: true, Remember: true}}
	gate := NewGate(nil, p)

	require.NoError(t, gate.Check(Request{Kind: "run_command"}))
	require.NoError(t, gate.Check(Request{Kind: "run_command"}))
	assert.Equal(t, 1, p.prompts)

	p.decision = Decision{}
	assert.ErrorIs(t, gate.Check(Request{Kind: "file_write"}), ErrRejected, "other kinds still prompt")
	assert.Equal(t, 2, p.prompts)
}

func TestGateWithoutPrompter(t *testing.T) {
	gate := NewGate(nil, nil)
	assert.ErrorIs(t, gate.Check(Request{Kind: "file_write"}), ErrRejected)

	gate.Cache().ApproveForSession("file_write")
	assert.NoError(t, gate.Check(Request{Kind: "file_write"}))
}
