// Package approval gates side-effecting tool calls behind user confirmation.
// Kinds the user approves "always" are remembered for the rest of the
// process in a Cache.
package approval

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/LikeEpieiKeia216/Friendev/internal/logging"
)

var log = logging.Get()

// Rejection errors. Their text is returned to the model as the tool result.
var (
	ErrRejected  = errors.New("user rejected the operation")
	ErrCancelled = errors.New("user cancelled the operation")
)

// Decision is the user's answer to an approval prompt.
type Decision struct {
	Approved   bool
	Remember   bool // approve this kind for the rest of the session
	ShowDetail bool
}

// Prompter asks the user. Implementations block until answered.
type Prompter interface {
	PromptApproval(action, description, preview string) (Decision, error)
	// ShowDetail renders content in full and reports whether to continue.
	ShowDetail(action, path, content string) (bool, error)
}

// Request describes one gated operation.
type Request struct {
	Kind        string // cache key, usually the tool name
	Action      string
	Description string
	Preview     string
	Path        string
	Detail      string // full payload for the detail view
}

// Cache is the set of kinds approved for the running session. It is safe
// for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	kinds map[string]struct{}
}

func NewCache() *Cache {
	return &Cache{kinds: make(map[string]struct{})}
}

func (c *Cache) IsApproved(kind string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.kinds[kind]
	return ok
}

func (c *Cache) ApproveForSession(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds[kind] = struct{}{}
}

// Kinds returns the approved kinds in sorted order.
func (c *Cache) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := make([]string, 0, len(c.kinds))
	for k := range c.kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Gate combines the cache with a prompter.
type Gate struct {
	cache    *Cache
	prompter Prompter
}

// NewGate creates a gate. A nil prompter rejects every uncached request.
func NewGate(cache *Cache, prompter Prompter) *Gate {
	if cache == nil {
		cache = NewCache()
	}
	return &Gate{cache: cache, prompter: prompter}
}

// Cache returns the gate's approval cache.
func (g *Gate) Cache() *Cache {
	return g.cache
}

// Check returns nil if req may proceed, ErrRejected or ErrCancelled if the
// user said no, or a wrapped ErrCancelled if the prompt itself failed.
func (g *Gate) Check(req Request) error {
	if g.cache.IsApproved(req.Kind) {
		log.Debug("approval: %s pre-approved for session", req.Kind)
		return nil
	}
	if g.prompter == nil {
		log.Warn("no approval prompter, rejecting %s", req.Kind)
		return ErrRejected
	}

	d, err := g.prompter.PromptApproval(req.Action, req.Description, req.Preview)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	if d.ShowDetail {
		ok, err := g.prompter.ShowDetail(req.Action, req.Path, req.Detail)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if !ok {
			return ErrCancelled
		}
		return nil
	}

	if d.Remember {
		g.cache.ApproveForSession(req.Kind)
		log.Info("approval: %s approved for session", req.Kind)
		return nil
	}
	if !d.Approved {
		return ErrRejected
	}
	return nil
}
