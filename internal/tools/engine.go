// Package tools executes parsed tool calls against the local filesystem,
// the shell and the network. Every failure is reported as a Result so the
// model can react to it; nothing here terminates the agent.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/LikeEpieiKeia216/Friendev/internal/approval"
	"github.com/LikeEpieiKeia216/Friendev/internal/config"
	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
	"github.com/LikeEpieiKeia216/Friendev/internal/logging"
	"github.com/LikeEpieiKeia216/Friendev/internal/state"
)

var log = logging.Get()

var errUnknownTool = errors.New("unknown tool")

// Result is the outcome of one tool call.
type Result struct {
	Success bool
	Brief   string // one-line summary for the terminal
	Output  string // full text returned to the model
}

// Content renders the result as tool-role message content.
func (r Result) Content() string {
	if r.Success {
		return r.Output
	}
	return "Error: " + r.Output
}

func succeed(brief, format string, args ...any) Result {
	return Result{Success: true, Brief: brief, Output: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	return Result{Success: false, Brief: msg, Output: msg}
}

// rejected turns a gate error into a result. The rejection text is what the
// model sees.
func rejected(err error) Result {
	switch {
	case errors.Is(err, approval.ErrCancelled):
		return fail("%s", approval.ErrCancelled.Error())
	default:
		return fail("%s", approval.ErrRejected.Error())
	}
}

// Engine dispatches tool calls. It is used from one goroutine at a time;
// background commands only touch the command registry.
type Engine struct {
	workDir  string
	gate     *approval.Gate
	cfg      *config.Config
	commands *state.CommandRegistry
	http     *http.Client
	shell    []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient replaces the client used by network_get_content.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.http = c }
}

// WithShell replaces the command interpreter prefix, e.g. {"sh", "-c"}.
func WithShell(argv ...string) Option {
	return func(e *Engine) { e.shell = argv }
}

// NewEngine creates an engine rooted at workDir. cfg supplies the
// run_command approval policy and is read on every call, so edits made
// through /runcommand take effect immediately. commands may be nil, which
// disables background execution.
func NewEngine(workDir string, gate *approval.Gate, cfg *config.Config, commands *state.CommandRegistry, opts ...Option) *Engine {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if gate == nil {
		gate = approval.NewGate(nil, nil)
	}
	e := &Engine{
		workDir:  workDir,
		gate:     gate,
		cfg:      cfg,
		commands: commands,
		http:     &http.Client{Timeout: fetchTimeout},
		shell:    defaultShell(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WorkDir returns the directory relative paths are resolved against.
func (e *Engine) WorkDir() string {
	return e.workDir
}

// Dispatch runs one call. Calls run in the order the model emitted them,
// one at a time, since later calls may depend on earlier effects.
func (e *Engine) Dispatch(ctx context.Context, call llm.ToolCall) Result {
	name := call.Function.Name
	args := call.Function.Arguments
	log.ToolCall(name, args)

	start := time.Now()
	var res Result
	switch name {
	case llm.ToolFileList:
		res = e.fileList(args)
	case llm.ToolFileRead:
		res = e.fileRead(args)
	case llm.ToolFileWrite:
		res = e.fileWrite(args)
	case llm.ToolFileReplace:
		res = e.fileReplace(args)
	case llm.ToolFileDiffEdit:
		res = e.fileDiffEdit(args)
	case llm.ToolRunCommand:
		res = e.runCommand(ctx, args)
	case llm.ToolNetworkGetContent:
		res = e.networkGetContent(ctx, args)
	default:
		res = fail("%v: %s", errUnknownTool, name)
	}

	log.Debug("tool %s finished in %s (success=%t): %s", name, time.Since(start).Round(time.Millisecond), res.Success, res.Brief)
	return res
}

// decodeArgs unmarshals tool arguments into v.
func decodeArgs(args string, v any) error {
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// resolve maps a tool path onto the filesystem and logs when it leaves the
// working directory.
func (e *Engine) resolve(path string) (string, error) {
	abs, err := state.ResolvePath(e.workDir, path)
	if err != nil {
		return "", err
	}
	if within, err := state.IsWithinDirReal(e.workDir, abs); err == nil && !within {
		log.Info("tool path outside working directory: %s", abs)
	}
	return abs, nil
}
