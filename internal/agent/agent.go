// Package agent runs the conversation loop: send the history, stream the
// reply, execute the requested tools and send their results back until the
// model answers without tool calls.
package agent

import (
	"context"

	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
	"github.com/LikeEpieiKeia216/Friendev/internal/logging"
	"github.com/LikeEpieiKeia216/Friendev/internal/state"
	"github.com/LikeEpieiKeia216/Friendev/internal/tools"
)

var log = logging.Get()

// Renderer shows a turn while it happens.
type Renderer interface {
	// StreamEvent receives every parsed event of a streamed reply.
	StreamEvent(ev llm.StreamEvent)
	// StreamDone is called once a request finished, successfully or not.
	StreamDone(result *llm.TurnResult, err error)
	// ToolFinished is called after each tool call ran.
	ToolFinished(call llm.ToolCall, res tools.Result)
}

type nopRenderer struct{}

func (nopRenderer) StreamEvent(llm.StreamEvent)             {}
func (nopRenderer) StreamDone(*llm.TurnResult, error)       {}
func (nopRenderer) ToolFinished(llm.ToolCall, tools.Result) {}

// Agent owns one session and drives it with a client and a tool engine.
type Agent struct {
	client   *llm.Client
	engine   *tools.Engine
	store    *state.Store
	session  *state.Session
	renderer Renderer
	prompt   string // system prompt override
}

// Option configures an Agent.
type Option func(*Agent)

// WithRenderer sets the turn renderer.
func WithRenderer(r Renderer) Option {
	return func(a *Agent) { a.renderer = r }
}

// WithSystemPrompt replaces the built-in instructions.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.prompt = prompt }
}

// New creates an agent for session. store may be nil, in which case the
// session is kept in memory only.
func New(client *llm.Client, engine *tools.Engine, store *state.Store, session *state.Session, opts ...Option) *Agent {
	a := &Agent{
		client:   client,
		engine:   engine,
		store:    store,
		session:  session,
		renderer: nopRenderer{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Session returns the session being driven.
func (a *Agent) Session() *state.Session {
	return a.session
}

// SetSession switches to another session.
func (a *Agent) SetSession(s *state.Session) {
	a.session = s
}

// Run sends one user message and keeps going until the model stops asking
// for tools. Tool failures become tool messages; only a request that fails
// after all retries ends the turn with an error. When that happens before
// the model replied at all, the user message is taken back out of the
// history. The session is saved in every case.
func (a *Agent) Run(ctx context.Context, input string) error {
	if err := CheckInput(input); err != nil {
		return err
	}

	start := len(a.session.Messages)
	a.session.Messages = append(a.session.Messages, llm.Message{Role: llm.RoleUser, Content: input})

	err := a.loop(ctx, start)
	if err != nil && len(a.session.Messages) == start+1 {
		a.session.Messages = a.session.Messages[:start]
	}

	if saveErr := a.save(); saveErr != nil {
		log.Error("save session %s: %v", a.session.ID, saveErr)
	}
	return err
}

func (a *Agent) loop(ctx context.Context, start int) error {
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		messages := a.requestMessages()
		result, err := a.client.ChatStream(ctx, messages, a.renderer.StreamEvent)
		a.renderer.StreamDone(result, err)
		if err != nil {
			return err
		}

		a.session.Messages = append(a.session.Messages, result.AssistantMessage())
		if len(result.ToolCalls) == 0 {
			log.Debug("turn finished after %d rounds, %d new messages", round, len(a.session.Messages)-start)
			return nil
		}

		for _, call := range result.ToolCalls {
			res := a.engine.Dispatch(ctx, call)
			a.renderer.ToolFinished(call, res)
			a.session.Messages = append(a.session.Messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    res.Content(),
				ToolCallID: call.ID,
				Name:       call.Function.Name,
			})
		}
		// Results are on record even if the next request fails.
		if err := a.save(); err != nil {
			log.Error("save session %s: %v", a.session.ID, err)
		}
	}
}

// requestMessages prepends a freshly built system prompt, so edits to the
// project notes apply from the next request on.
func (a *Agent) requestMessages() []llm.Message {
	system := llm.Message{
		Role:    llm.RoleSystem,
		Content: SystemPrompt(a.prompt, a.client.Model(), a.session.WorkingDirectory),
	}
	return append([]llm.Message{system}, a.session.Messages...)
}

func (a *Agent) save() error {
	if a.store == nil {
		return nil
	}
	return a.store.SaveSession(a.session)
}
