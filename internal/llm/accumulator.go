package llm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// orphanCallID keys fragments that arrive without an id before any id was seen.
const orphanCallID = "temp"

// Observer receives live progress while tool calls stream in.
type Observer interface {
	// ToolCallStarted is called once per call, when its name first arrives.
	ToolCallStarted(id, name string)
	// ToolCallArgument is called whenever the call's key argument changes.
	ToolCallArgument(id, arg string)
}

type pendingCall struct {
	name    string
	args    strings.Builder
	keyArg  string
	started bool
}

// Accumulator merges tool-call fragments of one turn into complete calls.
// Fragments without an id belong to the most recently seen id.
type Accumulator struct {
	calls        map[string]*pendingCall
	order        []string
	lastSeenID   string
	attempted    bool
	finishReason string
	observer     Observer
}

// NewAccumulator creates an empty accumulator. observer may be nil.
func NewAccumulator(observer Observer) *Accumulator {
	return &Accumulator{
		calls:    make(map[string]*pendingCall),
		observer: observer,
	}
}

// Add ingests one fragment.
func (a *Accumulator) Add(f ToolCallFragment) {
	if f.ID != "" || f.Name != "" || f.Arguments != "" {
		a.attempted = true
	}

	key := f.ID
	if key == "" {
		key = a.lastSeenID
		if key == "" {
			key = orphanCallID
		}
	} else {
		a.lastSeenID = key
	}

	call, ok := a.calls[key]
	if !ok {
		call = &pendingCall{}
		a.calls[key] = call
		a.order = append(a.order, key)
	}

	if f.Name != "" {
		call.name = f.Name
		if !call.started {
			call.started = true
			if a.observer != nil {
				a.observer.ToolCallStarted(key, call.name)
			}
		}
	}

	if f.Arguments != "" {
		call.args.WriteString(f.Arguments)
		if call.started {
			if arg, ok := KeyArgument(call.name, call.args.String()); ok && arg != call.keyArg {
				call.keyArg = arg
				if a.observer != nil {
					a.observer.ToolCallArgument(key, arg)
				}
			}
		}
	}
}

// SetFinishReason records the provider's finish reason.
func (a *Accumulator) SetFinishReason(reason string) {
	a.finishReason = reason
}

// FinishReason returns the last recorded finish reason.
func (a *Accumulator) FinishReason() string {
	return a.finishReason
}

// Attempted reports whether any tool-call fragment was ingested.
func (a *Accumulator) Attempted() bool {
	return a.attempted
}

// Finalize validates every accumulated call and returns the survivors in
// the order their first fragment arrived. Empty calls are skipped,
// incomplete calls are dropped with a warning, and calls that only fail the
// strict parse get one bounded repair attempt.
func (a *Accumulator) Finalize() []ToolCall {
	var out []ToolCall

	for _, id := range a.order {
		call := a.calls[id]
		args := call.args.String()

		if call.name == "" || args == "" {
			log.Debug("Skipping empty tool call fragment id=%s", id)
			continue
		}

		if !SemanticallyComplete(call.name, args) {
			log.Warn("incomplete JSON in tool call '%s': %s", call.name, preview(args, 50))
			continue
		}

		if !gjson.Valid(args) {
			fixed, ok := Repair(call.name, args)
			if !ok {
				log.Error("failed to fix JSON for tool call '%s'", call.name)
				continue
			}
			log.Warn("auto-fixed JSON for tool call '%s'", call.name)
			args = fixed
		}

		log.ToolCall(call.name, args)
		out = append(out, ToolCall{
			ID:   id,
			Type: "function",
			Function: ToolCallFunction{
				Name:      call.name,
				Arguments: args,
			},
		})
	}

	a.calls = make(map[string]*pendingCall)
	a.order = nil
	a.lastSeenID = ""
	return out
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
