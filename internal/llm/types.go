package llm

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of the conversation history.
type Message struct {
	Role       string     `json:"role" yaml:"role"`
	Content    string     `json:"content" yaml:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"` // tool role only
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
}

// ToolCall is a complete, parsed tool invocation. Only the accumulator
// creates them.
type ToolCall struct {
	ID       string           `json:"id" yaml:"id"`
	Type     string           `json:"type" yaml:"type"`
	Function ToolCallFunction `json:"function" yaml:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name" yaml:"name"`
	Arguments string `json:"arguments" yaml:"arguments"`
}

// Finish reasons reported by the provider.
const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolCalls = "tool_calls"
)

// StreamEvent is one classified SSE line. The concrete types are
// ContentEvent, ReasoningEvent, ToolCallFragment, FinishEvent and DoneEvent.
type StreamEvent interface {
	streamEvent()
}

// ContentEvent carries assistant text.
type ContentEvent struct {
	Text string
}

// ReasoningEvent carries model thinking text.
type ReasoningEvent struct {
	Text string
}

// ToolCallFragment is one delta of a tool call. ID and Name are empty on
// continuation fragments.
type ToolCallFragment struct {
	ID        string
	Name      string
	Arguments string
}

// FinishEvent reports why the model stopped.
type FinishEvent struct {
	Reason string
}

// DoneEvent is the stream-termination sentinel.
type DoneEvent struct{}

func (ContentEvent) streamEvent()     {}
func (ReasoningEvent) streamEvent()   {}
func (ToolCallFragment) streamEvent() {}
func (FinishEvent) streamEvent()      {}
func (DoneEvent) streamEvent()        {}

// TurnResult is the outcome of one successful streamed completion.
type TurnResult struct {
	Content      string
	Reasoning    string
	ToolCalls    []ToolCall
	FinishReason string
	// Attempted is true when any tool-call fragment arrived, even if every
	// call was dropped during finalization.
	Attempted bool
}

// Truncated reports that the model tried to call tools but none survived.
func (r *TurnResult) Truncated() bool {
	return r.Attempted && len(r.ToolCalls) == 0
}

// AssistantMessage converts the turn into a history entry, appending the
// truncation hint when every attempted call was lost.
func (r *TurnResult) AssistantMessage() Message {
	content := r.Content
	if r.Truncated() {
		content += TruncationHint
	}
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: r.ToolCalls,
	}
}

// TruncationHint tells the model its tool-call JSON was cut off.
const TruncationHint = "\n\n[SYSTEM ERROR: Tool call failed due to incomplete JSON in streaming. " +
	"This usually means the content parameter was too large (>3000 chars). " +
	"Please retry with smaller chunks: use file_write with mode='overwrite' for first ~50 lines, " +
	"then mode='append' for additional chunks.]"
