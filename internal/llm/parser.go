package llm

import (
	"encoding/json"
	"strings"

	"github.com/openai/openai-go/v3"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Provider-specific delta fields carrying thinking text, in lookup order.
var reasoningFields = []string{"reasoning_content", "reasoning"}

// ParseLine classifies one decoded SSE line. Lines without the data prefix,
// payloads that are not a chunk envelope and empty deltas yield no event.
// At most one event is produced per line: a terminal finish reason first,
// then a tool-call fragment, then content, then reasoning.
func ParseLine(line string) (StreamEvent, bool) {
	payload, ok := strings.CutPrefix(strings.TrimSpace(line), dataPrefix)
	if !ok {
		return nil, false
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, false
	}
	if payload == doneSentinel {
		return DoneEvent{}, true
	}

	var chunk openai.ChatCompletionChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		log.Debug("Skipping non-chunk SSE payload: %v", err)
		return nil, false
	}
	if len(chunk.Choices) == 0 {
		return nil, false
	}
	choice := chunk.Choices[0]

	switch choice.FinishReason {
	case FinishStop, FinishLength, FinishToolCalls:
		return FinishEvent{Reason: choice.FinishReason}, true
	}

	for _, tc := range choice.Delta.ToolCalls {
		if tc.ID != "" || tc.Function.Name != "" || tc.Function.Arguments != "" {
			return ToolCallFragment{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}, true
		}
	}

	if choice.Delta.Content != "" {
		return ContentEvent{Text: choice.Delta.Content}, true
	}

	if text := reasoningText(choice.Delta); text != "" {
		return ReasoningEvent{Text: text}, true
	}

	return nil, false
}

func reasoningText(delta openai.ChatCompletionChunkChoiceDelta) string {
	for _, field := range reasoningFields {
		raw, ok := delta.JSON.ExtraFields[field]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal([]byte(raw.Raw()), &text); err == nil && text != "" {
			return text
		}
	}
	return ""
}
