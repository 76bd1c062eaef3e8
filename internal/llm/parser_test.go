package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want StreamEvent
	}{
		{
			name: "content",
			line: `data: {"choices":[{"delta":{"content":"Hello"}}]}`,
			want: ContentEvent{Text: "Hello"},
		},
		{
			name: "reasoning_content",
			line: `data: {"choices":[{"delta":{"reasoning_content":"thinking..."}}]}`,
			want: ReasoningEvent{Text: "thinking..."},
		},
		{
			name: "reasoning field",
			line: `data: {"choices":[{"delta":{"reasoning":"hmm"}}]}`,
			want: ReasoningEvent{Text: "hmm"},
		},
		{
			name: "first tool call fragment",
			line: `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"file_read","arguments":""}}]}}]}`,
			want: ToolCallFragment{ID: "call_1", Name: "file_read"},
		},
		{
			name: "continuation fragment",
			line: `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"pa"}}]}}]}`,
			want: ToolCallFragment{Arguments: `{"pa`},
		},
		{
			name: "tool call wins over content",
			line: `data: {"choices":[{"delta":{"content":"x","tool_calls":[{"id":"c","function":{"name":"file_list"}}]}}]}`,
			want: ToolCallFragment{ID: "c", Name: "file_list"},
		},
		{
			name: "content wins over reasoning",
			line: `data: {"choices":[{"delta":{"content":"answer","reasoning_content":"why"}}]}`,
			want: ContentEvent{Text: "answer"},
		},
		{
			name: "finish reason wins over content",
			line: `data: {"choices":[{"delta":{"content":"tail"},"finish_reason":"stop"}]}`,
			want: FinishEvent{Reason: FinishStop},
		},
		{
			name: "tool_calls finish reason",
			line: `data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
			want: FinishEvent{Reason: FinishToolCalls},
		},
		{
			name: "length finish reason",
			line: `data: {"choices":[{"delta":{},"finish_reason":"length"}]}`,
			want: FinishEvent{Reason: FinishLength},
		},
		{
			name: "done sentinel",
			line: `data: [DONE]`,
			want: DoneEvent{},
		},
		{
			name: "done with carriage return",
			line: "data: [DONE]\r",
			want: DoneEvent{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLineIgnored(t *testing.T) {
	lines := []string{
		"",
		": keep-alive",
		"event: message",
		"data:",
		"data: not json",
		`data: {"choices":[]}`,
		`data: {"choices":[{"delta":{}}]}`,
		`data: {"choices":[{"delta":{"content":""}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"content_filter"}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{}}]}}]}`,
	}

	for _, line := range lines {
		got, ok := ParseLine(line)
		assert.False(t, ok, "line %q produced %#v", line, got)
		assert.Nil(t, got)
	}
}
