package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

// getCodec returns the cl100k_base tokenizer.
func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// EstimateTokens returns an approximate token count for the given text.
// cl100k_base is close enough for most chat models.
func EstimateTokens(text string) (int, error) {
	c, err := getCodec()
	if err != nil {
		return 0, err
	}

	ids, _, err := c.Encode(text)
	if err != nil {
		return 0, err
	}

	return len(ids), nil
}

// EstimateTokensSimple returns token count, defaulting to 0 on error.
func EstimateTokensSimple(text string) int {
	count, err := EstimateTokens(text)
	if err != nil {
		return 0
	}
	return count
}

// perMessageOverhead approximates the role and separator tokens the chat
// format adds around every message.
const perMessageOverhead = 4

// EstimateMessagesTokens approximates the prompt size of a history,
// counting content and tool-call arguments.
func EstimateMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += perMessageOverhead + EstimateTokensSimple(m.Content)
		for _, tc := range m.ToolCalls {
			total += EstimateTokensSimple(tc.Function.Name) + EstimateTokensSimple(tc.Function.Arguments)
		}
	}
	return total
}
