package agent

import (
	"errors"
	"strings"
)

// ErrSuspiciousInput is returned for user input carrying chat-template
// control tokens.
var ErrSuspiciousInput = errors.New("input contains reserved control tokens")

var controlTokens = []string{
	"<|endoftext|>",
	"<|system|>",
	"<|user|>",
	"<|assistant|>",
	"</s>",
	"<s>",
}

// CheckInput refuses text that could be read as a role boundary by the
// model's chat template. A ChatML block needs both its start and end token.
func CheckInput(text string) error {
	if strings.Contains(text, "<|im_start|>") && strings.Contains(text, "<|im_end|>") {
		return ErrSuspiciousInput
	}
	for _, tok := range controlTokens {
		if strings.Contains(text, tok) {
			return ErrSuspiciousInput
		}
	}
	return nil
}
