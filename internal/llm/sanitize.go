package llm

// SanitizeHistory returns a copy of messages that a strict provider will
// accept. An assistant message keeps only the tool calls answered by the
// tool messages that directly follow it; with none answered it stays as a
// content-only message, or is dropped when it has no content. Tool messages that answer no pending call are
// dropped. The input slice is not modified.
func SanitizeHistory(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	pending := map[string]bool{}

	for i, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			pending = map[string]bool{}
			if len(msg.ToolCalls) == 0 {
				out = append(out, msg)
				continue
			}

			answered := answeredIDs(messages[i+1:])
			kept := make([]ToolCall, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				if answered[tc.ID] {
					kept = append(kept, tc)
					pending[tc.ID] = true
				}
			}
			if len(kept) != len(msg.ToolCalls) {
				log.Debug("Stripped %d unanswered tool call(s) from history", len(msg.ToolCalls)-len(kept))
			}
			if len(kept) == 0 {
				if msg.Content == "" {
					log.Debug("Dropped assistant message left empty by stripping")
					continue
				}
				kept = nil
			}
			msg.ToolCalls = kept
			out = append(out, msg)

		case RoleTool:
			if !pending[msg.ToolCallID] {
				log.Debug("Dropped orphan tool response %s", msg.ToolCallID)
				continue
			}
			delete(pending, msg.ToolCallID)
			out = append(out, msg)

		default:
			pending = map[string]bool{}
			out = append(out, msg)
		}
	}

	return out
}

// answeredIDs collects tool_call_ids from the run of tool messages at the
// start of rest.
func answeredIDs(rest []Message) map[string]bool {
	ids := map[string]bool{}
	for _, m := range rest {
		if m.Role != RoleTool {
			break
		}
		ids[m.ToolCallID] = true
	}
	return ids
}
