package ui

import (
	"strings"

	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
)

// StreamPrinter writes assistant text and reasoning as it streams in.
type StreamPrinter struct {
	console   *Console
	reasoning bool // inside a reasoning block
	started   bool // any content printed this turn
}

// NewStreamPrinter creates a printer writing to console.
func NewStreamPrinter(console *Console) *StreamPrinter {
	return &StreamPrinter{console: console}
}

// Handle is an llm.StreamHandler.
func (p *StreamPrinter) Handle(ev llm.StreamEvent) {
	switch e := ev.(type) {
	case llm.ReasoningEvent:
		if e.Text == "" {
			return
		}
		if !p.reasoning {
			p.console.EnsureNewline()
			p.console.Write([]byte(reasoningStyle.Render("Thinking: ")))
			p.reasoning = true
		}
		p.console.Write([]byte(renderLines(reasoningStyle.Render, e.Text)))
	case llm.ContentEvent:
		if e.Text == "" {
			return
		}
		if p.reasoning {
			p.console.EnsureNewline()
			p.console.Write([]byte("\n"))
			p.reasoning = false
		}
		if !p.started {
			p.console.EnsureNewline()
			p.started = true
		}
		p.console.Write([]byte(e.Text))
	}
}

// Done ends the turn's output and resets the printer for the next turn.
func (p *StreamPrinter) Done() {
	p.console.EnsureNewline()
	p.reasoning = false
	p.started = false
}

// Reset discards partial turn state before a retried request streams again.
func (p *StreamPrinter) Reset() {
	if p.reasoning || p.started {
		p.console.EnsureNewline()
	}
	p.reasoning = false
	p.started = false
}

// renderLines styles every line separately so newlines stay outside the
// escape sequences.
func renderLines(render func(...string) string, s string) string {
	parts := strings.Split(s, "\n")
	for i, part := range parts {
		if part != "" {
			parts[i] = render(part)
		}
	}
	return strings.Join(parts, "\n")
}
