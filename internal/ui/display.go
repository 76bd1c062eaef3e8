package ui

import (
	"fmt"
	"sync"

	"github.com/mattn/go-runewidth"

	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
)

const keyArgWidth = 50

// ToolCallDisplay shows tool calls while their arguments stream in and
// marks each one done once it has run.
type ToolCallDisplay struct {
	console *Console

	mu     sync.Mutex
	calls  map[string]*shownCall
	active string // call whose line is currently open
}

type shownCall struct {
	name string
	arg  string
}

var _ llm.Observer = (*ToolCallDisplay)(nil)

// NewToolCallDisplay creates a display writing to console.
func NewToolCallDisplay(console *Console) *ToolCallDisplay {
	return &ToolCallDisplay{console: console, calls: make(map[string]*shownCall)}
}

// ToolCallStarted opens a line for the call.
func (d *ToolCallDisplay) ToolCallStarted(id, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeActive()
	d.calls[id] = &shownCall{name: name}
	d.active = id
	d.console.EnsureNewline()
	d.console.Write([]byte(d.line("⋯", d.calls[id])))
}

// ToolCallArgument redraws the open line with the key argument. Off a
// terminal only the final state is printed.
func (d *ToolCallDisplay) ToolCallArgument(id, arg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	call, ok := d.calls[id]
	if !ok {
		return
	}
	call.arg = arg
	if d.active == id && d.console.Interactive() {
		d.console.ClearLine()
		d.console.Write([]byte(d.line("⋯", call)))
	}
}

// Finish prints the outcome of a call. Calls never announced, such as
// ones whose id changed, get a fresh line.
func (d *ToolCallDisplay) Finish(call llm.ToolCall, success bool, brief string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	shown, ok := d.calls[call.ID]
	if !ok {
		shown = &shownCall{name: call.Function.Name}
	}
	if arg, ok := llm.KeyArgument(call.Function.Name, call.Function.Arguments); ok {
		shown.arg = arg
	}

	mark := successStyle.Render("✓")
	if !success {
		mark = errorStyle.Render("✗")
	}
	if d.active == call.ID {
		d.console.ClearLine()
		d.active = ""
	} else {
		d.closeActive()
		d.console.EnsureNewline()
	}
	line := d.line(mark, shown)
	if brief != "" {
		line += " " + mutedStyle.Render(ShortenMiddle(brief, 80))
	}
	d.console.Println(line)
	delete(d.calls, call.ID)
}

// Reset forgets calls that were announced but never finished, as happens
// when the accumulator drops them.
func (d *ToolCallDisplay) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeActive()
	d.calls = make(map[string]*shownCall)
}

func (d *ToolCallDisplay) closeActive() {
	if d.active == "" {
		return
	}
	d.console.EnsureNewline()
	d.active = ""
}

func (d *ToolCallDisplay) line(mark string, c *shownCall) string {
	s := fmt.Sprintf("%s %s", mark, toolNameStyle.Render(c.name))
	if c.arg != "" {
		s += " " + ShortenMiddle(c.arg, keyArgWidth)
	}
	return s
}

// ShortenMiddle cuts s to width display columns by replacing its middle
// with "...".
func ShortenMiddle(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	const ellipsis = "..."
	room := width - len(ellipsis)
	if room <= 0 {
		return runewidth.Truncate(s, width, "")
	}
	headWidth := room / 2
	tailWidth := room - headWidth

	head := runewidth.Truncate(s, headWidth, "")

	runes := []rune(s)
	w, i := 0, len(runes)
	for i > 0 {
		rw := runewidth.RuneWidth(runes[i-1])
		if w+rw > tailWidth {
			break
		}
		w += rw
		i--
	}
	return head + ellipsis + string(runes[i:])
}
