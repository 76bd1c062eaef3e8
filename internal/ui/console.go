package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Console reads user input and owns the output stream. On a terminal it
// reads through x/term with line editing, switching to raw mode only while
// a line is being read. Otherwise it reads plain lines.
type Console struct {
	out io.Writer

	mu      sync.Mutex
	col     int // display column of the cursor; 0 at line start
	fd      int
	tty     bool
	term    *term.Terminal
	reader  *bufio.Reader
}

// NewConsole wraps stdin and stdout.
func NewConsole() *Console {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return NewPipeConsole(os.Stdin, os.Stdout)
	}
	c := &Console{out: os.Stdout, fd: fd, tty: true}
	c.term = term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "")
	return c
}

// NewPipeConsole reads lines from r without a terminal.
func NewPipeConsole(r io.Reader, w io.Writer) *Console {
	return &Console{out: w, reader: bufio.NewReader(r)}
}

// Interactive reports whether input comes from a terminal.
func (c *Console) Interactive() bool {
	return c.tty
}

// Width returns the terminal width, or 80 when unknown.
func (c *Console) Width() int {
	if c.tty {
		if w, _, err := term.GetSize(c.fd); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

// ReadLine shows prompt and returns the next line without its newline.
// io.EOF is returned once input is exhausted.
func (c *Console) ReadLine(prompt string) (string, error) {
	c.EnsureNewline()
	if !c.tty {
		c.Write([]byte(prompt))
		line, err := c.reader.ReadString('\n')
		c.mu.Lock()
		c.col = 0
		c.mu.Unlock()
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	oldState, err := term.MakeRaw(c.fd)
	if err != nil {
		return "", fmt.Errorf("enter raw mode: %w", err)
	}
	if w, h, err := term.GetSize(c.fd); err == nil {
		c.term.SetSize(w, h)
	}
	c.term.SetPrompt(prompt)
	line, err := c.term.ReadLine()
	restoreErr := term.Restore(c.fd, oldState)
	if err != nil {
		return "", err
	}
	if restoreErr != nil {
		return "", fmt.Errorf("restore terminal: %w", restoreErr)
	}
	return line, nil
}

// Write implements io.Writer and tracks whether the cursor is mid-line.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(p) == 0 {
		return 0, nil
	}
	if i := strings.LastIndexAny(string(p), "\r\n"); i >= 0 {
		c.col = len(p) - i - 1
	} else {
		c.col += len(p)
	}
	return c.out.Write(p)
}

// Printf writes formatted output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c, format, args...)
}

// Println writes a line.
func (c *Console) Println(s string) {
	c.Write([]byte(s + "\n"))
}

// EnsureNewline ends the current line if something was written on it.
func (c *Console) EnsureNewline() {
	c.mu.Lock()
	mid := c.col > 0
	c.mu.Unlock()
	if mid {
		c.Write([]byte("\n"))
	}
}

// ClearLine moves to the start of the current line and erases it. Off a
// terminal it ends the line instead.
func (c *Console) ClearLine() {
	if c.tty {
		c.Write([]byte("\r\x1b[K"))
		return
	}
	c.EnsureNewline()
}
