package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes debug logs to a file and user-visible notices to stderr.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	stderr  io.Writer
	enabled bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Get returns the default logger instance.
func Get() *Logger {
	once.Do(func() {
		defaultLogger = &Logger{stderr: os.Stderr}
		defaultLogger.init()
	})
	return defaultLogger
}

// Enable forces file logging on, as the --debug flag does.
func Enable() {
	l := Get()
	l.mu.Lock()
	opened := l.file != nil
	l.mu.Unlock()
	if opened {
		return
	}
	l.open("--debug")
}

func (l *Logger) init() {
	debugEnv := os.Getenv("FRIENDEV_DEBUG")

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "friendev log: failed to get home dir: %v\n", err)
		return
	}

	_, debugFileErr := os.Stat(filepath.Join(home, ".friendev", "debug"))
	if debugEnv != "1" && debugFileErr != nil {
		return
	}

	if debugEnv == "1" {
		l.open("FRIENDEV_DEBUG=1")
	} else {
		l.open("~/.friendev/debug exists")
	}
}

func (l *Logger) open(reason string) {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "friendev log: failed to get home dir: %v\n", err)
		return
	}

	logsDir := filepath.Join(home, ".friendev", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "friendev log: failed to create logs dir %s: %v\n", logsDir, err)
		return
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logsDir, fmt.Sprintf("friendev-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "friendev log: failed to open log file %s: %v\n", logPath, err)
		return
	}

	l.mu.Lock()
	l.file = file
	l.enabled = true
	l.mu.Unlock()

	l.logf("INFO", "Logging started (%s)", reason)
	l.logf("INFO", "Log file: %s", logPath)
}

// Enabled returns whether debug logging is enabled.
func (l *Logger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// SetStderr redirects user-visible notices. Passing nil silences them.
func (l *Logger) SetStderr(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	l.stderr = w
}

func (l *Logger) logf(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.file, "[%s] %s [friendev]: %s\n", timestamp, level, msg)
}

func (l *Logger) notice(prefix, format string, args ...any) {
	l.mu.Lock()
	w := l.stderr
	l.mu.Unlock()
	fmt.Fprintf(w, "friendev %s: %s\n", prefix, fmt.Sprintf(format, args...))
}

// Debug logs a debug message (file only).
func (l *Logger) Debug(format string, args ...any) {
	if !l.Enabled() {
		return
	}
	l.logf("DEBUG", format, args...)
}

// Info logs an info message (file only).
func (l *Logger) Info(format string, args ...any) {
	if !l.Enabled() {
		return
	}
	l.logf("INFO", format, args...)
}

// Warn logs a warning (file and stderr).
func (l *Logger) Warn(format string, args ...any) {
	l.notice("warning", format, args...)
	if l.Enabled() {
		l.logf("WARN", format, args...)
	}
}

// Error logs an error message (file and stderr).
func (l *Logger) Error(format string, args ...any) {
	l.notice("error", format, args...)
	if l.Enabled() {
		l.logf("ERROR", format, args...)
	}
}

// Request logs an outgoing API request body.
func (l *Logger) Request(action string, raw string) {
	if !l.Enabled() {
		return
	}
	l.logf("REQ", "[%s] %s", action, truncate(raw, 500))
}

// Response logs an API response summary.
func (l *Logger) Response(msgType string, raw string) {
	if !l.Enabled() {
		return
	}
	l.logf("RESP", "[%s] %s", msgType, truncate(raw, 500))
}

// Stream logs a streaming event.
func (l *Logger) Stream(eventType string, content string) {
	if !l.Enabled() {
		return
	}
	l.logf("STREAM", "[%s] %s", eventType, truncate(content, 200))
}

// ToolCall logs a tool call.
func (l *Logger) ToolCall(name string, args string) {
	if !l.Enabled() {
		return
	}
	l.logf("TOOL", "[%s] %s", name, truncate(args, 500))
}

// Close closes the log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.enabled = false
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
