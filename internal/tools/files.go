package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/LikeEpieiKeia216/Friendev/internal/approval"
	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
)

// Write modes of file_write.
const (
	ModeOverwrite = "overwrite"
	ModeAppend    = "append"
)

type fileListArgs struct {
	Path string `json:"path"`
}

type fileReadArgs struct {
	Path string `json:"path"`
}

type fileWriteArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Mode    string `json:"mode"`
}

func (e *Engine) fileList(raw string) Result {
	var args fileListArgs
	if err := decodeArgs(raw, &args); err != nil {
		return fail("%v", err)
	}

	dir, err := e.resolve(args.Path)
	if err != nil {
		return fail("%v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fail("path does not exist: %s", dir)
	}
	if !info.IsDir() {
		return fail("not a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fail("read directory %s: %v", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	if len(entries) == 0 {
		return succeed("listed 0 items", "Directory: %s\nDirectory is empty", dir)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Directory: %s\n%d items:\n", dir, len(entries))
	for _, entry := range entries {
		kind, size := "file", "-"
		if entry.IsDir() {
			kind = "dir"
		} else if fi, err := entry.Info(); err == nil {
			size = FormatSize(fi.Size())
		}
		fmt.Fprintf(&sb, "%s [%s] (%s)\n", entry.Name(), kind, size)
	}
	return succeed(fmt.Sprintf("listed %d items", len(entries)), "%s", strings.TrimSuffix(sb.String(), "\n"))
}

func (e *Engine) fileRead(raw string) Result {
	var args fileReadArgs
	if err := decodeArgs(raw, &args); err != nil {
		return fail("%v", err)
	}

	path, err := e.resolve(args.Path)
	if err != nil {
		return fail("%v", err)
	}
	if res, ok := requireFile(path); !ok {
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail("read %s: %v", path, err)
	}
	content := string(data)
	lines := strings.Count(content, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		lines++
	}

	return succeed(fmt.Sprintf("read %d lines, %d bytes", lines, len(data)), "File: %s\nContent:\n%s", path, content)
}

func (e *Engine) fileWrite(raw string) Result {
	var args fileWriteArgs
	if err := decodeArgs(raw, &args); err != nil {
		return fail("%v", err)
	}
	if args.Mode == "" {
		args.Mode = ModeOverwrite
	}
	if args.Mode != ModeOverwrite && args.Mode != ModeAppend {
		return fail("invalid write mode: %s (only '%s' or '%s' are supported)", args.Mode, ModeOverwrite, ModeAppend)
	}

	path, err := e.resolve(args.Path)
	if err != nil {
		return fail("%v", err)
	}

	action := "Overwrite file"
	if args.Mode == ModeAppend {
		action = "Append to file"
	}
	if err := e.gate.Check(approval.Request{
		Kind:        llm.ToolFileWrite,
		Action:      action,
		Description: path,
		Preview:     args.Content,
		Path:        path,
		Detail:      args.Content,
	}); err != nil {
		return rejected(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fail("create parent directory: %v", err)
	}

	if args.Mode == ModeAppend {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fail("open %s: %v", path, err)
		}
		_, werr := f.WriteString(args.Content)
		cerr := f.Close()
		if werr != nil {
			return fail("append to %s: %v", path, werr)
		}
		if cerr != nil {
			return fail("append to %s: %v", path, cerr)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fail("stat %s: %v", path, err)
		}
		return succeed(fmt.Sprintf("appended %d bytes", len(args.Content)),
			"Appended to file: %s\nAppended: %d bytes\nCurrent size: %d bytes", path, len(args.Content), info.Size())
	}

	if err := os.WriteFile(path, []byte(args.Content), 0644); err != nil {
		return fail("write %s: %v", path, err)
	}
	return succeed(fmt.Sprintf("wrote %d bytes", len(args.Content)),
		"Wrote file: %s\nSize: %d bytes", path, len(args.Content))
}

// requireFile checks that path exists and is a regular file.
func requireFile(path string) (Result, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return fail("file does not exist: %s", path), false
	}
	if info.IsDir() {
		return fail("not a file: %s", path), false
	}
	return Result{}, true
}

// FormatSize renders a byte count as B, KB, MB or GB.
func FormatSize(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	case n < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(unit*unit*unit))
	}
}
