package diff

import (
	"fmt"
	"sort"
	"strings"
)

// Hunk replaces NumLines lines of the original file, starting at the
// 1-indexed StartLine, with NewContent. NumLines 0 inserts before StartLine.
type Hunk struct {
	StartLine  int    `json:"start_line"`
	NumLines   int    `json:"num_lines"`
	NewContent string `json:"new_content"`
}

// Range is a 0-indexed, half-open span of lines in the result.
type Range struct {
	Start int
	End   int
}

// ApplyError provides structured error details for a rejected hunk.
type ApplyError struct {
	HunkIndex int
	StartLine int
	Reason    string
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("hunk %d (line %d): %s", e.HunkIndex+1, e.StartLine, e.Reason)
}

type resolvedHunk struct {
	index int
	start int // 0-indexed
	end   int // exclusive, clipped to the file
	lines []string
}

// Apply validates every hunk against the original lines, then applies them
// bottom-to-top so earlier line numbers stay valid regardless of input
// order. Nothing is applied if any hunk is rejected. The returned ranges
// locate each hunk's new lines in the result, in ascending order.
func Apply(lines []string, hunks []Hunk) ([]string, []Range, error) {
	if len(hunks) == 0 {
		return lines, nil, nil
	}

	resolved := make([]resolvedHunk, len(hunks))
	for i, h := range hunks {
		if h.StartLine < 1 {
			return nil, nil, &ApplyError{HunkIndex: i, StartLine: h.StartLine, Reason: "line numbers start at 1"}
		}
		if h.NumLines < 0 {
			return nil, nil, &ApplyError{HunkIndex: i, StartLine: h.StartLine, Reason: "num_lines must not be negative"}
		}
		start := h.StartLine - 1
		if start > len(lines) {
			return nil, nil, &ApplyError{
				HunkIndex: i,
				StartLine: h.StartLine,
				Reason:    fmt.Sprintf("line out of range (file has %d lines)", len(lines)),
			}
		}
		resolved[i] = resolvedHunk{
			index: i,
			start: start,
			end:   min(start+h.NumLines, len(lines)),
			lines: SplitLines(h.NewContent),
		}
	}

	sort.SliceStable(resolved, func(a, b int) bool {
		return resolved[a].start < resolved[b].start
	})

	for i := 1; i < len(resolved); i++ {
		prev, curr := resolved[i-1], resolved[i]
		if curr.start < prev.end || curr.start == prev.start {
			return nil, nil, &ApplyError{
				HunkIndex: curr.index,
				StartLine: curr.start + 1,
				Reason:    fmt.Sprintf("overlaps hunk %d (lines %d-%d)", prev.index+1, prev.start+1, max(prev.end, prev.start+1)),
			}
		}
	}

	// Result positions, computed top-down from the accumulated line delta.
	ranges := make([]Range, len(resolved))
	offset := 0
	for i, r := range resolved {
		start := r.start + offset
		ranges[i] = Range{Start: start, End: start + len(r.lines)}
		offset += len(r.lines) - (r.end - r.start)
	}

	result := make([]string, len(lines))
	copy(result, lines)

	for i := len(resolved) - 1; i >= 0; i-- {
		r := resolved[i]
		spliced := make([]string, 0, len(result)-(r.end-r.start)+len(r.lines))
		spliced = append(spliced, result[:r.start]...)
		spliced = append(spliced, r.lines...)
		spliced = append(spliced, result[r.end:]...)
		result = spliced
	}

	return result, ranges, nil
}

// ContextWindows renders every range widened by context lines on each side,
// merging windows that touch or overlap, as "Line %4d: text" rows. Windows
// are separated by a blank line.
func ContextWindows(lines []string, ranges []Range, context int) string {
	if len(ranges) == 0 || len(lines) == 0 {
		return ""
	}

	windows := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		windows = append(windows, Range{
			Start: max(r.Start-context, 0),
			End:   min(r.End+context, len(lines)),
		})
	}
	sort.Slice(windows, func(a, b int) bool { return windows[a].Start < windows[b].Start })

	merged := windows[:1]
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			last.End = max(last.End, w.End)
			continue
		}
		merged = append(merged, w)
	}

	var sb strings.Builder
	for _, w := range merged {
		for i := w.Start; i < w.End; i++ {
			fmt.Fprintf(&sb, "Line %4d: %s\n", i+1, lines[i])
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// SplitLines splits file content into lines. Handles both LF and CRLF.
// A trailing newline does not produce an extra empty line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

// JoinLines joins lines back into file content with a trailing newline.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Document is file content split into lines, remembering the line-ending
// style and whether the file ended with a newline.
type Document struct {
	Lines           []string
	CRLF            bool
	TrailingNewline bool
}

// ParseDocument splits content, detecting CRLF line endings.
func ParseDocument(content string) Document {
	return Document{
		Lines:           SplitLines(content),
		CRLF:            strings.Contains(content, "\r\n"),
		TrailingNewline: strings.HasSuffix(content, "\n"),
	}
}

// String joins the lines back, restoring the original line-ending style.
func (d Document) String() string {
	if len(d.Lines) == 0 {
		return ""
	}
	out := strings.Join(d.Lines, "\n")
	if d.TrailingNewline {
		out += "\n"
	}
	return RestoreLineEndings(out, d.CRLF)
}

// NormalizeLineEndings converts CRLF to LF and reports whether any CRLF was
// present.
func NormalizeLineEndings(content string) (string, bool) {
	if !strings.Contains(content, "\r\n") {
		return content, false
	}
	return strings.ReplaceAll(content, "\r\n", "\n"), true
}

// RestoreLineEndings converts LF back to CRLF when crlf is set.
func RestoreLineEndings(content string, crlf bool) string {
	if !crlf {
		return content
	}
	return strings.ReplaceAll(content, "\n", "\r\n")
}
