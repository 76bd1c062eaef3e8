package diff

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Edit is one search/replace instruction of a multi-edit.
type Edit struct {
	Old        string `json:"old"`
	New        string `json:"new"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
	Normalize  bool   `json:"normalize,omitempty"` // ignore leading/trailing whitespace per line
	Regex      bool   `json:"regex,omitempty"`     // Old is an RE2 pattern
}

// FailedEdit records an edit that matched nothing.
type FailedEdit struct {
	Index  int
	Old    string
	Reason string
}

// EditResult is the outcome of ApplyEdits.
type EditResult struct {
	Content      string
	Replacements int
	Failed       []FailedEdit
}

// Changed reports whether any edit modified the content.
func (r EditResult) Changed(original string) bool {
	return r.Content != original
}

// Err returns an *EditError when the edits left original unchanged.
func (r EditResult) Err(original string) error {
	if r.Changed(original) {
		return nil
	}
	return &EditError{Failed: r.Failed, Diagnostics: Diagnostics(r.Failed, original)}
}

// EditError reports a multi-edit that changed nothing.
type EditError struct {
	Failed      []FailedEdit
	Diagnostics string
}

func (e *EditError) Error() string {
	if len(e.Failed) == 0 {
		return "edits produced no change"
	}
	return fmt.Sprintf("%d of the edits matched nothing", len(e.Failed))
}

// ApplyEdits applies edits in order to content, which must use "\n" line
// endings. Each edit sees the output of the previous one. Edits that match
// nothing are recorded in Failed and leave the content untouched.
func ApplyEdits(content string, edits []Edit) EditResult {
	res := EditResult{Content: content}

	for i, e := range edits {
		var (
			count  int
			reason string
		)
		switch {
		case e.Regex:
			res.Content, count, reason = replaceRegex(res.Content, e)
		case e.Normalize:
			res.Content, count, reason = replaceNormalized(res.Content, e)
		default:
			res.Content, count, reason = replacePlain(res.Content, e)
		}

		if count == 0 {
			res.Failed = append(res.Failed, FailedEdit{Index: i, Old: e.Old, Reason: reason})
			continue
		}
		res.Replacements += count
	}

	return res
}

func replacePlain(content string, e Edit) (string, int, string) {
	old := toLF(e.Old)
	if old == "" {
		return content, 0, "search text is empty"
	}
	n := strings.Count(content, old)
	if n == 0 {
		return content, 0, "not found"
	}
	if e.ReplaceAll {
		return strings.ReplaceAll(content, old, toLF(e.New)), n, ""
	}
	return strings.Replace(content, old, toLF(e.New), 1), 1, ""
}

func replaceRegex(content string, e Edit) (string, int, string) {
	re, err := regexp.Compile(e.Old)
	if err != nil {
		return content, 0, fmt.Sprintf("invalid pattern: %v", err)
	}
	repl := toLF(e.New)

	if e.ReplaceAll {
		n := len(re.FindAllStringIndex(content, -1))
		if n == 0 {
			return content, 0, "pattern matched nothing"
		}
		return re.ReplaceAllString(content, repl), n, ""
	}

	loc := re.FindStringSubmatchIndex(content)
	if loc == nil {
		return content, 0, "pattern matched nothing"
	}
	expanded := re.ExpandString(nil, repl, content, loc)
	return content[:loc[0]] + string(expanded) + content[loc[1]:], 1, ""
}

// trimmedLine locates one content line in the whitespace-normalized text.
type trimmedLine struct {
	norm int // offset of the trimmed text in the normalized text
	orig int // offset of the line in content
	lead int // bytes of leading whitespace
}

// replaceNormalized matches the search text as a substring of the content
// after both have every line trimmed. A match that starts at the beginning
// of a line keeps that line's indentation.
func replaceNormalized(content string, e Edit) (string, int, string) {
	search := strings.Trim(trimLines(toLF(e.Old)), "\n")
	if search == "" {
		return content, 0, "search text is empty"
	}

	var (
		norm  strings.Builder
		index []trimmedLine
		orig  int
	)
	for i, line := range strings.Split(content, "\n") {
		if i > 0 {
			norm.WriteByte('\n')
		}
		body := strings.TrimLeftFunc(line, unicode.IsSpace)
		trimmed := strings.TrimRightFunc(body, unicode.IsSpace)
		index = append(index, trimmedLine{
			norm: norm.Len(),
			orig: orig,
			lead: len(line) - len(body),
		})
		norm.WriteString(trimmed)
		orig += len(line) + 1
	}
	text := norm.String()

	var matches [][2]int
	for from := 0; from <= len(text); {
		i := strings.Index(text[from:], search)
		if i < 0 {
			break
		}
		start := from + i
		matches = append(matches, [2]int{start, start + len(search)})
		if !e.ReplaceAll {
			break
		}
		from = start + len(search)
	}
	if len(matches) == 0 {
		return content, 0, "not found, even with whitespace ignored"
	}

	// The search text starts and ends with non-space characters, so both
	// ends of a match fall inside the trimmed text of some line.
	locate := func(p int) (trimmedLine, int) {
		k := sort.Search(len(index), func(i int) bool { return index[i].norm > p }) - 1
		l := index[k]
		return l, l.orig + l.lead + (p - l.norm)
	}

	repl := toLF(e.New)
	for i := len(matches) - 1; i >= 0; i-- {
		line, start := locate(matches[i][0])
		_, end := locate(matches[i][1])
		r := repl
		if matches[i][0] == line.norm {
			r = strings.TrimLeft(r, " \t")
		}
		content = content[:start] + r + content[end:]
	}

	return content, len(matches), ""
}

func toLF(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// trimLines trims surrounding whitespace from every line of s.
func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// Diagnostics explains why edits failed: search text length and line-break
// characteristics, up to three file lines that contain the trimmed search
// text, and common causes.
func Diagnostics(failed []FailedEdit, content string) string {
	var sb strings.Builder
	sb.WriteString("No text was replaced. Diagnostics:\n")

	for _, f := range failed {
		fmt.Fprintf(&sb, "\nEdit #%d:\n", f.Index+1)
		if f.Reason != "" {
			fmt.Fprintf(&sb, "  Reason: %s\n", f.Reason)
		}
		fmt.Fprintf(&sb, "  Search text length: %d chars\n", len([]rune(f.Old)))
		fmt.Fprintf(&sb, "  Search text (first 100 chars): %s\n", firstRunes(f.Old, 100))
		fmt.Fprintf(&sb, "  Contains newline: %t\n", strings.Contains(f.Old, "\n"))
		fmt.Fprintf(&sb, "  Contains \\r\\n: %t\n", strings.Contains(f.Old, "\r\n"))

		if suggestions := similarLines(f.Old, content, 3); len(suggestions) > 0 {
			sb.WriteString("  Similar content in file (whitespace or line-ending differences?):\n")
			for _, s := range suggestions {
				fmt.Fprintf(&sb, "    %s\n", s)
			}
		}
	}

	sb.WriteString("\nCheck for these common problems:\n")
	sb.WriteString("  1. Line ending differences (Windows \\r\\n vs Unix \\n)\n")
	sb.WriteString("  2. Extra leading or trailing spaces\n")
	sb.WriteString("  3. Tabs versus spaces in indentation\n")
	sb.WriteString("  4. Special character encoding differences\n")

	return sb.String()
}

// similarLines returns up to limit lines of content containing the first
// non-blank line of search, trimmed.
func similarLines(search, content string, limit int) []string {
	needle := ""
	for _, l := range SplitLines(search) {
		if t := strings.TrimSpace(l); t != "" {
			needle = t
			break
		}
	}
	if needle == "" {
		return nil
	}

	var out []string
	for _, line := range SplitLines(content) {
		if strings.Contains(line, needle) {
			out = append(out, line)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
