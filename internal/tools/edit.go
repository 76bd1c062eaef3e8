package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/LikeEpieiKeia216/Friendev/internal/approval"
	"github.com/LikeEpieiKeia216/Friendev/internal/diff"
	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
)

const (
	previewItems   = 3
	previewChars   = 40
	contextLines   = 3
	mergeResultTag = "==== DIFF MERGE RESULT (from actual file) ===="
	verifyRequest  = "Please verify the DIFF merge result above. Check if all modifications are correct and there are no syntax errors (e.g., unclosed brackets, misaligned indentation). If everything looks good, you may continue. If there are any issues, describe the problem clearly."
)

type fileReplaceArgs struct {
	Path  string      `json:"path"`
	Edits []diff.Edit `json:"edits"`
}

type fileDiffEditArgs struct {
	Path  string      `json:"path"`
	Hunks []diff.Hunk `json:"hunks"`
}

func (e *Engine) fileReplace(raw string) Result {
	var args fileReplaceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return fail("%v", err)
	}
	if len(args.Edits) == 0 {
		return fail("edits must not be empty")
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

	original, crlf := diff.NormalizeLineEndings(string(data))
	res := diff.ApplyEdits(original, args.Edits)
	if err := res.Err(original); err != nil {
		editErr := err.(*diff.EditError)
		if len(editErr.Failed) == 0 {
			return fail("edits produced no change in %s: the new text equals the old text", path)
		}
		return fail("no changes made to %s\n\n%s", path, editErr.Diagnostics)
	}

	if err := e.gate.Check(approval.Request{
		Kind:        llm.ToolFileReplace,
		Action:      "Replace in file",
		Description: path,
		Preview:     replacePreview(args.Edits),
		Path:        path,
		Detail:      diff.Unified(path, original, res.Content, contextLines),
	}); err != nil {
		return rejected(err)
	}

	if err := os.WriteFile(path, []byte(diff.RestoreLineEndings(res.Content, crlf)), 0644); err != nil {
		return fail("write %s: %v", path, err)
	}

	applied := len(args.Edits) - len(res.Failed)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Updated file: %s\nEdits applied: %d/%d\nTotal replacements: %d", path, applied, len(args.Edits), res.Replacements)
	if len(res.Failed) > 0 {
		sb.WriteString("\n\nSome edits matched nothing and were skipped:\n")
		for _, f := range res.Failed {
			fmt.Fprintf(&sb, "  Edit #%d: %s (search: %s)\n", f.Index+1, f.Reason, truncateRunes(f.Old, previewChars))
		}
	}

	brief := fmt.Sprintf("%d replacements", res.Replacements)
	return succeed(brief, "%s", strings.TrimSuffix(sb.String(), "\n"))
}

func (e *Engine) fileDiffEdit(raw string) Result {
	var args fileDiffEditArgs
	if err := decodeArgs(raw, &args); err != nil {
		return fail("%v", err)
	}
	if len(args.Hunks) == 0 {
		return fail("hunks must not be empty")
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

	doc := diff.ParseDocument(string(data))
	newLines, ranges, err := diff.Apply(doc.Lines, args.Hunks)
	if err != nil {
		return fail("%v", err)
	}

	updated := doc
	updated.Lines = newLines
	if len(doc.Lines) == 0 {
		updated.TrailingNewline = true
	}

	if err := e.gate.Check(approval.Request{
		Kind:        llm.ToolFileDiffEdit,
		Action:      "Diff edit file",
		Description: path,
		Preview:     hunkPreview(args.Hunks),
		Path:        path,
		Detail:      diff.Unified(path, diff.JoinLines(doc.Lines), diff.JoinLines(newLines), contextLines),
	}); err != nil {
		return rejected(err)
	}

	if err := os.WriteFile(path, []byte(updated.String()), 0644); err != nil {
		return fail("write %s: %v", path, err)
	}

	// Report what is actually on disk.
	written, err := os.ReadFile(path)
	if err != nil {
		return fail("re-read %s after writing: %v", path, err)
	}
	onDisk := diff.SplitLines(string(written))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Applied %d hunks to %s\n\n%s\n", len(args.Hunks), path, mergeResultTag)
	sb.WriteString(diff.ContextWindows(onDisk, ranges, contextLines))
	sb.WriteString(verifyRequest)

	return succeed(fmt.Sprintf("applied %d hunks", len(args.Hunks)), "%s", sb.String())
}

func replacePreview(edits []diff.Edit) string {
	var sb strings.Builder
	for i, e := range edits {
		if i == previewItems {
			fmt.Fprintf(&sb, "... and %d more edits\n", len(edits)-previewItems)
			break
		}
		fmt.Fprintf(&sb, "- Replace: %s\n  With: %s\n", truncateRunes(e.Old, previewChars), truncateRunes(e.New, previewChars))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func hunkPreview(hunks []diff.Hunk) string {
	var sb strings.Builder
	for i, h := range hunks {
		if i == previewItems {
			fmt.Fprintf(&sb, "... and %d more hunks\n", len(hunks)-previewItems)
			break
		}
		fmt.Fprintf(&sb, "- Line %d: %d lines → %d chars\n", h.StartLine, h.NumLines, len([]rune(h.NewContent)))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// truncateRunes cuts s to n runes on a single line, adding "...".
func truncateRunes(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
