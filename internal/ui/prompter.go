package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/LikeEpieiKeia216/Friendev/internal/approval"
)

const (
	previewLines = 5
	previewWidth = 35
)

// Prompter asks the user to approve tool operations on the console.
type Prompter struct {
	console *Console
}

var _ approval.Prompter = (*Prompter)(nil)

// NewPrompter creates a prompter reading answers from console.
func NewPrompter(console *Console) *Prompter {
	return &Prompter{console: console}
}

// PromptApproval shows the action with a short preview and waits for
// [Y]es, [N]o, [I]nfo or [A]lways. Unrecognised answers are asked again;
// an empty answer rejects.
func (p *Prompter) PromptApproval(action, description, preview string) (approval.Decision, error) {
	var body strings.Builder
	body.WriteString(headerStyle.Render("Approval Required") + "\n")
	fmt.Fprintf(&body, "%s %s\n", labelStyle.Render("Action:"), action)
	if description != "" {
		fmt.Fprintf(&body, "%s %s\n", labelStyle.Render("Target:"), displayTarget(description))
	}
	if preview != "" {
		body.WriteString(labelStyle.Render("Preview:") + "\n")
		for _, line := range PreviewLines(preview, previewLines, previewWidth) {
			body.WriteString("  " + line + "\n")
		}
	}

	p.console.EnsureNewline()
	p.console.Println(boxStyle.Render(strings.TrimSuffix(body.String(), "\n")))

	for {
		answer, err := p.console.ReadLine("[Y]es / [N]o / [I]nfo / [A]lways: ")
		if err != nil {
			return approval.Decision{}, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return approval.Decision{Approved: true}, nil
		case "n", "no", "":
			return approval.Decision{}, nil
		case "i", "info":
			return approval.Decision{ShowDetail: true}, nil
		case "a", "always":
			return approval.Decision{Approved: true, Remember: true}, nil
		}
		p.console.Println(Warn("Please answer y, n, i or a."))
	}
}

// ShowDetail prints the full payload and asks whether to continue. A
// unified diff is colored; anything else is shown with line numbers.
func (p *Prompter) ShowDetail(action, path, content string) (bool, error) {
	p.console.EnsureNewline()
	p.console.Println(headerStyle.Render(fmt.Sprintf("%s: %s", action, path)))
	p.console.Println(mutedStyle.Render(strings.Repeat("─", min(p.console.Width(), 60))))

	if strings.HasPrefix(content, "--- a/") {
		for _, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
			p.console.Println(colorDiffLine(line))
		}
	} else {
		lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
		for i, line := range lines {
			p.console.Printf("%s %s\n", mutedStyle.Render(fmt.Sprintf("%4d │", i+1)), line)
		}
	}
	p.console.Println(mutedStyle.Render(strings.Repeat("─", min(p.console.Width(), 60))))

	for {
		answer, err := p.console.ReadLine("[C]ontinue / [A]bort: ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "c", "continue", "y", "yes":
			return true, nil
		case "a", "abort", "n", "no", "":
			return false, nil
		}
		p.console.Println(Warn("Please answer c or a."))
	}
}

// PreviewLines returns at most maxLines lines of s, each cut to width
// display columns, followed by a "... (N more lines)" marker when lines
// were left out.
func PreviewLines(s string, maxLines, width int) []string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	var out []string
	for i, line := range lines {
		if i == maxLines {
			out = append(out, fmt.Sprintf("... (%d more lines)", len(lines)-maxLines))
			break
		}
		line = strings.ReplaceAll(line, "\t", "    ")
		out = append(out, runewidth.Truncate(line, width, "..."))
	}
	return out
}

// displayTarget shows a file path by its base name and anything else as is.
func displayTarget(description string) string {
	if filepath.IsAbs(description) && !strings.ContainsAny(description, " \t\n") {
		return filepath.Base(description)
	}
	return ShortenMiddle(description, 60)
}

func colorDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return labelStyle.Render(line)
	case strings.HasPrefix(line, "@@"):
		return diffHunkStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return diffAddStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return diffDelStyle.Render(line)
	default:
		return line
	}
}
