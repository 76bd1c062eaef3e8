package diff

import (
	"strings"
	"testing"
)

func TestApplyEdits(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		edits        []Edit
		want         string
		replacements int
		failed       int
	}{
		{
			name:         "first occurrence only",
			content:      "a = 1\na = 1\n",
			edits:        []Edit{{Old: "a = 1", New: "a = 2"}},
			want:         "a = 2\na = 1\n",
			replacements: 1,
		},
		{
			name:         "replace all counts every match",
			content:      "x x x\n",
			edits:        []Edit{{Old: "x", New: "y", ReplaceAll: true}},
			want:         "y y y\n",
			replacements: 3,
		},
		{
			name:         "edits see previous output",
			content:      "alpha\n",
			edits:        []Edit{{Old: "alpha", New: "beta"}, {Old: "beta", New: "gamma"}},
			want:         "gamma\n",
			replacements: 2,
		},
		{
			name:         "crlf in search text matches normalized content",
			content:      "one\ntwo\n",
			edits:        []Edit{{Old: "one\r\ntwo", New: "three"}},
			want:         "three\n",
			replacements: 1,
		},
		{
			name:         "regex with capture group",
			content:      "func oldName() {}\n",
			edits:        []Edit{{Old: `func (\w+)Name`, New: "func ${1}Func", Regex: true}},
			want:         "func oldFunc() {}\n",
			replacements: 1,
		},
		{
			name:         "regex replace all",
			content:      "v1 v2 v3\n",
			edits:        []Edit{{Old: `v(\d)`, New: "w$1", Regex: true, ReplaceAll: true}},
			want:         "w1 w2 w3\n",
			replacements: 3,
		},
		{
			name:         "normalized ignores indentation",
			content:      "func f() {\n\treturn 1\n}\n",
			edits:        []Edit{{Old: "  return 1  ", New: "\treturn 2", Normalize: true}},
			want:         "func f() {\n\treturn 2\n}\n",
			replacements: 1,
		},
		{
			name:         "normalized multi-line replace all",
			content:      "if a {\n  b()\n}\nif a {\n    b()\n}\n",
			edits:        []Edit{{Old: "if a {\nb()\n}", New: "c()", Normalize: true, ReplaceAll: true}},
			want:         "c()\nc()\n",
			replacements: 2,
		},
		{
			name:         "normalized matches inside a line",
			content:      "func main() {\n    x := foo(1)   \n}\n",
			edits:        []Edit{{Old: "foo(1)", New: "bar(1)", Normalize: true}},
			want:         "func main() {\n    x := bar(1)   \n}\n",
			replacements: 1,
		},
		{
			name:         "normalized whole line keeps indentation",
			content:      "func main() {\n    x := foo(1)\n}\n",
			edits:        []Edit{{Old: "x := foo(1)", New: "x := bar(1)", Normalize: true}},
			want:         "func main() {\n    x := bar(1)\n}\n",
			replacements: 1,
		},
		{
			name:         "normalized multi-line keeps first indentation",
			content:      "\tif ok {\n\t\treturn\n\t}\n",
			edits:        []Edit{{Old: "if ok {\n  return\n}", New: "if !ok {\n\t\tpanic(1)\n\t}", Normalize: true}},
			want:         "\tif !ok {\n\t\tpanic(1)\n\t}\n",
			replacements: 1,
		},
		{
			name:         "crlf in replacement text is normalized",
			content:      "one\ntwo\nthree\n",
			edits:        []Edit{{Old: "two\r\n", New: "TWO\r\nMORE\r\n"}},
			want:         "one\nTWO\nMORE\nthree\n",
			replacements: 1,
		},
		{
			name:         "crlf in regex replacement is normalized",
			content:      "a\n",
			edits:        []Edit{{Old: `a`, New: "b\r\nc", Regex: true}},
			want:         "b\nc\n",
			replacements: 1,
		},
		{
			name:         "crlf in normalized replacement is normalized",
			content:      "  a\n",
			edits:        []Edit{{Old: "a", New: "b\r\nc", Normalize: true}},
			want:         "  b\nc\n",
			replacements: 1,
		},
		{
			name:    "not found",
			content: "hello\n",
			edits:   []Edit{{Old: "goodbye", New: "x"}},
			want:    "hello\n",
			failed:  1,
		},
		{
			name:    "empty search text",
			content: "hello\n",
			edits:   []Edit{{Old: "", New: "x"}},
			want:    "hello\n",
			failed:  1,
		},
		{
			name:    "invalid regex",
			content: "hello\n",
			edits:   []Edit{{Old: "(", New: "x", Regex: true}},
			want:    "hello\n",
			failed:  1,
		},
		{
			name:         "partial success",
			content:      "keep\nchange\n",
			edits:        []Edit{{Old: "missing", New: "x"}, {Old: "change", New: "changed"}},
			want:         "keep\nchanged\n",
			replacements: 1,
			failed:       1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ApplyEdits(tt.content, tt.edits)
			if res.Content != tt.want {
				t.Errorf("content = %q, want %q", res.Content, tt.want)
			}
			if res.Replacements != tt.replacements {
				t.Errorf("replacements = %d, want %d", res.Replacements, tt.replacements)
			}
			if len(res.Failed) != tt.failed {
				t.Errorf("failed = %v, want %d entries", res.Failed, tt.failed)
			}
			if tt.failed > 0 && tt.replacements == 0 && res.Changed(tt.content) {
				t.Error("content changed although every edit failed")
			}
		})
	}
}

func TestApplyEditsFailedIndex(t *testing.T) {
	res := ApplyEdits("a\n", []Edit{{Old: "a", New: "b"}, {Old: "zzz", New: "y"}})
	if len(res.Failed) != 1 {
		t.Fatalf("failed = %v", res.Failed)
	}
	if res.Failed[0].Index != 1 || res.Failed[0].Old != "zzz" {
		t.Errorf("unexpected failed edit: %+v", res.Failed[0])
	}
}

func TestDiagnostics(t *testing.T) {
	content := "func main() {\n    fmt.Println(\"hi\")\n}\n"
	failed := []FailedEdit{{Index: 0, Old: "\tfmt.Println(\"hi\")\r\n", Reason: "not found"}}

	got := Diagnostics(failed, content)

	for _, want := range []string{
		"Edit #1:",
		"Reason: not found",
		"Search text length: 20 chars",
		"Contains newline: true",
		"Contains \\r\\n: true",
		"    fmt.Println(\"hi\")",
		"Line ending differences",
		"Tabs versus spaces",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("diagnostics missing %q:\n%s", want, got)
		}
	}
}

func TestDiagnosticsTruncatesSearchText(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := Diagnostics([]FailedEdit{{Old: long}}, "")
	if !strings.Contains(got, "Search text (first 100 chars): "+strings.Repeat("é", 100)+"\n") {
		t.Errorf("search text not truncated to 100 runes:\n%s", got)
	}
	if strings.Contains(got, "Similar content") {
		t.Error("no suggestions expected for empty content")
	}
}

func TestEditResultErr(t *testing.T) {
	content := "a\n"

	if err := ApplyEdits(content, []Edit{{Old: "a", New: "b"}}).Err(content); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := ApplyEdits(content, []Edit{{Old: "zzz", New: "y"}}).Err(content)
	editErr, ok := err.(*EditError)
	if !ok {
		t.Fatalf("expected *EditError, got %v", err)
	}
	if len(editErr.Failed) != 1 || !strings.Contains(editErr.Diagnostics, "Edit #1:") {
		t.Errorf("unexpected error contents: %+v", editErr)
	}

	// Replacing text with itself matches but changes nothing.
	err = ApplyEdits(content, []Edit{{Old: "a", New: "a"}}).Err(content)
	if editErr, ok := err.(*EditError); !ok || len(editErr.Failed) != 0 {
		t.Errorf("expected an EditError without failed edits, got %v", err)
	}
}
