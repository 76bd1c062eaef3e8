package llm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// StructurallyComplete reports whether braces, brackets and string quotes in
// s are balanced. Escapes are honoured inside strings only.
func StructurallyComplete(s string) bool {
	var braces, brackets int
	inString, escaped := false, false

	for _, ch := range s {
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				braces++
			}
		case '}':
			if !inString {
				braces--
			}
		case '[':
			if !inString {
				brackets++
			}
		case ']':
			if !inString {
				brackets--
			}
		}
	}

	return braces == 0 && brackets == 0 && !inString
}

// SemanticallyComplete reports whether args is structurally complete and
// carries the fields the named tool cannot run without. Tools without
// specific requirements only need structural completeness.
func SemanticallyComplete(tool, args string) bool {
	if !StructurallyComplete(args) {
		return false
	}
	root := gjson.Parse(args)
	if !root.IsObject() {
		return false
	}

	switch tool {
	case ToolFileRead, ToolFileList:
		// path is optional for file_list but must not be empty when given
		if p := root.Get("path"); p.Type == gjson.String {
			return p.Str != ""
		}
		return true
	case ToolFileWrite:
		return nonEmptyString(root.Get("path")) && root.Get("content").Type == gjson.String
	case ToolFileReplace:
		edits := root.Get("edits")
		return nonEmptyString(root.Get("path")) && edits.IsArray() && len(edits.Array()) > 0
	default:
		return true
	}
}

func nonEmptyString(r gjson.Result) bool {
	return r.Type == gjson.String && r.Str != ""
}

// Repair applies bounded fixes to truncated argument JSON: it closes a
// dangling file_write content string, appends missing closing braces, then
// closes an odd trailing quote. Valid input is returned unchanged. The
// boolean reports whether the result is valid JSON.
func Repair(tool, args string) (string, bool) {
	if gjson.Valid(args) {
		return args, true
	}

	fixed := args
	if tool == ToolFileWrite {
		if i := strings.LastIndex(fixed, `"content"`); i >= 0 && strings.Count(fixed[i:], `"`)%2 != 0 {
			fixed += `"`
		}
	}

	if missing := strings.Count(fixed, "{") - strings.Count(fixed, "}"); missing > 0 {
		fixed += strings.Repeat("}", missing)
	}

	if strings.Count(fixed, `"`)%2 != 0 {
		fixed += `"`
	}

	return fixed, gjson.Valid(fixed)
}

// KeyArgument extracts the argument worth showing while a call streams in:
// the path for file tools, the command for run_command and the URL for
// network_get_content. args may be incomplete; a value is only reported once
// its closing quote has arrived. file_list falls back to "./".
func KeyArgument(tool, args string) (string, bool) {
	var field string
	switch tool {
	case ToolFileList, ToolFileRead, ToolFileWrite, ToolFileReplace, ToolFileDiffEdit:
		field = "path"
	case ToolRunCommand:
		field = "command"
	case ToolNetworkGetContent:
		field = "url"
	default:
		return "", false
	}

	v := gjson.Get(args, field)
	if v.Type == gjson.String && len(v.Raw) >= 2 && strings.HasSuffix(v.Raw, `"`) {
		return v.Str, true
	}
	if tool == ToolFileList && StructurallyComplete(args) && gjson.Valid(args) {
		return "./", true
	}
	return "", false
}
