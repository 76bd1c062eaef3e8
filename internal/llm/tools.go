package llm

import "github.com/openai/openai-go/v3"

// Tool names advertised to the model.
const (
	ToolFileList          = "file_list"
	ToolFileRead          = "file_read"
	ToolFileWrite         = "file_write"
	ToolFileReplace       = "file_replace"
	ToolFileDiffEdit      = "file_diff_edit"
	ToolRunCommand        = "run_command"
	ToolNetworkGetContent = "network_get_content"
)

func functionTool(name, description string, parameters openai.FunctionParameters) openai.ChatCompletionToolUnionParam {
	return openai.ChatCompletionToolUnionParam{
		OfFunction: &openai.ChatCompletionFunctionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        name,
				Description: openai.String(description),
				Parameters:  parameters,
			},
		},
	}
}

var FileListTool = functionTool(ToolFileList,
	"List all files and subdirectories in the specified directory",
	openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory path (optional, defaults to working directory)",
			},
		},
		"required": []string{},
	})

var FileReadTool = functionTool(ToolFileRead,
	"Read the content of a file",
	openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "File path to read",
			},
		},
		"required": []string{"path"},
	})

var FileWriteTool = functionTool(ToolFileWrite,
	"Write content to a file. For large files write the first ~50 lines with mode 'overwrite', then add the rest in chunks with mode 'append'.",
	openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "File path to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write",
			},
			"mode": map[string]any{
				"type":        "string",
				"enum":        []string{"overwrite", "append"},
				"description": "Write mode: 'overwrite' to replace file content (default), 'append' to add to end of file",
			},
		},
		"required": []string{"path", "content"},
	})

var FileReplaceTool = functionTool(ToolFileReplace,
	"Replace strings in a file, supporting batch edits. Prefer this tool over file_write to modify existing files.",
	openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "File path to edit",
			},
			"edits": map[string]any{
				"type":        "array",
				"description": "List of edit operations to apply in order",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"old": map[string]any{
							"type":        "string",
							"description": "Old string to replace (supports multi-line)",
						},
						"new": map[string]any{
							"type":        "string",
							"description": "New string (supports multi-line)",
						},
						"replace_all": map[string]any{
							"type":        "boolean",
							"description": "Whether to replace all matches (default false, replaces only the first)",
						},
						"normalize": map[string]any{
							"type":        "boolean",
							"description": "If true, ignores leading/trailing whitespace on each line when matching (default false)",
						},
						"regex": map[string]any{
							"type":        "boolean",
							"description": "If true, treats 'old' as a regular expression pattern (RE2 syntax)",
						},
					},
					"required": []string{"old", "new"},
				},
			},
		},
		"required": []string{"path", "edits"},
	})

var FileDiffEditTool = functionTool(ToolFileDiffEdit,
	"Edit file content using diff-style hunks. Each hunk specifies a line range and its new content. Use it for precise multi-location edits.",
	openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "File path to edit",
			},
			"hunks": map[string]any{
				"type":        "array",
				"description": "List of diff hunks. Line numbers refer to the original file.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"start_line": map[string]any{
							"type":        "integer",
							"description": "Starting line number (1-indexed)",
						},
						"num_lines": map[string]any{
							"type":        "integer",
							"description": "Number of lines to replace in the original file (0 inserts)",
						},
						"new_content": map[string]any{
							"type":        "string",
							"description": "New content to replace the old lines (multi-line supported)",
						},
					},
					"required": []string{"start_line", "num_lines", "new_content"},
				},
			},
		},
		"required": []string{"path", "hunks"},
	})

var RunCommandTool = functionTool(ToolRunCommand,
	"Execute a shell command. Supports foreground execution (waits and returns output) and background execution (returns a run_id immediately).",
	openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"background": map[string]any{
				"type":        "boolean",
				"description": "Run in background and return a run_id instead of waiting (default false)",
			},
		},
		"required": []string{"command"},
	})

var NetworkGetContentTool = functionTool(ToolNetworkGetContent,
	"Fetch textual content from a URL via HTTP GET with size and content-type safeguards.",
	openai.FunctionParameters{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "HTTP or HTTPS URL to fetch",
			},
			"max_bytes": map[string]any{
				"type":        "integer",
				"description": "Optional maximum number of bytes to read (default 524288, min 1024, max 1048576)",
			},
		},
		"required": []string{"url"},
	})

// DefaultTools returns every tool the agent can execute.
func DefaultTools() []openai.ChatCompletionToolUnionParam {
	return []openai.ChatCompletionToolUnionParam{
		FileListTool,
		FileReadTool,
		FileWriteTool,
		FileReplaceTool,
		FileDiffEditTool,
		RunCommandTool,
		NetworkGetContentTool,
	}
}
