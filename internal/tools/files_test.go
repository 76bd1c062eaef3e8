package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LikeEpieiKeia216/Friendev/internal/approval"
	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
)

func TestFileList(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "b.txt", "hello")
	env.writeFile(t, "sub/inner.go", "package sub\n")
	env.writeFile(t, "a.txt", "")

	res := env.call(t, llm.ToolFileList, map[string]any{})
	require.True(t, res.Success, res.Output)
	assert.Contains(t, res.Output, "3 items:\na.txt [file] (0 B)\nb.txt [file] (5 B)\nsub [dir] (-)")
	assert.Equal(t, "listed 3 items", res.Brief)

	res = env.call(t, llm.ToolFileList, map[string]any{"path": "sub"})
	require.True(t, res.Success)
	assert.Contains(t, res.Output, "inner.go [file]")
}

func TestFileListErrors(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "f.txt", "x")

	res := env.call(t, llm.ToolFileList, map[string]any{"path": "missing"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "path does not exist")

	res = env.call(t, llm.ToolFileList, map[string]any{"path": "f.txt"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "not a directory")

	require.NoError(t, os.Mkdir(filepath.Join(env.dir, "empty"), 0755))
	res = env.call(t, llm.ToolFileList, map[string]any{"path": "empty"})
	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "Directory is empty")
}

func TestFileRead(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "main.go", "package main\n\nfunc main() {}\n")

	res := env.call(t, llm.ToolFileRead, map[string]any{"path": "main.go"})
	require.True(t, res.Success)
	assert.Contains(t, res.Output, "Content:\npackage main\n\nfunc main() {}\n")
	assert.Equal(t, "read 3 lines, 29 bytes", res.Brief)

	res = env.call(t, llm.ToolFileRead, map[string]any{"path": "nope.go"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "file does not exist")

	res = env.call(t, llm.ToolFileRead, map[string]any{"path": "."})
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "not a file")
}

func TestFileWriteOverwrite(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, llm.ToolFileWrite, map[string]any{"path": "deep/nested/out.txt", "content": "hello"})
	require.True(t, res.Success, res.Output)
	assert.Equal(t, "hello", env.readFile(t, "deep/nested/out.txt"))
	assert.Contains(t, res.Output, "Size: 5 bytes")

	require.Len(t, env.prompter.prompts, 1)
	assert.Equal(t, "Overwrite file", env.prompter.prompts[0].Action)
	assert.Equal(t, "hello", env.prompter.prompts[0].Preview)
}

func TestFileWriteAppend(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "log.txt", "one\n")

	res := env.call(t, llm.ToolFileWrite, map[string]any{"path": "log.txt", "content": "two\n", "mode": "append"})
	require.True(t, res.Success, res.Output)
	assert.Equal(t, "one\ntwo\n", env.readFile(t, "log.txt"))
	assert.Contains(t, res.Output, "Appended: 4 bytes\nCurrent size: 8 bytes")
	assert.Equal(t, "appended 4 bytes", res.Brief)
}

func TestFileWriteInvalidModeTouchesNothing(t *testing.T) {
	env := newTestEnv(t)

	res := env.call(t, llm.ToolFileWrite, map[string]any{"path": "new/x.txt", "content": "x", "mode": "truncate"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "invalid write mode: truncate")
	assert.Empty(t, env.prompter.prompts, "rejected before approval")
	_, err := os.Stat(filepath.Join(env.dir, "new"))
	assert.True(t, os.IsNotExist(err), "no directory created")
}

func TestFileWriteRejected(t *testing.T) {
	env := newTestEnv(t)
	env.prompter.decision = approval.Decision{}

	res := env.call(t, llm.ToolFileWrite, map[string]any{"path": "x.txt", "content": "x"})
	assert.False(t, res.Success)
	assert.Equal(t, "Error: user rejected the operation", res.Content())
	_, err := os.Stat(filepath.Join(env.dir, "x.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileWriteDetailAbort(t *testing.T) {
	env := newTestEnv(t)
	env.prompter.decision = approval.Decision{ShowDetail: true}
	env.prompter.detailOK = false

	res := env.call(t, llm.ToolFileWrite, map[string]any{"path": "x.txt", "content": "full content"})
	assert.False(t, res.Success)
	assert.Equal(t, "user cancelled the operation", res.Output)
	assert.Equal(t, "full content", env.prompter.prompts[0].Detail)
}

func TestFileWriteAlwaysSkipsLaterPrompts(t *testing.T) {
	env := newTestEnv(t)
	env.prompter.decision = approval.Decision{Approved: true, Remember: true}

	require.True(t, env.call(t, llm.ToolFileWrite, map[string]any{"path": "a.txt", "content": "a"}).Success)
	require.True(t, env.call(t, llm.ToolFileWrite, map[string]any{"path": "b.txt", "content": "b"}).Success)
	assert.Len(t, env.prompter.prompts, 1)
}
