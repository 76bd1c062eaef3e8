package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/LikeEpieiKeia216/Friendev/internal/approval"
	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
)

type runCommandArgs struct {
	Command    string `json:"command"`
	Background bool   `json:"background"`
}

func defaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

func (e *Engine) command(ctx context.Context, line string) *exec.Cmd {
	argv := append(append([]string{}, e.shell...), line)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.workDir
	return cmd
}

func (e *Engine) runCommand(ctx context.Context, raw string) Result {
	var args runCommandArgs
	if err := decodeArgs(raw, &args); err != nil {
		return fail("%v", err)
	}
	if strings.TrimSpace(args.Command) == "" {
		return fail("command must not be empty")
	}

	if e.cfg.CommandNeedsApproval(args.Command) {
		mode := "foreground"
		if args.Background {
			mode = "background"
		}
		if err := e.gate.Check(approval.Request{
			Kind:        llm.ToolRunCommand,
			Action:      "Run command (" + mode + ")",
			Description: args.Command,
			Preview:     args.Command,
			Path:        e.workDir,
			Detail:      args.Command,
		}); err != nil {
			return rejected(err)
		}
	}

	if args.Background {
		return e.runBackground(args.Command)
	}
	return e.runForeground(ctx, args.Command)
}

func (e *Engine) runForeground(ctx context.Context, line string) Result {
	cmd := e.command(ctx, line)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode, err := exitStatus(cmd.Run())
	if err != nil {
		return fail("failed to execute command: %v", err)
	}

	status := "success"
	if exitCode != 0 {
		status = "failed"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Command: %s\nExit code: %d\nStatus: %s\n\nOutput:\n", line, exitCode, status)
	fmt.Fprintf(&sb, "STDOUT:\n%s\nSTDERR:\n%s", stdout.String(), stderr.String())

	return Result{
		Success: exitCode == 0,
		Brief:   fmt.Sprintf("command finished (exit code %d)", exitCode),
		Output:  sb.String(),
	}
}

// runBackground records the command as running and returns immediately. The
// goroutine owns the process and reports completion only through the
// registry; nothing waits for it.
func (e *Engine) runBackground(line string) Result {
	if e.commands == nil {
		return fail("background execution is not available")
	}

	rec, err := e.commands.Create(line, e.workDir)
	if err != nil {
		return fail("record background command: %v", err)
	}

	cmd := e.command(context.Background(), line)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		if cerr := e.commands.Complete(rec.ID, -1, "", err); cerr != nil {
			log.Error("update background command %s: %v", rec.ID, cerr)
		}
		return fail("failed to execute command: %v", err)
	}

	go func() {
		exitCode, runErr := exitStatus(cmd.Wait())
		if err := e.commands.Complete(rec.ID, exitCode, out.String(), runErr); err != nil {
			log.Error("update background command %s: %v", rec.ID, err)
			return
		}
		log.Info("background command %s finished with exit code %d", rec.ID, exitCode)
	}()

	return succeed(fmt.Sprintf("started background command: %s", rec.ID),
		"Command started in background\nRun ID: %s\nCommand: %s\n\nUse /runcommand info %s to check its status",
		rec.ID, line, rec.ID)
}

// exitStatus splits a Run/Wait error into an exit code and a failure to run
// at all. A non-zero exit is not an error.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
