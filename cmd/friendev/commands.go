package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LikeEpieiKeia216/Friendev/internal/state"
	"github.com/LikeEpieiKeia216/Friendev/internal/ui"
)

var errUsage = errors.New("invalid arguments")

// handleCommand runs one slash command and reports whether the program
// should exit.
func (a *app) handleCommand(line string) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	var err error
	switch name {
	case "/exit", "/quit":
		return true
	case "/help":
		a.printHelp()
	case "/history":
		err = a.historyCommand(args)
	case "/runcommand":
		err = a.runCommandCommand(args)
	default:
		err = fmt.Errorf("unknown command: %s (see /help)", name)
	}

	if err != nil {
		if errors.Is(err, errUsage) {
			a.console.Println(ui.Error(fmt.Sprintf("Usage error: %v. See /help.", err)))
		} else {
			a.console.Println(ui.Error("Error: " + err.Error()))
		}
	}
	return false
}

func (a *app) printHelp() {
	help := []struct{ cmd, desc string }{
		{"/history [list]", "list saved sessions"},
		{"/history new", "start a new session"},
		{"/history switch <id>", "continue another session"},
		{"/history del <id>", "delete a session"},
		{"/runcommand list", "list background commands"},
		{"/runcommand info <id>", "show a background command and its output"},
		{"/runcommand add <cmd>", "always ask before running <cmd>"},
		{"/runcommand del <cmd>", "stop always asking before <cmd>"},
		{"/help", "show this help"},
		{"/exit", "quit"},
	}
	a.console.Println(ui.Heading("Commands"))
	for _, h := range help {
		a.console.Printf("  %-24s %s\n", h.cmd, ui.Muted(h.desc))
	}
	if kinds := a.gate.Cache().Kinds(); len(kinds) > 0 {
		a.console.Printf("%s %s\n", ui.Heading("Approved for this session:"), strings.Join(kinds, ", "))
	}
}

func (a *app) historyCommand(args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "list":
		return a.listSessions()
	case "new":
		workDir := a.agent.Session().WorkingDirectory
		s := a.store.NewSession(workDir)
		if err := a.store.Lock(s.ID); err != nil {
			return err
		}
		a.start(s, workDir)
		a.console.Println(ui.Success("Started session " + s.ID))
		return nil
	case "switch":
		if len(args) != 2 {
			return fmt.Errorf("%w: /history switch <id>", errUsage)
		}
		s, err := a.store.LoadSession(args[1])
		if err != nil {
			return err
		}
		if err := a.store.Lock(s.ID); err != nil {
			return err
		}
		a.start(s, s.WorkingDirectory)
		a.console.Println(ui.Success(fmt.Sprintf("Switched to session %s (%d messages)", s.ID, len(s.Messages))))
		return nil
	case "del":
		if len(args) != 2 {
			return fmt.Errorf("%w: /history del <id>", errUsage)
		}
		if args[1] == a.agent.Session().ID {
			return errors.New("cannot delete the current session")
		}
		if err := a.store.DeleteSession(args[1]); err != nil {
			return err
		}
		a.console.Println(ui.Success("Deleted session " + args[1]))
		return nil
	default:
		return fmt.Errorf("%w: unknown /history subcommand %q", errUsage, sub)
	}
}

func (a *app) listSessions() error {
	sessions, err := a.store.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		a.console.Println(ui.Muted("No saved sessions."))
		return nil
	}

	current := a.agent.Session().ID
	a.console.Println(ui.Heading("Sessions"))
	for _, s := range sessions {
		var marks []string
		if s.ID == current {
			marks = append(marks, "current")
		}
		if s.Locked {
			marks = append(marks, "locked")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " [" + strings.Join(marks, ", ") + "]"
		}
		a.console.Printf("  %s  %3d messages  ~%d tokens  %s  %s%s\n",
			s.ID, s.MessageCount, s.Tokens,
			s.UpdatedAt.Local().Format("2006-01-02 15:04"),
			ui.ShortenMiddle(s.WorkingDirectory, 40), suffix)
	}
	return nil
}

func (a *app) runCommandCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: /runcommand list|info <id>|add <cmd>|del <cmd>", errUsage)
	}

	switch args[0] {
	case "list":
		return a.listBackgroundCommands()
	case "info":
		if len(args) != 2 {
			return fmt.Errorf("%w: /runcommand info <id>", errUsage)
		}
		return a.showBackgroundCommand(args[1])
	case "add":
		if len(args) != 2 {
			return fmt.Errorf("%w: /runcommand add <cmd>", errUsage)
		}
		if !a.cfg.AddAlwaysApproveCommand(args[1]) {
			a.console.Println(ui.Muted(args[1] + " already requires approval."))
			return nil
		}
		if err := a.cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		a.console.Println(ui.Success(args[1] + " now always requires approval."))
		return nil
	case "del":
		if len(args) != 2 {
			return fmt.Errorf("%w: /runcommand del <cmd>", errUsage)
		}
		if !a.cfg.RemoveAlwaysApproveCommand(args[1]) {
			a.console.Println(ui.Muted(args[1] + " was not on the approval list."))
			return nil
		}
		if err := a.cfg.Save(); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		a.console.Println(ui.Success(args[1] + " no longer requires approval."))
		return nil
	default:
		return fmt.Errorf("%w: unknown /runcommand subcommand %q", errUsage, args[0])
	}
}

func (a *app) listBackgroundCommands() error {
	records, err := a.store.Commands.List()
	if err != nil {
		return err
	}
	a.console.Printf("%s %s\n", ui.Heading("Always ask before:"), strings.Join(a.cfg.AlwaysApproveCommands, ", "))
	if len(records) == 0 {
		a.console.Println(ui.Muted("No background commands."))
		return nil
	}
	a.console.Println(ui.Heading("Background commands"))
	for _, r := range records {
		a.console.Printf("  %s  %-9s  %s  %s\n", r.ID, r.Status, r.StartTime.Local().Format("2006-01-02 15:04:05"), ui.ShortenMiddle(r.Command, 60))
	}
	return nil
}

func (a *app) showBackgroundCommand(id string) error {
	r, err := a.store.Commands.Get(id)
	if err != nil {
		return err
	}
	a.console.Printf("%s %s\n", ui.Heading("Run ID:"), r.ID)
	a.console.Printf("%s %s\n", ui.Heading("Command:"), r.Command)
	a.console.Printf("%s %s\n", ui.Heading("Working directory:"), r.WorkingDir)
	a.console.Printf("%s %s\n", ui.Heading("Status:"), statusText(r))
	a.console.Printf("%s %s\n", ui.Heading("Started:"), r.StartTime.Local().Format(time.DateTime))
	if r.EndTime != nil {
		a.console.Printf("%s %s (%s)\n", ui.Heading("Finished:"), r.EndTime.Local().Format(time.DateTime), r.EndTime.Sub(r.StartTime).Round(time.Millisecond))
	}
	if r.Output != "" {
		a.console.Println(ui.Heading("Output:"))
		a.console.Println(strings.TrimRight(r.Output, "\n"))
	}
	return nil
}

func statusText(r *state.CommandRecord) string {
	switch {
	case r.Status == state.StatusRunning:
		return ui.Warn(r.Status)
	case r.ExitCode != nil:
		s := fmt.Sprintf("%s (exit code %d)", r.Status, *r.ExitCode)
		if r.Status == state.StatusFailed {
			return ui.Error(s)
		}
		return ui.Success(s)
	default:
		return r.Status
	}
}
