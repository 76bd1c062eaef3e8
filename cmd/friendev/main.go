package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/LikeEpieiKeia216/Friendev/internal/agent"
	"github.com/LikeEpieiKeia216/Friendev/internal/approval"
	"github.com/LikeEpieiKeia216/Friendev/internal/config"
	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
	"github.com/LikeEpieiKeia216/Friendev/internal/logging"
	"github.com/LikeEpieiKeia216/Friendev/internal/state"
	"github.com/LikeEpieiKeia216/Friendev/internal/tools"
	"github.com/LikeEpieiKeia216/Friendev/internal/ui"
)

const version = "0.1.0"

// buildCommit is set via -ldflags or falls back to VCS info from debug.ReadBuildInfo.
var buildCommit string

var log = logging.Get()

// errTurnFailed ends a one-shot run whose failure was already shown.
var errTurnFailed = errors.New("prompt failed")

// options holds the command-line flags.
type options struct {
	ConfigPath string
	WorkDir    string
	Resume     string
	Prompt     string
	Debug      bool
	Ally       bool
	Version    bool
}

func getBuildCommit() string {
	if buildCommit != "" {
		return buildCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return setting.Value[:7]
		}
	}
	return ""
}

func versionString() string {
	if commit := getBuildCommit(); commit != "" {
		return version + " (" + commit + ")"
	}
	return version
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "friendev [prompt]",
		Short:         "Friendev - a terminal coding agent with approval-gated tools",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Fprintln(cmd.OutOrStdout(), versionString())
				return nil
			}
			if opts.Prompt == "" && len(args) > 0 {
				opts.Prompt = strings.Join(args, " ")
			}
			err := run(cmd.Context(), opts)
			if err != nil && !errors.Is(err, errTurnFailed) {
				fmt.Fprintln(cmd.ErrOrStderr(), ui.Error("Error: "+err.Error()))
			}
			return err
		},
	}
	applyFlags(cmd.Flags(), opts)
	return cmd
}

func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Config file (default ~/.config/friendev/config.json)")
	flags.StringVarP(&opts.WorkDir, "workdir", "w", "", "Working directory for tools (default: current directory)")
	flags.StringVarP(&opts.Resume, "resume", "r", "", "Resume a session by id")
	flags.StringVarP(&opts.Prompt, "prompt", "p", "", "Send one prompt and exit")
	flags.BoolVar(&opts.Debug, "debug", false, "Write a debug log to ~/.friendev/logs")
	flags.BoolVar(&opts.Ally, "ally", false, "Approve every tool operation without asking")
	flags.BoolVarP(&opts.Version, "version", "v", false, "Print the version and exit")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func resolveWorkDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// run wires the packages together and either answers one prompt or starts
// the interactive loop.
func run(ctx context.Context, opts *options) error {
	if opts.Debug {
		logging.Enable()
	}
	defer log.Close()

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		if errors.Is(err, config.ErrNoConfig) || errors.Is(err, config.ErrNoAPIKey) {
			return fmt.Errorf("%w (create the config file with an api_key or set %s)", err, config.EnvAPIKey)
		}
		return err
	}

	workDir, err := resolveWorkDir(opts.WorkDir)
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}

	store, err := state.Open(state.DefaultRoot())
	if err != nil {
		return fmt.Errorf("open state directory: %w", err)
	}
	defer store.Cleanup()

	session, err := openSession(store, opts.Resume, workDir)
	if err != nil {
		return err
	}
	if session.WorkingDirectory != "" {
		workDir = session.WorkingDirectory
	}

	console := ui.NewConsole()
	a := newApp(cfg, store, console, opts.Ally)
	a.start(session, workDir)
	log.Info("friendev %s started: model=%s workdir=%s session=%s", versionString(), cfg.Model, workDir, session.ID)

	if opts.Prompt != "" {
		if err := a.send(ctx, opts.Prompt); err != nil {
			return errTurnFailed
		}
		return nil
	}
	a.printWelcome()
	return a.repl(ctx)
}

func openSession(store *state.Store, resume, workDir string) (*state.Session, error) {
	if resume == "" {
		s := store.NewSession(workDir)
		if err := store.Lock(s.ID); err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := store.LoadSession(resume)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", resume, err)
	}
	if err := store.Lock(s.ID); err != nil {
		return nil, fmt.Errorf("resume %s: %w", resume, err)
	}
	return s, nil
}

// app is the running program: one console, one engine and the agent on
// the current session.
type app struct {
	cfg     *config.Config
	store   *state.Store
	console *ui.Console
	gate    *approval.Gate
	display *ui.ToolCallDisplay
	printer *ui.StreamPrinter
	agent   *agent.Agent

	// newTransport is replaced in tests.
	newTransport func() llm.Transport
}

func newApp(cfg *config.Config, store *state.Store, console *ui.Console, ally bool) *app {
	cache := approval.NewCache()
	if ally {
		for _, kind := range []string{llm.ToolFileWrite, llm.ToolFileReplace, llm.ToolFileDiffEdit, llm.ToolRunCommand} {
			cache.ApproveForSession(kind)
		}
	}
	a := &app{
		cfg:     cfg,
		store:   store,
		console: console,
		gate:    approval.NewGate(cache, ui.NewPrompter(console)),
		display: ui.NewToolCallDisplay(console),
		printer: ui.NewStreamPrinter(console),
	}
	a.newTransport = func() llm.Transport {
		return llm.NewHTTPTransport(cfg.APIURL, cfg.APIKey, cfg.ConnectTimeout(), cfg.RequestTimeout())
	}
	return a
}

// start builds the client, engine and agent for session.
func (a *app) start(session *state.Session, workDir string) {
	if session.WorkingDirectory == "" {
		session.WorkingDirectory = workDir
	}
	client := llm.NewClient(a.newTransport(), a.cfg.Model,
		llm.RetryPolicy{MaxRetries: *a.cfg.MaxRetries, BaseDelay: a.cfg.RetryDelay()},
		llm.WithObserver(a.display),
		llm.WithRetryNotice(a.retryNotice),
	)
	engine := tools.NewEngine(session.WorkingDirectory, a.gate, a.cfg, a.store.Commands)
	a.agent = agent.New(client, engine, a.store, session,
		agent.WithRenderer(&renderer{printer: a.printer, display: a.display, console: a.console}),
		agent.WithSystemPrompt(a.cfg.SystemPrompt),
	)
}

func (a *app) retryNotice(attempt, max int, delay time.Duration, err error) {
	a.printer.Reset()
	a.display.Reset()
	a.console.Println(ui.Warn(fmt.Sprintf("Request failed: %v. Retrying in %s (%d/%d)...", err, delay, attempt, max)))
}

// send runs one user message through the agent. Ctrl-C cancels the turn,
// not the program.
func (a *app) send(ctx context.Context, input string) error {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := a.agent.Run(turnCtx, input)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, agent.ErrSuspiciousInput):
		a.console.Println(ui.Error("Security warning: the input contains reserved control tokens and was not sent."))
	case errors.Is(err, context.Canceled):
		a.console.Println(ui.Warn("Interrupted."))
	default:
		a.console.Println(ui.Error("API error: " + err.Error()))
	}
	return err
}

func (a *app) printWelcome() {
	a.console.Println(ui.Heading("Friendev " + versionString()))
	a.console.Println(ui.Muted(strings.Repeat("─", 60)))
	a.console.Printf("  Model: %s\n", a.cfg.Model)
	a.console.Printf("  Working directory: %s\n", a.agent.Session().WorkingDirectory)
	a.console.Printf("  Session: %s\n", a.agent.Session().ID)
	a.console.Println(ui.Muted(strings.Repeat("─", 60)))
	a.console.Println(ui.Muted("  /help for commands, /exit to quit"))
}

// repl reads lines until /exit or end of input.
func (a *app) repl(ctx context.Context) error {
	for {
		line, err := a.console.ReadLine("> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				a.console.EnsureNewline()
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if a.handleCommand(line) {
				return nil
			}
			continue
		}
		// Errors are already shown; the loop goes on.
		_ = a.send(ctx, line)
	}
}
