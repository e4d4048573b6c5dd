// OpenSpec: spec-driven change management for AI coding assistants.
//
// openspec keeps the current truth in openspec/specs, proposed changes in
// openspec/changes, and merges a change's deltas into the specs when it is
// archived. The same operations are exposed over MCP by `openspec serve`.
//
// Usage:
//
//	openspec init [path] [--tools claude,cursor]
//	openspec list [--specs|--archived] [--json]
//	openspec validate [id] [--strict]
//	openspec archive <id> [--yes]
//	openspec serve    # MCP server (stdio transport)
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/config"
	"github.com/HendryAvila/openspec/internal/fsutil"
	"github.com/HendryAvila/openspec/internal/server"
)

var (
	logLevelFlag string
	verboseFlag  bool
	noColorFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "openspec",
	Short: "Spec-driven development for AI coding assistants",
	Long: `OpenSpec keeps what IS built in openspec/specs and what SHOULD change in
openspec/changes. Draft a change, validate it, implement its tasks, then archive
it to merge its delta specs into the source of truth.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose logging (same as --log-level debug)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
}

// exitError ends the process with code after its output was already printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// app is what every command needs once the project and config are resolved.
type app struct {
	root   string
	dir    string
	cfg    *config.Config
	deps   *server.Deps
	logger *slog.Logger
}

// runWith loads configuration for the project containing the working
// directory, wires the dependency graph, and runs fn.
func runWith(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		root, err := changes.FindProjectRootFromWD()
		if err != nil {
			return err
		}
		a, cleanup, err := newApp(root)
		if err != nil {
			return err
		}
		defer cleanup()
		return fn(cmd, args, a)
	}
}

func newApp(root string) (*app, func(), error) {
	dir := changes.ResolveDir(root)
	bootstrap := newLogger(slog.LevelWarn)

	projectDir := ""
	if fsutil.IsDir(dir) {
		projectDir = dir
	}
	cfg, err := config.NewLoader(bootstrap).Load(projectDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.SlogLevel()
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		level = cfg.SlogLevel()
	}
	if verboseFlag {
		level = slog.LevelDebug
	}
	logger := newLogger(level)
	slog.SetDefault(logger)

	deps, cleanup := server.Wire(cfg, logger)
	return &app{root: root, dir: dir, cfg: cfg, deps: deps, logger: logger}, cleanup, nil
}

// newLogger writes to stderr; stdout carries command output and the MCP
// stdio transport.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// requireProject fails when no openspec directory exists above cwd.
func (a *app) requireProject() error {
	if !fsutil.IsDir(a.dir) {
		return errors.New("no openspec directory found; run `openspec init` first")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
