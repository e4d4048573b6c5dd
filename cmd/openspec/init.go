package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/openspec/internal/agents"
	"github.com/HendryAvila/openspec/internal/config"
	"github.com/HendryAvila/openspec/internal/project"
)

var initToolsFlag string

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize OpenSpec in a project",
	Long: `Create openspec/ with AGENTS.md, project.md, specs/ and changes/, write the
root AGENTS.md stub, and generate slash commands for the selected AI tools.
Running init again extends the existing directory; project.md is never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "."
		if len(args) == 1 {
			target = args[0]
		}
		root, err := filepath.Abs(target)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", root, err)
		}

		a, cleanup, err := newApp(root)
		if err != nil {
			return err
		}
		defer cleanup()
		scaffolder := a.deps.Scaffolder

		var selected []string
		if cmd.Flags().Changed("tools") {
			selected = splitList(initToolsFlag)
		} else if stdinIsTerminal() {
			selected, err = promptTools(scaffolder.Registry())
			if err != nil {
				return err
			}
		}

		res, err := scaffolder.Init(root, project.InitOptions{Tools: selected})
		if err != nil {
			return err
		}
		if err := saveTools(res.OpenSpecDir, append(res.CreatedTools, res.RefreshedTools...)); err != nil {
			return err
		}

		mode := "Created"
		if res.ExtendMode {
			mode = "Extended"
		}
		fmt.Printf("%s %s %s\n", green("✓"), mode, res.OpenSpecDir)
		fmt.Printf("  Root AGENTS.md stub %s\n", res.RootStub)
		if len(res.CreatedTools) > 0 {
			fmt.Printf("  Configured: %s\n", strings.Join(res.CreatedTools, ", "))
		}
		if len(res.RefreshedTools) > 0 {
			fmt.Printf("  Refreshed:  %s\n", strings.Join(res.RefreshedTools, ", "))
		}
		fmt.Printf("\n%s\n", bold("Next steps"))
		fmt.Println("  1. Fill in openspec/project.md with your project's conventions.")
		fmt.Println("  2. Ask your assistant to create a change proposal, or run `openspec change new <name>`.")
		return nil
	},
}

// promptTools asks for a comma-separated tool list on an interactive terminal.
func promptTools(reg *agents.Registry) ([]string, error) {
	fmt.Println(bold("Which AI tools do you use?"))
	for _, d := range reg.All() {
		fmt.Printf("  %-16s %s\n", d.ID, gray(d.Name))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cyan("tools (comma-separated, empty for none)> "),
		InterruptPrompt: "^C",
		AutoComplete:    readline.NewPrefixCompleter(toolItems(reg)...),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	line, err := rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil, errors.New("init cancelled")
		}
		return nil, err
	}
	return splitList(line), nil
}

func toolItems(reg *agents.Registry) []readline.PrefixCompleterInterface {
	ids := reg.IDs()
	items := make([]readline.PrefixCompleterInterface, len(ids))
	for i, id := range ids {
		items[i] = readline.PcItem(id)
	}
	return items
}

// saveTools records configured tools in the project config file, keeping
// any other settings already there.
func saveTools(openspecDir string, tools []string) error {
	if len(tools) == 0 {
		return nil
	}
	path := config.ProjectPath(openspecDir)
	cfg, err := config.LoadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &config.Config{}
	} else if err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, t := range cfg.Tools {
		seen[t] = true
	}
	for _, t := range tools {
		if !seen[t] {
			cfg.Tools = append(cfg.Tools, t)
			seen[t] = true
		}
	}
	sort.Strings(cfg.Tools)
	return cfg.SaveToFile(path)
}

var updateCmd = &cobra.Command{
	Use:   "update [path]",
	Short: "Refresh AGENTS.md and configured slash commands",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "."
		if len(args) == 1 {
			target = args[0]
		}
		root, err := filepath.Abs(target)
		if err != nil {
			return err
		}
		a, cleanup, err := newApp(root)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := a.deps.Scaffolder.Update(root)
		if err != nil {
			return err
		}
		fmt.Printf("%s Updated OpenSpec instructions in %s\n", green("✓"), res.OpenSpecDir)
		for _, f := range res.Updated {
			fmt.Printf("  %s\n", f)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initToolsFlag, "tools", "", "Comma-separated AI tools to configure (e.g. claude,cursor)")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(updateCmd)
}
