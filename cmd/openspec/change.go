package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/openspec/internal/artifacts"
	"github.com/HendryAvila/openspec/internal/changes"
)

var changeCmd = &cobra.Command{
	Use:   "change",
	Short: "Create and manage changes",
}

var (
	changeSchema      string
	changeDescription string
)

var changeNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Scaffold changes/<name>/ for a new change",
	Args:  cobra.ExactArgs(1),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.requireProject(); err != nil {
			return err
		}
		schema := changeSchema
		if schema == "" {
			schema = a.cfg.DefaultSchema
		}
		created, err := a.deps.Store.Create(a.root, args[0], changes.CreateOptions{
			Schema:      schema,
			Description: changeDescription,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s Created change '%s' (%s)\n", green("✓"), created.ID, created.Schema)
		fmt.Printf("  %s\n", gray(created.ChangeDir))
		return nil
	}),
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Check or uncheck tasks in a change's tasks.md",
}

func taskToggle(done bool) func(*cobra.Command, []string) error {
	return runWith(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.requireProject(); err != nil {
			return err
		}
		t, err := a.deps.Store.SetTaskComplete(a.root, args[0], args[1], done)
		if err != nil {
			return err
		}
		box := gray("[ ]")
		if done {
			box = green("[x]")
		}
		fmt.Printf("%s %s %s\n", box, t.ID, t.Title)
		return nil
	})
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <change> <task-id>",
	Short: "Mark a task complete",
	Args:  cobra.ExactArgs(2),
	RunE:  taskToggle(true),
}

var taskUndoCmd = &cobra.Command{
	Use:   "undo <change> <task-id>",
	Short: "Mark a task incomplete",
	Args:  cobra.ExactArgs(2),
	RunE:  taskToggle(false),
}

var (
	statusJSON   bool
	statusSchema string
)

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show which artifacts of a change are done, ready, or blocked",
	Args:  cobra.ExactArgs(1),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.requireProject(); err != nil {
			return err
		}
		report, err := a.deps.Store.ArtifactStatus(a.root, args[0], statusSchema)
		if err != nil {
			return err
		}
		if statusJSON {
			return printJSON(report)
		}

		header(fmt.Sprintf("%s (%s)", args[0], report.Schema))
		for _, s := range report.Statuses {
			var marker string
			switch s.State {
			case artifacts.StateDone:
				marker = green("✓")
			case artifacts.StateReady:
				marker = yellow("●")
			default:
				marker = gray("○")
			}
			line := fmt.Sprintf("  %s %-12s %s", marker, s.ID, gray(s.OutputPath))
			if len(s.MissingDeps) > 0 {
				line += "  " + red("needs "+strings.Join(s.MissingDeps, ", "))
			}
			fmt.Println(line)
		}
		fmt.Printf("\n  %d/%d complete\n", len(report.Completed), len(report.Statuses))
		if len(report.Ready) > 0 {
			fmt.Printf("  Next: %s\n", strings.Join(report.Ready, ", "))
		}
		return nil
	}),
}

var schemasJSON bool

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List available workflow schemas",
	Args:  cobra.NoArgs,
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		infos := a.deps.Resolver.List()
		if schemasJSON {
			return printJSON(map[string]any{"schemas": infos})
		}
		header("Schemas")
		for _, s := range infos {
			name := s.Name
			if s.Name == a.cfg.DefaultSchema {
				name += " " + green("(default)")
			}
			fmt.Printf("  %s %s\n", bold(name), gray(string(s.Source)))
			if s.Description != "" {
				fmt.Printf("    %s\n", s.Description)
			}
			fmt.Printf("    %s\n", gray(strings.Join(s.Artifacts, " → ")))
		}
		return nil
	}),
}

func init() {
	changeNewCmd.Flags().StringVar(&changeSchema, "schema", "", "Workflow schema (default from config)")
	changeNewCmd.Flags().StringVar(&changeDescription, "description", "", "Description written to README.md")
	changeCmd.AddCommand(changeNewCmd)

	taskCmd.AddCommand(taskDoneCmd, taskUndoCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	statusCmd.Flags().StringVar(&statusSchema, "schema", "", "Evaluate against this schema instead of the change's own")

	schemasCmd.Flags().BoolVar(&schemasJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(changeCmd, taskCmd, statusCmd, schemasCmd)
}
