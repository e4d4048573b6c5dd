package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/openspec/internal/workflow"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Phase-gated workflow changes (draft → plan → implement → done)",
}

func engine(a *app) *workflow.Engine {
	return workflow.NewEngine(a.dir, a.logger)
}

var workflowCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a workflow change and make it active",
	Args:  cobra.MinimumNArgs(1),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.requireProject(); err != nil {
			return err
		}
		meta, err := engine(a).Create(strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("%s Created '%s' in phase %s\n", green("✓"), meta.ID, meta.CurrentPhaseID)
		return nil
	}),
}

var workflowUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make an existing workflow change active",
	Args:  cobra.ExactArgs(1),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		if err := engine(a).Use(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Active change: %s\n", green("✓"), args[0])
		return nil
	}),
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflow changes",
	Args:  cobra.NoArgs,
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		e := engine(a)
		ids, err := e.List()
		if err != nil {
			return err
		}
		active, err := e.ActiveID()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No workflow changes.")
			return nil
		}
		for _, id := range ids {
			if id == active {
				fmt.Printf("%s %s\n", green("*"), bold(id))
			} else {
				fmt.Printf("  %s\n", id)
			}
		}
		return nil
	}),
}

var workflowStatusJSON bool

var workflowStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active change's phase, progress and blockers",
	Args:  cobra.NoArgs,
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		st, err := engine(a).Status()
		if err != nil {
			return err
		}
		if workflowStatusJSON {
			return printJSON(st)
		}
		if st.ActiveChangeID == "" {
			fmt.Println(st.NextAction)
			return nil
		}

		header(fmt.Sprintf("%s: %s", st.ActiveChangeID, st.Title))
		phases := make([]string, len(workflow.PhaseOrder))
		for i, p := range workflow.PhaseOrder {
			if p == st.Phase {
				phases[i] = cyan(string(p))
			} else {
				phases[i] = gray(string(p))
			}
		}
		fmt.Printf("  Phase: %s\n", strings.Join(phases, " → "))
		if p := st.TaskProgress; p != nil {
			fmt.Printf("  Tasks: %d/%d complete, %d in progress, %d blocked\n", p.Complete, p.Total, p.InProgress, p.Blocked)
		}
		if st.NextTask != nil {
			fmt.Printf("  Next task: %s %s\n", st.NextTask.ID, st.NextTask.Title)
		}
		for _, b := range st.Blockers {
			fmt.Printf("  %s %s\n", red("blocked:"), b)
		}
		fmt.Printf("\n  %s\n", st.NextAction)
		return nil
	}),
}

var workflowAdvanceCmd = &cobra.Command{
	Use:   "advance [phase]",
	Short: "Move the active change to the next (or the given) phase",
	Args:  cobra.MaximumNArgs(1),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		var to workflow.Phase
		if len(args) == 1 {
			p, err := workflow.ParsePhase(args[0])
			if err != nil {
				return err
			}
			to = p
		}
		meta, err := engine(a).Advance(to)
		if err != nil {
			return err
		}
		fmt.Printf("%s '%s' is now in phase %s\n", green("✓"), meta.ID, meta.CurrentPhaseID)
		return nil
	}),
}

var workflowTaskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks of the active workflow change",
}

var (
	workflowTaskID       string
	workflowTaskCriteria []string
)

var workflowTaskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a pending task",
	Args:  cobra.MinimumNArgs(1),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		t, err := engine(a).AddTask(workflowTaskID, strings.Join(args, " "), workflowTaskCriteria)
		if err != nil {
			return err
		}
		fmt.Printf("%s Added task %s: %s\n", green("✓"), t.ID, t.Title)
		return nil
	}),
}

var workflowTaskSetCmd = &cobra.Command{
	Use:   "set <task-id> <status>",
	Short: "Set a task's status (pending, in_progress, complete, blocked)",
	Args:  cobra.ExactArgs(2),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		status, err := workflow.ParseTaskStatus(args[1])
		if err != nil {
			return err
		}
		t, err := engine(a).SetTaskStatus(args[0], status)
		if err != nil {
			return err
		}
		fmt.Printf("%s Task %s is %s\n", green("✓"), t.ID, t.Status)
		return nil
	}),
}

func init() {
	workflowStatusCmd.Flags().BoolVar(&workflowStatusJSON, "json", false, "Output as JSON")
	workflowTaskAddCmd.Flags().StringVar(&workflowTaskID, "id", "", "Task id (default: next number)")
	workflowTaskAddCmd.Flags().StringArrayVar(&workflowTaskCriteria, "criteria", nil, "Acceptance criterion (repeatable)")

	workflowTaskCmd.AddCommand(workflowTaskAddCmd, workflowTaskSetCmd)
	workflowCmd.AddCommand(workflowCreateCmd, workflowUseCmd, workflowListCmd, workflowStatusCmd, workflowAdvanceCmd, workflowTaskCmd)
	rootCmd.AddCommand(workflowCmd)
}
