package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/tasks"
)

var (
	listSpecs    bool
	listArchived bool
	listJSON     bool
	listSort     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active changes, specs, or archived changes",
	Args:  cobra.NoArgs,
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		if listSpecs && listArchived {
			return errors.New("--specs and --archived are mutually exclusive")
		}
		if err := a.requireProject(); err != nil {
			return err
		}
		store := a.deps.Store

		switch {
		case listSpecs:
			specs, err := store.ListSpecs(a.root)
			if err != nil {
				return err
			}
			if listJSON {
				return printJSON(map[string]any{"specs": specs})
			}
			if len(specs) == 0 {
				fmt.Println("No specs found.")
				return nil
			}
			header("Specs")
			for _, s := range specs {
				fmt.Printf("  %-28s %s %s\n", bold(s.ID), gray(fmt.Sprintf("%3d requirement(s)", s.RequirementCount)), s.Title)
			}
			return nil

		case listArchived:
			archived, err := store.ListArchived(a.root)
			if err != nil {
				return err
			}
			if listJSON {
				return printJSON(map[string]any{"archived": archived})
			}
			if len(archived) == 0 {
				fmt.Println("No archived changes.")
				return nil
			}
			header("Archived Changes")
			for _, ar := range archived {
				fmt.Printf("  %s  %s\n", gray(ar.Date), ar.ChangeID)
			}
			return nil
		}

		order := changes.SortOrder(listSort)
		if order != changes.SortRecent && order != changes.SortName {
			return fmt.Errorf("invalid --sort %q; use recent or name", listSort)
		}
		list, err := store.List(a.root, order)
		if err != nil {
			return err
		}
		if listJSON {
			return printJSON(map[string]any{"changes": list})
		}
		if len(list) == 0 {
			fmt.Println("No active changes found.")
			return nil
		}
		header("Changes")
		for _, c := range list {
			fmt.Printf("  %-32s %-22s %s  %s\n", bold(c.ID), stateColor(c.State), progressBar(c.Progress),
				gray(c.LastModified.Format("2006-01-02 15:04")))
		}
		return nil
	}),
}

var (
	showType string
	showJSON bool
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a change or a spec",
	Long:  "Show a change (proposal, deltas, tasks, validation) or a spec. A change wins when both exist; use --type to pick.",
	Args:  cobra.ExactArgs(1),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.requireProject(); err != nil {
			return err
		}
		id := args[0]
		if showType != "" && showType != "change" && showType != "spec" {
			return fmt.Errorf("invalid --type %q; use change or spec", showType)
		}

		if showType != "spec" {
			d, err := a.deps.Store.Show(a.root, id)
			switch {
			case err == nil:
				if showJSON {
					return printJSON(d)
				}
				printChange(d)
				return nil
			case !errors.Is(err, changes.ErrNotFound) || showType == "change":
				return err
			}
		}

		s, err := a.deps.Store.ShowSpec(a.root, id)
		if err != nil {
			if errors.Is(err, changes.ErrNotFound) && showType == "" {
				return fmt.Errorf("no change or spec named '%s'", id)
			}
			return err
		}
		if showJSON {
			return printJSON(s)
		}
		printSpec(s)
		return nil
	}),
}

func printChange(d *changes.Details) {
	header(d.Title)
	fmt.Printf("  %s %s\n", gray("ID:    "), d.ID)
	fmt.Printf("  %s %s\n", gray("State: "), stateColor(d.State))
	fmt.Printf("  %s %s\n", gray("Tasks: "), progressBar(d.Progress))
	if d.Metadata != nil {
		fmt.Printf("  %s %s\n", gray("Schema:"), d.Metadata.Schema)
	}

	fmt.Printf("\n%s\n  %s\n", bold("Why"), d.Why)
	fmt.Printf("\n%s\n", bold("What Changes"))
	for _, b := range d.Bullets {
		fmt.Printf("  - %s\n", b)
	}

	if len(d.Deltas) > 0 {
		fmt.Printf("\n%s\n", bold("Deltas"))
		for _, delta := range d.Deltas {
			fmt.Printf("  %s %s\n", yellow(string(delta.Kind)), delta.Capability)
			for _, r := range delta.Requirements {
				fmt.Printf("      %s\n", r.Name)
			}
			for _, r := range delta.Renames {
				fmt.Printf("      %s → %s\n", r.From, r.To)
			}
		}
	}

	if len(d.Tasks) > 0 {
		fmt.Printf("\n%s\n", bold("Tasks"))
		for _, t := range d.Tasks {
			box := gray("[ ]")
			if t.Status == tasks.StatusComplete {
				box = green("[x]")
			}
			fmt.Printf("  %s %s %s\n", box, gray(t.ID), t.Title)
		}
	}

	fmt.Printf("\n%s\n", bold("Validation"))
	printReport("change", d.ID, d.Validation)
}

func printSpec(s *changes.SpecDetails) {
	header(s.Title)
	fmt.Printf("%s\n  %s\n\n%s\n", bold("Purpose"), s.Purpose, bold("Requirements"))
	for _, r := range s.Requirements {
		fmt.Printf("  %s\n    %s\n", cyan(r.Name), r.Text)
		for _, sc := range r.Scenarios {
			fmt.Printf("    %s %s\n", gray("scenario:"), sc.Name)
		}
	}
}

func init() {
	listCmd.Flags().BoolVar(&listSpecs, "specs", false, "List specs instead of changes")
	listCmd.Flags().BoolVar(&listArchived, "archived", false, "List archived changes")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().StringVar(&listSort, "sort", string(changes.SortRecent), "Sort order for changes: recent or name")

	showCmd.Flags().StringVar(&showType, "type", "", "Item type: change or spec")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}
