package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/openspec/internal/changes"
)

var (
	archiveYes        bool
	archiveSkipSpecs  bool
	archiveNoValidate bool
	archiveJSON       bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Merge a change's deltas into specs and move it to the archive",
	Long: `Archive a completed change: apply its delta specs to openspec/specs and move
the change to changes/archive/YYYY-MM-DD-<id>. Nothing is written if any
precondition fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.requireProject(); err != nil {
			return err
		}
		id := args[0]

		if !archiveYes {
			if !stdinIsTerminal() {
				return errors.New("refusing to archive without confirmation; pass --yes")
			}
			ok, err := confirm(fmt.Sprintf("Archive change '%s'? [y/N] ", id))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Archive cancelled.")
				return nil
			}
		}

		res, err := a.deps.Store.Archive(a.root, id, changes.ArchiveOptions{
			SkipSpecs:  archiveSkipSpecs,
			NoValidate: archiveNoValidate,
		})
		if err != nil {
			return printChangeError(err)
		}
		if archiveJSON {
			return printJSON(res)
		}

		for _, w := range res.Warnings {
			fmt.Printf("%s %s\n", yellow("!"), w)
		}
		if res.Specs != nil {
			fmt.Println(bold("Specs updated"))
			printApply(res.Specs)
		}
		fmt.Printf("%s Archived '%s' as %s\n", green("✓"), res.ChangeID, res.ArchiveName)
		return nil
	}),
}

var stdinIsTerminal = func() bool {
	return readline.IsTerminal(int(os.Stdin.Fd()))
}

// confirm reads a yes/no answer from the terminal.
func confirm(prompt string) (bool, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          yellow(prompt),
		InterruptPrompt: "^C",
	})
	if err != nil {
		return false, fmt.Errorf("failed to create readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	line, err := rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

var (
	applyDryRun bool
	applyJSON   bool
)

var applyCmd = &cobra.Command{
	Use:   "apply <id>",
	Short: "Merge a change's delta specs into openspec/specs without archiving it",
	Args:  cobra.ExactArgs(1),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.requireProject(); err != nil {
			return err
		}
		res, err := a.deps.Store.ApplySpecs(a.root, args[0], changes.ApplyOptions{DryRun: applyDryRun})
		if err != nil {
			return printChangeError(err)
		}
		if applyJSON {
			return printJSON(res)
		}
		if res.DryRun {
			fmt.Println(yellow("DRY RUN - no specs were written"))
		}
		printApply(res)
		return nil
	}),
}

func init() {
	archiveCmd.Flags().BoolVarP(&archiveYes, "yes", "y", false, "Skip the confirmation prompt")
	archiveCmd.Flags().BoolVar(&archiveSkipSpecs, "skip-specs", false, "Archive without updating specs")
	archiveCmd.Flags().BoolVar(&archiveNoValidate, "no-validate", false, "Skip validation before archiving")
	archiveCmd.Flags().BoolVar(&archiveJSON, "json", false, "Output as JSON")

	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show what would change without writing")
	applyCmd.Flags().BoolVar(&applyJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(applyCmd)
}
