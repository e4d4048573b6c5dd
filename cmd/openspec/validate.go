package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/fsutil"
	"github.com/HendryAvila/openspec/internal/validation"
	"github.com/HendryAvila/openspec/internal/watch"
)

var (
	validateAll         bool
	validateChanges     bool
	validateSpecs       bool
	validateStrict      bool
	validateJSON        bool
	validateConcurrency int
	validateWatch       bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [id]",
	Short: "Validate changes and specs",
	Long: `Validate one change or spec, or every item with --all, --changes or --specs.
Exits 1 when any item is invalid. With --watch, re-validates whenever files change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.requireProject(); err != nil {
			return err
		}
		strict := a.cfg.Strict
		if cmd.Flags().Changed("strict") {
			strict = validateStrict
		}
		concurrency := a.cfg.Concurrency
		if cmd.Flags().Changed("concurrency") {
			concurrency = validateConcurrency
		}
		if concurrency < 1 {
			return fmt.Errorf("--concurrency must be at least 1")
		}

		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		bulk := validateAll || validateChanges || validateSpecs
		if id != "" && bulk {
			return errors.New("pass an id or a bulk flag, not both")
		}
		includeChanges := validateAll || validateChanges || !bulk
		includeSpecs := validateAll || validateSpecs || !bulk

		check := func(ctx context.Context) (bool, error) {
			v := validation.New(strict, validation.WithSpecsDir(changes.SpecsPath(a.root)))
			if id != "" {
				return validateOne(a.root, id, v)
			}
			return validateBulk(ctx, a.dir, v, concurrency, includeChanges, includeSpecs)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ok, err := check(ctx)
		if err != nil {
			return err
		}
		if !validateWatch {
			if !ok {
				return &exitError{code: 1}
			}
			return nil
		}

		dir := a.dir
		if id != "" && fsutil.IsDir(changes.ChangePath(a.root, id)) {
			dir = changes.ChangePath(a.root, id)
		}
		fmt.Fprintf(os.Stderr, "%s watching %s (Ctrl+C to stop)\n", gray("›"), dir)
		return watch.RunWithLogger(ctx, dir, watch.DefaultDebounce, func(changed []string) {
			fmt.Printf("\n%s %d file(s) changed\n", gray("›"), len(changed))
			if _, err := check(ctx); err != nil {
				a.logger.Error("validation failed", "error", err)
			}
		}, a.logger)
	}),
}

// validateOne resolves id as a change first, then as a spec.
func validateOne(root, id string, v *validation.Validator) (bool, error) {
	changeDir := changes.ChangePath(root, id)
	if fsutil.IsDir(changeDir) && id != changes.ArchiveDir {
		r := v.ValidateChange(changeDir)
		if validateJSON {
			return r.Valid, printJSON(validation.Result{ID: id, Type: validation.ItemChange, Valid: r.Valid, Report: r})
		}
		printReport("change", id, r)
		return r.Valid, nil
	}

	specFile := changes.SpecPath(root, id)
	ok, err := fsutil.Exists(specFile)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("no change or spec named '%s'", id)
	}
	r := v.ValidateSpecFile(id, specFile)
	if validateJSON {
		return r.Valid, printJSON(validation.Result{ID: id, Type: validation.ItemSpec, Valid: r.Valid, Report: r})
	}
	printReport("spec", id, r)
	return r.Valid, nil
}

func validateBulk(ctx context.Context, openspecDir string, v *validation.Validator, concurrency int, includeChanges, includeSpecs bool) (bool, error) {
	targets, err := validation.CollectTargets(openspecDir, includeChanges, includeSpecs)
	if err != nil {
		return false, err
	}
	results, err := v.ValidateAll(ctx, targets, concurrency)
	if err != nil {
		return false, err
	}
	summary := validation.Summarize(results)

	if validateJSON {
		return summary.Failed == 0, printJSON(map[string]any{"items": results, "summary": summary})
	}
	if len(results) == 0 {
		fmt.Println("Nothing to validate.")
		return true, nil
	}
	for _, r := range results {
		if r.Valid {
			fmt.Printf("%s %s/%s\n", green("✓"), r.Type, r.ID)
			continue
		}
		fmt.Printf("%s %s/%s\n", red("✗"), r.Type, r.ID)
		printIssues(r.Report.Issues)
	}
	line := fmt.Sprintf("%d passed, %d failed (%d total)", summary.Passed, summary.Failed, summary.Total)
	if summary.Failed > 0 {
		fmt.Printf("\n%s\n", red(line))
	} else {
		fmt.Printf("\n%s\n", green(line))
	}
	return summary.Failed == 0, nil
}

func init() {
	f := validateCmd.Flags()
	f.BoolVar(&validateAll, "all", false, "Validate all changes and specs")
	f.BoolVar(&validateChanges, "changes", false, "Validate all changes")
	f.BoolVar(&validateSpecs, "specs", false, "Validate all specs")
	f.BoolVar(&validateStrict, "strict", false, "Treat strict-only conventions as errors")
	f.BoolVar(&validateJSON, "json", false, "Output as JSON")
	f.IntVar(&validateConcurrency, "concurrency", 0, "Parallel validations in bulk mode (default from config)")
	f.BoolVar(&validateWatch, "watch", false, "Re-validate when files change")
	rootCmd.AddCommand(validateCmd)
}
