package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/openspec/internal/history"
)

var (
	historySearch string
	historyLimit  int
	historyDetail string
	historyAll    bool
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Search or list archived changes recorded in the history ledger",
	Args:  cobra.NoArgs,
	RunE: runWith(func(cmd *cobra.Command, args []string, a *app) error {
		h := a.deps.History
		if h == nil {
			return errors.New("history is disabled: the ledger could not be opened")
		}
		project := a.root
		if historyAll {
			project = ""
		}

		results, err := h.Search(historySearch, history.SearchOptions{Project: project, Limit: historyLimit})
		if err != nil {
			return err
		}
		entries := make([]history.Entry, len(results))
		for i, r := range results {
			entries[i] = r.Entry
		}
		if historyJSON {
			return printJSON(map[string]any{"archives": entries})
		}

		header("Archive History")
		fmt.Print(history.FormatEntries(entries, history.ParseDetailLevel(historyDetail)))
		if historySearch == "" {
			if st, err := h.Stats(); err == nil {
				fmt.Print(history.NavigationHint(len(entries), st.TotalArchives))
			}
		}
		return nil
	}),
}

func init() {
	historyCmd.Flags().StringVarP(&historySearch, "search", "s", "", "Full-text search over archived proposals")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum results")
	historyCmd.Flags().StringVar(&historyDetail, "detail", "", "Detail level: summary, standard, full")
	historyCmd.Flags().BoolVar(&historyAll, "all-projects", false, "Include every project in the ledger")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(historyCmd)
}
