package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"codeqa/internal/storage"
)

var (
	historyTool      string
	historyLimit     int
	historyQuestions bool
	pruneOlderThan   time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded tool runs and questions",
	Long: `Show the execution history. History is recorded only when
history.enabled is true in the configuration (or CODEQA_HISTORY_ENABLED=true).

Examples:
  codeqa history                      # latest runs
  codeqa history --tool find_security_issues
  codeqa history --questions
  codeqa history prune --older-than 720h`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete history older than a duration",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.Flags().StringVar(&historyTool, "tool", "", "Only runs of this tool")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries")
	historyCmd.Flags().BoolVar(&historyQuestions, "questions", false, "List questions instead of runs")
	historyPruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "Age of entries to delete")

	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func historyDB(a *app) (*storage.DB, error) {
	db := a.svc.History()
	if db == nil {
		return nil, fmt.Errorf("history is disabled; set history.enabled: true in the config")
	}
	return db, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	db, err := historyDB(a)
	if err != nil {
		return err
	}

	if historyQuestions {
		qs, err := db.ListQuestions(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), a.format, qs)
	}
	runs, err := db.ListRuns(cmd.Context(), storage.RunFilter{ToolID: historyTool, Limit: historyLimit})
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), a.format, runs)
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	db, err := historyDB(a)
	if err != nil {
		return err
	}

	n, err := db.Prune(cmd.Context(), time.Now().Add(-pruneOlderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries.\n", n)
	return nil
}
