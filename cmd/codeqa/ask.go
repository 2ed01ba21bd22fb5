package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var askDryRun bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question about the project",
	Long: `Pick the analysis tools relevant to a free-text question, run them and
compose a short answer. Questions that match no tool run a general overview.

Examples:
  codeqa ask "what dependencies does this use?"
  codeqa ask "are there any hardcoded secrets?" --repo https://github.com/owner/repo
  codeqa ask "who works on this?" --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "Only show which tools would run")
	rootCmd.AddCommand(askCmd)
}

// SelectionResponse is the output of ask --dry-run.
type SelectionResponse struct {
	Question string      `json:"question" yaml:"question"`
	Tools    []toolScore `json:"tools" yaml:"tools"`
	Fallback bool        `json:"fallback" yaml:"fallback"`
}

type toolScore struct {
	ID    string `json:"id" yaml:"id"`
	Score int    `json:"score" yaml:"score"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if askDryRun {
		matches, fallback := a.svc.Select(question)
		resp := SelectionResponse{Question: question, Fallback: fallback, Tools: []toolScore{}}
		for _, m := range matches {
			resp.Tools = append(resp.Tools, toolScore{ID: m.ID, Score: m.Score})
		}
		return writeOutput(cmd.OutOrStdout(), a.format, resp)
	}

	projectPath, err := a.projectPath(cmd)
	if err != nil {
		return err
	}
	res, err := a.svc.AnswerQuestion(cmd.Context(), question, projectPath)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), a.format, res)
}
