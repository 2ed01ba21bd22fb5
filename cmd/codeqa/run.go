package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var runParams []string

var runCmd = &cobra.Command{
	Use:   "run <tool>",
	Short: "Run one analysis tool",
	Long: `Run one analysis tool against the project and print its result envelope.

Parameter values are parsed as JSON when possible, otherwise taken as strings.

Examples:
  codeqa run analyze_code_metrics -p top_n=5
  codeqa run find_todos_and_fixmes -p 'markers=["TODO","XXX"]'
  codeqa run analyze_git_history --repo https://github.com/owner/repo`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "Tool parameter as key=value (repeatable)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	params, err := parseParams(runParams)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	projectPath, err := a.projectPath(cmd)
	if err != nil {
		return err
	}
	res, err := a.svc.ExecuteTool(cmd.Context(), args[0], params, projectPath)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), a.format, res); err != nil {
		return err
	}
	if !res.OK() {
		return errReported
	}
	return nil
}

// parseParams turns key=value pairs into a parameter map.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		params[key] = v
	}
	return params, nil
}
