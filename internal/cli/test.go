package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/trustlog/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario name filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Digest string   `json:"digest,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run YAML scenarios against the reducer",
		Long: `Run every scenario file in a directory.

Each scenario log is folded from scratch and incrementally; the two folds
must agree and every assertion must hold. Scenarios do not touch --db.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (directory not found, bad filter)

Examples:
  trustlog test ./scenarios
  trustlog test ./scenarios --filter "flag_*"
  trustlog test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name (glob pattern)")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return f.Fail(ExitCommandError, CodeInput, fmt.Sprintf("scenarios directory not found: %s", dir), nil)
	}
	if _, err := filepath.Match(opts.Filter, ""); err != nil {
		return f.Fail(ExitCommandError, CodeInput, fmt.Sprintf("invalid filter pattern: %v", err), nil)
	}

	files, err := harness.ScenarioFiles(dir)
	if err != nil {
		return f.Fail(ExitCommandError, CodeInput, err.Error(), nil)
	}

	h := harness.New(harness.WithLogger(opts.logger()))
	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		sr, ok := runScenarioFile(cmd, h, file, opts.Filter)
		if !ok {
			continue
		}
		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	var failure *CLIError
	if result.Failed > 0 {
		failure = &CLIError{Code: CodeScenario, Message: fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total)}
	}
	return f.Result(result, failure, func(w io.Writer) {
		outputTestText(w, result)
	})
}

// runScenarioFile loads and runs one file. It reports false when the
// scenario is excluded by filter. Load failures count as failed scenarios.
func runScenarioFile(cmd *cobra.Command, h *harness.Harness, file, filter string) (ScenarioResult, bool) {
	base := filepath.Base(file)
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		if filter != "" {
			if matched, _ := filepath.Match(filter, trimExt(base)); !matched {
				return ScenarioResult{}, false
			}
		}
		return ScenarioResult{Name: trimExt(base), File: base, Errors: []string{err.Error()}}, true
	}
	if filter != "" {
		if matched, _ := filepath.Match(filter, scenario.Name); !matched {
			return ScenarioResult{}, false
		}
	}

	result, err := h.Run(cmd.Context(), scenario)
	if err != nil {
		return ScenarioResult{Name: scenario.Name, File: base, Errors: []string{fmt.Sprintf("execution failed: %v", err)}}, true
	}
	return ScenarioResult{
		Name:   scenario.Name,
		File:   base,
		Pass:   result.Pass,
		Digest: result.Digest,
		Errors: result.Errors,
	}, true
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func outputTestText(w io.Writer, result TestResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, s := range result.Scenarios {
		if s.Pass {
			fmt.Fprintf(w, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
