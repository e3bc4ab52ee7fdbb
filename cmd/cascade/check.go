package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"mercator-hq/cascade/pkg/cli"
)

var checkFlags struct {
	expected string
	vars     []string
}

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Compare compiled output with an expected CSS file",
	Long: `Compile a stylesheet and compare the result with an expected CSS file.

Differences are printed as a line diff and the command exits with status 3.
By default the expected file is the source path with a .css extension.

Examples:
  # Compare site.yaml with site.css
  cascade check site.yaml

  # Compare with an explicit file
  cascade check site.yaml --expected testdata/site.golden.css`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.expected, "expected", "", "expected CSS file (default <file>.css)")
	checkCmd.Flags().StringArrayVar(&checkFlags.vars, "var", nil, "override a variable, as name=value (repeatable)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	vars, err := parseVarFlags(checkFlags.vars)
	if err != nil {
		return err
	}

	path := args[0]
	expectedPath := checkFlags.expected
	if expectedPath == "" {
		expectedPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".css"
	}
	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		return cli.NewConfigError("expected", err.Error())
	}

	comp, err := newCompiler(cfg)
	if err != nil {
		return err
	}
	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	res, err := compileWithVars(ctx, comp, path, vars)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.CSS == string(expected) {
		fmt.Fprintf(out, "✓ %s matches %s\n", path, expectedPath)
		return nil
	}

	diff := lineDiff(string(expected), res.CSS)
	fmt.Fprintf(out, "✗ %s differs from %s\n--- %s\n+++ %s (generated)\n%s", path, expectedPath, expectedPath, path, diff)
	return &cli.MismatchError{File: path, Expected: expectedPath, Diff: diff}
}

var dmp = diffmatchpatch.New()

func init() {
	dmp.DiffTimeout = time.Second
}

// lineDiff returns the changed lines between before and after, prefixed
// with - and +. Unchanged lines are omitted.
func lineDiff(before, after string) string {
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}
