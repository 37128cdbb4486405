package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/harness"
)

// NewTestCommand creates the test command, running scenario files
// through the conformance harness.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test <scenario.yaml>...",
		Short: "Run conformance scenarios",
		Long: `Run one or more YAML scenario files through the recording pipeline
and report check results.

Example:
  rewind test ./scenarios/static-node.yaml ./scenarios/late-join.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				scenario, err := harness.LoadScenario(path)
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("loading %s", path), err)
				}
				res, err := harness.Run(scenario)
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("running %s", path), err)
				}
				fmt.Fprint(cmd.OutOrStdout(), harness.Report(res))
				if !res.Passed {
					failed++
				}
			}
			if failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
			}
			return nil
		},
	}
}
