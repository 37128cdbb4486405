package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/profile"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <profile.cue>",
		Short: "Compile and validate a recording profile",
		Long: `Compile a CUE recording profile and report the effective configuration.

Example:
  rewind validate ./profiles/default.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Load(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "profile validation failed", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "profile ok\n")
			fmt.Fprintf(out, "  frame_rate: %v\n", p.FrameRate)
			fmt.Fprintf(out, "  tolerance: pos=%v rot=%v scale=%v float=%v\n",
				p.Tolerance.Position, p.Tolerance.Rotation, p.Tolerance.Scale, p.Tolerance.Float)
			fmt.Fprintf(out, "  keyframe_reduction: %v  rotation_unroll: %v\n",
				p.Tolerance.KeyframeReduction, p.Tolerance.RotationUnroll)
			if len(p.Allow) > 0 {
				fmt.Fprintf(out, "  allow: %v\n", p.Allow)
			}
			return nil
		},
	}
}
