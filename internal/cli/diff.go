package cli

import (
	"fmt"
	"os"

	"github.com/codalotl/inlinesnap/internal/diff"
	"github.com/spf13/cobra"
)

func newDiffCommand(env *environment) *cobra.Command {
	var context int
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Print the line difference between two files",
		Long:  "Print the difference between two text files in the patch format used by snapshot failures. Nothing is printed when the files are equal.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if context < 0 {
				return usagef("--context must not be negative")
			}
			oldText, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			newText, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			hunks := diff.Group(diff.Lines(string(oldText), string(newText)), context)
			env.logger.Debug("diffed files", "old", args[0], "new", args[1], "hunks", len(hunks))
			if len(hunks) == 0 {
				return nil
			}
			if env.useColor() {
				fmt.Fprintln(env.out, diff.RenderColor(hunks))
			} else {
				fmt.Fprintln(env.out, diff.Render(hunks))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&context, "context", "c", 4, "unchanged lines shown around each change")
	return cmd
}
