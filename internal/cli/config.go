package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/codalotl/inlinesnap/snapshot"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newConfigCommand(env *environment) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration and where each value came from",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, settings, err := snapshot.ExplainConfig(dir)
			if err != nil {
				return err
			}

			key := env.paint(color.FgCyan)
			source := env.paint(color.Faint)
			w := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
			for _, s := range settings {
				fmt.Fprintf(w, "%s\t%s\t%s\n", key.Sprint(s.Key), s.Value, source.Sprint(s.Source))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to resolve .inlinesnap.toml from (default: working directory)")
	return cmd
}
