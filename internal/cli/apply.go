package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/codalotl/inlinesnap/internal/gocode"
	"github.com/codalotl/inlinesnap/internal/recording"
	"github.com/codalotl/inlinesnap/internal/rewrite"
	"github.com/codalotl/inlinesnap/snapshot"
	"github.com/spf13/cobra"
)

func newApplyCommand(env *environment) *cobra.Command {
	var (
		keep bool
		jobs int
	)
	cmd := &cobra.Command{
		Use:   "apply <journal-dir>",
		Short: "Write journaled inline snapshots into their test sources",
		Long: `Load every journal written by test runs with INLINESNAP_JOURNAL set, rewrite the recorded call sites in their source files, and print a report for each
call site. Journal files are deleted afterwards unless --keep is given.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := snapshot.LoadConfig("")
			if err != nil {
				return err
			}

			store := recording.New(recording.Options{
				Rewrite: rewrite.Options{IndentUnit: cfg.Indent, Context: cfg.Context, Logger: env.logger},
				Jobs:    jobs,
				Logger:  env.logger,
			})
			files, err := store.Import(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintf(env.out, "No journals in %s.\n", args[0])
				return nil
			}
			env.logger.Debug("imported journals", "dir", args[0], "files", len(files))

			results, err := store.Flush(cmd.Context())
			if err != nil {
				return err
			}

			var failed []error
			for _, res := range results {
				if res.Err != nil {
					fmt.Fprintf(env.out, "%s: Could not record inline snapshots: %v\n", gocode.DisplayPath(res.Path), res.Err)
					failed = append(failed, res.Err)
					continue
				}
				for _, skipped := range res.Skipped {
					env.logger.Warn("inline snapshot not recorded", "file", res.Path, "err", skipped)
				}
				for _, rep := range res.Reports {
					fmt.Fprintf(env.out, "%s:%d: %s\n", gocode.DisplayPath(rep.File), rep.Line, rep.Message)
				}
			}
			if len(failed) > 0 {
				return errors.Join(failed...)
			}

			if !keep {
				for _, f := range files {
					if err := os.Remove(f); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "keep journal files after applying them")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "source files rewritten in parallel (0 means GOMAXPROCS)")
	return cmd
}
