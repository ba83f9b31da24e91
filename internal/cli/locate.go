package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/codalotl/inlinesnap/internal/gocode"
	"github.com/codalotl/inlinesnap/internal/locate"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLocateCommand(env *environment) *cobra.Command {
	var (
		function string
		d        locate.Descriptor
	)
	cmd := &cobra.Command{
		Use:   "locate <file>:<line>[:<column>]",
		Short: "Show the snapshot slot of the call at a position",
		Long: `Find the call at a source position and show which argument slot holds its snapshot: the regime (positional, primary, or additional), the slot's line,
and its current value. A column must point at the call's '('. Without a column, --function names the callee to match on the line.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, line, column, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			if column == 0 && function == "" {
				return usagef("--function is required when no column is given")
			}
			if d.Offset < 0 {
				return usagef("--offset must not be negative")
			}

			f, err := gocode.ReadFile(path)
			if err != nil {
				return err
			}
			loc, err := locate.Locate(f, line, column, function, d)
			if err != nil {
				return err
			}
			env.logger.Debug("located call", "file", f.AbsolutePath, "line", line, "column", column)
			printLocation(env, f, loc)
			return nil
		},
	}
	cmd.Flags().StringVarP(&function, "function", "f", "", "callee name of the call, when no column is given")
	cmd.Flags().IntVar(&d.Offset, "offset", 0, "slot offset relative to the first trailing closure")
	cmd.Flags().StringVar(&d.Label, "label", "", "label of an additional closure")
	cmd.Flags().StringSliceVar(&d.DeprecatedLabels, "deprecated-label", nil, "older labels that still name the slot")
	return cmd
}

// parsePosition parses `file:line` or `file:line:column`. The file may itself contain colons.
func parsePosition(s string) (path string, line, column int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return "", 0, 0, usagef("position %q: want <file>:<line>[:<column>]", s)
	}

	nums := []int{}
	for len(parts) > 1 && len(nums) < 2 {
		n, convErr := strconv.Atoi(parts[len(parts)-1])
		if convErr != nil {
			break
		}
		nums = append([]int{n}, nums...)
		parts = parts[:len(parts)-1]
	}
	if len(nums) == 0 {
		return "", 0, 0, usagef("position %q: want <file>:<line>[:<column>]", s)
	}

	path = strings.Join(parts, ":")
	line = nums[0]
	if len(nums) == 2 {
		column = nums[1]
	}
	if path == "" || line < 1 || column < 0 {
		return "", 0, 0, usagef("position %q: want <file>:<line>[:<column>]", s)
	}
	return path, line, column, nil
}

func printLocation(env *environment, f *gocode.File, loc *locate.Location) {
	label := env.paint(color.Bold)
	callPos := f.Position(loc.Call.Lparen)

	fmt.Fprintf(env.out, "%s %s at %s:%d:%d\n", label.Sprint("call:"), locate.CalleeName(loc.Call.Fun), f.AbsolutePath, callPos.Line, callPos.Column)
	fmt.Fprintf(env.out, "%s %s (index %d)\n", label.Sprint("regime:"), loc.Regime, loc.Index)
	fmt.Fprintf(env.out, "%s %d positional, first trailing closure offset %d, slot offset %d\n", label.Sprint("arguments:"), loc.ArgumentCount(), loc.FirstTrailingClosureOffset, loc.TrailingClosureOffset)
	if !loc.Exists {
		fmt.Fprintf(env.out, "%s empty (would be inserted in the call on line %d)\n", label.Sprint("slot:"), loc.Line)
	} else {
		fmt.Fprintf(env.out, "%s line %d\n", label.Sprint("slot:"), loc.Line)
		if value, ok := loc.Value(); ok {
			fmt.Fprintf(env.out, "%s %s\n", label.Sprint("value:"), strconv.Quote(value))
		} else {
			fmt.Fprintf(env.out, "%s not a string literal\n", label.Sprint("value:"))
		}
	}

	text := f.LineText(callPos.Line)
	fmt.Fprintf(env.out, "\n%6d | %s\n", callPos.Line, text)
	fmt.Fprintf(env.out, "%6s | %s\n", "", env.paint(color.FgGreen).Sprint(locate.Caret(text, callPos.Column)))
}
