// Package cli implements the inlinesnap command line: diffing text files the way failed snapshots are shown, inspecting snapshot call sites, applying journaled
// inline snapshots, and explaining the configuration.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version is the inlinesnap version. It is a var so build tooling can override it (ex: `-ldflags "-X .../internal/cli.Version=1.2.3"`).
var Version = "0.1.0"

// RunOptions overrides standard I/O. Nil fields use the process defaults, which is useful for testing.
type RunOptions struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run runs the CLI with args (typically os.Args).
//
// It returns a recommended exit code and an error, if any:
//   - 0 -> err == nil
//   - 1 -> err != nil, but args were well formed.
//   - 2 -> err != nil because of bad arguments or flags.
//
// Errors have already been printed to opts.Err (or stderr) when Run returns.
func Run(args []string, opts *RunOptions) (int, error) {
	argv := args
	if len(argv) > 0 {
		argv = argv[1:]
	}

	var in io.Reader = os.Stdin
	var out io.Writer = os.Stdout
	var errW io.Writer = os.Stderr
	if opts != nil {
		if opts.In != nil {
			in = opts.In
		}
		if opts.Out != nil {
			out = opts.Out
		}
		if opts.Err != nil {
			errW = opts.Err
		}
	}

	env := &environment{out: out, err: errW}
	root := newRootCommand(env)
	root.SetArgs(argv)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errW)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return 0, nil
	}
	fmt.Fprintf(errW, "error: %v\n", err)

	var uerr *usageError
	if errors.As(err, &uerr) || strings.HasPrefix(err.Error(), "unknown command") {
		return 2, err
	}
	return 1, err
}

// usageError is an error caused by malformed arguments or flags.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// exactArgs is cobra.ExactArgs with a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// environment is state shared by the commands of one Run.
type environment struct {
	out     io.Writer
	err     io.Writer
	verbose bool
	color   string
	logger  *slog.Logger
}

func newRootCommand(env *environment) *cobra.Command {
	root := &cobra.Command{
		Use:           "inlinesnap",
		Short:         "Snapshot testing tools",
		Long:          "inlinesnap inspects and applies inline snapshots recorded by the snapshot package, and shows text differences the way snapshot failures do.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if env.verbose {
				level = slog.LevelDebug
			}
			env.logger = slog.New(slog.NewTextHandler(env.err, &slog.HandlerOptions{Level: level}))
			switch env.color {
			case "auto", "on", "off":
			default:
				return usagef("invalid --color %q (want auto, on, or off)", env.color)
			}
			return nil
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	root.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().StringVar(&env.color, "color", "auto", "colorize output (auto|on|off)")

	root.AddCommand(newDiffCommand(env))
	root.AddCommand(newLocateCommand(env))
	root.AddCommand(newApplyCommand(env))
	root.AddCommand(newConfigCommand(env))
	return root
}

// useColor reports whether output to env.out should be colored.
func (env *environment) useColor() bool {
	switch env.color {
	case "on":
		return true
	case "off":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := env.out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// paint returns a color that is enabled or disabled according to env, regardless of color.NoColor.
func (env *environment) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if env.useColor() {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
