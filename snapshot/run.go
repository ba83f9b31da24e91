package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/codalotl/inlinesnap/internal/diff"
	"github.com/codalotl/inlinesnap/internal/gocode"
	"github.com/codalotl/inlinesnap/internal/recording"
	"github.com/codalotl/inlinesnap/internal/rewrite"
	"github.com/codalotl/inlinesnap/internal/snaperr"
	"golang.org/x/term"
)

// Run is the state shared by the assertions of one test binary: the configuration, the pending inline records, and a per-test counter that names file snapshots.
// Create one in TestMain and call its Main:
//
//	var snap *snapshot.Run
//
//	func TestMain(m *testing.M) {
//		snap = snapshot.MustLoadRun()
//		os.Exit(snap.Main(m))
//	}
//
// A Run is safe for use by parallel tests.
type Run struct {
	cfg    Config
	store  *recording.Store
	logger *slog.Logger
	out    io.Writer
	color  bool

	mu       sync.Mutex
	counters map[string]int
}

// RunOption configures a Run.
type RunOption func(*Run)

// WithLogger sets the logger for flush activity and failures. By default nothing is logged.
func WithLogger(logger *slog.Logger) RunOption {
	return func(r *Run) { r.logger = logger }
}

// WithOutput sets where Main prints flush reports. The default is os.Stderr.
func WithOutput(w io.Writer) RunOption {
	return func(r *Run) { r.out = w }
}

// NewRun returns a Run for cfg. Zero fields of cfg take their DefaultConfig values.
func NewRun(cfg Config, opts ...RunOption) *Run {
	cfg = withDefaults(cfg)
	r := &Run{
		cfg:      cfg,
		out:      os.Stderr,
		counters: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.color = useColor(cfg.Color)
	r.store = recording.New(recording.Options{
		Rewrite: rewrite.Options{IndentUnit: cfg.Indent, Context: cfg.Context, Logger: r.logger},
		Logger:  r.logger,
	})
	return r
}

// LoadRun returns a Run configured by LoadConfig from the working directory.
func LoadRun(opts ...RunOption) (*Run, error) {
	cfg, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	return NewRun(cfg, opts...), nil
}

// MustLoadRun is LoadRun that panics on a configuration error.
func MustLoadRun(opts ...RunOption) *Run {
	r, err := LoadRun(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func withDefaults(cfg Config) Config {
	d := DefaultConfig()
	if cfg.Record == "" {
		cfg.Record = d.Record
	}
	if cfg.Context == 0 {
		cfg.Context = d.Context
	}
	if cfg.Indent == "" {
		cfg.Indent = d.Indent
	}
	if cfg.Color == "" {
		cfg.Color = d.Color
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	return cfg
}

func useColor(mode ColorMode) bool {
	switch mode {
	case ColorOn:
		return true
	case ColorOff:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Config returns the resolved configuration.
func (r *Run) Config() Config {
	return r.cfg
}

// M is the part of *testing.M that Main uses.
type M interface {
	Run() int
}

// Main runs the tests, flushes pending inline snapshots, prints the flush reports, and returns the exit code. A flush error turns a passing run into a failing
// one.
func (r *Run) Main(m M) int {
	code := m.Run()

	reports, err := r.Flush(context.Background())
	for _, rep := range reports {
		fmt.Fprintf(r.out, "%s:%d: %s\n", gocode.DisplayPath(rep.File), rep.Line, rep.Message)
	}
	if err != nil {
		fmt.Fprintf(r.out, "inlinesnap: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

// Report is a message about one call site after a flush.
type Report struct {
	File     string
	Line     int
	Message  string
	Recorded bool // whether the source was changed
}

// Flush writes every pending inline snapshot into its source file (or into the journal, if one is configured) and returns reports for the call sites. Flushing
// with nothing pending does nothing.
func (r *Run) Flush(ctx context.Context) ([]Report, error) {
	if r.cfg.Journal != "" {
		path, err := r.store.Export(r.cfg.Journal)
		if err != nil || path == "" {
			return nil, err
		}
		r.debug("journaled inline snapshots", "path", path)
		return []Report{{File: path, Line: 1, Message: fmt.Sprintf("Inline snapshots were journaled. Apply them with: inlinesnap apply %s", r.cfg.Journal)}}, nil
	}
	results, err := r.store.Flush(ctx)
	return r.reports(results), err
}

// FlushFile flushes the pending inline snapshots of one source file. It ignores the journal setting.
func (r *Run) FlushFile(ctx context.Context, path string) ([]Report, error) {
	res, err := r.store.FlushFile(ctx, path)
	if res == nil {
		return nil, err
	}
	return r.reports([]recording.FileResult{*res}), err
}

func (r *Run) reports(results []recording.FileResult) []Report {
	var out []Report
	for _, res := range results {
		if res.Err != nil {
			out = append(out, Report{File: res.Path, Line: 1, Message: fmt.Sprintf("Could not record inline snapshots: %v", res.Err)})
			continue
		}
		for _, skipped := range res.Skipped {
			if r.logger != nil {
				r.logger.Warn("inline snapshot not recorded", "file", res.Path, "err", skipped)
			}
		}
		for _, rep := range res.Reports {
			out = append(out, Report{File: rep.File, Line: rep.Line, Message: rep.Message, Recorded: rep.Recorded})
		}
	}
	return out
}

// next returns the 1-based number of the next unnamed file snapshot of t. Counters are dropped when t finishes.
func (r *Run) next(t testing.TB) int {
	name := t.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	n, seen := r.counters[name]
	if !seen {
		t.Cleanup(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.counters, name)
		})
	}
	n++
	r.counters[name] = n
	return n
}

// patch renders the diff from expected to actual, colored if enabled.
func (r *Run) patch(expected, actual string) string {
	hunks := diff.Group(diff.Lines(expected, actual), r.cfg.Context)
	if r.color {
		return diff.RenderColor(hunks)
	}
	return diff.Render(hunks)
}

func (r *Run) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Run) fail(t testing.TB, err error, msg string) {
	t.Helper()
	snaperr.Log(r.logger, err)
	t.Error(msg)
}
