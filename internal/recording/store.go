// Package recording holds pending inline snapshot records until they are flushed into their source files.
//
// A Store is safe for concurrent use. All maps are guarded by one mutex; parsing and file writes happen outside of it. A flush takes ownership of a file's pending
// records and cached source, so records written during a flush are kept for the next one.
package recording

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"maps"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"github.com/codalotl/inlinesnap/internal/gocode"
	"github.com/codalotl/inlinesnap/internal/rewrite"
	"github.com/codalotl/inlinesnap/internal/snaperr"
	"golang.org/x/sync/errgroup"
)

// Options configures a Store.
type Options struct {
	Rewrite rewrite.Options
	Jobs    int          // files flushed in parallel; defaults to GOMAXPROCS
	Logger  *slog.Logger // optional
}

// Store maps source files to their parsed contents and pending records.
type Store struct {
	opts Options

	mu      sync.Mutex
	sources map[string]*gocode.File
	pending map[string][]rewrite.Record
}

// FileResult is the outcome of flushing one file.
type FileResult struct {
	Path    string
	Changed bool // whether the file on disk was rewritten
	Reports []rewrite.Report
	Skipped []error // records that could not be located or applied
	Err     error   // the file could not be parsed or written; no records were applied
}

// New returns an empty Store.
func New(opts Options) *Store {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	return &Store{
		opts:    opts,
		sources: make(map[string]*gocode.File),
		pending: make(map[string][]rewrite.Record),
	}
}

// RegisterSource parses the file at path once and caches it until the file is flushed. Errors match snaperr.ErrParseUnavailable.
func (s *Store) RegisterSource(path string) (*gocode.File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &gocode.ParseError{Path: path, Err: err}
	}

	s.mu.Lock()
	f, ok := s.sources[abs]
	s.mu.Unlock()
	if ok {
		return f, nil
	}

	f, err = gocode.ReadFile(abs)
	if err != nil {
		return nil, snaperr.Log(s.opts.Logger, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sources[abs]; ok {
		return existing, nil
	}
	s.sources[abs] = f
	return f, nil
}

// Write queues r for r.File, replacing any pending record for the same slot. The source file is registered if it is not already.
func (s *Store) Write(r rewrite.Record) error {
	f, err := s.RegisterSource(r.File)
	if err != nil {
		return err
	}
	r.File = f.AbsolutePath

	s.mu.Lock()
	defer s.mu.Unlock()

	// The source may have been flushed and evicted between registering and locking; keep it cached for this record.
	if _, ok := s.sources[r.File]; !ok {
		s.sources[r.File] = f
	}

	records := s.pending[r.File]
	key := r.Key()
	for i := range records {
		if records[i].Key() == key {
			records[i] = r
			return nil
		}
	}
	s.pending[r.File] = append(records, r)
	return nil
}

// RecordExists reports whether path has pending records.
func (s *Store) RecordExists(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending[abs]) > 0
}

// Pending returns a copy of all pending records, ordered by file and then by the order they were written.
func (s *Store) Pending() []rewrite.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []rewrite.Record
	for _, path := range slices.Sorted(maps.Keys(s.pending)) {
		out = append(out, s.pending[path]...)
	}
	return out
}

type job struct {
	path    string
	file    *gocode.File
	records []rewrite.Record
}

// take removes and returns the pending records and cached source of each path (all paths with pending records if paths is nil).
func (s *Store) take(paths []string) []job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if paths == nil {
		paths = slices.Sorted(maps.Keys(s.pending))
	}
	var jobs []job
	for _, path := range paths {
		records := s.pending[path]
		if len(records) == 0 {
			continue
		}
		jobs = append(jobs, job{path: path, file: s.sources[path], records: records})
		delete(s.pending, path)
		delete(s.sources, path)
	}
	return jobs
}

// Flush rewrites every file with pending records, in parallel. Files are written only if their contents change. Results are sorted by path. The returned error
// joins the per-file errors; it is nil when every file flushed. Flushing with nothing pending is a no-op.
func (s *Store) Flush(ctx context.Context) ([]FileResult, error) {
	return s.flush(ctx, s.take(nil))
}

// FlushFile flushes only path. It returns a nil result if path has no pending records.
func (s *Store) FlushFile(ctx context.Context, path string) (*FileResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	results, err := s.flush(ctx, s.take([]string{abs}))
	if len(results) == 0 {
		return nil, err
	}
	return &results[0], err
}

func (s *Store) flush(ctx context.Context, jobs []job) ([]FileResult, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	results := make([]FileResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(s.opts.Jobs, len(jobs)))
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = FileResult{Path: j.path, Err: err}
				s.requeue(j)
				return err
			}
			results[i] = s.flushOne(j)
			return nil
		})
	}
	ctxErr := g.Wait()

	slices.SortFunc(results, func(a, b FileResult) int { return cmp.Compare(a.Path, b.Path) })
	var errs []error
	for _, r := range results {
		if r.Err != nil && !errors.Is(r.Err, context.Canceled) && !errors.Is(r.Err, context.DeadlineExceeded) {
			errs = append(errs, r.Err)
		}
	}
	if ctxErr != nil {
		errs = append(errs, ctxErr)
	}
	return results, errors.Join(errs...)
}

// requeue puts a job's records back so an interrupted flush loses nothing.
func (s *Store) requeue(j job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[j.path] = append(j.records, s.pending[j.path]...)
}

func (s *Store) flushOne(j job) FileResult {
	res := FileResult{Path: j.path}

	f := j.file
	if f == nil {
		var err error
		if f, err = gocode.ReadFile(j.path); err != nil {
			res.Err = snaperr.Log(s.opts.Logger, err)
			return res
		}
	}

	opts := s.opts.Rewrite
	if opts.Logger == nil {
		opts.Logger = s.opts.Logger
	}
	out := rewrite.Rewrite(f, j.records, opts)
	res.Reports = out.Reports
	res.Skipped = out.Skipped

	if !out.Changed() {
		return res
	}
	changed, err := f.PersistNewContents(out.Contents)
	res.Changed = changed
	switch {
	case errors.Is(err, snaperr.ErrParseUnavailable):
		// Written, but the result no longer parses.
		snaperr.Log(s.opts.Logger, err)
	case err != nil:
		// Nothing was written; the reports would point at lines that do not exist.
		res.Reports = nil
		res.Err = snaperr.Log(s.opts.Logger, err)
		return res
	}
	if s.opts.Logger != nil {
		s.opts.Logger.Debug("flushed inline snapshots", "file", j.path, "records", len(j.records), "applied", out.Applied)
	}
	return res
}
