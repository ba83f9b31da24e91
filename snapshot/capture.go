package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/codalotl/inlinesnap/internal/snaperr"
)

// ErrTimeout is matched (with errors.Is) by capture errors caused by a value taking longer than the timeout to produce.
var ErrTimeout = snaperr.ErrTimeout

// capture produces the snapshot text of value with strategy, giving up after timeout. A Producer value is called first. On timeout the returned error matches
// ErrTimeout; the producing goroutine is left to finish on its own.
func capture(strategy Strategy, value any, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		v := value
		if p, ok := value.(Producer); ok {
			var err error
			if v, err = p(ctx); err != nil {
				done <- result{err: err}
				return
			}
		}
		text, err := strategy.Snapshot(ctx, v)
		done <- result{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
			return "", snaperr.Wrap(snaperr.KindTimeout, "snapshot timed out", res.err, "timeout", timeout)
		}
		return res.text, res.err
	case <-ctx.Done():
		return "", snaperr.New(snaperr.KindTimeout, "snapshot timed out", "timeout", timeout)
	}
}
