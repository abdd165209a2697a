package cmd

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/throttled/ratefunc"
)

// settleMargin is added to the quiet period pump waits for after the input
// ends, so that a deferred call armed by the last line has fired.
const settleMargin = 50 * time.Millisecond

// pump runs loop and posts fn(line) to it for every line of r. Once r is
// exhausted it lets settle elapse on the loop, then stops the loop and
// returns. It returns early with ctx's error if ctx is canceled.
func pump(ctx context.Context, loop *ratefunc.Loop, r io.Reader, settle time.Duration, fn func(string)) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- loop.Run(runCtx) }()

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if !loop.Post(func() { fn(line) }) {
			break
		}
	}
	if err := sc.Err(); err != nil {
		stop()
		<-errc
		return errors.Wrap(err, "read input")
	}

	loop.Post(func() { loop.AfterFunc(settle, stop) })
	err := <-errc
	if ctx.Err() == nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
