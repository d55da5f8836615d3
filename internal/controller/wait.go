package controller

import (
	"context"
	"slices"
	"time"
)

// waitFor evaluates cond every interval until it reports true, ctx ends, or
// timeout elapses. It reports whether cond was satisfied; on ctx cancellation
// the context error is returned.
func waitFor(ctx context.Context, interval, timeout time.Duration, cond func(context.Context) bool) (bool, error) {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tick := time.NewTimer(0)
	defer tick.Stop()
	for {
		select {
		case <-wctx.Done():
			if err := ctx.Err(); err != nil {
				return false, err
			}
			return false, nil
		case <-tick.C:
			if cond(wctx) {
				return true, nil
			}
			tick.Reset(interval)
		}
	}
}

// WaitForState re-synchronizes every poll interval until the model reaches one
// of states. It never forces a transition. A timeout yields an error matched by
// IsTimeout; cancellation of ctx returns the context error.
func (c *Controller) WaitForState(ctx context.Context, states []State, timeout time.Duration) (Status, error) {
	var last Status
	ok, err := waitFor(ctx, c.cfg.PollInterval, timeout, func(ctx context.Context) bool {
		st, err := c.Status(ctx)
		if err != nil {
			return false
		}
		last = st
		return slices.Contains(states, st.State)
	})
	if err != nil {
		return c.snapshot(), err
	}
	if !ok {
		st := c.snapshot()
		return st, timeoutError{after: timeout, want: states, last: st.State}
	}
	return last, nil
}
