package controller

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Controller supervises one koboldcpp process. All methods are safe for
// concurrent use.
type Controller struct {
	cfg Config
	log zerolog.Logger

	mu     sync.Mutex
	status Status
	proc   *process
	// epoch changes on every spawn and exit; status results fetched across a
	// change are discarded.
	epoch uint64

	syncs   singleflight.Group
	syncSeq atomic.Uint64
}

// New constructs a Controller in the offline state.
func New(cfg Config) *Controller {
	cfg = cfg.withDefaults()
	c := &Controller{
		cfg:    cfg,
		log:    cfg.Logger.With().Str("component", "controller").Logger(),
		status: Status{State: StateOffline},
	}
	recordState(StateOffline, StateOffline)
	return c
}

// Config returns the effective configuration with defaults applied.
func (c *Controller) Config() Config { return c.cfg }

// Start loads the requested model. From offline or failed it spawns koboldcpp;
// when a managed model is online it is stopped first and the new one spawned
// once the old process has exited. It returns after the spawn; use WaitForState
// to observe the model coming online.
func (c *Controller) Start(ctx context.Context, args RunArgs) error {
	argv, err := BuildArgs(args, c.argOptions())
	if err != nil {
		return err
	}
	bin, err := c.binaryPath()
	if err != nil {
		return err
	}
	name := ModelName(args.Model)

	if err := c.sync(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	reload := c.status.State == StateOnline || (c.status.State == StateFailed && c.proc != nil)
	c.mu.Unlock()
	if reload {
		c.log.Info().Str("model", name).Msg("reloading model")
		if err := c.Stop(ctx); err != nil {
			return err
		}
		if _, err := c.WaitForState(ctx, []State{StateOffline}, c.cfg.StopTimeout); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch st := c.status.State; {
	case st.changing():
		return ErrModelState("model is %s, start impossible", st)
	case st == StateOnline:
		return ErrModelState("model came online concurrently, start impossible")
	case c.proc != nil:
		return ErrModelState("koboldcpp process is still running")
	}
	if err := c.spawnLocked(bin, argv, name); err != nil {
		c.status.Name = name
		c.status.Independent = false
		c.fail(err.Error())
		return err
	}
	return nil
}

// Stop requests a graceful shutdown of the managed process and returns without
// waiting for it to exit. Stopping an offline model is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	if err := c.sync(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status.State {
	case StateOffline:
		return nil
	case StateLoading, StateStopping:
		return ErrModelState("model is %s, stop impossible", c.status.State)
	case StateFailed:
		if c.proc == nil {
			return nil
		}
		c.terminateLocked()
		c.setState(StateStopping)
		return nil
	}
	if c.status.Independent || c.proc == nil {
		return ErrModelState("running model is not managed by controller")
	}
	c.terminateLocked()
	c.setState(StateStopping)
	return nil
}

// Status re-synchronizes with koboldcpp and returns a copy of the model status.
// It fails only when ctx ends first.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	if err := c.sync(ctx); err != nil && ctx.Err() != nil {
		return c.snapshot(), ctx.Err()
	}
	return c.snapshot(), nil
}

// Shutdown terminates the managed process, if any, regardless of state and
// waits for it to exit or for ctx to end.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	p := c.proc
	c.terminateLocked()
	c.mu.Unlock()
	if p == nil {
		return nil
	}
	c.log.Info().Str("run_id", p.runID).Msg("shutting down koboldcpp")
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// setState records a transition. c.mu must be held.
func (c *Controller) setState(to State) {
	from := c.status.State
	c.status.State = to
	recordState(from, to)
	if from == to {
		return
	}
	runID := ""
	if c.proc != nil {
		runID = c.proc.runID
	}
	c.log.Info().Str("from", string(from)).Str("to", string(to)).Str("model", c.status.Name).Msg("model state changed")
	c.cfg.Publisher.Publish(Event{Name: EventTransition, Model: c.status.Name, RunID: runID, Fields: map[string]any{
		"from": string(from), "to": string(to),
	}})
}

// fail records msg and moves to failed. c.mu must be held.
func (c *Controller) fail(msg string) {
	c.status.Error = msg
	c.log.Error().Str("model", c.status.Name).Str("error", msg).Msg("model failed")
	c.setState(StateFailed)
}
