package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"koboldswitch/internal/common/fsutil"
)

// defaultBinaries maps GOOS to the koboldcpp release binary name.
var defaultBinaries = map[string]string{
	"linux":   "koboldcpp-linux-x64-cuda1210",
	"darwin":  "koboldcpp-mac-arm64",
	"windows": "koboldcpp_cu12.exe",
}

// knownExitCodes maps koboldcpp exit codes to readable causes.
var knownExitCodes = map[int]string{
	3: "failed to load model",
}

// process is the handle of one spawned child.
type process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	runID  string
	model  string
	// stopRequested marks the graceful window: an exit while set is expected.
	stopRequested bool
	done          chan struct{}
}

// binaryPath resolves and checks the koboldcpp executable.
func (c *Controller) binaryPath() (string, error) {
	bin := c.cfg.Binary
	if bin == "" {
		bin = defaultBinaries[runtime.GOOS]
		if bin == "" {
			return "", ErrProcessFault("binary missing", fmt.Errorf("no default koboldcpp binary for %s", runtime.GOOS))
		}
	}
	bin, err := fsutil.ExpandHome(bin)
	if err != nil {
		return "", ErrProcessFault("binary missing", err)
	}
	if !filepath.IsAbs(bin) && c.cfg.BasePath != "" {
		bin = filepath.Join(c.cfg.BasePath, bin)
	}
	if err := fsutil.CheckFile(bin); err != nil {
		return "", ErrProcessFault("binary missing", err)
	}
	return bin, nil
}

// spawnLocked starts the child and moves the state to loading. c.mu must be held.
func (c *Controller) spawnLocked(bin string, argv []string, name string) error {
	ctx, cancel := context.WithCancel(context.Background())
	runID := uuid.NewString()
	log := c.log.With().Str("run_id", runID).Logger()

	cmd := exec.CommandContext(ctx, bin, argv...)
	cmd.Dir = c.cfg.BasePath
	cmd.Env = append(os.Environ(), c.cfg.Env...)
	cmd.Stdout = newLineLogger(log, zerolog.InfoLevel, "stdout")
	cmd.Stderr = newLineLogger(log, zerolog.ErrorLevel, "stderr")
	setProcAttr(cmd)
	cmd.Cancel = func() error { return terminate(cmd.Process) }
	cmd.WaitDelay = c.cfg.KillGrace

	if err := cmd.Start(); err != nil {
		cancel()
		return ErrProcessFault("start koboldcpp", err)
	}

	p := &process{cmd: cmd, cancel: cancel, runID: runID, model: name, done: make(chan struct{})}
	c.proc = p
	c.epoch++
	c.status.Name = name
	c.status.Error = ""
	c.status.Independent = false
	c.setState(StateLoading)

	log.Info().Str("binary", bin).Strs("args", argv).Int("pid", cmd.Process.Pid).Msg("koboldcpp started")
	c.cfg.Publisher.Publish(Event{Name: EventSpawn, Model: name, RunID: runID, Fields: map[string]any{"pid": cmd.Process.Pid, "args": argv}})

	go c.wait(p)
	go c.watchStartup(p)
	return nil
}

func (c *Controller) wait(p *process) {
	err := p.cmd.Wait()
	p.cancel()
	c.handleExit(p, err)
	close(p.done)
}

// handleExit runs the post-exit bookkeeping of p.
func (c *Controller) handleExit(p *process, waitErr error) {
	reason, detail := exitReason(p.cmd.ProcessState, waitErr)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc == p {
		c.proc = nil
	}
	c.epoch++
	childExitsTotal.WithLabelValues(reason).Inc()
	c.cfg.Publisher.Publish(Event{Name: EventExit, Model: p.model, RunID: p.runID, Fields: map[string]any{
		"reason": reason, "detail": detail, "requested": p.stopRequested,
	}})

	log := c.log.With().Str("run_id", p.runID).Str("exit", detail).Logger()
	if p.stopRequested {
		log.Info().Msg("koboldcpp shut down")
		if c.status.State != StateFailed {
			c.setState(StateOffline)
		}
		return
	}
	log.Warn().Msg("koboldcpp exited unexpectedly")
	c.fail(detail)
}

// exitReason classifies an exit into a metric label and a status detail: the
// signal name, a known exit code description, or the raw exit code.
func exitReason(ps *os.ProcessState, waitErr error) (string, string) {
	if ps == nil {
		if waitErr == nil {
			waitErr = errors.New("unknown exit")
		}
		return "error", waitErr.Error()
	}
	if sig, ok := exitSignal(ps); ok {
		return "signal", sig
	}
	code := ps.ExitCode()
	if msg, ok := knownExitCodes[code]; ok {
		return "known_code", msg
	}
	if code == 0 {
		return "clean", strconv.Itoa(code)
	}
	return "code", strconv.Itoa(code)
}

// terminateLocked opens the graceful window and signals the child. c.mu must be held.
func (c *Controller) terminateLocked() {
	if c.proc == nil {
		return
	}
	c.proc.stopRequested = true
	c.proc.cancel()
}

// watchStartup polls the status endpoint while p is loading and fails the load
// when it does not come online within the startup timeout.
func (c *Controller) watchStartup(p *process) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-p.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	ok, err := waitFor(ctx, c.cfg.PollInterval, c.cfg.StartupTimeout, func(ctx context.Context) bool {
		_ = c.sync(ctx)
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.proc != p || c.status.State != StateLoading
	})
	if ok || err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc != p || c.status.State != StateLoading {
		return
	}
	c.fail(fmt.Sprintf("koboldcpp not ready within %s", c.cfg.StartupTimeout))
	c.cfg.Publisher.Publish(Event{Name: EventStartupTimeout, Model: p.model, RunID: p.runID})
	c.terminateLocked()
}
