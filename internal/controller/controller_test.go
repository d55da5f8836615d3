package controller

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koboldswitch/internal/testutil/fakekobold"
)

func TestStartReachesOnline(t *testing.T) {
	h := newHarness(t, nil, fakekobold.EnvMode+"="+fakekobold.ModeServe)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	st := h.waitFor(t, StateOnline, StateFailed)

	assert.Equal(t, StateOnline, st.State)
	assert.Equal(t, "a", st.Name)
	assert.False(t, st.Independent)
	assert.Empty(t, st.Error)
	require.Len(t, h.pub.Named(EventSpawn), 1)
	assert.NotEmpty(t, h.pub.Named(EventSpawn)[0].RunID)
}

func TestStopWhenOfflineIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.ctl.Stop(ctx))
	require.NoError(t, h.ctl.Stop(ctx))
	st, err := h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOffline, st.State)
	assert.Empty(t, h.pub.Events())
}

func TestStartStopWhileLoadingConflict(t *testing.T) {
	h := newHarness(t, nil,
		fakekobold.EnvMode+"="+fakekobold.ModeServe,
		fakekobold.EnvReadyDelay+"=1500ms",
	)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	st, err := h.ctl.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, StateLoading, st.State)

	err = h.ctl.Start(ctx, RunArgs{Model: "b.gguf"})
	assert.True(t, IsModelState(err), "got %v", err)
	err = h.ctl.Stop(ctx)
	assert.True(t, IsModelState(err), "got %v", err)

	st, err = h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateLoading, st.State)
	assert.Equal(t, "a", st.Name)

	st = h.waitFor(t, StateOnline, StateFailed)
	assert.Equal(t, StateOnline, st.State)
	assert.Equal(t, "a", st.Name)
	assert.Len(t, h.pub.Named(EventSpawn), 1)
}

func TestConcurrentStartsSpawnOnce(t *testing.T) {
	h := newHarness(t, nil,
		fakekobold.EnvMode+"="+fakekobold.ModeServe,
		fakekobold.EnvReadyDelay+"=1s",
	)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = h.ctl.Start(ctx, RunArgs{Model: "a.gguf"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, IsModelState(err), "got %v", err)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, h.pub.Named(EventSpawn), 1)
}

func TestIndependentModelRefusesStop(t *testing.T) {
	url, closeFn, err := fakekobold.Serve("other")
	require.NoError(t, err)
	defer closeFn()
	h := newHarness(t, func(c *Config) { c.StatusURL = url })
	ctx := context.Background()

	st, err := h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOnline, st.State)
	assert.Equal(t, "other", st.Name)
	assert.True(t, st.Independent)

	err = h.ctl.Stop(ctx)
	require.True(t, IsModelState(err), "got %v", err)

	st, err = h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOnline, st.State)

	// A reload goes through Stop and is refused the same way.
	err = h.ctl.Start(ctx, RunArgs{Model: "a.gguf"})
	assert.True(t, IsModelState(err), "got %v", err)
	assert.Empty(t, h.pub.Named(EventSpawn))
}

func TestNameMismatchMarksIndependent(t *testing.T) {
	h := newHarness(t, nil,
		fakekobold.EnvMode+"="+fakekobold.ModeServe,
		fakekobold.EnvModelName+"=someone-else",
	)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	st := h.waitFor(t, StateOnline, StateFailed)
	assert.Equal(t, "someone-else", st.Name)
	assert.True(t, st.Independent)

	err := h.ctl.Stop(ctx)
	assert.True(t, IsModelState(err), "got %v", err)
}

func TestIndependentEndpointDownWhileOnline(t *testing.T) {
	url, closeFn, err := fakekobold.Serve("other")
	require.NoError(t, err)
	h := newHarness(t, func(c *Config) { c.StatusURL = url })
	ctx := context.Background()

	st, err := h.ctl.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, StateOnline, st.State)

	closeFn()
	st, err = h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Contains(t, st.Error, "koboldcpp is unexpectedly down")

	// Further failures are ignored while failed; Stop has nothing to terminate.
	require.NoError(t, h.ctl.Stop(ctx))
	st, err = h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
}

func TestUnknownExitCodeWhileOnline(t *testing.T) {
	h := newHarness(t, nil,
		fakekobold.EnvMode+"="+fakekobold.ModeServe,
		fakekobold.EnvExitAfter+"=1s",
		fakekobold.EnvExitCode+"=7",
	)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	st := h.waitFor(t, StateOnline, StateFailed)
	require.Equal(t, StateOnline, st.State)

	require.Eventually(t, func() bool { return len(h.pub.Named(EventExit)) == 1 }, 10*time.Second, 20*time.Millisecond)
	st, err := h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, "7", st.Error)
	assert.Equal(t, "a", st.Name)
}

func TestKnownExitCodeBeforeReady(t *testing.T) {
	h := newHarness(t, nil,
		fakekobold.EnvMode+"="+fakekobold.ModeExit,
		fakekobold.EnvExitCode+"=3",
	)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	require.Eventually(t, func() bool { return len(h.pub.Named(EventExit)) == 1 }, 10*time.Second, 20*time.Millisecond)
	st, err := h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, "failed to load model", st.Error)

	// failed without a live process: Stop is a no-op and Start respawns.
	require.NoError(t, h.ctl.Stop(ctx))
	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	assert.Len(t, h.pub.Named(EventSpawn), 2)
}

func TestGracefulStop(t *testing.T) {
	h := newHarness(t, nil, fakekobold.EnvMode+"="+fakekobold.ModeServe)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	require.Equal(t, StateOnline, h.waitFor(t, StateOnline, StateFailed).State)

	require.NoError(t, h.ctl.Stop(ctx))
	err := h.ctl.Stop(ctx)
	if err != nil {
		// Still stopping: a second stop is a conflict, never queued.
		assert.True(t, IsModelState(err), "got %v", err)
	}

	st := h.waitFor(t, StateOffline)
	assert.Empty(t, st.Error)
	exits := h.pub.Named(EventExit)
	require.Len(t, exits, 1)
	assert.Equal(t, true, exits[0].Fields["requested"])
}

func TestStopEscalatesToKill(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.KillGrace = 200 * time.Millisecond },
		fakekobold.EnvMode+"="+fakekobold.ModeServe,
		fakekobold.EnvIgnoreTerm+"=1",
	)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	require.Equal(t, StateOnline, h.waitFor(t, StateOnline, StateFailed).State)
	require.NoError(t, h.ctl.Stop(ctx))

	h.waitFor(t, StateOffline)
	exits := h.pub.Named(EventExit)
	require.Len(t, exits, 1)
	assert.Equal(t, "signal", exits[0].Fields["reason"])
}

func TestStartupTimeoutFailsAndTerminates(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.StartupTimeout = 300 * time.Millisecond },
		fakekobold.EnvMode+"="+fakekobold.ModeHang,
	)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	st := h.waitFor(t, StateFailed)
	assert.Contains(t, st.Error, "not ready within")
	require.Len(t, h.pub.Named(EventStartupTimeout), 1)

	require.Eventually(t, func() bool { return len(h.pub.Named(EventExit)) == 1 }, 10*time.Second, 20*time.Millisecond)
	st, err := h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, st.State)
	assert.Contains(t, st.Error, "not ready within")
}

func TestReloadSpawnsNewModel(t *testing.T) {
	h := newHarness(t, nil, fakekobold.EnvMode+"="+fakekobold.ModeServe)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	require.Equal(t, StateOnline, h.waitFor(t, StateOnline, StateFailed).State)

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "b.gguf"}))
	st := h.waitFor(t, StateOnline, StateFailed)
	assert.Equal(t, StateOnline, st.State)
	assert.Equal(t, "b", st.Name)
	assert.False(t, st.Independent)
	assert.Len(t, h.pub.Named(EventSpawn), 2)
	assert.Len(t, h.pub.Named(EventExit), 1)
}

func TestStartBinaryMissing(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Binary = "no-such-koboldcpp" })
	ctx := context.Background()

	err := h.ctl.Start(ctx, RunArgs{Model: "a.gguf"})
	require.True(t, IsProcessFault(err), "got %v", err)
	assert.Contains(t, err.Error(), "binary missing")
	st, err := h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOffline, st.State)
}

func TestStartInvalidContextSizeSpawnsNothing(t *testing.T) {
	h := newHarness(t, nil, fakekobold.EnvMode+"="+fakekobold.ModeServe)
	ctx := context.Background()

	err := h.ctl.Start(ctx, RunArgs{Model: "a.gguf", ContextSize: intPtr(200)})
	require.True(t, IsInvalidArgument(err), "got %v", err)
	assert.Empty(t, h.pub.Events())
	st, err := h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOffline, st.State)
}

func TestChildReceivesArguments(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args.json")
	h := newHarness(t, nil,
		fakekobold.EnvMode+"="+fakekobold.ModeServe,
		fakekobold.EnvArgsFile+"="+argsFile,
	)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "sub/a.gguf", ContextSize: intPtr(12288), Threads: intPtr(3)}))
	require.Equal(t, StateOnline, h.waitFor(t, StateOnline, StateFailed).State)

	b, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	var argv []string
	require.NoError(t, json.Unmarshal(b, &argv))
	assert.Equal(t, []string{
		"--quiet",
		"--model", filepath.Join(h.base, "sub", "a.gguf"),
		"--threads", "3",
		"--contextsize", "12288",
	}, argv)
}

func TestShutdownStopsChild(t *testing.T) {
	h := newHarness(t, nil, fakekobold.EnvMode+"="+fakekobold.ModeServe)
	ctx := context.Background()

	require.NoError(t, h.ctl.Start(ctx, RunArgs{Model: "a.gguf"}))
	require.Equal(t, StateOnline, h.waitFor(t, StateOnline, StateFailed).State)

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, h.ctl.Shutdown(sctx))
	st, err := h.ctl.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOffline, st.State)
}

func TestShutdownWithoutProcess(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.ctl.Shutdown(context.Background()))
}
