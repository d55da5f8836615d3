package controller

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"koboldswitch/internal/testutil/fakekobold"
)

func TestMain(m *testing.M) {
	if fakekobold.Enabled() {
		os.Exit(fakekobold.Main(os.Args[1:]))
	}
	os.Exit(m.Run())
}

type harness struct {
	ctl  *Controller
	pub  *MemoryPublisher
	base string
}

// newHarness builds a Controller whose binary is this test executable running
// as a fake koboldcpp. env entries are passed to the child.
func newHarness(t *testing.T, mutate func(*Config), env ...string) *harness {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	addr, err := fakekobold.FreeAddr()
	require.NoError(t, err)

	base := t.TempDir()
	pub := NewMemoryPublisher()
	cfg := Config{
		BasePath:       base,
		Binary:         exe,
		DefaultArgs:    []string{"--quiet"},
		Env:            append([]string{fakekobold.EnvAddr + "=" + addr}, env...),
		StatusURL:      "http://" + addr + fakekobold.StatusEndpoint,
		PollInterval:   20 * time.Millisecond,
		StatusTimeout:  500 * time.Millisecond,
		StartupTimeout: 10 * time.Second,
		StopTimeout:    10 * time.Second,
		KillGrace:      2 * time.Second,
		Publisher:      pub,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	ctl := New(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = ctl.Shutdown(ctx)
	})
	return &harness{ctl: ctl, pub: pub, base: base}
}

func (h *harness) waitFor(t *testing.T, states ...State) Status {
	t.Helper()
	st, err := h.ctl.WaitForState(context.Background(), states, 10*time.Second)
	require.NoError(t, err)
	return st
}

func intPtr(v int) *int { return &v }
