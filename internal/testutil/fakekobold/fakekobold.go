// Package fakekobold turns a test binary into a stand-in for koboldcpp.
//
// A test package's TestMain calls Main when Enabled reports true, before
// flag parsing:
//
//	func TestMain(m *testing.M) {
//		if fakekobold.Enabled() {
//			os.Exit(fakekobold.Main(os.Args[1:]))
//		}
//		os.Exit(m.Run())
//	}
//
// The controller under test then uses os.Executable() as its binary and passes
// the Env* variables through its Config.Env.
package fakekobold

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Environment variables understood by the fake child.
const (
	EnvMode        = "FAKE_KOBOLD_MODE"        // serve | exit | hang
	EnvAddr        = "FAKE_KOBOLD_ADDR"        // listen address in serve mode
	EnvExitCode    = "FAKE_KOBOLD_EXIT_CODE"   // exit code for exit mode or after EXIT_AFTER
	EnvExitAfter   = "FAKE_KOBOLD_EXIT_AFTER"  // duration before exiting on its own
	EnvReadyDelay  = "FAKE_KOBOLD_READY_DELAY" // duration before listening
	EnvModelName   = "FAKE_KOBOLD_MODEL_NAME"  // name reported instead of the --model base name
	EnvIgnoreTerm  = "FAKE_KOBOLD_IGNORE_TERM" // "1" ignores SIGTERM
	EnvArgsFile    = "FAKE_KOBOLD_ARGS_FILE"   // file receiving the argv as JSON
	ModeServe      = "serve"
	ModeExit       = "exit"
	ModeHang       = "hang"
	StatusEndpoint = "/api/v1/model"
)

// Enabled reports whether the current process was started as a fake child.
func Enabled() bool { return os.Getenv(EnvMode) != "" }

// Main runs the fake child and returns its exit code.
func Main(args []string) int {
	fmt.Fprintf(os.Stdout, "fake koboldcpp starting with %d args\n", len(args))
	fmt.Fprintln(os.Stderr, "fake koboldcpp diagnostics")
	if f := os.Getenv(EnvArgsFile); f != "" {
		b, _ := json.Marshal(args)
		if err := os.WriteFile(f, b, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write args:", err)
			return 1
		}
	}

	code := envInt(EnvExitCode, 0)
	exitAfter := envDuration(EnvExitAfter)
	ignoreTerm := os.Getenv(EnvIgnoreTerm) == "1"

	sigs := []os.Signal{os.Interrupt}
	if ignoreTerm {
		signal.Ignore(syscall.SIGTERM)
	} else {
		sigs = append(sigs, syscall.SIGTERM)
	}
	ctx, stop := signal.NotifyContext(context.Background(), sigs...)
	defer stop()

	var exitC <-chan time.Time
	if exitAfter > 0 {
		exitC = time.After(exitAfter)
	}

	switch os.Getenv(EnvMode) {
	case ModeExit:
		if exitC != nil {
			<-exitC
		}
		return code
	case ModeHang:
		select {
		case <-ctx.Done():
			return 0
		case <-exitC:
			return code
		}
	case ModeServe:
		return serve(ctx, args, exitC, code)
	default:
		fmt.Fprintln(os.Stderr, "unknown mode", os.Getenv(EnvMode))
		return 2
	}
}

func serve(ctx context.Context, args []string, exitC <-chan time.Time, code int) int {
	name := os.Getenv(EnvModelName)
	if name == "" {
		model := argValue(args, "--model")
		base := filepath.Base(model)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if d := envDuration(EnvReadyDelay); d > 0 {
		select {
		case <-ctx.Done():
			return 0
		case <-exitC:
			return code
		case <-time.After(d):
		}
	}

	ln, err := net.Listen("tcp", os.Getenv(EnvAddr))
	if err != nil {
		fmt.Fprintln(os.Stderr, "listen:", err)
		return 1
	}
	mux := http.NewServeMux()
	mux.HandleFunc(StatusEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "koboldcpp/" + name})
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintln(os.Stderr, "serve:", err)
		}
	}()
	fmt.Fprintln(os.Stdout, "fake koboldcpp listening on", ln.Addr().String())

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		return 0
	case <-exitC:
		_ = srv.Close()
		return code
	}
}

// Serve runs the status endpoint in-process on a free loopback port, reporting
// name, and returns its status URL. Used to simulate an independently started
// koboldcpp.
func Serve(name string) (url string, closeFn func(), err error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.HandleFunc(StatusEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "koboldcpp/" + name})
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	return "http://" + ln.Addr().String() + StatusEndpoint, func() { _ = srv.Close() }, nil
}

// FreeAddr returns a loopback address with a currently unused port.
func FreeAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	return l.Addr().String(), nil
}

func argValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string) time.Duration {
	d, _ := time.ParseDuration(os.Getenv(key))
	return d
}
