// Package cli implements the koboldswitch command line: the serve command
// running the controller behind its REST API, and client commands talking to
// a running server.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// DefaultConfigPath is used when neither --config nor KOBOLDSWITCH_CONFIG is set.
const DefaultConfigPath = "config.json"

// Options holds the root persistent flags.
type Options struct {
	ConfigPath string
	Addr       string
	Server     string
	LogLevel   string
	LogFormat  string

	log zerolog.Logger
}

// DefaultOptions returns flag defaults taken from the environment.
func DefaultOptions() *Options {
	return &Options{
		ConfigPath: envStr(envConfig, DefaultConfigPath),
		Addr:       envStr(envAddr, ""),
		Server:     envStr(envServer, ""),
		LogLevel:   envStr(envLogLevel, "info"),
		LogFormat:  envStr(envLogFormat, "json"),
	}
}

// Run executes the command line in args (without the program name).
// It returns an error instead of exiting.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts := DefaultOptions()
	root := buildRootCmdWith(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// Main runs the command line from os.Args and returns the process exit code.
func Main() int {
	if err := Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
