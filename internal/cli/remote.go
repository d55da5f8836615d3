package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"koboldswitch/internal/client"
	"koboldswitch/internal/config"
	"koboldswitch/pkg/types"
)

const defaultRequestTimeout = 30 * time.Second

// newClient is replaced in tests.
var newClient = func(server string, timeout time.Duration) (*client.Client, error) {
	return client.New(server, client.WithTimeout(timeout))
}

func addServerFlag(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVar(&opts.Server, "server", opts.Server, "koboldswitch server address (defaults KOBOLDSWITCH_SERVER, else the configured addr)")
}

// serverAddr prefers --server, then the addr from the config file if it is
// readable, then the client default.
func serverAddr(opts *Options) string {
	if opts.Server != "" {
		return opts.Server
	}
	if cfg, err := config.Load(opts.ConfigPath); err == nil && cfg.Addr != "" {
		return cfg.Addr
	}
	return client.DefaultServer
}

func dial(opts *Options, wait time.Duration) (*client.Client, error) {
	return newClient(serverAddr(opts), defaultRequestTimeout+wait)
}

func newStatusCmd(opts *Options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the managed model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts, 0)
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), st, asJSON)
		},
	}
	addServerFlag(cmd, opts)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON status")
	return cmd
}

func printStatus(w io.Writer, st types.ModelStatusResponse, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	line := st.Status
	if st.Model != "" {
		line += " " + st.Model
	}
	if st.Independent {
		line += " (independent)"
	}
	if st.Error != "" {
		line += ": " + st.Error
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func newStartCmd(opts *Options) *cobra.Command {
	var (
		contextSize int
		gpuLayers   int
		threads     int
		tensorSplit []float64
		wait        time.Duration
	)
	cmd := &cobra.Command{
		Use:     "start <model.gguf>",
		Aliases: []string{"load"},
		Short:   "Load a model, replacing the running one",
		Example: "  koboldswitch start Llama-3.2-1B-Instruct-Q4_K_M.gguf --contextsize 12288 --wait 2m\n" +
			"  koboldswitch start big.gguf --gpulayers 81 --tensor-split 29,52",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.ModelRequest{Model: args[0]}
			fl := cmd.Flags()
			if fl.Changed("contextsize") {
				req.ContextSize = &contextSize
			}
			if fl.Changed("gpulayers") {
				req.GPULayers = &gpuLayers
			}
			if fl.Changed("threads") {
				req.Threads = &threads
			}
			if fl.Changed("tensor-split") {
				req.TensorSplit = tensorSplit
			}
			c, err := dial(opts, wait)
			if err != nil {
				return err
			}
			if err := c.Start(cmd.Context(), req, wait); err != nil {
				return err
			}
			return reportAfter(cmd, c, wait)
		},
	}
	addServerFlag(cmd, opts)
	f := cmd.Flags()
	f.IntVar(&contextSize, "contextsize", 0, "Context size in tokens")
	f.IntVar(&gpuLayers, "gpulayers", 0, "Layers to offload to the GPU (-1 for all)")
	f.IntVar(&threads, "threads", 0, "CPU threads (0 for all available)")
	f.Float64SliceVar(&tensorSplit, "tensor-split", nil, "Comma separated split ratios across GPUs")
	f.DurationVar(&wait, "wait", 0, "Block until the model is online or failed")
	return cmd
}

func newStopCmd(opts *Options) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:     "stop",
		Aliases: []string{"unload"},
		Short:   "Stop the managed model",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts, wait)
			if err != nil {
				return err
			}
			if err := c.Stop(cmd.Context(), wait); err != nil {
				return err
			}
			return reportAfter(cmd, c, wait)
		},
	}
	addServerFlag(cmd, opts)
	cmd.Flags().DurationVar(&wait, "wait", 0, "Block until the model is offline")
	return cmd
}

// reportAfter prints the status once a waited-for operation returns.
func reportAfter(cmd *cobra.Command, c *client.Client, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), defaultRequestTimeout)
	defer cancel()
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}
	return printStatus(cmd.OutOrStdout(), st, false)
}

func newModelsCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List model files available to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(opts, 0)
			if err != nil {
				return err
			}
			ms, err := c.Models(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSIZE")
			for _, m := range ms {
				fmt.Fprintf(tw, "%s\t%s\n", m.ID, humanSize(m.SizeBytes))
			}
			return tw.Flush()
		},
	}
	addServerFlag(cmd, opts)
	return cmd
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
