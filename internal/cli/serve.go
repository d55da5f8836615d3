package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"koboldswitch/internal/common/fsutil"
	"koboldswitch/internal/config"
	"koboldswitch/internal/controller"
	"koboldswitch/internal/httpapi"
	"koboldswitch/internal/registry"
	"koboldswitch/pkg/types"
)

const serverShutdownTimeout = 5 * time.Second

// onListen is called with the bound address once the server accepts connections.
var onListen = func(string) {}

func newServeCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the controller and its REST API",
		Example: "  koboldswitch serve --config ~/.config/koboldswitch/config.json\n" +
			"  koboldswitch serve --addr 0.0.0.0:8080",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", opts.Addr, "HTTP listen address (overrides config; defaults KOBOLDSWITCH_ADDR)")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts *Options) error {
	cfg, created, err := config.LoadOrCreate(opts.ConfigPath)
	if created {
		opts.log.Warn().Str("path", opts.ConfigPath).Msg("configuration missing, template created")
	}
	if err != nil {
		return fmt.Errorf("load config %s: %w", opts.ConfigPath, err)
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if v := envStr(envCORSOrigins, ""); v != "" {
		cfg.CORSEnabled, cfg.CORSOrigins = true, splitCSV(v)
	}
	log := opts.log
	if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
		if log, err = newLogger(cmd.ErrOrStderr(), cfg.LogLevel, opts.LogFormat); err != nil {
			return err
		}
	}
	log.Info().Str("path", opts.ConfigPath).Str("base_path", cfg.BasePath).Msg("config loaded")
	if !fsutil.PathExists(cfg.BasePath) {
		log.Warn().Str("base_path", cfg.BasePath).Msg("base path does not exist")
	}

	ctl := controller.New(controllerConfig(cfg, log))
	applyHTTPConfig(ctx, cfg, log)
	scanner := registry.NewGGUFScanner()
	lister := httpapi.ModelListerFunc(func() ([]types.Model, error) { return scanner.Scan(cfg.BasePath) })

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(ctl, lister),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("koboldswitch listening")
	onListen(ln.Addr().String())

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("server error")
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}

	ccfg := ctl.Config()
	cctx, ccancel := context.WithTimeout(context.WithoutCancel(ctx), ccfg.StopTimeout+ccfg.KillGrace)
	defer ccancel()
	if err := ctl.Shutdown(cctx); err != nil {
		log.Warn().Err(err).Msg("koboldcpp did not exit in time")
	}
	return serveErr
}

// controllerConfig maps the persisted configuration onto controller tunables.
// Zero durations fall back to controller defaults.
func controllerConfig(cfg config.Config, log zerolog.Logger) controller.Config {
	return controller.Config{
		BasePath:       cfg.BasePath,
		Binary:         cfg.Binary,
		DefaultArgs:    cfg.DefaultArgs,
		Env:            cfg.Env,
		StatusURL:      cfg.StatusURL,
		ContextSizeMin: cfg.ContextSizeMin,
		ContextSizeMax: cfg.ContextSizeMax,
		PollInterval:   cfg.PollInterval(),
		StatusTimeout:  cfg.StatusTimeout(),
		StartupTimeout: cfg.StartupTimeout(),
		StopTimeout:    cfg.StopTimeout(),
		KillGrace:      cfg.KillGrace(),
		Logger:         &log,
	}
}

func applyHTTPConfig(ctx context.Context, cfg config.Config, log zerolog.Logger) {
	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	if cfg.LogLevel == "debug" {
		httpapi.SetAccessLogLevel("debug")
	}
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetContextSizeRange(cfg.ContextSizeMin, cfg.ContextSizeMax)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	httpapi.SetBaseContext(ctx)
}
