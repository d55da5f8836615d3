package controller

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultStatusURL      = "http://127.0.0.1:5001/api/v1/model"
	DefaultContextSizeMin = 256
	DefaultContextSizeMax = 262144

	defaultPollInterval   = 200 * time.Millisecond
	defaultStatusTimeout  = 2 * time.Second
	defaultStartupTimeout = 2 * time.Minute
	defaultStopTimeout    = 30 * time.Second
	defaultKillGrace      = 10 * time.Second
)

// DefaultArgs are passed to koboldcpp ahead of the per-request arguments.
var DefaultArgs = []string{"--quiet", "--flashattention", "--usemlock", "--usecublas", "all"}

// Config encapsulates all tunables for Controller construction.
type Config struct {
	// BasePath is the models directory. It is the child's working directory and
	// relative model and binary paths are resolved against it.
	BasePath string
	// Binary is the koboldcpp executable. Empty selects the platform default.
	Binary string
	// DefaultArgs replaces the package DefaultArgs when non-nil.
	DefaultArgs []string
	// Env entries (KEY=VALUE) appended to the inherited environment of the child.
	Env []string
	// StatusURL is the child's model status endpoint.
	StatusURL string

	ContextSizeMin int
	ContextSizeMax int

	PollInterval   time.Duration
	StatusTimeout  time.Duration
	StartupTimeout time.Duration
	StopTimeout    time.Duration
	// KillGrace is how long a terminated child may take to exit before it is killed.
	KillGrace time.Duration

	Logger     *zerolog.Logger
	Publisher  EventPublisher
	HTTPClient *http.Client
}

// withDefaults returns a copy of cfg with unset fields replaced by defaults.
func (cfg Config) withDefaults() Config {
	if cfg.DefaultArgs == nil {
		cfg.DefaultArgs = append([]string(nil), DefaultArgs...)
	}
	if cfg.StatusURL == "" {
		cfg.StatusURL = DefaultStatusURL
	}
	if cfg.ContextSizeMin <= 0 {
		cfg.ContextSizeMin = DefaultContextSizeMin
	}
	if cfg.ContextSizeMax <= 0 {
		cfg.ContextSizeMax = DefaultContextSizeMax
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = defaultStatusTimeout
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = defaultKillGrace
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	if cfg.HTTPClient == nil {
		// The status call must never hang; StatusTimeout is also applied per request.
		cfg.HTTPClient = &http.Client{Timeout: cfg.StatusTimeout}
	}
	return cfg
}
