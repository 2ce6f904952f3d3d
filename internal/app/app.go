// Package app holds the setup shared by the speechkit command line tools.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/speechkit/internal/config"
	. "github.com/roelfdiedericks/speechkit/internal/logging"
	"github.com/roelfdiedericks/speechkit/internal/metrics"
	"github.com/roelfdiedericks/speechkit/internal/segment"
)

// Version is reported by --version.
const Version = "0.3.0"

// Flags are accepted by every command.
type Flags struct {
	Config  string           `help:"Config file (default ./speechkit.json, then ~/.speechkit/speechkit.json)." type:"path" placeholder:"FILE"`
	Debug   bool             `help:"Enable debug logging."`
	Version kong.VersionFlag `help:"Print version and exit."`
}

// Env is bound into every command's Run method.
type Env struct {
	Ctx    context.Context
	Config *config.Config
}

// Segmenter returns the sentence segmenter for the configured terminator.
func (e *Env) Segmenter() segment.Segmenter {
	return segment.Segmenter{Terminator: e.Config.TerminatorRune()}
}

// Start initializes logging, loads the config and returns an Env whose
// context is cancelled on SIGINT or SIGTERM. Call the returned func on exit.
func Start(name string, flags Flags) (*Env, func(), error) {
	level := LevelInfo
	if flags.Debug {
		level = LevelDebug
	}
	Init(&LogConfig{Level: level, TimeFormat: "15:04:05", Prefix: name})

	cfg, err := config.Load(flags.Config)
	if err != nil {
		return nil, func() {}, err
	}
	if !flags.Debug {
		SetLevel(ParseLevel(cfg.LogLevel))
	}
	L_debug("config ready", "path", cfg.Path, "stt", cfg.STT.Provider, "tts", cfg.TTS.Provider)

	openMetrics(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		SetShuttingDown()
	}()

	cleanup := func() {
		stop()
		if err := metrics.GetInstance().Close(); err != nil {
			L_warn("metrics: close failed", "error", err)
		}
	}
	return &Env{Ctx: ctx, Config: cfg}, cleanup, nil
}

// openMetrics attaches the shared metrics database. Metrics are best effort:
// a failure only means this run is not recorded.
func openMetrics(cfg *config.Config) {
	path := cfg.MetricsDB
	if path == "" {
		var err error
		if path, err = metrics.DefaultDBPath(); err != nil {
			L_warn("metrics: no data directory", "error", err)
			return
		}
	}
	if err := metrics.GetInstance().Open(path); err != nil {
		L_warn("metrics: disabled", "path", path, "error", err)
	}
}

// Main parses the command line into cli, runs the selected command and
// exits non-zero on error. flags must point into cli. opts are applied after
// the defaults, e.g. extra kong.Vars for help interpolation.
func Main(name, description string, cli any, flags *Flags, opts ...kong.Option) {
	options := append([]kong.Option{
		kong.Name(name),
		kong.Description(description),
		kong.UsageOnError(),
		kong.Vars{"version": name + " " + Version},
	}, opts...)
	kctx := kong.Parse(cli, options...)

	env, stop, err := Start(name, *flags)
	if err != nil {
		L_error("startup failed", "error", err)
		os.Exit(1)
	}

	err = kctx.Run(env)
	stop()
	if err != nil {
		if IsShuttingDown() {
			L_warn("interrupted", "error", err)
			os.Exit(130)
		}
		L_error(kctx.Command()+" failed", "error", err)
		os.Exit(1)
	}
}
