// Package app assembles the bootstrap: settings, logging, the environment
// snapshot, the single-instance decision, and the channel surface of the
// winning instance. Everything above it (windowing, menus, updates) talks
// to the bootstrap through the narrow interfaces in this package.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessera-apps/tessera/internal/config"
	"github.com/tessera-apps/tessera/internal/constants"
	"github.com/tessera-apps/tessera/internal/environment"
	"github.com/tessera-apps/tessera/internal/events"
	"github.com/tessera-apps/tessera/internal/ipc"
	"github.com/tessera-apps/tessera/internal/lifecycle"
	"github.com/tessera-apps/tessera/internal/logging"
	"github.com/tessera-apps/tessera/internal/notify"
	"github.com/tessera-apps/tessera/internal/singleinstance"
	"github.com/tessera-apps/tessera/internal/version"
)

// OpenWindow receives the launch a second instance handed over. The
// embedding shell implements it; a nil window means events-only delivery.
type OpenWindow interface {
	OpenWindow(args []string, env map[string]string)
}

// PromptHandler answers credential prompts relayed by helper processes.
type PromptHandler interface {
	PromptCredentials(ctx context.Context, req *ipc.CredentialPromptRequest) (*ipc.CredentialPromptReply, error)
}

// Options configures a bootstrap run.
type Options struct {
	// Arguments are forwarded verbatim on hand-off. The caller absolutizes
	// path arguments first; the receiving instance has a different working
	// directory.
	Arguments []string

	// SettingsPath overrides the settings file location. Empty means the
	// default location under the user config directory.
	SettingsPath string

	// Verbose enables debug logging regardless of the settings file.
	Verbose bool

	// TestSession marks this launch as driven by automation. A live
	// instance is a fatal conflict instead of a hand-off target.
	TestSession bool

	// Window receives inbound launches. Optional.
	Window OpenWindow

	// Prompts answers credential-prompt requests. Optional; without one
	// the channel reports that no handler is registered.
	Prompts PromptHandler

	// Logger overrides the constructed logger. Used by tests.
	Logger *logging.Logger
}

// Bootstrap is the assembled single-instance runtime for one process.
type Bootstrap struct {
	opts     Options
	settings config.Settings
	logger   *logging.Logger
	env      *environment.Snapshot
	bus      *events.EventBus
	notifier *notify.Notifier
	guard    *lifecycle.Guard

	endpoint  ipc.Endpoint
	startedAt time.Time

	mu   sync.Mutex
	stop context.CancelFunc
}

// New assembles a bootstrap from the settings file and options. It never
// touches the endpoint; all fallible work happens in Run.
func New(opts Options) *Bootstrap {
	settings, loadErr := config.Load(opts.SettingsPath)

	logger := opts.Logger
	if logger == nil {
		logger = buildLogger(settings)
	}
	if opts.Verbose || settings.Verbose {
		logging.SetGlobalLevel(zerolog.DebugLevel)
	}
	if loadErr != nil {
		logger.Warn().Err(loadErr).Msg("Settings file unreadable; continuing with defaults")
	}

	notifyCfg := notify.DefaultConfig()
	notifyCfg.Enabled = settings.Notifications

	return &Bootstrap{
		opts:     opts,
		settings: settings,
		logger:   logger,
		env:      environment.Capture(os.Environ()),
		bus:      events.NewEventBus(constants.EventBusDefaultBuffer),
		notifier: notify.NewNotifier(notifyCfg, logger),
		guard:    lifecycle.NewGuard(logger),
	}
}

// buildLogger constructs the process logger from settings: console always,
// mirrored to the log file when enabled.
func buildLogger(settings config.Settings) *logging.Logger {
	logger := logging.NewConsole()
	if !settings.LogToFile {
		return logger
	}

	if err := config.EnsureLogDirectory(); err != nil {
		logger.Warn().Err(err).Msg("Log directory unavailable; console only")
		return logger
	}
	file, err := logging.OpenLogFile(config.LogDirectory())
	if err != nil {
		logger.Warn().Err(err).Msg("Log file unavailable; console only")
		return logger
	}
	return logging.NewTee(os.Stderr, file)
}

// Guard returns the lifecycle guard so the caller can route process exit
// through it.
func (b *Bootstrap) Guard() *lifecycle.Guard {
	return b.guard
}

// Events returns the bootstrap event bus for shell subscriptions.
func (b *Bootstrap) Events() *events.EventBus {
	return b.bus
}

// Logger returns the process logger.
func (b *Bootstrap) Logger() *logging.Logger {
	return b.logger
}

// Run executes the single-instance sequence. The return value is the
// process exit code: 0 after a clean serving life or a successful
// hand-off, 1 for every fatal condition. Run never terminates the
// process itself.
func (b *Bootstrap) Run(ctx context.Context) (code int) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("Unrecoverable fault during bootstrap")
			b.bus.PublishShutdownRequested("fault")
			b.notifier.StartupFailed(fmt.Sprintf("unrecoverable fault: %v", r))
			b.guard.Dispose()
			code = constants.ExitFatal
		}
	}()

	endpoint, err := ipc.ResolveEndpoint(b.settings.EffectiveRuntimeDir())
	if err != nil {
		b.logger.Error().Err(err).Msg("Cannot place coordination endpoint")
		b.notifier.StartupFailed(err.Error())
		return constants.ExitFatal
	}
	b.endpoint = endpoint

	// Amended once, before anything downstream reads it: helpers and the
	// forwarded LaunchRequest both see these values.
	b.env.Amend(constants.EnvPID, strconv.Itoa(os.Getpid()))
	b.env.Amend(constants.EnvIPCHook, endpoint.Path)

	launch := &ipc.LaunchRequest{
		Arguments:   b.opts.Arguments,
		Environment: b.env.Map(),
	}

	orchestrator := singleinstance.New(endpoint, b.logger)
	if b.opts.TestSession {
		orchestrator.SetTestSession(true)
	}

	server, err := orchestrator.Acquire(ctx, launch)
	if err != nil {
		return b.resolveOutcome(err)
	}

	return b.serve(ctx, server)
}

// resolveOutcome maps a non-owning Acquire result to an exit code and its
// user-facing side effects.
func (b *Bootstrap) resolveOutcome(err error) int {
	switch {
	case errors.Is(err, singleinstance.ErrHandedOff):
		b.bus.PublishLaunchForwarded(b.endpoint.Path, b.opts.Arguments)
		b.notifier.HandedOff(b.opts.Arguments)
		return constants.ExitOK

	case errors.Is(err, singleinstance.ErrTestSessionActive):
		b.logger.Error().Err(err).Msg("Refusing to start")
		b.notifier.TestSessionConflict()
		return constants.ExitFatal

	case ipc.IsConnRefused(err):
		b.logger.Error().Err(err).Str("endpoint", b.endpoint.Path).Msg("Running instance is not responding")
		b.notifier.InstanceUnresponsive(b.endpoint.Path)
		return constants.ExitFatal

	default:
		b.logger.Error().Err(err).Msg("Bootstrap failed")
		b.notifier.StartupFailed(err.Error())
		return constants.ExitFatal
	}
}

// serve runs the owning instance until a stop request arrives: parent
// context cancellation, RequestStop, or an exit command on the control
// channel.
func (b *Bootstrap) serve(ctx context.Context, server *ipc.Server) int {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	b.mu.Lock()
	b.stop = stop
	b.mu.Unlock()

	b.guard.TrackServer(server)

	hint := singleinstance.AcquireHint(b.endpoint, b.logger)
	b.guard.TrackHint(hint)
	if hint.AlreadyHeld() {
		// The endpoint bind is authoritative; the hint is advisory only
		b.logger.Warn().Msg("Exclusivity hint already held elsewhere")
	}

	b.startedAt = time.Now()
	b.registerChannels(server)
	server.Serve()

	b.bus.PublishReady(b.endpoint.Path, os.Getpid())
	b.logger.Info().
		Str("endpoint", b.endpoint.Path).
		Str("version", version.Version).
		Int("pid", os.Getpid()).
		Msg("Instance ready")

	b.startHelpers()

	<-runCtx.Done()

	b.guard.Dispose()
	b.bus.Close()
	return constants.ExitOK
}

// RequestStop asks a serving instance to shut down cleanly. The reason is
// published to subscribers before teardown begins. Safe to call from any
// goroutine; a no-op before serving starts.
func (b *Bootstrap) RequestStop(reason string) {
	b.bus.PublishShutdownRequested(reason)

	b.mu.Lock()
	stop := b.stop
	b.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// startHelpers launches the helper processes from the settings file. A
// helper that fails to start degrades nothing; the instance serves
// without it.
func (b *Bootstrap) startHelpers() {
	if len(b.settings.Helpers) == 0 {
		return
	}

	env := b.env.Environ()
	for _, helper := range b.settings.Helpers {
		name := filepath.Base(helper.Command)
		if err := b.guard.Helpers().Start(name, helper.Command, helper.Args, env); err != nil {
			b.logger.Warn().Err(err).Str("helper", name).Msg("Helper failed to start")
		}
	}
}
