// Package lifecycle owns the teardown of everything the bootstrap
// acquires: the coordination endpoint, helper processes, the Windows
// exclusivity hint, and the platform presence claim. Dispose runs exactly
// once no matter how many paths request it; Shutdown is Dispose plus
// process exit.
package lifecycle

import (
	"os"
	"sync"

	"github.com/tessera-apps/tessera/internal/logging"
)

// Closer matches the bound endpoint server.
type Closer interface {
	Close() error
}

// Releaser matches the platform exclusivity hint.
type Releaser interface {
	Release()
}

// PlatformHooks receives teardown side effects that live outside this
// process's own resources. The embedding shell provides the real
// implementation; the default does nothing.
type PlatformHooks interface {
	// ReleasePresence withdraws the instance's dock or taskbar claim.
	ReleasePresence()
}

// NopHooks is the default PlatformHooks implementation.
type NopHooks struct{}

// ReleasePresence does nothing.
func (NopHooks) ReleasePresence() {}

// Guard tracks the resources a running instance holds and releases them
// in one idempotent sweep.
type Guard struct {
	logger  *logging.Logger
	helpers *Registry

	mu       sync.Mutex
	server   Closer
	hint     Releaser
	hooks    PlatformHooks
	disposed bool

	once     sync.Once
	exitFunc func(int)
}

// NewGuard creates a guard with no tracked resources.
func NewGuard(logger *logging.Logger) *Guard {
	return &Guard{
		logger:   logger,
		helpers:  NewRegistry(logger),
		hooks:    NopHooks{},
		exitFunc: os.Exit,
	}
}

// TrackServer registers the bound endpoint server. If the guard has
// already disposed, the server is closed immediately; no handle survives
// disposal.
func (g *Guard) TrackServer(server Closer) {
	g.mu.Lock()
	disposed := g.disposed
	if !disposed {
		g.server = server
	}
	g.mu.Unlock()

	if disposed && server != nil {
		server.Close()
	}
}

// TrackHint registers the platform exclusivity hint. Same late-arrival
// rule as TrackServer.
func (g *Guard) TrackHint(hint Releaser) {
	g.mu.Lock()
	disposed := g.disposed
	if !disposed {
		g.hint = hint
	}
	g.mu.Unlock()

	if disposed && hint != nil {
		hint.Release()
	}
}

// SetHooks replaces the platform hooks. Call before Serve.
func (g *Guard) SetHooks(hooks PlatformHooks) {
	g.mu.Lock()
	g.hooks = hooks
	g.mu.Unlock()
}

// SetExitFunc replaces the process-exit function used by Shutdown.
func (g *Guard) SetExitFunc(fn func(int)) {
	g.exitFunc = fn
}

// Helpers returns the helper-process registry tied to this guard.
func (g *Guard) Helpers() *Registry {
	return g.helpers
}

// Disposed reports whether the guard has already run.
func (g *Guard) Disposed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disposed
}

// Dispose releases every tracked resource: helper processes first, then
// the endpoint server, the exclusivity hint, and finally the platform
// presence claim. Concurrent callers block until the first disposal
// completes; later calls return immediately.
func (g *Guard) Dispose() {
	g.once.Do(g.dispose)
}

func (g *Guard) dispose() {
	g.mu.Lock()
	g.disposed = true
	server := g.server
	hint := g.hint
	hooks := g.hooks
	g.mu.Unlock()

	g.logger.Info().Msg("Releasing process resources")

	g.helpers.StopAll()

	if server != nil {
		if err := server.Close(); err != nil {
			g.logger.Error().Err(err).Msg("Failed to close endpoint server")
		}
	}

	if hint != nil {
		hint.Release()
	}

	hooks.ReleasePresence()

	g.logger.Info().Msg("Process resources released")
}

// Shutdown disposes every tracked resource and terminates the process
// with the given code.
func (g *Guard) Shutdown(code int) {
	g.logger.Info().Int("code", code).Msg("Shutdown requested")
	g.Dispose()
	g.exitFunc(code)
}
