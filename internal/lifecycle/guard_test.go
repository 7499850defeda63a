package lifecycle

import (
	"sync"
	"testing"

	"github.com/tessera-apps/tessera/internal/logging"
)

type recordingCloser struct {
	mu     sync.Mutex
	closed int
}

func (c *recordingCloser) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *recordingCloser) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type recordingReleaser struct {
	mu       sync.Mutex
	released int
}

func (r *recordingReleaser) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released++
}

func (r *recordingReleaser) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

type recordingHooks struct {
	mu       sync.Mutex
	releases int
}

func (h *recordingHooks) ReleasePresence() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releases++
}

func (h *recordingHooks) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.releases
}

func TestDisposeReleasesEverything(t *testing.T) {
	guard := NewGuard(logging.NewNop())
	server := &recordingCloser{}
	hint := &recordingReleaser{}
	hooks := &recordingHooks{}

	guard.TrackServer(server)
	guard.TrackHint(hint)
	guard.SetHooks(hooks)

	guard.Dispose()

	if server.count() != 1 {
		t.Errorf("Server closed %d times, expected 1", server.count())
	}
	if hint.count() != 1 {
		t.Errorf("Hint released %d times, expected 1", hint.count())
	}
	if hooks.count() != 1 {
		t.Errorf("Hooks invoked %d times, expected 1", hooks.count())
	}
	if !guard.Disposed() {
		t.Error("Guard should report disposed")
	}
}

func TestDisposeIdempotent(t *testing.T) {
	guard := NewGuard(logging.NewNop())
	server := &recordingCloser{}
	guard.TrackServer(server)

	guard.Dispose()
	guard.Dispose()
	guard.Dispose()

	if server.count() != 1 {
		t.Errorf("Server closed %d times under repeated dispose, expected 1", server.count())
	}
}

func TestDisposeConcurrent(t *testing.T) {
	guard := NewGuard(logging.NewNop())
	server := &recordingCloser{}
	hint := &recordingReleaser{}
	guard.TrackServer(server)
	guard.TrackHint(hint)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			guard.Dispose()
		}()
	}
	wg.Wait()

	if server.count() != 1 {
		t.Errorf("Server closed %d times under concurrent dispose, expected 1", server.count())
	}
	if hint.count() != 1 {
		t.Errorf("Hint released %d times under concurrent dispose, expected 1", hint.count())
	}
}

func TestShutdownExitCode(t *testing.T) {
	guard := NewGuard(logging.NewNop())
	server := &recordingCloser{}
	guard.TrackServer(server)

	var exitCode = -1
	guard.SetExitFunc(func(code int) { exitCode = code })

	guard.Shutdown(1)

	if exitCode != 1 {
		t.Errorf("Exit code %d, expected 1", exitCode)
	}
	if server.count() != 1 {
		t.Error("Shutdown must dispose before exiting")
	}
}

func TestShutdownAfterDispose(t *testing.T) {
	guard := NewGuard(logging.NewNop())
	server := &recordingCloser{}
	guard.TrackServer(server)

	var exitCode = -1
	guard.SetExitFunc(func(code int) { exitCode = code })

	guard.Dispose()
	guard.Shutdown(0)

	if exitCode != 0 {
		t.Errorf("Exit code %d, expected 0", exitCode)
	}
	if server.count() != 1 {
		t.Errorf("Server closed %d times, expected 1", server.count())
	}
}

func TestTrackAfterDispose(t *testing.T) {
	guard := NewGuard(logging.NewNop())
	guard.Dispose()

	server := &recordingCloser{}
	hint := &recordingReleaser{}
	guard.TrackServer(server)
	guard.TrackHint(hint)

	if server.count() != 1 {
		t.Error("Server tracked after dispose must be closed immediately")
	}
	if hint.count() != 1 {
		t.Error("Hint tracked after dispose must be released immediately")
	}
}
