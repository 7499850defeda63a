package lifecycle

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/tessera-apps/tessera/internal/constants"
	"github.com/tessera-apps/tessera/internal/logging"
)

// helperProcess is one spawned helper binary under registry management.
type helperProcess struct {
	name string
	cmd  *exec.Cmd
}

// Registry tracks helper processes spawned by the running instance so
// shutdown can take them down with it.
type Registry struct {
	logger *logging.Logger

	mu    sync.Mutex
	procs []*helperProcess
}

// NewRegistry creates an empty helper registry.
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{logger: logger}
}

// Start launches a helper binary detached from the terminal. The caller
// supplies the full environment; helpers inherit nothing implicitly.
func (r *Registry) Start(name, command string, args, env []string) error {
	cmd := exec.Command(command, args...)
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start helper %s: %w", name, err)
	}

	r.mu.Lock()
	r.procs = append(r.procs, &helperProcess{name: name, cmd: cmd})
	r.mu.Unlock()

	r.logger.Info().
		Str("helper", name).
		Int("pid", cmd.Process.Pid).
		Msg("Helper started")
	return nil
}

// Count returns the number of helpers the registry is tracking.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// StopAll terminates every tracked helper, most recently started first.
// Each helper gets a grace period to exit on its own before it is killed.
func (r *Registry) StopAll() {
	r.mu.Lock()
	procs := r.procs
	r.procs = nil
	r.mu.Unlock()

	for i := len(procs) - 1; i >= 0; i-- {
		r.stop(procs[i])
	}
}

func (r *Registry) stop(p *helperProcess) {
	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	if err := signalTerm(p.cmd.Process); err != nil {
		// Usually means the helper is already gone; Wait below confirms
		r.logger.Debug().Err(err).Str("helper", p.name).Msg("Termination signal not delivered")
	}

	select {
	case <-done:
		r.logger.Debug().Str("helper", p.name).Msg("Helper exited")
	case <-time.After(constants.HelperTermGrace):
		r.logger.Warn().Str("helper", p.name).Msg("Helper ignored termination request; killing")
		p.cmd.Process.Kill()
		<-done
	}
}
