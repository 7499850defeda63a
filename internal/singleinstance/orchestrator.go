// Package singleinstance decides which process owns the user's session.
// Exactly one outcome is possible per process: bind the coordination
// endpoint and become the instance, hand the launch to whoever already
// owns it and exit, or fail fatally. The endpoint itself is the source of
// truth; everything else (the Windows mutex, dock presence) is advisory.
package singleinstance

import (
	"context"
	"errors"
	"fmt"

	"github.com/tessera-apps/tessera/internal/ipc"
	"github.com/tessera-apps/tessera/internal/logging"
)

var (
	// ErrHandedOff reports that the launch was delivered to a running
	// instance and this process has nothing left to do. Benign: the caller
	// exits cleanly.
	ErrHandedOff = errors.New("launch handed to running instance")

	// ErrRetryExhausted reports that the endpoint was still unavailable
	// after the one permitted cleanup cycle. Fatal.
	ErrRetryExhausted = errors.New("endpoint unavailable after stale cleanup")

	// ErrTestSessionActive reports that an automated test session found a
	// live instance it must not interleave with. Fatal.
	ErrTestSessionActive = errors.New("another instance is running during an automated test session")
)

// RetryPolicy controls the stale-endpoint recovery path.
type RetryPolicy struct {
	// CleanupStaleEndpoint permits removing an unresponsive endpoint and
	// retrying the bind, once. Off on Windows: a pipe name cannot outlive
	// its owner, so a refused connection there is never a stale leftover.
	CleanupStaleEndpoint bool
}

// Orchestrator runs the bind-or-forward sequence for one process. Not safe
// for concurrent use; the bootstrap calls Acquire exactly once.
type Orchestrator struct {
	endpoint ipc.Endpoint
	client   *ipc.Client
	logger   *logging.Logger
	policy   RetryPolicy

	testSession bool
	retryBudget bool
}

// New creates an orchestrator with the platform default retry policy.
func New(endpoint ipc.Endpoint, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		endpoint:    endpoint,
		client:      ipc.NewClient(endpoint),
		logger:      logger,
		policy:      DefaultRetryPolicy(),
		retryBudget: true,
	}
}

// SetPolicy overrides the platform default retry policy.
func (o *Orchestrator) SetPolicy(policy RetryPolicy) {
	o.policy = policy
}

// SetTestSession marks this process as an automated test session. Test
// sessions never hand their launch to a live instance; finding one is
// fatal so test state cannot leak into a user session.
func (o *Orchestrator) SetTestSession(enabled bool) {
	o.testSession = enabled
}

// Acquire runs the bootstrap sequence. On success the returned server owns
// the endpoint and the caller proceeds as the single instance. A nil
// server with ErrHandedOff means the launch was delivered elsewhere and
// the process should exit cleanly. Any other error is fatal.
//
// Each step starts only after the previous one resolved; there is no
// speculative bind-and-connect.
func (o *Orchestrator) Acquire(ctx context.Context, launch *ipc.LaunchRequest) (*ipc.Server, error) {
	server, err := ipc.Bind(o.endpoint, o.logger)
	if err == nil {
		return server, nil
	}
	if !ipc.IsAddressInUse(err) {
		return nil, fmt.Errorf("bind endpoint: %w", err)
	}

	o.logger.Debug().Str("endpoint", o.endpoint.Path).Msg("Endpoint claimed; contacting owner")
	return o.handOff(ctx, launch)
}

// handOff contacts whatever claimed the endpoint. A live owner takes the
// launch; a refused connection starts stale recovery.
func (o *Orchestrator) handOff(ctx context.Context, launch *ipc.LaunchRequest) (*ipc.Server, error) {
	if o.testSession {
		// Probe rather than forward: the connection is still opened and
		// disposed so nothing leaks, but no request crosses over.
		err := o.client.Probe(ctx)
		if err == nil {
			o.logger.Error().Str("endpoint", o.endpoint.Path).Msg("Live instance found during test session")
			return nil, ErrTestSessionActive
		}
		if ipc.IsConnRefused(err) {
			return o.recoverStale(ctx)
		}
		return nil, fmt.Errorf("probe endpoint: %w", err)
	}

	ack, err := o.client.Forward(ctx, launch)
	if err == nil {
		o.logger.Info().
			Int("owner_pid", ack.PID).
			Strs("args", launch.Arguments).
			Msg("Launch handed to running instance")
		return nil, ErrHandedOff
	}
	if ipc.IsConnRefused(err) {
		return o.recoverStale(ctx)
	}
	return nil, fmt.Errorf("forward launch: %w", err)
}

// recoverStale removes the unresponsive endpoint and retries the bind,
// once. Whatever the retry produces is final: success means this process
// owns the endpoint, any failure is fatal, and there is no second forward
// attempt.
func (o *Orchestrator) recoverStale(ctx context.Context) (*ipc.Server, error) {
	if !o.policy.CleanupStaleEndpoint {
		return nil, fmt.Errorf("endpoint %s cannot be recovered on this platform: %w", o.endpoint.Path, ipc.ErrConnRefused)
	}

	if !o.retryBudget {
		return nil, ErrRetryExhausted
	}
	o.retryBudget = false

	o.logger.Warn().Str("endpoint", o.endpoint.Path).Msg("Endpoint unresponsive; removing stale handle")
	if err := ipc.RemoveStaleEndpoint(o.endpoint); err != nil {
		return nil, fmt.Errorf("remove stale endpoint: %w", err)
	}

	server, err := ipc.Bind(o.endpoint, o.logger)
	if err != nil {
		if ipc.IsAddressInUse(err) {
			// Another process claimed the endpoint in the cleanup window
			return nil, fmt.Errorf("endpoint reclaimed during recovery: %w", ErrRetryExhausted)
		}
		return nil, fmt.Errorf("rebind after cleanup: %w", err)
	}

	o.logger.Info().Str("endpoint", o.endpoint.Path).Msg("Recovered stale endpoint")
	return server, nil
}
