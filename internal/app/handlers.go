package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tessera-apps/tessera/internal/constants"
	"github.com/tessera-apps/tessera/internal/ipc"
	"github.com/tessera-apps/tessera/internal/version"
)

// registerChannels wires every channel handler. Runs before Serve, so a
// second instance queued in the accept backlog always finds its channel
// registered.
func (b *Bootstrap) registerChannels(server *ipc.Server) {
	server.Handle(constants.ChannelLaunch, b.handleLaunch)
	server.Handle(constants.ChannelCredentialPrompt, b.handleCredentialPrompt)
	server.Handle(constants.ChannelControl, b.handleControl)
	server.Handle(constants.ChannelStatus, b.handleStatus)
}

// handleLaunch accepts a hand-off from a second instance. What the
// arguments mean is the window layer's business; the bootstrap only
// delivers them.
func (b *Bootstrap) handleLaunch(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req ipc.LaunchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("malformed launch payload: %w", err)
	}

	b.logger.Info().Strs("args", req.Arguments).Msg("Launch received from second instance")
	b.bus.PublishLaunchReceived(req.Arguments)

	if b.opts.Window != nil {
		b.opts.Window.OpenWindow(req.Arguments, req.Environment)
	}

	return &ipc.LaunchAck{PID: os.Getpid()}, nil
}

// handleCredentialPrompt relays a helper's credential request to the
// registered prompt handler.
func (b *Bootstrap) handleCredentialPrompt(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req ipc.CredentialPromptRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("malformed credential prompt payload: %w", err)
	}

	b.bus.PublishCredentialPrompt(req.Authority, req.Realm)

	if b.opts.Prompts == nil {
		return nil, errors.New("no credential prompt handler registered")
	}

	reply, err := b.opts.Prompts.PromptCredentials(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("credential prompt failed: %w", err)
	}
	return reply, nil
}

// handleControl answers ping and exit commands.
func (b *Bootstrap) handleControl(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req ipc.ControlRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("malformed control payload: %w", err)
	}

	switch req.Command {
	case ipc.CommandPing:
		return nil, nil

	case ipc.CommandExit:
		b.logger.Info().Msg("Exit requested over control channel")
		// Teardown starts after the acknowledgement is on the wire
		time.AfterFunc(100*time.Millisecond, func() {
			b.RequestStop("control")
		})
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown control command: %q", req.Command)
	}
}

// handleStatus reports the serving instance's vitals.
func (b *Bootstrap) handleStatus(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	return &ipc.StatusData{
		PID:      os.Getpid(),
		Version:  version.Version,
		Uptime:   time.Since(b.startedAt).Round(time.Second).String(),
		Endpoint: b.endpoint.Path,
	}, nil
}
