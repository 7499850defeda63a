//go:build !windows

package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tessera-apps/tessera/internal/constants"
	"github.com/tessera-apps/tessera/internal/logging"
)

// launchRecorder collects the launch requests a test server receives.
type launchRecorder struct {
	mu       sync.Mutex
	launches []LaunchRequest
}

func (r *launchRecorder) handle(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req LaunchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launches = append(r.launches, req)
	return &LaunchAck{PID: os.Getpid()}, nil
}

func (r *launchRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.launches)
}

func (r *launchRecorder) last() LaunchRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.launches[len(r.launches)-1]
}

func testEndpoint(t *testing.T) Endpoint {
	t.Helper()
	return Endpoint{Path: filepath.Join(t.TempDir(), "test.sock")}
}

// createStaleSocket leaves a socket file on disk with no listener behind
// it, the way a crashed instance would.
func createStaleSocket(t *testing.T, path string) {
	t.Helper()
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		t.Fatalf("Failed to resolve socket addr: %v", err)
	}
	l, err := net.ListenUnix("unix", addr)
	if err != nil {
		t.Fatalf("Failed to create socket: %v", err)
	}
	l.SetUnlinkOnClose(false)
	if err := l.Close(); err != nil {
		t.Fatalf("Failed to close socket: %v", err)
	}
	if _, err := os.Lstat(path); err != nil {
		t.Fatalf("Stale socket file missing after close: %v", err)
	}
}

func TestEndpointClientServer(t *testing.T) {
	endpoint := testEndpoint(t)
	logger := logging.NewNop()

	recorder := &launchRecorder{}

	server, err := Bind(endpoint, logger)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer server.Close()

	server.Handle(constants.ChannelLaunch, recorder.handle)
	server.Handle(constants.ChannelStatus, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		return &StatusData{PID: os.Getpid(), Version: "test", Uptime: "1s", Endpoint: endpoint.Path}, nil
	})
	server.Handle(constants.ChannelControl, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req ControlRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		if req.Command != CommandPing {
			return nil, fmt.Errorf("unsupported command: %s", req.Command)
		}
		return nil, nil
	})
	server.Serve()

	client := NewClient(endpoint)
	client.SetTimeout(2 * time.Second)
	ctx := context.Background()

	t.Run("Forward", func(t *testing.T) {
		ack, err := client.Forward(ctx, &LaunchRequest{
			Arguments:   []string{"--diff", "/tmp/a.txt", "/tmp/b.txt"},
			Environment: map[string]string{"TERM": "xterm"},
		})
		if err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
		if ack.PID != os.Getpid() {
			t.Errorf("Expected ack from pid %d, got %d", os.Getpid(), ack.PID)
		}
		if recorder.count() != 1 {
			t.Fatalf("Expected exactly 1 launch delivery, got %d", recorder.count())
		}
		got := recorder.last()
		want := []string{"--diff", "/tmp/a.txt", "/tmp/b.txt"}
		if len(got.Arguments) != len(want) {
			t.Fatalf("Expected %d arguments, got %d", len(want), len(got.Arguments))
		}
		for i := range want {
			if got.Arguments[i] != want[i] {
				t.Errorf("Argument %d: expected %q, got %q", i, want[i], got.Arguments[i])
			}
		}
		if got.Environment["TERM"] != "xterm" {
			t.Errorf("Environment not delivered: %v", got.Environment)
		}
	})

	t.Run("Status", func(t *testing.T) {
		status, err := client.Status(ctx)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if status.PID != os.Getpid() {
			t.Errorf("Expected pid %d, got %d", os.Getpid(), status.PID)
		}
		if status.Version != "test" {
			t.Errorf("Expected version 'test', got '%s'", status.Version)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := client.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Probe", func(t *testing.T) {
		if err := client.Probe(ctx); err != nil {
			t.Errorf("Probe against live server failed: %v", err)
		}
	})

	t.Run("UnknownChannel", func(t *testing.T) {
		err := client.Call(ctx, "bogus", nil, nil)
		if err == nil {
			t.Fatal("Expected error for unknown channel")
		}
		if !strings.Contains(err.Error(), "unknown channel") {
			t.Errorf("Unexpected error: %v", err)
		}
	})
}

func TestBindConflict(t *testing.T) {
	endpoint := testEndpoint(t)
	logger := logging.NewNop()

	first, err := Bind(endpoint, logger)
	if err != nil {
		t.Fatalf("First bind failed: %v", err)
	}
	defer first.Close()

	_, err = Bind(endpoint, logger)
	if err == nil {
		t.Fatal("Second bind should have failed")
	}
	if !IsAddressInUse(err) {
		t.Errorf("Expected ErrAddressInUse, got %v", err)
	}
}

func TestStaleSocketRefusesConnections(t *testing.T) {
	endpoint := testEndpoint(t)
	logger := logging.NewNop()

	createStaleSocket(t, endpoint.Path)

	// The leftover file makes bind report in-use
	if _, err := Bind(endpoint, logger); !IsAddressInUse(err) {
		t.Fatalf("Expected ErrAddressInUse on stale socket, got %v", err)
	}

	// The probe tells stale apart from live
	client := NewClient(endpoint)
	client.SetTimeout(500 * time.Millisecond)
	err := client.Probe(context.Background())
	if !IsConnRefused(err) {
		t.Fatalf("Expected ErrConnRefused on stale socket, got %v", err)
	}

	// After cleanup the endpoint binds normally
	if err := RemoveStaleEndpoint(endpoint); err != nil {
		t.Fatalf("RemoveStaleEndpoint failed: %v", err)
	}
	server, err := Bind(endpoint, logger)
	if err != nil {
		t.Fatalf("Bind after cleanup failed: %v", err)
	}
	server.Close()
}

func TestRemoveStaleEndpoint(t *testing.T) {
	t.Run("missing file is success", func(t *testing.T) {
		endpoint := testEndpoint(t)
		if err := RemoveStaleEndpoint(endpoint); err != nil {
			t.Errorf("Expected nil for missing file, got %v", err)
		}
	})

	t.Run("stale socket is removed", func(t *testing.T) {
		endpoint := testEndpoint(t)
		createStaleSocket(t, endpoint.Path)
		if err := RemoveStaleEndpoint(endpoint); err != nil {
			t.Fatalf("RemoveStaleEndpoint failed: %v", err)
		}
		if _, err := os.Lstat(endpoint.Path); !os.IsNotExist(err) {
			t.Error("Socket file still present after removal")
		}
	})

	t.Run("refuses to remove a regular file", func(t *testing.T) {
		endpoint := testEndpoint(t)
		if err := os.WriteFile(endpoint.Path, []byte("precious"), 0o600); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
		if err := RemoveStaleEndpoint(endpoint); err == nil {
			t.Error("Expected error when path is not a socket")
		}
		if _, err := os.Lstat(endpoint.Path); err != nil {
			t.Error("Regular file should have been left alone")
		}
	})
}

func TestHandleAfterServePanics(t *testing.T) {
	endpoint := testEndpoint(t)
	server, err := Bind(endpoint, logging.NewNop())
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer server.Close()

	server.Serve()

	defer func() {
		if recover() == nil {
			t.Error("Expected panic from Handle after Serve")
		}
	}()
	server.Handle("late", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		return nil, nil
	})
}

func TestCloseIdempotent(t *testing.T) {
	endpoint := testEndpoint(t)
	server, err := Bind(endpoint, logging.NewNop())
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	server.Serve()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			server.Close()
		}()
	}
	wg.Wait()
	server.Close()

	// The socket file is gone and the endpoint is rebindable
	if _, err := os.Lstat(endpoint.Path); !os.IsNotExist(err) {
		t.Error("Socket file still present after Close")
	}
	again, err := Bind(endpoint, logging.NewNop())
	if err != nil {
		t.Fatalf("Rebind after Close failed: %v", err)
	}
	again.Close()
}

func TestConnectionQueuedBeforeServeIsAnswered(t *testing.T) {
	endpoint := testEndpoint(t)
	server, err := Bind(endpoint, logging.NewNop())
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer server.Close()

	recorder := &launchRecorder{}
	server.Handle(constants.ChannelLaunch, recorder.handle)

	// Fire the client before Serve; the connection sits in the accept
	// backlog until dispatch starts
	type result struct {
		ack *LaunchAck
		err error
	}
	done := make(chan result, 1)
	go func() {
		client := NewClient(endpoint)
		client.SetTimeout(2 * time.Second)
		ack, err := client.Forward(context.Background(), &LaunchRequest{Arguments: []string{"queued.txt"}})
		done <- result{ack, err}
	}()

	time.Sleep(100 * time.Millisecond)
	server.Serve()

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Queued forward failed: %v", res.err)
		}
		if recorder.count() != 1 {
			t.Errorf("Expected 1 delivery, got %d", recorder.count())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for queued forward")
	}
}

func TestHandlerErrorBecomesErrorResponse(t *testing.T) {
	endpoint := testEndpoint(t)
	server, err := Bind(endpoint, logging.NewNop())
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer server.Close()

	server.Handle("failing", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		return nil, fmt.Errorf("handler rejected the request")
	})
	server.Serve()

	client := NewClient(endpoint)
	client.SetTimeout(2 * time.Second)
	err = client.Call(context.Background(), "failing", nil, nil)
	if err == nil {
		t.Fatal("Expected error from failing handler")
	}
	if !strings.Contains(err.Error(), "handler rejected the request") {
		t.Errorf("Handler error text lost: %v", err)
	}
}

func TestHandlerPanicDoesNotKillServer(t *testing.T) {
	endpoint := testEndpoint(t)
	server, err := Bind(endpoint, logging.NewNop())
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer server.Close()

	server.Handle("explosive", func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		panic("boom")
	})
	server.Handle(constants.ChannelControl, func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		return nil, nil
	})
	server.Serve()

	client := NewClient(endpoint)
	client.SetTimeout(2 * time.Second)
	ctx := context.Background()

	if err := client.Call(ctx, "explosive", nil, nil); err == nil {
		t.Error("Expected error response from panicking handler")
	}

	// The server must still answer afterwards
	if err := client.Ping(ctx); err != nil {
		t.Errorf("Server unresponsive after handler panic: %v", err)
	}
}

func TestResolveEndpoint(t *testing.T) {
	t.Run("socket lives in the runtime dir", func(t *testing.T) {
		dir := t.TempDir()
		endpoint, err := ResolveEndpoint(dir)
		if err != nil {
			t.Fatalf("ResolveEndpoint failed: %v", err)
		}
		if filepath.Dir(endpoint.Path) != dir {
			t.Errorf("Expected socket under %s, got %s", dir, endpoint.Path)
		}
		want := fmt.Sprintf(constants.SocketPattern, os.Getuid())
		if filepath.Base(endpoint.Path) != want {
			t.Errorf("Expected socket name %q, got %q", want, filepath.Base(endpoint.Path))
		}
	})

	t.Run("derivation is deterministic", func(t *testing.T) {
		dir := t.TempDir()
		a, _ := ResolveEndpoint(dir)
		b, _ := ResolveEndpoint(dir)
		if a.Path != b.Path {
			t.Errorf("Two derivations disagree: %s vs %s", a.Path, b.Path)
		}
	})

	t.Run("oversized path falls back to temp dir", func(t *testing.T) {
		long := filepath.Join(t.TempDir(), strings.Repeat("d", constants.MaxSocketPathLen))
		endpoint, err := ResolveEndpoint(long)
		if err != nil {
			t.Fatalf("ResolveEndpoint failed: %v", err)
		}
		if strings.HasPrefix(endpoint.Path, long) {
			t.Errorf("Expected fallback away from oversized dir, got %s", endpoint.Path)
		}
		if len(endpoint.Path) > constants.MaxSocketPathLen {
			t.Errorf("Fallback path still exceeds limit: %d bytes", len(endpoint.Path))
		}
	})
}
