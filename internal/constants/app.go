package constants

import (
	"time"
)

// Application identity
const (
	// AppName - canonical product name, used in paths and notifications
	AppName = "Tessera"

	// AppID - lowercase identifier used for sockets, pipes, and env vars
	AppID = "tessera"
)

// Endpoint naming
const (
	// SocketPattern - per-user Unix socket file name, %d is the numeric uid
	SocketPattern = "tessera-%d.sock"

	// PipePrefix - Windows named pipe prefix; a short per-user hash is appended
	PipePrefix = `\\.\pipe\tessera-`

	// MutexPattern - Windows named mutex for the secondary exclusivity hint
	// Session-local namespace so separate logon sessions don't collide
	MutexPattern = "Local\\TesseraSingleton-%s"

	// MaxSocketPathLen - conservative sun_path limit across unix platforms
	// Linux allows 108, macOS 104; stay under the smaller one
	MaxSocketPathLen = 103
)

// IPC channel names
//
// Channels are registered on the bound server before it starts serving, so
// a second instance can never observe a partially wired endpoint.
const (
	// ChannelLaunch - second-instance argument hand-off
	ChannelLaunch = "launch"

	// ChannelCredentialPrompt - proxy/auth prompt requests from helpers
	ChannelCredentialPrompt = "credential-prompt"

	// ChannelControl - ping and exit commands
	ChannelControl = "control"

	// ChannelStatus - pid/version/uptime queries for the status CLI
	ChannelStatus = "status"
)

// IPC timeouts
const (
	// DialTimeout - maximum time to establish a connection to a running
	// instance before the launch attempt is treated as failed (5 seconds)
	DialTimeout = 5 * time.Second

	// RequestTimeout - per-connection read/write deadline on both sides
	// (30 seconds); covers slow handlers without risking a zombie hang
	RequestTimeout = 30 * time.Second

	// ShutdownGrace - how long Close waits for in-flight handlers (5 seconds)
	ShutdownGrace = 5 * time.Second
)

// Process exit codes
const (
	// ExitOK - clean shutdown, or arguments handed to a running instance
	ExitOK = 0

	// ExitFatal - any unrecoverable bootstrap or runtime failure
	ExitFatal = 1
)

// Environment variable names
const (
	// EnvIPCHook - endpoint address published to helpers and forwarded
	// launch requests
	EnvIPCHook = "TESSERA_IPC_HOOK"

	// EnvPID - pid of the owning instance, published alongside EnvIPCHook
	EnvPID = "TESSERA_PID"

	// EnvRuntimeDir - override for the endpoint directory (development and
	// tests only)
	EnvRuntimeDir = "TESSERA_RUNTIME_DIR"
)

// Event system
const (
	// EventBusDefaultBuffer - default buffer size for event channels (256)
	// Bootstrap traffic is low-volume; a small buffer keeps memory flat
	EventBusDefaultBuffer = 256
)

// Helper process shutdown
const (
	// HelperTermGrace - time between SIGTERM and SIGKILL for registered
	// helper processes during disposal (3 seconds)
	HelperTermGrace = 3 * time.Second
)
