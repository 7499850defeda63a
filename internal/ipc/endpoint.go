// Package ipc implements the single-instance coordination endpoint: the
// per-user address both instances derive independently, the bound server
// that owns it, and the client a second instance uses to hand its launch
// over. Transport is a Unix domain socket on Unix-like systems and a named
// pipe on Windows; both speak newline-delimited JSON.
package ipc

// Endpoint is the well-known per-user coordination address. Both sides
// derive it deterministically from the user identity; it is never
// persisted or exchanged out of band.
type Endpoint struct {
	// Path is the socket file path on Unix, or the pipe name on Windows.
	Path string
}

func (e Endpoint) String() string {
	return e.Path
}
