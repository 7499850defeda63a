package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/tessera-apps/tessera/internal/constants"
	"github.com/tessera-apps/tessera/internal/logging"
)

// HandlerFunc processes one request on a registered channel. The returned
// value is marshaled into the response data; a non-nil error becomes an
// error response. ctx is the server's lifetime context.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Server owns the bound endpoint from a successful Bind until Close. The
// owning instance registers its channels with Handle and then calls Serve;
// connections that arrive in between wait in the accept backlog, so no
// client can observe a partially wired endpoint.
type Server struct {
	endpoint Endpoint
	logger   *logging.Logger
	listener net.Listener
	handlers map[string]HandlerFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	serving bool

	closeOnce sync.Once
	closeErr  error
}

// Bind claims the endpoint and returns the owning server. If the address
// is already claimed the returned error matches ErrAddressInUse; that is
// the expected outcome for every instance after the first and is logged at
// debug, not as a failure.
func Bind(endpoint Endpoint, logger *logging.Logger) (*Server, error) {
	listener, err := listen(endpoint)
	if err != nil {
		mapped := classifyBindError(err)
		if IsAddressInUse(mapped) {
			logger.Debug().Str("endpoint", endpoint.Path).Msg("Endpoint already claimed")
		}
		return nil, mapped
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		endpoint: endpoint,
		logger:   logger,
		listener: listener,
		handlers: make(map[string]HandlerFunc),
		ctx:      ctx,
		cancel:   cancel,
	}

	logger.Info().Str("endpoint", endpoint.Path).Msg("Endpoint bound")
	return s, nil
}

// Endpoint returns the address this server is bound to.
func (s *Server) Endpoint() Endpoint {
	return s.endpoint
}

// Handle registers fn for a channel. Must be called before Serve;
// registering afterwards is a programming error and panics.
func (s *Server) Handle(channel string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.serving {
		panic(fmt.Sprintf("ipc: Handle(%q) called after Serve", channel))
	}
	s.handlers[channel] = fn
}

// Serve starts dispatching connections. The handler set is frozen from
// here on. Calling Serve twice is a programming error and panics.
func (s *Server) Serve() {
	s.mu.Lock()
	if s.serving {
		s.mu.Unlock()
		panic("ipc: Serve called twice")
	}
	s.serving = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info().
		Str("endpoint", s.endpoint.Path).
		Int("channels", len(s.handlers)).
		Msg("IPC server serving")
}

// Close releases the endpoint and waits for in-flight handlers. Idempotent
// and safe to call concurrently; every caller returns after the first
// close has completed. A non-nil return means handlers were still running
// when the grace period expired; the endpoint is released either way.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Debug().Str("endpoint", s.endpoint.Path).Msg("Closing IPC server")
		s.cancel()

		if s.listener != nil {
			s.listener.Close()
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(constants.ShutdownGrace):
			s.logger.Warn().Msg("Timed out waiting for in-flight IPC handlers")
			s.closeErr = errors.New("timed out waiting for in-flight handlers")
		}

		s.logger.Info().Str("endpoint", s.endpoint.Path).Msg("IPC server stopped")
	})
	return s.closeErr
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Warn().Err(err).Msg("Failed to accept IPC connection")
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection processes a single client connection: one request, one
// response, then the connection is done.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(constants.RequestTimeout))

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil {
		if err != io.EOF {
			s.logger.Warn().Err(err).Msg("Failed to read IPC request")
		}
		return
	}

	req, err := DecodeRequest(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to decode IPC request")
		s.sendResponse(conn, NewErrorResponse("invalid request format"))
		return
	}

	s.logger.Debug().Str("channel", req.Channel).Msg("Received IPC request")

	s.sendResponse(conn, s.dispatch(req))
}

// dispatch routes the request to its channel handler. A panicking handler
// fails its own request, not the owning instance.
func (s *Server) dispatch(req *Request) (resp *Response) {
	handler, ok := s.handlers[req.Channel]
	if !ok {
		return NewErrorResponse(fmt.Sprintf("unknown channel: %s", req.Channel))
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("channel", req.Channel).
				Interface("panic", r).
				Msg("IPC handler panicked")
			resp = NewErrorResponse("internal error")
		}
	}()

	data, err := handler(s.ctx, req.Payload)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	resp, err = NewDataResponse(data)
	if err != nil {
		s.logger.Error().Err(err).Str("channel", req.Channel).Msg("Failed to encode IPC response data")
		return NewErrorResponse("failed to encode response data")
	}
	return resp
}

// sendResponse sends a response to the client.
func (s *Server) sendResponse(conn net.Conn, resp *Response) {
	data, err := resp.Encode()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode IPC response")
		return
	}

	data = append(data, '\n')

	if _, err := conn.Write(data); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to send IPC response")
	}
}
