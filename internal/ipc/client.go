package ipc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/tessera-apps/tessera/internal/constants"
)

// Client talks to the endpoint's owning instance. Each call opens its own
// connection; the zero cost of local transports makes pooling pointless.
type Client struct {
	endpoint Endpoint
	timeout  time.Duration
}

// NewClient creates a client for the endpoint.
func NewClient(endpoint Endpoint) *Client {
	return &Client{
		endpoint: endpoint,
		timeout:  constants.DialTimeout,
	}
}

// SetTimeout sets the connection timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Probe dials the endpoint and immediately disconnects. A nil return means
// something live answered; an ErrConnRefused return is the stale-endpoint
// signature. Used where reachability must be decided without sending a
// request, e.g. automated-test sessions.
func (c *Client) Probe(ctx context.Context) error {
	conn, err := dial(ctx, c.endpoint, c.timeout)
	if err != nil {
		return classifyDialError(err)
	}
	conn.Close()
	return nil
}

// Call performs one request/response exchange on channel. payload is
// marshaled into the request; the response data is unmarshaled into out
// when out is non-nil. Connection failures are classified against the
// sentinel taxonomy.
func (c *Client) Call(ctx context.Context, channel string, payload, out interface{}) error {
	req, err := NewRequest(channel, payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	conn, err := dial(ctx, c.endpoint, c.timeout)
	if err != nil {
		return classifyDialError(err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(constants.RequestTimeout))

	if err := c.send(conn, req); err != nil {
		return err
	}

	resp, err := c.receive(conn)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("instance error: %s", resp.Error)
	}
	if out != nil {
		if err := resp.DecodeData(out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// Forward hands the launch request to the running instance and waits for
// its acknowledgement. Sent at most once per process lifetime.
func (c *Client) Forward(ctx context.Context, launch *LaunchRequest) (*LaunchAck, error) {
	var ack LaunchAck
	if err := c.Call(ctx, constants.ChannelLaunch, launch, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Status retrieves pid, version, and uptime from the running instance.
func (c *Client) Status(ctx context.Context) (*StatusData, error) {
	var status StatusData
	if err := c.Call(ctx, constants.ChannelStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Ping checks that the running instance answers on the control channel.
func (c *Client) Ping(ctx context.Context) error {
	return c.Call(ctx, constants.ChannelControl, &ControlRequest{Command: CommandPing}, nil)
}

// Exit asks the running instance to shut down. The instance acknowledges
// before exiting, but a connection torn down mid-read means the same
// thing, so read failures after a successful send count as success.
func (c *Client) Exit(ctx context.Context) error {
	req, err := NewRequest(constants.ChannelControl, &ControlRequest{Command: CommandExit})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	conn, err := dial(ctx, c.endpoint, c.timeout)
	if err != nil {
		return classifyDialError(err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(constants.RequestTimeout))

	if err := c.send(conn, req); err != nil {
		return err
	}

	resp, err := c.receive(conn)
	if err != nil {
		// Instance went away while replying
		return nil
	}
	if !resp.Success {
		return fmt.Errorf("instance error: %s", resp.Error)
	}
	return nil
}

func (c *Client) send(conn net.Conn, req *Request) error {
	data, err := req.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	data = append(data, '\n')

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func (c *Client) receive(conn net.Conn) (*Response, error) {
	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	resp, err := DecodeResponse(respData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}
