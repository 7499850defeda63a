package ipc

import (
	"encoding/json"
)

// Request is one client request on a named channel. Requests and responses
// travel as single newline-delimited JSON lines, one exchange per
// connection.
type Request struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the server's reply to a Request.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// LaunchRequest is the "launch" channel payload: everything a second
// instance hands to the running one. Arguments are pre-absolutized by the
// sender; Environment is the sender's amended snapshot.
type LaunchRequest struct {
	Arguments   []string          `json:"arguments"`
	Environment map[string]string `json:"environment,omitempty"`
}

// LaunchAck acknowledges a completed hand-off.
type LaunchAck struct {
	PID int `json:"pid"`
}

// StatusData answers the "status" channel.
type StatusData struct {
	PID      int    `json:"pid"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Endpoint string `json:"endpoint"`
}

// Control commands accepted on the "control" channel.
const (
	CommandPing = "ping"
	CommandExit = "exit"
)

// ControlRequest is the "control" channel payload.
type ControlRequest struct {
	Command string `json:"command"`
}

// CredentialPromptRequest asks the running instance to collect credentials
// for an authority (proxy host, registry). Raised by helper processes.
type CredentialPromptRequest struct {
	Authority string `json:"authority"`
	Realm     string `json:"realm,omitempty"`
	Scheme    string `json:"scheme,omitempty"`
}

// CredentialPromptReply carries the collected credentials back. Empty
// Username means the user dismissed the prompt.
type CredentialPromptReply struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
	Remember bool   `json:"remember,omitempty"`
}

// NewRequest creates a request for channel, marshaling payload. A nil
// payload produces an empty request body.
func NewRequest(channel string, payload interface{}) (*Request, error) {
	req := &Request{Channel: channel}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		req.Payload = data
	}
	return req, nil
}

// NewOKResponse creates a success response with no data.
func NewOKResponse() *Response {
	return &Response{Success: true}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(err string) *Response {
	return &Response{Success: false, Error: err}
}

// NewDataResponse creates a success response carrying data.
func NewDataResponse(data interface{}) (*Response, error) {
	if data == nil {
		return NewOKResponse(), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Response{Success: true, Data: raw}, nil
}

// Encode serializes a request to JSON.
func (r *Request) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Encode serializes a response to JSON.
func (r *Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodePayload unmarshals the request payload into v.
func (r *Request) DecodePayload(v interface{}) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(r.Payload, v)
}

// DecodeData unmarshals the response data into v.
func (r *Response) DecodeData(v interface{}) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// DecodeRequest deserializes a request from JSON.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// DecodeResponse deserializes a response from JSON.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
