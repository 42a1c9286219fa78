package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	kerrors "github.com/shrinedev/shrine/internal/errors"
)

// Client talks to a running agent over its unix socket. When the socket is
// absent or the connection is refused, every call fails with
// ErrAgentNotRunning and the CLI falls back to the cold path.
type Client struct {
	http *http.Client
}

// NewClient returns a client for the agent socket inside runtimeDir.
func NewClient(runtimeDir string) *Client {
	socket := SocketPath(runtimeDir)
	return &Client{
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var dialer net.Dialer
					return dialer.DialContext(ctx, "unix", socket)
				},
			},
		},
	}
}

// Running reports whether an agent is reachable on the socket.
func (c *Client) Running() bool {
	_, _, err := c.Pid()
	return err == nil
}

// Pid returns the agent's process id and its live session count.
func (c *Client) Pid() (int, int, error) {
	var resp pidResponse
	if err := c.do(http.MethodGet, "/pid", nil, nil, &resp); err != nil {
		return 0, 0, err
	}
	return resp.Pid, resp.Sessions, nil
}

// Stop asks the agent to shut down.
func (c *Client) Stop() error {
	return c.do(http.MethodDelete, "/", nil, nil, nil)
}

// Unlock opens a session for the shrine in folder. A wrong password fails
// with ErrIntegrity.
func (c *Client) Unlock(folder string, password []byte) error {
	req := unlockRequest{Folder: folder, Password: string(password)}
	return c.do(http.MethodPut, "/sessions", nil, req, nil)
}

// Lock clears the session for the shrine in folder, immediately.
func (c *Client) Lock(folder string) error {
	query := url.Values{"folder": {folder}}
	return c.do(http.MethodDelete, "/sessions", query, nil, nil)
}

// LockAll clears every session.
func (c *Client) LockAll() error {
	return c.do(http.MethodDelete, "/sessions", nil, nil, nil)
}

// Get fetches a secret through the session.
func (c *Client) Get(folder, key string) ([]byte, error) {
	query := url.Values{"folder": {folder}, "key": {key}}
	var resp valueResponse
	if err := c.do(http.MethodGet, "/key", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Set stores a secret through the session.
func (c *Client) Set(folder, key string, value []byte) error {
	req := setRequest{Folder: folder, Key: key, Value: value}
	return c.do(http.MethodPut, "/key", nil, req, nil)
}

// Remove deletes a secret through the session.
func (c *Client) Remove(folder, key string) error {
	query := url.Values{"folder": {folder}, "key": {key}}
	return c.do(http.MethodDelete, "/key", query, nil, nil)
}

// List returns the sorted secret paths matching pattern.
func (c *Client) List(folder, pattern string) ([]string, error) {
	query := url.Values{"folder": {folder}}
	if pattern != "" {
		query.Set("pattern", pattern)
	}
	var resp listResponse
	if err := c.do(http.MethodGet, "/keys", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

func (c *Client) do(method, path string, query url.Values, body, out any) error {
	// The host is ignored; the transport always dials the unix socket.
	target := "http://shrine-agent" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrAgentNotRunning, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return decodeError(errResp.Error, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode agent response: %w", err)
		}
	}
	return nil
}

func decodeError(code string, status int) error {
	switch code {
	case codeBadPassword:
		return kerrors.ErrIntegrity
	case codeSessionExpired:
		return kerrors.ErrSessionExpired
	case codeShrineNotFound:
		return kerrors.ErrShrineNotFound
	case codeSecretNotFound:
		return kerrors.ErrSecretNotFound
	case codeConcurrent:
		return kerrors.ErrConcurrentModification
	case "":
		return fmt.Errorf("agent returned status %d", status)
	default:
		return fmt.Errorf("agent error: %s", code)
	}
}
