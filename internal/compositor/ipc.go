package compositor

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// IPCClient talks to the Hyprland request socket directly. Each call opens a
// fresh connection, writes one request, and reads the reply to EOF; that is
// the protocol's expected usage.
type IPCClient struct {
	socketPath string
	timeout    time.Duration
}

// NewIPCClient resolves the compositor request socket from the environment.
// An explicit socketPath overrides discovery.
func NewIPCClient(socketPath string, timeout time.Duration) *IPCClient {
	if socketPath == "" {
		socketPath = discoverSocket()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IPCClient{socketPath: socketPath, timeout: timeout}
}

func discoverSocket() string {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return ""
	}
	runtime := os.Getenv("XDG_RUNTIME_DIR")
	if runtime == "" {
		runtime = fmt.Sprintf("/run/user/%d", os.Getuid())
	}
	return filepath.Join(runtime, "hypr", sig, ".socket.sock")
}

// roundTrip sends one request and returns the raw reply.
func (c *IPCClient) roundTrip(request string) ([]byte, error) {
	if c.socketPath == "" {
		return nil, fmt.Errorf("%w: no instance signature in environment", ErrUnreachable)
	}
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnreachable, c.socketPath, err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write([]byte(request)); err != nil {
		return nil, fmt.Errorf("%w: write request: %v", ErrUnreachable, err)
	}
	out, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: read reply: %v", ErrUnreachable, err)
	}
	return out, nil
}

func (c *IPCClient) queryJSON(command string, v any) error {
	raw, err := c.roundTrip("j/" + command)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s reply: %w", command, err)
	}
	return nil
}

func (c *IPCClient) ListMonitors() ([]Monitor, error) {
	var out []Monitor
	if err := c.queryJSON("monitors", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *IPCClient) ListWorkspaces() ([]Workspace, error) {
	var out []Workspace
	if err := c.queryJSON("workspaces", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *IPCClient) ListWindows() ([]Window, error) {
	var out []Window
	if err := c.queryJSON("clients", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *IPCClient) ActiveWorkspace() (int, error) {
	var ws Workspace
	if err := c.queryJSON("activeworkspace", &ws); err != nil {
		return 0, err
	}
	return ws.ID, nil
}

// Dispatch issues a compositor command, e.g. "workspace 3" or
// "focuswindow address:0x1234". A reply other than "ok" is an error.
func (c *IPCClient) Dispatch(command string) error {
	raw, err := c.roundTrip("/dispatch " + command)
	if err != nil {
		return err
	}
	if reply := strings.TrimSpace(string(raw)); reply != "ok" {
		return fmt.Errorf("dispatch %q: %s", command, reply)
	}
	return nil
}
