package compositor

import (
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeSocket answers each connection with a canned reply keyed by request
// prefix, mimicking the one-request-per-connection protocol.
func fakeSocket(t *testing.T, replies map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ipc.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer func() { _ = conn.Close() }()
				buf := make([]byte, 4096)
				n, err := conn.Read(buf)
				if err != nil {
					return
				}
				req := string(buf[:n])
				for prefix, reply := range replies {
					if strings.HasPrefix(req, prefix) {
						_, _ = conn.Write([]byte(reply))
						return
					}
				}
				_, _ = conn.Write([]byte("unknown request"))
			}(conn)
		}
	}()
	return path
}

func TestIPCQueries(t *testing.T) {
	path := fakeSocket(t, map[string]string{
		"j/monitors":        `[{"id":0,"name":"DP-1","width":2560,"height":1440,"x":0,"y":0,"focused":true,"activeWorkspace":{"id":2,"name":"2"}}]`,
		"j/workspaces":      `[{"id":1,"name":"1","monitor":"DP-1","windows":2},{"id":2,"name":"2","monitor":"DP-1","windows":1}]`,
		"j/clients":         `[{"address":"0x55","class":"kitty","title":"~","pid":100,"workspace":{"id":1,"name":"1"},"at":[10,20],"size":[800,600]}]`,
		"j/activeworkspace": `{"id":2,"name":"2"}`,
		"/dispatch":         "ok",
	})
	c := NewIPCClient(path, time.Second)

	mons, err := c.ListMonitors()
	if err != nil {
		t.Fatalf("monitors: %v", err)
	}
	if len(mons) != 1 || mons[0].Name != "DP-1" || mons[0].ActiveWorkspace.ID != 2 {
		t.Fatalf("unexpected monitors: %+v", mons)
	}

	wss, err := c.ListWorkspaces()
	if err != nil {
		t.Fatalf("workspaces: %v", err)
	}
	if len(wss) != 2 || wss[1].Windows != 1 {
		t.Fatalf("unexpected workspaces: %+v", wss)
	}

	wins, err := c.ListWindows()
	if err != nil {
		t.Fatalf("clients: %v", err)
	}
	if len(wins) != 1 || wins[0].Address != "0x55" || wins[0].At != [2]int{10, 20} {
		t.Fatalf("unexpected windows: %+v", wins)
	}

	active, err := c.ActiveWorkspace()
	if err != nil {
		t.Fatalf("activeworkspace: %v", err)
	}
	if active != 2 {
		t.Fatalf("active workspace: %d", active)
	}

	if err := c.Dispatch("workspace 2"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}

func TestIPCUnreachable(t *testing.T) {
	c := NewIPCClient(filepath.Join(t.TempDir(), "missing.sock"), 100*time.Millisecond)
	_, err := c.ListMonitors()
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestDispatchError(t *testing.T) {
	path := fakeSocket(t, map[string]string{"/dispatch": "Invalid dispatcher"})
	c := NewIPCClient(path, time.Second)
	if err := c.Dispatch("bogus"); err == nil {
		t.Fatalf("expected dispatch error")
	}
}
