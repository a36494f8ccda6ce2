// internal/receiver/tcp/client_test.go
package tcp

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ManiacDC/receiver-power-sync/internal/iscp"
)

// startBridge runs a one-connection fake serial bridge.
func startBridge(t *testing.T, handler func(net.Conn, *bufio.Reader)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn, bufio.NewReader(conn))
	}()

	return ln.Addr().String()
}

func TestClient_QueryPower(t *testing.T) {
	addr := startBridge(t, func(conn net.Conn, br *bufio.Reader) {
		line, err := br.ReadString('\r')
		if err != nil || strings.TrimRight(line, "\r") != iscp.PowerQuery {
			return
		}
		_, _ = conn.Write([]byte("!1PWR00\r"))
	})

	c := New(Config{Addr: addr, Timeout: 2 * time.Second})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect err=%v", err)
	}
	defer c.Close()

	s, err := c.QueryPower(context.Background())
	if err != nil {
		t.Fatalf("QueryPower err=%v", err)
	}
	if s != iscp.Off {
		t.Fatalf("QueryPower = %v, want Off", s)
	}
}

func TestClient_QueryPowerTimeoutIsUnknown(t *testing.T) {
	addr := startBridge(t, func(conn net.Conn, br *bufio.Reader) {
		_, _ = br.ReadString('\r')
		time.Sleep(time.Second)
	})

	c := New(Config{Addr: addr, Timeout: 100 * time.Millisecond})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect err=%v", err)
	}
	defer c.Close()

	s, err := c.QueryPower(context.Background())
	if err != nil || s != iscp.Unknown {
		t.Fatalf("QueryPower = %v, %v; want Unknown, nil", s, err)
	}
}

func TestClient_UnsolicitedNotificationWithNoise(t *testing.T) {
	addr := startBridge(t, func(conn net.Conn, br *bufio.Reader) {
		// Line noise before the message, as a real bridge produces.
		_, _ = conn.Write([]byte("\xff\x00!1PWR01\r"))
		time.Sleep(time.Second)
	})

	got := make(chan iscp.State, 1)
	c := New(Config{
		Addr:    addr,
		Timeout: 2 * time.Second,
		Notify:  func(s iscp.State) { got <- s },
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect err=%v", err)
	}
	defer c.Close()

	select {
	case s := <-got:
		if s != iscp.On {
			t.Fatalf("notified %v, want On", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no notification delivered")
	}
}

func TestClient_SendPowerWireFormat(t *testing.T) {
	got := make(chan string, 1)
	addr := startBridge(t, func(conn net.Conn, br *bufio.Reader) {
		line, err := br.ReadString('\r')
		if err != nil {
			return
		}
		got <- line
	})

	c := New(Config{Addr: addr, Timeout: 2 * time.Second})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect err=%v", err)
	}
	defer c.Close()

	if err := c.SendPower(iscp.Off); err != nil {
		t.Fatalf("SendPower err=%v", err)
	}

	select {
	case line := <-got:
		if line != "!1PWR00\r" {
			t.Fatalf("bridge saw %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("bridge saw no command")
	}
}

func TestClient_SendPowerNotConnected(t *testing.T) {
	c := New(Config{Addr: "127.0.0.1:1", Timeout: 100 * time.Millisecond})
	if err := c.SendPower(iscp.Off); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	c := New(Config{Addr: "127.0.0.1:1"})
	if err := c.Close(); err != nil {
		t.Fatalf("Close on never-connected client err=%v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close err=%v", err)
	}
}
