// internal/receiver/tcp/client.go

// Package tcp implements the receiver transport for a serial-to-
// network bridge: raw ISCP command strings over a plain TCP socket,
// no binary envelope.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ManiacDC/receiver-power-sync/internal/iscp"
)

var errNotConnected = errors.New("tcp client: not connected")

// Config configures one bridge connection.
type Config struct {
	Addr    string
	Timeout time.Duration

	// Notify receives unsolicited power notifications decoded from the
	// inbound stream. nil drains them.
	Notify func(iscp.State)
}

// Client is a receiver transport over a serial bridge. The wire format
// is the serial command set: bare ASCII commands terminated by a
// carriage return. Lifecycle matches the eiscp client: one reader
// goroutine per connection, a waiter channel armed by QueryPower.
type Client struct {
	cfg Config

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	waiter    chan iscp.State
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Client{cfg: cfg}
}

// Connect dials the bridge and starts the inbound reader.
// One attempt; the caller owns retry cadence.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	d := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return fmt.Errorf("tcp client: dial %s: %w", c.cfg.Addr, err)
	}

	c.conn = conn
	c.connected = true
	go c.readLoop(conn)
	return nil
}

// Close releases the connection and unblocks the reader. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropLocked(c.conn)
}

func (c *Client) dropLocked(conn net.Conn) error {
	if conn == nil || conn != c.conn {
		return nil
	}
	c.conn = nil
	c.connected = false
	return conn.Close()
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SendPower writes a bare power command terminated by a carriage
// return.
func (c *Client) SendPower(s iscp.State) error {
	cmd, err := iscp.PowerCommand(s)
	if err != nil {
		return err
	}
	return c.write(cmd)
}

// QueryPower sends a power question and waits for the reader to hand
// over the reply. A quiet receiver is (Unknown, nil), not an error.
func (c *Client) QueryPower(ctx context.Context) (iscp.State, error) {
	ch := make(chan iscp.State, 1)

	c.mu.Lock()
	c.waiter = ch
	c.mu.Unlock()
	defer c.disarm(ch)

	if err := c.write(iscp.PowerQuery); err != nil {
		return iscp.Unknown, err
	}

	t := time.NewTimer(c.cfg.Timeout)
	defer t.Stop()

	select {
	case s := <-ch:
		return s, nil
	case <-t.C:
		return iscp.Unknown, nil
	case <-ctx.Done():
		return iscp.Unknown, ctx.Err()
	}
}

func (c *Client) disarm(ch chan iscp.State) {
	c.mu.Lock()
	if c.waiter == ch {
		c.waiter = nil
	}
	c.mu.Unlock()
}

func (c *Client) write(cmd string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return errNotConnected
	}

	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.Timeout))
	if _, err := conn.Write([]byte(cmd + "\r")); err != nil {
		c.mu.Lock()
		_ = c.dropLocked(conn)
		c.mu.Unlock()
		return fmt.Errorf("tcp client: write: %w", err)
	}
	return nil
}

// readLoop frames the undelimited bridge stream byte-by-byte.
func (c *Client) readLoop(conn net.Conn) {
	br := bufio.NewReader(conn)
	var sc iscp.Scanner

	for {
		b, err := br.ReadByte()
		if err != nil {
			c.mu.Lock()
			_ = c.dropLocked(conn)
			c.mu.Unlock()
			return
		}

		msg, ok := sc.Feed(b)
		if !ok {
			continue
		}

		if s, ok := iscp.ParsePower(msg); ok {
			c.deliver(s)
		}
	}
}

func (c *Client) deliver(s iscp.State) {
	c.mu.Lock()
	ch := c.waiter
	c.waiter = nil
	c.mu.Unlock()

	if ch != nil {
		ch <- s
		return
	}
	if c.cfg.Notify != nil {
		c.cfg.Notify(s)
	}
}
