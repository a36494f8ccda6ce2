// internal/receiver/serial/client.go

// Package serial implements the receiver transport for a direct
// serial connection. The port carries no unsolicited notification
// stream in this design; state is observed by polling only.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	goserial "github.com/goburrow/serial"

	"github.com/ManiacDC/receiver-power-sync/internal/iscp"
)

var errNotConnected = errors.New("serial client: not connected")

// baudRate is the receiver's fixed serial rate.
const baudRate = 9600

// readSlice is the per-read timeout while polling for a reply; the
// query deadline spans many of these.
const readSlice = 100 * time.Millisecond

// Config configures one serial connection.
type Config struct {
	Port    string
	Timeout time.Duration
}

// Client is a receiver transport over a local serial port. All calls
// are serialized by the client mutex; there is no reader goroutine.
type Client struct {
	cfg Config

	mu        sync.Mutex
	port      io.ReadWriteCloser
	connected bool
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Client{cfg: cfg}
}

// Connect opens the port at the fixed 9600 8N1 line settings.
// One attempt; the caller owns retry cadence.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := goserial.Open(&goserial.Config{
		Address:  c.cfg.Port,
		BaudRate: baudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  readSlice,
	})
	if err != nil {
		return fmt.Errorf("serial client: open %s: %w", c.cfg.Port, err)
	}

	c.port = p
	c.connected = true
	return nil
}

// Close releases the port. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return nil
	}
	p := c.port
	c.port = nil
	c.connected = false
	return p.Close()
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

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(cmd)
}

// QueryPower drains stale input, sends a power question and reads the
// port until a power reply arrives or the query deadline passes. Read
// timeouts between bytes are continuation, not failure.
func (c *Client) QueryPower(ctx context.Context) (iscp.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return iscp.Unknown, errNotConnected
	}

	c.drainLocked()

	if err := c.writeLocked(iscp.PowerQuery); err != nil {
		return iscp.Unknown, err
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	var sc iscp.Scanner
	buf := make([]byte, 1)

	for {
		if err := ctx.Err(); err != nil {
			return iscp.Unknown, err
		}
		if time.Now().After(deadline) {
			return iscp.Unknown, nil
		}

		n, err := c.port.Read(buf)
		if err != nil {
			if errors.Is(err, goserial.ErrTimeout) {
				continue
			}
			c.dropLocked()
			return iscp.Unknown, fmt.Errorf("serial client: read: %w", err)
		}
		if n == 0 {
			continue
		}

		msg, ok := sc.Feed(buf[0])
		if !ok {
			continue
		}
		if s, ok := iscp.ParsePower(msg); ok {
			return s, nil
		}
	}
}

func (c *Client) writeLocked(cmd string) error {
	if c.port == nil {
		return errNotConnected
	}
	if _, err := c.port.Write([]byte(cmd + "\r")); err != nil {
		c.dropLocked()
		return fmt.Errorf("serial client: write: %w", err)
	}
	return nil
}

func (c *Client) dropLocked() {
	if c.port != nil {
		_ = c.port.Close()
		c.port = nil
	}
	c.connected = false
}

// drainLocked discards buffered input left over from earlier traffic,
// so the next reply cannot be answered by a stale message.
func (c *Client) drainLocked() {
	buf := make([]byte, 64)
	for {
		n, err := c.port.Read(buf)
		if err != nil || n == 0 {
			return
		}
	}
}
