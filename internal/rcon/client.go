// Package rcon sends console commands to a running server over the Source
// RCON protocol. A Client satisfies mcconsole.CommandSink, which lets a
// Watcher-fed Server reach the server it is watching.
package rcon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorcon/rcon"
)

// DefaultPort is the vanilla server's default rcon.port.
const DefaultPort = "25575"

// maxCommandLen matches the 4096 byte request limit of vanilla servers.
const maxCommandLen = 4096

// ErrNoAddress is returned by New when addr is empty.
var ErrNoAddress = errors.New("rcon: address required")

// Option configures a Client.
type Option func(*Client)

// WithDialTimeout bounds connection setup. Default 5s.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithDeadline bounds a single command round trip. Default 5s.
func WithDeadline(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.deadline = d
		}
	}
}

// Client holds one shared RCON connection. The connection is dialed lazily
// and re-dialed once when a command fails on a stale connection.
type Client struct {
	addr        string
	password    string
	dialTimeout time.Duration
	deadline    time.Duration

	mu   sync.Mutex
	conn *rcon.Conn
}

// New returns a Client for addr ("host:port"). A bare host gets
// DefaultPort. No connection is made until the first command.
func New(addr, password string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, ErrNoAddress
	}
	if !strings.Contains(addr, ":") {
		addr += ":" + DefaultPort
	}
	c := &Client{
		addr:        addr,
		password:    password,
		dialTimeout: 5 * time.Second,
		deadline:    5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Addr returns the server address.
func (c *Client) Addr() string { return c.addr }

// Execute runs command and returns the server's reply.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.getConn()
	if err != nil {
		return "", fmt.Errorf("rcon connect: %w", err)
	}

	resp, err := conn.Execute(command)
	if err != nil {
		// Stale connection; retry once on a fresh one.
		c.dropConn()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		conn, err = c.getConn()
		if err != nil {
			return "", fmt.Errorf("rcon reconnect: %w", err)
		}
		resp, err = conn.Execute(command)
		if err != nil {
			c.dropConn()
			return "", fmt.Errorf("rcon execute after reconnect: %w", err)
		}
	}
	return resp, nil
}

// SendCommand runs command and discards the reply.
func (c *Client) SendCommand(ctx context.Context, command string) error {
	_, err := c.Execute(ctx, command)
	return err
}

// Close closes the connection, if any. The Client may be used again
// afterwards and will reconnect.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) getConn() (*rcon.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := rcon.Dial(c.addr, c.password,
		rcon.SetMaxCommandLen(maxCommandLen),
		rcon.SetDialTimeout(c.dialTimeout),
		rcon.SetDeadline(c.deadline),
	)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) dropConn() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
