// Package client is a small text-mode client for a tiller service: it
// dials, sends one command line at a time, and collects each response
// up to the next prompt.
package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotConnected = errors.New("client: not connected")
	ErrNoPrompt     = errors.New("client: a prompt is required to delimit responses")
)

type Conn struct {
	conn net.Conn

	// prompt delimits responses on the wire.
	prompt []byte

	log *zap.Logger
}

func New(prompt string, log *zap.Logger) *Conn {
	return &Conn{
		prompt: []byte(prompt),
		log:    log,
	}
}

func (c *Conn) Connect(ctx context.Context, addr string) error {
	if len(c.prompt) == 0 {
		return ErrNoPrompt
	}

	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	c.conn = conn

	// The service greets with a prompt; swallow it so the first Exec
	// reads only its own response.
	if _, err := c.readToPrompt(ctx); err != nil {
		conn.Close()
		c.conn = nil
		return err
	}

	return nil
}

func (c *Conn) Disconnect() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

// Exec sends one command line and returns the response text, prompt
// stripped and line endings normalized.
func (c *Conn) Exec(ctx context.Context, line string) (string, error) {
	if c.conn == nil {
		return "", ErrNotConnected
	}

	c.log.Debug("exec", zap.String("line", line))

	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		return "", err
	}

	body, err := c.readToPrompt(ctx)
	if err != nil {
		return "", err
	}

	return strings.TrimSuffix(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n"), nil
}

// Ping round-trips the built-in ping command.
func (c *Conn) Ping(ctx context.Context) error {
	resp, err := c.Exec(ctx, "ping")
	if err != nil {
		return err
	}

	if resp != "pong" {
		return errors.New("client: unexpected ping response " + resp)
	}

	return nil
}

// readToPrompt accumulates bytes until the server's prompt arrives,
// returning everything before it.
func (c *Conn) readToPrompt(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	var (
		acc []byte
		buf [256]byte
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := c.conn.Read(buf[:])
		if n > 0 {
			acc = append(acc, buf[:n]...)

			if bytes.HasSuffix(acc, c.prompt) {
				return acc[:len(acc)-len(c.prompt)], nil
			}
		}

		if err != nil {
			return nil, err
		}
	}
}
