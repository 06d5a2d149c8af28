package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// UpgradedConn is the raw duplex byte stream left on the wire after the
// engine confirms a protocol switch. Reads drain the handshake's buffered
// remainder before touching the connection; writes go straight through.
// Closing it releases the underlying connection.
type UpgradedConn struct {
	conn net.Conn
	r    *bufio.Reader
}

func (c *UpgradedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *UpgradedConn) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *UpgradedConn) Close() error {
	return c.conn.Close()
}

// CloseWrite half-closes the write direction, signaling end of input to the
// engine while leaving the read direction open. Not every connection kind
// supports it.
func (c *UpgradedConn) CloseWrite() error {
	if closer, ok := c.conn.(interface{ CloseWrite() error }); ok {
		return closer.CloseWrite()
	}
	return fmt.Errorf("connection does not support half-close")
}

// Upgrade sends the request with upgrade-intent headers over a dedicated raw
// connection. A 101 response yields the duplex stream, bypassing all further
// HTTP framing; any other status discards the response body and returns
// ErrUpgradeRejected.
func (t *Transport) Upgrade(ctx context.Context, req Request) (*UpgradedConn, error) {
	httpReq, err := t.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Connection", "Upgrade")
	httpReq.Header.Set("Upgrade", "tcp")

	conn, err := t.backend.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to dial docker engine: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	err = httpReq.Write(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send upgrade request: %w", err)
	}

	reader := bufio.NewReader(conn)
	resp, err := http.ReadResponse(reader, httpReq)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read upgrade response: %w", err)
	}

	if resp.StatusCode != http.StatusSwitchingProtocols {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		conn.Close()
		return nil, fmt.Errorf("%w: engine answered with status %d", ErrUpgradeRejected, resp.StatusCode)
	}

	_ = conn.SetDeadline(time.Time{})

	return &UpgradedConn{conn: conn, r: reader}, nil
}
