package dockhand

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/docker/cli/cli/streams"
	"github.com/moby/term"
	"github.com/ryanmoran/dockhand/stream"
	"github.com/ryanmoran/dockhand/transport"
	"golang.org/x/sync/errgroup"
)

const (
	// sessionResizeRetries is the number of attempts for the initial TTY
	// resize. The remote process may not have its terminal ready when the
	// session starts, so the resize is retried with increasing delays.
	sessionResizeRetries = 10

	// sessionResizeDelay is the base delay between resize retries; each
	// attempt multiplies it by the attempt number.
	sessionResizeDelay = 10 * time.Millisecond
)

// ResizeFunc propagates local terminal dimensions to the remote side, e.g.
// Container.Resize or Exec.Resize.
type ResizeFunc func(ctx context.Context, height, width uint) error

// Session connects the local terminal to an upgraded duplex stream from
// Attach or Exec.Start. With a TTY it puts the terminal into raw mode and
// keeps the remote terminal sized to match; without one it demultiplexes the
// remote output into stdout and stderr.
type Session struct {
	conn   *transport.UpgradedConn
	tty    bool
	resize ResizeFunc
}

// NewSession wraps an upgraded connection. The tty flag must match how the
// remote side was created; resize may be nil when no TTY is involved.
func NewSession(conn *transport.UpgradedConn, tty bool, resize ResizeFunc) *Session {
	return &Session{
		conn:   conn,
		tty:    tty,
		resize: resize,
	}
}

// Run forwards the local terminal to the remote side until the remote output
// ends or the context is cancelled. Local stdin is forwarded in the
// background and half-closed when it is exhausted.
func (s *Session) Run(ctx context.Context) error {
	stdin, stdout, stderr := term.StdStreams()
	in := streams.NewIn(stdin)
	out := streams.NewOut(stdout)

	restore := func() {}
	if s.tty {
		restoreOnce := sync.OnceFunc(func() {
			in.RestoreTerminal()
			out.RestoreTerminal()
		})
		restore = restoreOnce

		if err := in.SetRawTerminal(); err != nil {
			return fmt.Errorf("failed to set stdin to raw terminal mode: %w", err)
		}
		if err := out.SetRawTerminal(); err != nil {
			restore()
			return fmt.Errorf("failed to set stdout to raw terminal mode: %w", err)
		}

		s.monitorSize(ctx, out)
	}
	defer restore()

	// Forward stdin without joining the group: a terminal read cannot be
	// interrupted, so session completion is driven by the output side.
	go func() {
		_, _ = io.Copy(s.conn, in)
		_ = s.conn.CloseWrite()
	}()

	// Dropping the connection is the cancellation mechanism; it unblocks
	// the copy loops when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if s.tty {
			_, err = io.Copy(out, s.conn)
		} else {
			_, err = stream.Copy(out, stderr, stream.NewDemuxer(stream.NewChunks(s.conn)))
		}
		if gctx.Err() != nil || err == io.EOF {
			return nil
		}
		return err
	})

	err := g.Wait()
	s.conn.Close()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// monitorSize performs the initial resize, retrying while the remote
// terminal comes up, then tracks SIGWINCH until the context ends.
func (s *Session) monitorSize(ctx context.Context, out *streams.Out) {
	if s.resize == nil {
		return
	}

	doResize := func() error {
		height, width := out.GetTtySize()
		if height == 0 && width == 0 {
			return nil
		}
		return s.resize(ctx, height, width)
	}

	if err := doResize(); err != nil {
		go func() {
			for retry := range sessionResizeRetries {
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Duration(retry+1) * sessionResizeDelay):
					if doResize() == nil {
						return
					}
				}
			}
		}()
	}

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGWINCH)
	go func() {
		defer signal.Stop(sigchan)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigchan:
				_ = doResize()
			}
		}
	}()
}
