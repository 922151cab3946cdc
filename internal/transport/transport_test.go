package transport

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func socketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "pclipsync.sock")
}

func TestListen_RemovesStaleSocket(t *testing.T) {
	path := socketPath(t)

	ln1, err := net.Listen("unix", path)
	require.NoError(t, err)
	// Simulate a crash: close the listener without unlinking the file.
	ln1.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, ln1.Close())

	ln2, err := Listen(path)
	require.NoError(t, err)
	defer ln2.Close()
}

func TestListen_RefusesWhenAlreadyRunning(t *testing.T) {
	path := socketPath(t)

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	_, err = Listen(path)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcceptOne_ReturnsFirstConnection(t *testing.T) {
	path := socketPath(t)
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := net.Dial("unix", path)
		require.NoError(t, err)
		defer c.Close()
		time.Sleep(50 * time.Millisecond)
	}()

	conn, err := AcceptOne(context.Background(), ln)
	require.NoError(t, err)
	defer conn.Close()
}

func TestAcceptOne_CancelledContext(t *testing.T) {
	path := socketPath(t)
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = AcceptOne(ctx, ln)
	assert.Error(t, err)
}

func TestDialer_RetriesUntilListenerAppears(t *testing.T) {
	path := socketPath(t)
	d := Dialer{Path: path, Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond}

	connected := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = d.Run(ctx, func(ctx context.Context, conn net.Conn) {
			close(connected)
			<-ctx.Done()
		})
	}()

	// No listener yet: dialer should be retrying silently.
	time.Sleep(30 * time.Millisecond)

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			defer c.Close()
			<-ctx.Done()
		}
	}()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("dialer never connected once listener appeared")
	}
}

func TestDialer_StopsOnContextCancel(t *testing.T) {
	path := socketPath(t)
	d := Dialer{Path: path, Initial: 10 * time.Millisecond, Max: 20 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx, func(ctx context.Context, conn net.Conn) {})
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
