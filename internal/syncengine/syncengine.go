// Package syncengine implements the bidirectional bridge between one X
// selection adapter and one peer byte stream: the outbound path (local
// ownership change → read → fingerprint → send), the inbound path (frame →
// fingerprint → cache → assert ownership), the SelectionRequest path, and
// the single-threaded cooperative event loop that drives all three.
package syncengine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/pclipsync/pclipsync/internal/echoguard"
	"github.com/pclipsync/pclipsync/internal/frame"
	"github.com/pclipsync/pclipsync/internal/xselection"
)

// Session bridges one xselection.Adapter and one peer connection. It owns
// no process-wide state — every collaborator is passed in explicitly, the
// same way the teacher's localpeer.Peer and tcppeer.Peer take their hub and
// backend as constructor arguments rather than reaching for globals.
type Session struct {
	adapter xselection.Adapter
	conn    net.Conn
	guard   *echoguard.Guard
	log     *slog.Logger
}

// New creates a Session. The adapter must already be open and subscribed to
// both selections; the connection must already be established.
func New(adapter xselection.Adapter, conn net.Conn) *Session {
	return &Session{
		adapter: adapter,
		conn:    conn,
		guard:   echoguard.New(),
		log:     slog.With("component", "syncengine"),
	}
}

// ResetEchoGuard clears the echo-guard slots (invariant E3) without touching
// the connection. Reset clears them the same way when it rebinds the Session
// to a new connection.
func (s *Session) ResetEchoGuard() {
	s.guard.Clear()
}

// Reset rebinds the Session to a freshly dialed connection and clears the
// echo-guard (invariant E3), so a client can reuse the same adapter and X
// owner window across reconnects while starting each peer conversation
// from a clean slate.
func (s *Session) Reset(conn net.Conn) {
	s.conn = conn
	s.guard.Clear()
}

type peerFrame struct {
	payload []byte
	err     error
}

// Run drives the event loop until the peer channel closes, a fatal error
// occurs, or ctx is cancelled. A nil return means clean shutdown (peer EOF
// or ctx cancellation); a non-nil return is a FrameError, PeerIOError, or
// fatal X error that the transport shell surfaces to its retry logic.
func (s *Session) Run(ctx context.Context) error {
	frames := make(chan peerFrame, 1)
	go s.readPeerLoop(ctx, frames)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-s.adapter.Pending():
			if err := s.dispatchPending(); err != nil {
				return err
			}

		case pf, ok := <-frames:
			if !ok {
				return nil
			}
			if pf.err != nil {
				if errors.Is(pf.err, io.EOF) {
					return nil
				}
				return fmt.Errorf("peer read: %w", pf.err)
			}
			s.handleInbound(pf.payload)
		}
	}
}

// readPeerLoop reads frames off the peer connection until EOF, an error, or
// ctx cancellation, forwarding each to frames. It runs on its own goroutine
// because frame.ReadFrame blocks; the main loop in Run stays responsive to
// X events the whole time, per the suspension-point contract in the core
// spec (only the X fd, the peer fd, and the bounded ReadText wait may
// suspend the loop).
func (s *Session) readPeerLoop(ctx context.Context, out chan<- peerFrame) {
	defer close(out)
	br := bufio.NewReaderSize(s.conn, 64*1024)
	for {
		payload, err := frame.ReadFrame(br)
		select {
		case out <- peerFrame{payload: payload, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// dispatchPending drains and dispatches every event already queued on the
// adapter, then keeps re-checking until nothing is left — a single
// underlying read can enqueue several events, and new ones may have arrived
// while we were dispatching.
// A terminating error from handleOutbound (a failed peer write) propagates
// out immediately, ending the session per invariant E2/§5.
func (s *Session) dispatchPending() error {
	for {
		events, err := s.adapter.DrainPending()
		if err != nil {
			return fmt.Errorf("X connection: %w", err)
		}
		if len(events) == 0 {
			return nil
		}
		for _, ev := range events {
			switch e := ev.(type) {
			case xselection.OwnershipChanged:
				if err := s.handleOutbound(e.Selection); err != nil {
					return err
				}
			case xselection.RequestEvent:
				s.adapter.Answer(e.Request)
			}
		}
	}
}

// handleOutbound implements the outbound path of the core spec: a local
// ownership change observed on sel may produce one outbound frame, subject
// to the size gate and the echo-guard. A write failure is a PeerIOError per
// §7 — invariant E2/§5 require the engine to terminate the session rather
// than keep running with an unflushed peer stream, so it is returned to the
// caller instead of logged-and-swallowed.
func (s *Session) handleOutbound(sel xselection.Selection) error {
	payload, ok := s.adapter.ReadText(sel)
	if !ok {
		s.log.Debug("selection unreadable, skipping", "selection", sel)
		return nil
	}
	if len(payload) > frame.MaxPayload {
		s.log.Warn("outbound payload exceeds size limit, dropping", "selection", sel, "bytes", len(payload))
		return nil
	}

	fp := echoguard.Sum(payload)
	if !s.guard.ShouldSend(fp) {
		s.log.Debug("echo-guard suppressed outbound send", "selection", sel)
		return nil
	}

	if _, err := s.conn.Write(frame.Encode(payload)); err != nil {
		return fmt.Errorf("peer write: %w", err)
	}
	s.guard.RecordSent(fp)
	return nil
}

// handleInbound implements the inbound path: a payload received from the
// peer is recorded in the echo-guard before either selection is mutated
// (invariant E1), then cached and asserted on both selections.
func (s *Session) handleInbound(payload []byte) {
	fp := echoguard.Sum(payload)
	s.guard.RecordReceived(fp)

	if !s.adapter.SetText(xselection.Clipboard, payload) {
		s.log.Error("CLIPBOARD write failed")
	}
	if !s.adapter.SetText(xselection.Primary, payload) {
		s.log.Error("PRIMARY write failed")
	}
}
