//go:build linux

package xselection

import (
	"fmt"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
)

// xfixesSelectionMask enables notification on ownership transfer, selection
// window destruction, and the owning client disconnecting — the three ways
// a selection's owner can change out from under us.
const xfixesSelectionMask = xfixes.SelectionEventMaskSetSelectionOwner |
	xfixes.SelectionEventMaskSelectionWindowDestroy |
	xfixes.SelectionEventMaskSelectionClientClose

// atomSet holds the interned atoms the adapter needs beyond the built-in
// xproto.AtomPrimary/AtomString.
type atomSet struct {
	clipboard  xproto.Atom
	utf8String xproto.Atom
	targets    xproto.Atom
	property   xproto.Atom // property used to stage ConvertSelection replies
}

// linuxAdapter is the real X11 selection adapter, built on the pure-Go xgb
// protocol bindings (no cgo, no libX11 link dependency).
type linuxAdapter struct {
	conn *xgb.Conn
	win  xproto.Window
	root xproto.Window
	atoms atomSet

	events  chan Event
	replies chan xproto.SelectionNotifyEvent
	errs    chan error
	wake    chan struct{}

	mu      sync.Mutex
	owning  map[Selection]bool
	payload []byte
}

// Open connects to the named X display (the empty string means "use
// $DISPLAY"), creates a 1x1 unmapped owner window, and starts the
// background event-translation goroutine. Returns ErrUnavailable wrapping
// the underlying error if the display can't be reached.
func Open(displayName string) (Adapter, error) {
	conn, err := xgb.NewConnDisplay(displayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := xfixes.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xselection: xfixes extension unavailable: %w", err)
	}
	if _, err := xfixes.QueryVersion(conn, 5, 0).Reply(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xselection: xfixes version query: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	win, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("xselection: allocate window id: %w", err)
	}
	if err := xproto.CreateWindowChecked(
		conn, screen.RootDepth, win, screen.Root,
		0, 0, 1, 1, 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange},
	).Check(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("xselection: create owner window: %w", err)
	}

	atoms, err := internAtoms(conn)
	if err != nil {
		xproto.DestroyWindow(conn, win)
		conn.Close()
		return nil, fmt.Errorf("xselection: intern atoms: %w", err)
	}

	a := &linuxAdapter{
		conn:    conn,
		win:     win,
		root:    screen.Root,
		atoms:   atoms,
		events:  make(chan Event, 64),
		replies: make(chan xproto.SelectionNotifyEvent, 8),
		errs:    make(chan error, 1),
		wake:    make(chan struct{}, 1),
		owning:  make(map[Selection]bool),
	}
	go a.translateLoop()
	return a, nil
}

func internAtoms(conn *xgb.Conn) (atomSet, error) {
	get := func(name string) (xproto.Atom, error) {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			return 0, err
		}
		return reply.Atom, nil
	}
	clipboard, err := get("CLIPBOARD")
	if err != nil {
		return atomSet{}, err
	}
	utf8String, err := get("UTF8_STRING")
	if err != nil {
		return atomSet{}, err
	}
	targets, err := get("TARGETS")
	if err != nil {
		return atomSet{}, err
	}
	property, err := get("PCLIPSYNC_SELECTION")
	if err != nil {
		return atomSet{}, err
	}
	return atomSet{clipboard: clipboard, utf8String: utf8String, targets: targets, property: property}, nil
}

func (a *linuxAdapter) atomFor(sel Selection) xproto.Atom {
	if sel == Primary {
		return xproto.AtomPrimary
	}
	return a.atoms.clipboard
}

func (a *linuxAdapter) selectionFor(atom xproto.Atom) (Selection, bool) {
	switch atom {
	case xproto.AtomPrimary:
		return Primary, true
	case a.atoms.clipboard:
		return Clipboard, true
	default:
		return 0, false
	}
}

func (a *linuxAdapter) Subscribe(sel Selection) error {
	return xfixes.SelectSelectionInputChecked(a.conn, a.win, a.atomFor(sel), xfixesSelectionMask).Check()
}

func (a *linuxAdapter) Pending() <-chan struct{} { return a.wake }

func (a *linuxAdapter) signalWake() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// translateLoop runs on its own goroutine for the lifetime of the adapter,
// turning raw X events into the engine-visible Event variants (or routing
// ConvertSelection replies to ReadText) and reporting a fatal error if the
// X connection itself fails. It never blocks the caller of DrainPending.
func (a *linuxAdapter) translateLoop() {
	for {
		ev, err := a.conn.WaitForEvent()
		if err != nil {
			select {
			case a.errs <- fmt.Errorf("xselection: connection error: %w", err):
			default:
			}
			a.signalWake()
			return
		}
		if ev == nil {
			select {
			case a.errs <- fmt.Errorf("xselection: connection closed"):
			default:
			}
			a.signalWake()
			return
		}

		switch e := ev.(type) {
		case xfixes.SelectionNotifyEvent:
			sel, ok := a.selectionFor(e.Selection)
			if !ok {
				continue
			}
			if e.Owner == a.win {
				// Our own SetText just asserted ownership; not a foreign change.
				continue
			}
			a.mu.Lock()
			a.owning[sel] = false
			a.mu.Unlock()
			select {
			case a.events <- OwnershipChanged{Selection: sel}:
				a.signalWake()
			default:
				// Engine hasn't drained yet; it will still see the owner
				// via ReadText's live ConvertSelection, so dropping a
				// duplicate notification here is safe.
			}

		case xproto.SelectionNotifyEvent:
			select {
			case a.replies <- e:
			default:
			}

		case xproto.SelectionRequestEvent:
			select {
			case a.events <- RequestEvent{Request: Request{opaque: e}}:
				a.signalWake()
			default:
			}

		case xproto.SelectionClearEvent:
			if sel, ok := a.selectionFor(e.Selection); ok {
				a.mu.Lock()
				a.owning[sel] = false
				a.mu.Unlock()
			}
		}
	}
}

func (a *linuxAdapter) DrainPending() ([]Event, error) {
	select {
	case err := <-a.errs:
		return nil, err
	default:
	}

	var out []Event
	for {
		select {
		case ev := <-a.events:
			out = append(out, ev)
		default:
			return out, nil
		}
	}
}

func (a *linuxAdapter) ReadText(sel Selection) ([]byte, bool) {
	a.mu.Lock()
	owned := a.owning[sel]
	cached := a.payload
	a.mu.Unlock()
	if owned {
		return cached, true
	}

	if err := xproto.DeletePropertyChecked(a.conn, a.win, a.atoms.property).Check(); err != nil {
		return nil, false
	}
	if err := xproto.ConvertSelectionChecked(
		a.conn, a.win, a.atomFor(sel), a.atoms.utf8String, a.atoms.property, xproto.TimeCurrentTime,
	).Check(); err != nil {
		return nil, false
	}

	timeout := time.NewTimer(ReadDeadline)
	defer timeout.Stop()

	select {
	case reply := <-a.replies:
		if reply.Property == xproto.AtomNone {
			return nil, false
		}
		prop, err := xproto.GetProperty(a.conn, false, a.win, a.atoms.property, xproto.GetPropertyTypeAny, 0, (1<<31)-1).Reply()
		if err != nil {
			return nil, false
		}
		if prop.Type != a.atoms.utf8String || len(prop.Value) == 0 {
			return nil, false
		}
		data := make([]byte, len(prop.Value))
		copy(data, prop.Value)
		return data, true
	case <-timeout.C:
		return nil, false
	}
}

func (a *linuxAdapter) SetText(sel Selection, payload []byte) bool {
	a.mu.Lock()
	a.payload = append([]byte(nil), payload...)
	a.mu.Unlock()

	if err := xproto.SetSelectionOwnerChecked(a.conn, a.win, a.atomFor(sel), xproto.TimeCurrentTime).Check(); err != nil {
		return false
	}

	a.mu.Lock()
	a.owning[sel] = true
	a.mu.Unlock()
	return true
}

func (a *linuxAdapter) Answer(req Request) {
	e, ok := req.opaque.(xproto.SelectionRequestEvent)
	if !ok {
		return
	}

	property := e.Property
	if property == xproto.AtomNone {
		property = e.Target
	}

	a.mu.Lock()
	payload := a.payload
	a.mu.Unlock()

	switch e.Target {
	case a.atoms.targets:
		targets := []xproto.Atom{a.atoms.targets, a.atoms.utf8String, xproto.AtomString}
		buf := make([]byte, len(targets)*4)
		for i, t := range targets {
			xgb.Put32(buf[i*4:], uint32(t))
		}
		xproto.ChangeProperty(a.conn, xproto.PropModeReplace, e.Requestor, property, xproto.AtomAtom, 32, uint32(len(targets)), buf)

	case a.atoms.utf8String, xproto.AtomString:
		if len(payload) == 0 {
			property = xproto.AtomNone
			break
		}
		xproto.ChangeProperty(a.conn, xproto.PropModeReplace, e.Requestor, property, e.Target, 8, uint32(len(payload)), payload)

	default:
		property = xproto.AtomNone
	}

	notify := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  property,
	}
	xproto.SendEvent(a.conn, false, e.Requestor, 0, string(notify.Bytes()))
}

func (a *linuxAdapter) Close() error {
	xproto.DestroyWindow(a.conn, a.win)
	a.conn.Close()
	return nil
}
