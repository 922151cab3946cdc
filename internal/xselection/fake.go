package xselection

import "sync"

// Fake is an in-memory Adapter used by syncengine tests so they can drive
// the sync engine's event loop without a real X server — the same role
// clip_headless.go plays for the teacher's clip.Backend interface.
type Fake struct {
	mu       sync.Mutex
	owner    map[Selection]bool
	text     map[Selection][]byte
	served   []byte
	queued   []Event
	writeErr map[Selection]bool
	wake     chan struct{}

	// SetTextCalls records every SetText invocation in order, so tests can
	// assert echo-guard ordering (invariant E1).
	SetTextCalls []SetTextCall
}

// SetTextCall records one SetText invocation for assertions on ordering.
type SetTextCall struct {
	Selection Selection
	Payload   []byte
}

// NewFake returns an empty Fake adapter.
func NewFake() *Fake {
	return &Fake{
		owner:    make(map[Selection]bool),
		text:     make(map[Selection][]byte),
		writeErr: make(map[Selection]bool),
		wake:     make(chan struct{}, 1),
	}
}

func (f *Fake) Pending() <-chan struct{} { return f.wake }

func (f *Fake) signalWake() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Fake) Subscribe(sel Selection) error { return nil }

// SetForeignText simulates a third-party X client owning sel with the given
// text, without emitting an ownership-change event. Use QueueOwnershipChanged
// to additionally simulate the notification.
func (f *Fake) SetForeignText(sel Selection, text []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner[sel] = false
	f.text[sel] = text
}

// SetForeignUnreadable simulates a foreign owner that fails to answer our
// conversion request (timeout, non-text reply, X error — all collapse to
// the same ReadText(..., false) outcome per the core spec).
func (f *Fake) SetForeignUnreadable(sel Selection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner[sel] = false
	delete(f.text, sel)
}

// QueueOwnershipChanged enqueues an OwnershipChanged event for the next
// DrainPending call.
func (f *Fake) QueueOwnershipChanged(sel Selection) {
	f.mu.Lock()
	f.queued = append(f.queued, OwnershipChanged{Selection: sel})
	f.mu.Unlock()
	f.signalWake()
}

// QueueRequest enqueues a RequestEvent for the next DrainPending call.
func (f *Fake) QueueRequest() {
	f.mu.Lock()
	f.queued = append(f.queued, RequestEvent{Request: Request{}})
	f.mu.Unlock()
	f.signalWake()
}

// FailWritesFor makes SetText return false for sel, simulating XWriteFailed.
func (f *Fake) FailWritesFor(sel Selection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr[sel] = true
}

func (f *Fake) ReadText(sel Selection) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owner[sel] {
		return f.served, true
	}
	text, ok := f.text[sel]
	return text, ok
}

func (f *Fake) SetText(sel Selection, payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetTextCalls = append(f.SetTextCalls, SetTextCall{Selection: sel, Payload: append([]byte(nil), payload...)})
	if f.writeErr[sel] {
		return false
	}
	f.served = payload
	f.owner[sel] = true
	return true
}

func (f *Fake) Answer(req Request) {}

func (f *Fake) DrainPending() ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.queued
	f.queued = nil
	return out, nil
}

func (f *Fake) Close() error { return nil }
