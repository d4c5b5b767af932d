package application

import (
	"sync"

	"github.com/ericfisherdev/credpanel/internal/card"
)

// BusyOp identifies a long-running credential operation that is reflected on
// the card as a busy flag.
type BusyOp int

const (
	BusyDeleting BusyOp = iota
	BusyCheckingHealth
	BusyRefreshingToken
)

// BusyTracker holds the in-flight operation flags of every credential. It is
// safe for concurrent use and is the single owner of the busy flags passed to
// card renderers.
type BusyTracker struct {
	mu    sync.Mutex
	flags map[string]card.Busy
}

// NewBusyTracker creates an empty tracker.
func NewBusyTracker() *BusyTracker {
	return &BusyTracker{flags: make(map[string]card.Busy)}
}

// Get returns the current busy flags for a credential.
func (t *BusyTracker) Get(id string) card.Busy {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags[id]
}

// Begin marks op as in flight for id. It returns false, leaving the flags
// untouched, when the same operation is already running.
func (t *BusyTracker) Begin(id string, op BusyOp) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.flags[id]
	if isSet(b, op) {
		return false
	}
	t.flags[id] = set(b, op, true)
	return true
}

// End clears the op flag for id.
func (t *BusyTracker) End(id string, op BusyOp) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := set(t.flags[id], op, false)
	if b.Any() {
		t.flags[id] = b
		return
	}
	delete(t.flags, id)
}

func isSet(b card.Busy, op BusyOp) bool {
	switch op {
	case BusyDeleting:
		return b.Deleting
	case BusyCheckingHealth:
		return b.CheckingHealth
	case BusyRefreshingToken:
		return b.RefreshingToken
	}
	return false
}

func set(b card.Busy, op BusyOp, v bool) card.Busy {
	switch op {
	case BusyDeleting:
		b.Deleting = v
	case BusyCheckingHealth:
		b.CheckingHealth = v
	case BusyRefreshingToken:
		b.RefreshingToken = v
	}
	return b
}
