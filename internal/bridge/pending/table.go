// Package pending holds the table of in-flight script evaluations.
//
// Each entry maps a correlation ID to a one-shot completion channel. An entry
// lives from Register until exactly one of Resolve, Evict or Close removes it.
// The mutex guards map access only; callers wait on the returned channel
// without holding it.
package pending

import (
	"errors"
	"sync"

	"github.com/SilexsecureTeam/defcomm-browser/internal/shared/id"
)

var (
	ErrClosed    = errors.New("pending table closed")
	ErrDuplicate = errors.New("correlation id already registered")
)

// Completion is the outcome delivered for one evaluation.
type Completion struct {
	ID     id.CorrelationID
	Value  string
	Err    string
	Failed bool
}

// Success builds a successful completion carrying a JSON value
func Success(cid id.CorrelationID, value string) Completion {
	return Completion{ID: cid, Value: value}
}

// Failure builds a failed completion carrying an error message
func Failure(cid id.CorrelationID, msg string) Completion {
	return Completion{ID: cid, Err: msg, Failed: true}
}

// Observer is told the table size after every change
type Observer func(size int)

// Table is the pending request table. The zero value is not usable; call New.
type Table struct {
	mu      sync.Mutex
	entries map[id.CorrelationID]chan Completion
	closed  bool
	observe Observer
}

// New creates an empty table. observe may be nil.
func New(observe Observer) *Table {
	return &Table{
		entries: make(map[id.CorrelationID]chan Completion),
		observe: observe,
	}
}

// Register creates the completion channel for cid and returns its receive end
func (t *Table) Register(cid id.CorrelationID) (<-chan Completion, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if _, exists := t.entries[cid]; exists {
		return nil, ErrDuplicate
	}

	ch := make(chan Completion, 1)
	t.entries[cid] = ch
	t.notify()
	return ch, nil
}

// Resolve delivers c to the waiter registered under c.ID and removes the
// entry. It reports false, and does nothing, when no such entry exists.
func (t *Table) Resolve(c Completion) bool {
	t.mu.Lock()
	ch, ok := t.entries[c.ID]
	if ok {
		delete(t.entries, c.ID)
		t.notify()
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	// Capacity 1 and single removal mean this send never blocks
	ch <- c
	return true
}

// Evict removes the entry for cid without delivering anything
func (t *Table) Evict(cid id.CorrelationID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[cid]; !ok {
		return false
	}
	delete(t.entries, cid)
	t.notify()
	return true
}

// Len returns the number of waiting entries
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close closes every pending channel and rejects further registrations
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for cid, ch := range t.entries {
		close(ch)
		delete(t.entries, cid)
	}
	t.notify()
}

func (t *Table) notify() {
	if t.observe != nil {
		t.observe(len(t.entries))
	}
}
