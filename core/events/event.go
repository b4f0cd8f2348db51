package events

import (
	"sync"

	"rndrledger/core/types"
)

// Event represents a structured state change emitted by a ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for engines whose caller has not wired a subscriber.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Payload is implemented by events that carry a canonical notification entry.
type Payload interface {
	Event() *types.Event
}

// Log is an append-only, externally observable notification log. It keeps
// every event emitted by the ledgers in order; RPC exposes it so off-chain
// systems can correlate escrow balances to user identifiers.
type Log struct {
	mu      sync.RWMutex
	entries []*types.Event
}

// NewLog returns an empty notification log.
func NewLog() *Log {
	return &Log{}
}

// Emit appends the event's canonical payload to the log. Events without a
// payload are recorded with their type only.
func (l *Log) Emit(evt Event) {
	if l == nil || evt == nil {
		return
	}
	entry := &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
	if p, ok := evt.(Payload); ok {
		if canonical := p.Event(); canonical != nil {
			entry = canonical.Clone()
		}
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of the log contents in emission order.
func (l *Log) Entries() []*types.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*types.Event, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, entry.Clone())
	}
	return out
}

// Len reports the number of recorded entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
