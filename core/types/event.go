package types

// Event is a single entry in the ledger notification log. Off-chain systems
// correlate user and job identifiers to escrow balances through these, so
// every mutating ledger path emits one.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Clone returns a deep copy so log readers cannot mutate stored entries.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	attrs := make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	return &Event{Type: e.Type, Attributes: attrs}
}
