package betbuilder

import (
	"sync"
	"time"
)

// gateEntry is a gate and the last time its session was used.
type gateEntry struct {
	gate     *Gate
	lastUsed time.Time
}

// GateSet owns one Gate per bet-builder session, created on first use.
type GateSet struct {
	fetcher Fetcher
	opts    GateOptions
	now     func() time.Time

	mu     sync.Mutex
	gates  map[string]*gateEntry
	closed bool
}

// NewGateSet creates an empty GateSet. Every gate it creates shares fetcher
// and opts.
func NewGateSet(fetcher Fetcher, opts GateOptions) *GateSet {
	return &GateSet{
		fetcher: fetcher,
		opts:    opts,
		now:     time.Now,
		gates:   make(map[string]*gateEntry),
	}
}

// Get returns the gate for sessionID, creating it if needed, and marks the
// session as used. It returns nil once the set is closed.
func (s *GateSet) Get(sessionID string) *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	e, ok := s.gates[sessionID]
	if !ok {
		e = &gateEntry{gate: NewGate(sessionID, s.fetcher, s.opts)}
		s.gates[sessionID] = e
	}
	e.lastUsed = s.now()
	return e.gate
}

// Lookup returns the gate for sessionID without creating one. A hit marks
// the session as used.
func (s *GateSet) Lookup(sessionID string) (*Gate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.gates[sessionID]
	if !ok {
		return nil, false
	}
	e.lastUsed = s.now()
	return e.gate, true
}

// Remove closes and forgets the gate for sessionID.
func (s *GateSet) Remove(sessionID string) {
	s.mu.Lock()
	e, ok := s.gates[sessionID]
	delete(s.gates, sessionID)
	s.mu.Unlock()

	if ok {
		e.gate.Close()
	}
}

// Sweep closes and forgets every gate whose session has not been used for
// longer than idle. It returns the ids of the removed sessions.
func (s *GateSet) Sweep(idle time.Duration) []string {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	var stale []*Gate
	var ids []string
	for id, e := range s.gates {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.gate)
			ids = append(ids, id)
			delete(s.gates, id)
		}
	}
	s.mu.Unlock()

	for _, g := range stale {
		g.Close()
	}
	return ids
}

// Len returns the number of live gates.
func (s *GateSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gates)
}

// Close closes every gate. The set hands out no gates afterwards.
func (s *GateSet) Close() {
	s.mu.Lock()
	s.closed = true
	gates := s.gates
	s.gates = make(map[string]*gateEntry)
	s.mu.Unlock()

	for _, e := range gates {
		e.gate.Close()
	}
}
