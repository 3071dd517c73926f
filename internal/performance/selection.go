package performance

import "sync"

// SelectionGuard drops results of superseded selections. Each viewer (a
// Slack user, an HTTP session) calls Begin when it picks a panchayath and
// month; a result is only rendered while its Ticket is still current.
type SelectionGuard struct {
	mu      sync.Mutex
	current map[string]uint64
}

type Ticket struct {
	guard  *SelectionGuard
	viewer string
	seq    uint64
}

func NewSelectionGuard() *SelectionGuard {
	return &SelectionGuard{current: make(map[string]uint64)}
}

func (g *SelectionGuard) Begin(viewer string) Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current[viewer]++
	return Ticket{guard: g, viewer: viewer, seq: g.current[viewer]}
}

func (t Ticket) Current() bool {
	if t.guard == nil {
		return false
	}
	t.guard.mu.Lock()
	defer t.guard.mu.Unlock()
	return t.guard.current[t.viewer] == t.seq
}
