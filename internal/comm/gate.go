package comm

import "context"

// Gate is a binary wake primitive. A receiver closes its gate and waits on
// it; a sender that satisfies the receiver opens it. Opening an open gate is
// a no-op, so at most one wake is ever pending.
type Gate struct {
	ch chan struct{}
}

// NewGate returns a closed gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{}, 1)}
}

// Open releases one waiter, or the next one to arrive. It never blocks.
func (g *Gate) Open() {
	select {
	case g.ch <- struct{}{}:
	default:
	}
}

// Close discards a pending open, if any.
func (g *Gate) Close() {
	select {
	case <-g.ch:
	default:
	}
}

// Wait blocks until the gate is opened or ctx ends. Passing through the gate
// closes it again.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsOpen reports whether an open is pending.
func (g *Gate) IsOpen() bool {
	return len(g.ch) == 1
}
