package console

import "maps"

// GateState is the Approval Gate's position.
type GateState int

const (
	GateIdle GateState = iota
	GateAwaitingDecision
)

func (s GateState) String() string {
	switch s {
	case GateIdle:
		return "idle"
	case GateAwaitingDecision:
		return "awaiting_decision"
	default:
		return "unknown"
	}
}

// Invocation is a tool call the agent proposed and the user has not yet
// decided on.
type Invocation struct {
	Name      string
	Arguments map[string]any
}

func (i Invocation) clone() Invocation {
	return Invocation{Name: i.Name, Arguments: maps.Clone(i.Arguments)}
}

// Gate holds at most one pending invocation. The zero value is idle.
// Gate is not safe for concurrent use; Session serializes access.
type Gate struct {
	pending *Invocation
}

// Raise moves the gate from idle to awaiting a decision on inv.
func (g *Gate) Raise(inv Invocation) error {
	if g.pending != nil {
		return ErrInvocationOutstanding
	}
	held := inv.clone()
	g.pending = &held
	return nil
}

// Resolve clears the pending invocation and returns it. It runs before the
// decision's outcome is known and is never undone.
func (g *Gate) Resolve() (Invocation, error) {
	if g.pending == nil {
		return Invocation{}, ErrNoPendingInvocation
	}
	inv := *g.pending
	g.pending = nil
	return inv, nil
}

// Pending returns a copy of the pending invocation, if any.
func (g *Gate) Pending() (Invocation, bool) {
	if g.pending == nil {
		return Invocation{}, false
	}
	return g.pending.clone(), true
}

func (g *Gate) State() GateState {
	if g.pending == nil {
		return GateIdle
	}
	return GateAwaitingDecision
}

// AcceptsInput reports whether free-text input is enabled.
func (g *Gate) AcceptsInput() bool {
	return g.pending == nil
}
