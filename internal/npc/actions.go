package npc

// Player is whoever triggered an action. Nil means the NPC itself.
type Player interface {
	PlayerID() int32
}

// Action is a queued script callback.
type Action interface {
	Name() string
	Invoke()
}

// ScriptHost is the scripting runtime seen from an NPC: it keeps the
// registries of NPCs that need a timer tick or an action flush and it
// turns an event name into a runnable Action.
type ScriptHost interface {
	RegisterTimer(n *NPC)
	UnregisterTimer(n *NPC)
	RegisterUpdate(n *NPC)
	UnregisterUpdate(n *NPC)
	// CreateAction may return nil when the NPC has no handler for name.
	CreateAction(name string, n *NPC, p Player) Action
}

type nopHost struct{}

func (nopHost) RegisterTimer(*NPC)                       {}
func (nopHost) UnregisterTimer(*NPC)                     {}
func (nopHost) RegisterUpdate(*NPC)                      {}
func (nopHost) UnregisterUpdate(*NPC)                    {}
func (nopHost) CreateAction(string, *NPC, Player) Action { return nil }

// TimeoutEvent is queued when the timer reaches zero.
const TimeoutEvent = "npc.timeout"

// SetTimeout arms the timer for ticks ticks. A non-positive value stops
// it; the registration of a running timer is then dropped by the host on
// the next RunTimer.
func (n *NPC) SetTimeout(ticks int) {
	if ticks > 0 {
		n.host.RegisterTimer(n)
	} else if n.timeout <= 0 {
		n.host.UnregisterTimer(n)
	}
	n.timeout = ticks
}

// Timeout returns the ticks left on the timer.
func (n *NPC) Timeout() int { return n.timeout }

// RunTimer advances the timer by one tick, queueing TimeoutEvent when it
// expires. It reports whether the timer is still running.
func (n *NPC) RunTimer() bool {
	if n.timeout > 0 {
		n.timeout--
		if n.timeout == 0 {
			n.QueueAction(TimeoutEvent, nil, true)
		}
	}
	return n.timeout > 0
}

// QueueAction appends the script handler for name to the action queue.
// With register set the NPC is also added to the host's update registry
// so the queue gets flushed on the next tick.
func (n *NPC) QueueAction(name string, p Player, register bool) {
	a := n.host.CreateAction(name, n, p)
	if a == nil {
		return
	}
	n.actions = append(n.actions, a)
	if register {
		n.host.RegisterUpdate(n)
	}
}

// RunActions invokes every queued action in order and empties the queue.
// Actions queued while running are kept for the next flush.
func (n *NPC) RunActions() {
	pending := n.actions
	n.actions = nil
	for _, a := range pending {
		a.Invoke()
	}
}

// PendingActions returns the number of queued actions.
func (n *NPC) PendingActions() int { return len(n.actions) }
