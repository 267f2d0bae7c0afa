package system

import (
	"time"

	coresys "github.com/gs2go/npcserver/internal/core/system"
	"github.com/gs2go/npcserver/internal/npc"
	"go.uber.org/zap"
)

// ActionFactory turns an event name into a script callback.
type ActionFactory interface {
	NewAction(name string, n *npc.NPC, p npc.Player) npc.Action
}

// registry is an insertion-ordered set of NPCs.
type registry struct {
	set   map[*npc.NPC]struct{}
	order []*npc.NPC
}

func newRegistry() registry {
	return registry{set: make(map[*npc.NPC]struct{})}
}

func (r *registry) add(n *npc.NPC) {
	if _, ok := r.set[n]; ok {
		return
	}
	r.set[n] = struct{}{}
	r.order = append(r.order, n)
}

func (r *registry) remove(n *npc.NPC) {
	if _, ok := r.set[n]; !ok {
		return
	}
	delete(r.set, n)
	for i, o := range r.order {
		if o == n {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// take empties the registry and returns its members in order.
func (r *registry) take() []*npc.NPC {
	out := r.order
	r.order = nil
	clear(r.set)
	return out
}

func (r *registry) size() int { return len(r.order) }

// NpcScriptSystem is the NPCs' script host: it keeps the timer and update
// registries and runs them each tick. Phase 2 (Update).
type NpcScriptSystem struct {
	actions  ActionFactory
	interval time.Duration
	elapsed  time.Duration
	timers   registry
	updates  registry
	log      *zap.Logger
}

func NewNpcScriptSystem(actions ActionFactory, timerInterval time.Duration, log *zap.Logger) *NpcScriptSystem {
	if timerInterval <= 0 {
		timerInterval = 100 * time.Millisecond
	}
	return &NpcScriptSystem{
		actions:  actions,
		interval: timerInterval,
		timers:   newRegistry(),
		updates:  newRegistry(),
		log:      log,
	}
}

// SetActionFactory replaces the factory; the engine is built after the host.
func (s *NpcScriptSystem) SetActionFactory(f ActionFactory) { s.actions = f }

func (s *NpcScriptSystem) RegisterTimer(n *npc.NPC)    { s.timers.add(n) }
func (s *NpcScriptSystem) UnregisterTimer(n *npc.NPC)  { s.timers.remove(n) }
func (s *NpcScriptSystem) RegisterUpdate(n *npc.NPC)   { s.updates.add(n) }
func (s *NpcScriptSystem) UnregisterUpdate(n *npc.NPC) { s.updates.remove(n) }

func (s *NpcScriptSystem) CreateAction(name string, n *npc.NPC, p npc.Player) npc.Action {
	if s.actions == nil {
		return nil
	}
	return s.actions.NewAction(name, n, p)
}

// Timers and Updates return the registry sizes.
func (s *NpcScriptSystem) Timers() int  { return s.timers.size() }
func (s *NpcScriptSystem) Updates() int { return s.updates.size() }

func (s *NpcScriptSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *NpcScriptSystem) Update(dt time.Duration) {
	s.elapsed += dt
	for s.elapsed >= s.interval {
		s.elapsed -= s.interval
		s.runTimers()
	}
	s.runActions()
}

func (s *NpcScriptSystem) runTimers() {
	for _, n := range append([]*npc.NPC(nil), s.timers.order...) {
		if !n.RunTimer() {
			s.timers.remove(n)
		}
	}
}

// runActions flushes every NPC with queued actions. Actions queued while
// flushing wait for the next tick.
func (s *NpcScriptSystem) runActions() {
	batch := s.updates.take()
	for _, n := range batch {
		n.RunActions()
		if n.PendingActions() > 0 {
			s.updates.add(n)
		}
	}
	if len(batch) > 0 {
		s.log.Debug("NPC 動作已執行", zap.Int("npcs", len(batch)))
	}
}
