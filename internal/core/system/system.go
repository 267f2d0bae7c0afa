package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain packet queues
	PhasePreUpdate               // 1: process last tick's events
	PhaseUpdate                  // 2: NPC timers and queued actions
	PhasePostUpdate              // 3: reserved
	PhaseOutput                  // 4: flush session output
	PhasePersist                 // 5: save dirty NPCs
	PhaseCleanup                 // 6: reserved
)

// System is one stage of the game loop.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
