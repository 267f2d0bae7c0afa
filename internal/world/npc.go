package world

import (
	"sync/atomic"

	"github.com/gs2go/npcserver/internal/npc"
)

// npcIDCounter generates unique NPC IDs.
// Starts at 10_000 to stay clear of ids reserved by level files.
var npcIDCounter atomic.Int32

func init() {
	npcIDCounter.Store(10_000)
}

// NextNpcID returns a unique ID for a new NPC.
func NextNpcID() int32 {
	return npcIDCounter.Add(1)
}

// NpcInfo is the world's bookkeeping for one NPC.
// Accessed only from the game loop goroutine; no locks.
type NpcInfo struct {
	NPC   *npc.NPC
	Key   string // data table key; persisted NPCs are saved under it
	Level *Level

	Persist bool
}
