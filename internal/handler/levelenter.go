package handler

import (
	"github.com/gs2go/npcserver/internal/net"
	"github.com/gs2go/npcserver/internal/net/packet"
	"github.com/gs2go/npcserver/internal/npc"
	"go.uber.org/zap"
)

// HandleLevelEnter processes PLI_LEVELENTER: [S8 level][DU since].
// The session starts watching the level and receives every NPC's
// properties changed after since (0 = full first sync).
func HandleLevelEnter(sess *net.Session, r *packet.Reader, deps *Deps) {
	name := r.ReadS8()
	since := int64(r.ReadDU())
	if r.Err() != nil || name == "" {
		deps.Log.Debug("進入關卡封包格式錯誤", zap.Uint64("session", sess.ID))
		return
	}

	lvl := deps.World.Enter(sess, name)
	sess.LevelName = name
	sess.SetState(packet.StateInLevel)

	w := packet.NewWriterWithOpcode(packet.PLO_LEVELNAME)
	w.WriteS8(name)
	sess.Send(w.Bytes())

	sent := 0
	for _, n := range deps.World.NPCsInView(lvl) {
		snap := n.SnapshotSince(since, sess.Version)
		if len(snap) == 0 {
			continue
		}
		sess.Send(npc.PropsPacket(n.ID(), snap))
		sent++
	}

	deps.Log.Debug("進入關卡",
		zap.Uint64("session", sess.ID),
		zap.String("level", name),
		zap.Int64("since", since),
		zap.Int("npcs", sent),
	)
}
