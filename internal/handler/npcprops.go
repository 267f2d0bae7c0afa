package handler

import (
	"github.com/gs2go/npcserver/internal/net"
	"github.com/gs2go/npcserver/internal/net/packet"
	"go.uber.org/zap"
)

// HandleNpcProps processes PLI_NPCPROPS: [D npcID][prop stream].
// Accepted properties are forwarded to everyone watching the NPC's level.
func HandleNpcProps(sess *net.Session, r *packet.Reader, deps *Deps) {
	id := r.ReadD()
	if r.Err() != nil {
		return
	}
	n := deps.World.NPC(id)
	if n == nil {
		deps.Log.Debug("NPC 不存在", zap.Uint64("session", sess.ID), zap.Int32("npc", id))
		return
	}
	if !deps.World.InView(deps.World.LevelOf(sess.ID), n) {
		deps.Log.Warn("修改視野外的 NPC",
			zap.Uint64("session", sess.ID),
			zap.Int32("npc", id),
			zap.String("level", sess.LevelName),
		)
		return
	}

	if accepted := n.Apply(r.Rest(), sess.Version, true); len(accepted) > 0 {
		deps.World.MarkChanged(n)
	}
}
