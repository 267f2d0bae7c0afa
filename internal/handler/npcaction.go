package handler

import (
	"github.com/gs2go/npcserver/internal/net"
	"github.com/gs2go/npcserver/internal/net/packet"
	"go.uber.org/zap"
)

// HandleNpcAction processes PLI_NPCACTION: [D npcID][S8 action].
// The action is queued on the NPC with the session as the triggering
// player and runs on the next update phase.
func HandleNpcAction(sess *net.Session, r *packet.Reader, deps *Deps) {
	id := r.ReadD()
	action := r.ReadS8()
	if r.Err() != nil || action == "" {
		return
	}
	n := deps.World.NPC(id)
	if n == nil || !deps.World.InView(deps.World.LevelOf(sess.ID), n) {
		deps.Log.Debug("NPC 動作目標無效",
			zap.Uint64("session", sess.ID),
			zap.Int32("npc", id),
			zap.String("action", action),
		)
		return
	}
	n.QueueAction(action, sess, true)
}
