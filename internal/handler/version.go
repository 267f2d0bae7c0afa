package handler

import (
	"github.com/gs2go/npcserver/internal/net"
	"github.com/gs2go/npcserver/internal/net/packet"
	"github.com/gs2go/npcserver/internal/npc"
	"go.uber.org/zap"
)

// HandleVersion processes PLI_VERSION: [H clientVersion].
// Records the protocol generation used to encode everything sent to this
// session and transitions to VersionOK.
func HandleVersion(sess *net.Session, r *packet.Reader, deps *Deps) {
	v := npc.ClientVersion(r.ReadH())
	if r.Err() != nil || !v.Valid() {
		deps.Log.Warn("不支援的客戶端版本",
			zap.Uint64("session", sess.ID),
			zap.Uint16("version", uint16(v)),
		)
		sess.Close()
		return
	}

	sess.Version = v
	sess.SetState(packet.StateVersionOK)
	deps.Log.Debug("客戶端版本",
		zap.Uint64("session", sess.ID),
		zap.Stringer("version", v),
	)
}
