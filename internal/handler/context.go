package handler

import (
	"github.com/gs2go/npcserver/internal/config"
	"github.com/gs2go/npcserver/internal/net"
	"github.com/gs2go/npcserver/internal/net/packet"
	"github.com/gs2go/npcserver/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config *config.Config
	Log    *zap.Logger
	World  *world.State
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	// Handshake phase
	reg.Register(packet.PLI_VERSION, "version",
		[]packet.SessionState{packet.StateHandshake},
		func(sess any, r *packet.Reader) {
			HandleVersion(sess.(*net.Session), r, deps)
		},
	)

	// Level entry is allowed again while in a level (warp)
	reg.Register(packet.PLI_LEVELENTER, "levelenter",
		[]packet.SessionState{packet.StateVersionOK, packet.StateInLevel},
		func(sess any, r *packet.Reader) {
			HandleLevelEnter(sess.(*net.Session), r, deps)
		},
	)

	inLevel := []packet.SessionState{packet.StateInLevel}

	reg.Register(packet.PLI_NPCPROPS, "npcprops", inLevel,
		func(sess any, r *packet.Reader) {
			HandleNpcProps(sess.(*net.Session), r, deps)
		},
	)
	reg.Register(packet.PLI_NPCACTION, "npcaction", inLevel,
		func(sess any, r *packet.Reader) {
			HandleNpcAction(sess.(*net.Session), r, deps)
		},
	)
}
