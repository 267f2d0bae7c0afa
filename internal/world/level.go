package world

import (
	"github.com/gs2go/npcserver/internal/npc"
)

// Viewer is a connected client watching a level.
type Viewer interface {
	SessionID() uint64
	ClientVersion() npc.ClientVersion
	Send(pkt []byte)
}

// Level is one level file's worth of NPCs plus the sessions watching it.
// It implements npc.Level.
type Level struct {
	name   string
	gmap   string
	gx, gy byte

	sparringZone bool
	singleplayer bool

	npcs    []*npc.NPC
	viewers map[uint64]Viewer
	state   *State
}

func (l *Level) Name() string { return l.name }

// Gmap returns the gmap the level belongs to, or "".
func (l *Level) Gmap() string { return l.gmap }

func (l *Level) GmapPosition() (x, y byte, ok bool) {
	return l.gx, l.gy, l.gmap != ""
}

func (l *Level) SetSparringZone(on bool) { l.sparringZone = on }
func (l *Level) SparringZone() bool      { return l.sparringZone }
func (l *Level) SetSingleplayer(on bool) { l.singleplayer = on }
func (l *Level) Singleplayer() bool      { return l.singleplayer }

// Broadcast sends pkt to everyone watching the level, or the whole gmap
// when the level is part of one.
func (l *Level) Broadcast(pkt []byte) {
	l.state.forEachViewer(l, func(v Viewer) { v.Send(pkt) })
}

// NPCs returns the NPCs on the level in creation order.
func (l *Level) NPCs() []*npc.NPC { return l.npcs }

// ViewerCount returns the number of sessions on this level.
func (l *Level) ViewerCount() int { return len(l.viewers) }

func (l *Level) removeNPC(n *npc.NPC) {
	for i, o := range l.npcs {
		if o == n {
			l.npcs = append(l.npcs[:i], l.npcs[i+1:]...)
			return
		}
	}
}
