package world

import (
	"github.com/gs2go/npcserver/internal/core/event"
	"github.com/gs2go/npcserver/internal/data"
	"github.com/gs2go/npcserver/internal/net/packet"
	"github.com/gs2go/npcserver/internal/npc"
	"go.uber.org/zap"
)

// State is the registry of levels, NPCs and watching sessions.
// Accessed only from the game loop goroutine; no locks needed.
type State struct {
	levels     map[string]*Level
	gmapLevels map[string][]*Level
	npcs       map[int32]*NpcInfo
	byKey      map[string]*NpcInfo
	viewing    map[uint64]*Level // session → level

	maps *data.MapDataTable // nil = no gmaps
	bus  *event.Bus         // nil = no change events
	log  *zap.Logger
}

func NewState(maps *data.MapDataTable, bus *event.Bus, log *zap.Logger) *State {
	return &State{
		levels:     make(map[string]*Level),
		gmapLevels: make(map[string][]*Level),
		npcs:       make(map[int32]*NpcInfo),
		byKey:      make(map[string]*NpcInfo),
		viewing:    make(map[uint64]*Level),
		maps:       maps,
		bus:        bus,
		log:        log,
	}
}

// Level returns the named level, creating it on first use.
func (s *State) Level(name string) *Level {
	if l, ok := s.levels[name]; ok {
		return l
	}
	l := &Level{name: name, viewers: make(map[uint64]Viewer), state: s}
	if s.maps != nil {
		if gmap, x, y, ok := s.maps.Position(name); ok {
			l.gmap, l.gx, l.gy = gmap, x, y
			s.gmapLevels[gmap] = append(s.gmapLevels[gmap], l)
		}
	}
	s.levels[name] = l
	return l
}

// FindLevel returns the named level, or nil if it was never created.
func (s *State) FindLevel(name string) *Level {
	return s.levels[name]
}

// CreateNPC builds an NPC on levelName and registers it. The ID and the
// level in cfg are filled in here.
func (s *State) CreateNPC(key, levelName string, persist bool, cfg npc.Config) *npc.NPC {
	l := s.Level(levelName)
	cfg.ID = NextNpcID()
	cfg.Level = l
	n := npc.New(cfg)

	info := &NpcInfo{NPC: n, Key: key, Level: l, Persist: persist}
	s.npcs[n.ID()] = info
	if key != "" {
		s.byKey[key] = info
	}
	l.npcs = append(l.npcs, n)

	s.log.Debug("NPC 已建立",
		zap.Int32("npc", n.ID()),
		zap.String("key", key),
		zap.String("level", levelName),
	)
	return n
}

// RemoveNPC unregisters an NPC, releases its script registrations and
// tells viewers to drop it.
func (s *State) RemoveNPC(id int32) {
	info, ok := s.npcs[id]
	if !ok {
		return
	}
	info.NPC.Close()
	info.Level.removeNPC(info.NPC)
	delete(s.npcs, id)
	if info.Key != "" {
		delete(s.byKey, info.Key)
	}

	w := packet.NewWriterWithOpcode(packet.PLO_NPCDEL)
	w.WriteD(id)
	info.Level.Broadcast(w.Bytes())
}

// NPC returns an NPC by ID, or nil if not found.
func (s *State) NPC(id int32) *npc.NPC {
	if info, ok := s.npcs[id]; ok {
		return info.NPC
	}
	return nil
}

// Info returns the bookkeeping record of an NPC, or nil.
func (s *State) Info(id int32) *NpcInfo {
	return s.npcs[id]
}

// ByKey returns the record of the NPC created from a data table key.
func (s *State) ByKey(key string) *NpcInfo {
	return s.byKey[key]
}

func (s *State) NpcCount() int {
	return len(s.npcs)
}

// AllNpcs calls fn for every registered NPC.
func (s *State) AllNpcs(fn func(*NpcInfo)) {
	for _, info := range s.npcs {
		fn(info)
	}
}

// Enter moves v onto levelName, leaving its previous level.
func (s *State) Enter(v Viewer, levelName string) *Level {
	s.Leave(v.SessionID())
	l := s.Level(levelName)
	l.viewers[v.SessionID()] = v
	s.viewing[v.SessionID()] = l
	return l
}

// Leave removes a session from whatever level it watches.
func (s *State) Leave(sessionID uint64) {
	if l, ok := s.viewing[sessionID]; ok {
		delete(l.viewers, sessionID)
		delete(s.viewing, sessionID)
	}
}

// LevelOf returns the level a session watches, or nil.
func (s *State) LevelOf(sessionID uint64) *Level {
	return s.viewing[sessionID]
}

// MarkChanged emits NpcPropsChanged for n.
func (s *State) MarkChanged(n *npc.NPC) {
	info, ok := s.npcs[n.ID()]
	if !ok || s.bus == nil {
		return
	}
	event.Emit(s.bus, event.NpcPropsChanged{NpcID: n.ID(), Level: info.Level.name})
}

// SendProps pushes the current value of ids to everyone watching n,
// encoded for each viewer's client version.
func (s *State) SendProps(n *npc.NPC, ids ...npc.Prop) {
	info, ok := s.npcs[n.ID()]
	if !ok {
		return
	}
	s.forEachViewer(info.Level, func(v Viewer) {
		ver := v.ClientVersion()
		w := packet.NewWriter()
		for _, id := range ids {
			if !ver.Knows(id) {
				continue
			}
			w.WriteC(byte(id))
			w.WriteBytes(n.Encode(id, ver))
		}
		if w.Len() > 0 {
			v.Send(npc.PropsPacket(n.ID(), w.Bytes()))
		}
	})
	s.MarkChanged(n)
}

// forEachViewer visits the viewers of l, or of every level on l's gmap.
func (s *State) forEachViewer(l *Level, fn func(Viewer)) {
	if l.gmap == "" {
		for _, v := range l.viewers {
			fn(v)
		}
		return
	}
	for _, gl := range s.gmapLevels[l.gmap] {
		for _, v := range gl.viewers {
			fn(v)
		}
	}
}

// NPCsInView returns the NPCs a session on l can see: the level's own, or
// every NPC on the gmap when l belongs to one.
func (s *State) NPCsInView(l *Level) []*npc.NPC {
	if l.gmap == "" {
		return l.npcs
	}
	var out []*npc.NPC
	for _, gl := range s.gmapLevels[l.gmap] {
		out = append(out, gl.npcs...)
	}
	return out
}

// InView reports whether a session watching l can see n.
func (s *State) InView(l *Level, n *npc.NPC) bool {
	info, ok := s.npcs[n.ID()]
	if !ok || l == nil {
		return false
	}
	return info.Level == l || (l.gmap != "" && info.Level.gmap == l.gmap)
}
