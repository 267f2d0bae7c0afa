package npc

import (
	"bytes"
	"encoding/hex"

	"github.com/gs2go/npcserver/internal/net/packet"
	"go.uber.org/zap"
)

// SnapshotSince returns every property changed at or after since, encoded
// for version v. since == 0 requests a first sync.
func (n *NPC) SnapshotSince(since int64, v ClientVersion) []byte {
	return n.snapshot(since, v, true)
}

// snapshot encodes the properties changed at or after since. Client
// snapshots carry the first-sync visibility override and the synthesized
// idle gani; stored snapshots carry the NPC's own state only.
func (n *NPC) snapshot(since int64, v ClientVersion, client bool) []byte {
	w := packet.NewWriter()
	last := maxProp(v)
	for id := Prop(0); id < last; id++ {
		if !Known(id) || !n.modTime.Since(id, since) {
			continue
		}
		w.WriteC(byte(id))
		if client && id == PropVisFlags && since == 0 && n.settings.AlwaysVisibleFirstSync {
			w.WriteC(n.VisFlags | VisFlagVisible)
			continue
		}
		n.encodeTo(w, id, v)
	}

	if client && v > Version1_411 && n.modTime.Get(PropGani) == 0 && n.Image == ImageScripted {
		w.WriteC(byte(PropGani))
		w.WriteS8("idle")
	}
	return w.Bytes()
}

// bowVersion is the client generation whose GANI payload carries the bow.
const bowVersion = Version1_411

// Snapshot returns the NPC's state for storage: a u32 length, every
// property encoded for VersionGeneric, then the pre-2.1 bow entry when a
// bow is set. Restore reads it back.
func (n *NPC) Snapshot() []byte {
	props := n.snapshot(0, VersionGeneric, false)
	w := packet.NewWriter()
	w.WriteDU(uint32(len(props)))
	w.WriteBytes(props)
	if n.BowPower != 0 || n.BowImage != "" {
		w.WriteC(byte(PropGani))
		n.encodeTo(w, PropGani, bowVersion)
	}
	return w.Bytes()
}

// Apply decodes a property stream sent by a client of version v and
// returns the accepted properties re-encoded for v. With forward set the
// accepted properties are broadcast to the NPC's level.
//
// Decoding stops at the first unknown id or truncated payload; whatever
// was accepted before that point stays applied.
func (n *NPC) Apply(stream []byte, v ClientVersion, forward bool) []byte {
	out := n.applyStream(stream, v, false)
	if forward && len(out) > 0 && n.level != nil {
		n.level.Broadcast(PropsPacket(n.id, out))
	}
	return out
}

// Restore re-applies a blob written by Snapshot. Position blocking does
// not apply and the script entry is skipped: the script always comes from
// the NPC's definition.
func (n *NPC) Restore(blob []byte) {
	r := packet.NewStreamReader(blob)
	size := r.ReadDU()
	if r.Err() != nil || uint64(size) > uint64(r.Remaining()) {
		n.log.Warn("NPC 存檔格式錯誤", zap.Int("size", len(blob)))
		return
	}
	n.applyStream(r.ReadBytes(int(size)), VersionGeneric, true)
	if r.Remaining() > 0 {
		n.applyStream(r.Rest(), bowVersion, true)
	}
}

func (n *NPC) applyStream(stream []byte, v ClientVersion, restore bool) []byte {
	r := packet.NewStreamReader(stream)
	w := packet.NewWriter()
	now := n.clock().Unix()

	for r.Remaining() > 0 {
		start := r.Offset()
		id := Prop(r.ReadC())
		apply, err := n.decode(r, id, v)
		if err != nil {
			n.log.Warn("NPC 屬性串流解析中止",
				zap.Uint8("prop", uint8(id)),
				zap.Float64("x", n.X()),
				zap.Float64("y", n.Y()),
				zap.String("rest", hex.EncodeToString(stream[start:])),
				zap.Error(err),
			)
			break
		}
		if apply == nil {
			continue
		}
		if restore && id == PropScript {
			continue
		}
		if !restore && n.BlockPositionUpdates && isPosition(id) {
			continue
		}

		family := propFamily(id)
		before := n.encodeAll(family, v)
		apply()
		if !bytes.Equal(before, n.encodeAll(family, v)) {
			for _, p := range family {
				n.modTime.Touch(p, now)
			}
		}
		w.WriteC(byte(id))
		n.encodeTo(w, id, v)
	}
	return w.Bytes()
}

// PropsPacket wraps a property stream in the PLO_NPCPROPS envelope.
func PropsPacket(id int32, stream []byte) []byte {
	w := packet.NewWriterWithOpcode(packet.PLO_NPCPROPS)
	w.WriteD(id)
	w.WriteBytes(stream)
	return w.Bytes()
}

func isPosition(id Prop) bool {
	switch id {
	case PropX, PropY, PropX2, PropY2:
		return true
	}
	return false
}

// propFamily lists the ids sharing id's storage. Both position encodings
// read the same coordinate, so a change through one stamps the other.
func propFamily(id Prop) []Prop {
	switch id {
	case PropX, PropX2:
		return []Prop{PropX, PropX2}
	case PropY, PropY2:
		return []Prop{PropY, PropY2}
	}
	return []Prop{id}
}

func (n *NPC) encodeAll(ids []Prop, v ClientVersion) []byte {
	w := packet.NewWriter()
	for _, id := range ids {
		n.encodeTo(w, id, v)
	}
	return w.Bytes()
}
