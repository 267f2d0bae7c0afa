package handler

import (
	"bytes"
	"encoding/binary"
	gonet "net"
	"testing"

	"github.com/gs2go/npcserver/internal/config"
	"github.com/gs2go/npcserver/internal/core/event"
	"github.com/gs2go/npcserver/internal/net"
	"github.com/gs2go/npcserver/internal/net/packet"
	"github.com/gs2go/npcserver/internal/npc"
	"github.com/gs2go/npcserver/internal/world"
	"go.uber.org/zap"
)

type fixture struct {
	reg   *packet.Registry
	deps  *Deps
	sess  *net.Session
	world *world.State
	bus   *event.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, server := gonet.Pipe()
	t.Cleanup(func() { client.Close() })

	bus := event.NewBus()
	st := world.NewState(nil, bus, zap.NewNop())
	deps := &Deps{Config: &config.Config{}, Log: zap.NewNop(), World: st}
	reg := packet.NewRegistry(zap.NewNop())
	RegisterAll(reg, deps)

	sess := net.NewSession(server, 1, net.SessionOptions{InSize: 4, OutSize: 64}, zap.NewNop())
	t.Cleanup(sess.Close)
	return &fixture{reg: reg, deps: deps, sess: sess, world: st, bus: bus}
}

func (f *fixture) dispatch(t *testing.T, pkt []byte) error {
	t.Helper()
	return f.reg.Dispatch(f.sess, f.sess.State(), pkt)
}

// drain flushes the session and returns every packet it queued.
func (f *fixture) drain() [][]byte {
	f.sess.FlushOutput()
	var out [][]byte
	for {
		select {
		case pkt := <-f.sess.OutQueue:
			out = append(out, pkt)
		default:
			return out
		}
	}
}

func versionPacket(v npc.ClientVersion) []byte {
	w := packet.NewWriterWithOpcode(packet.PLI_VERSION)
	w.WriteH(uint16(v))
	return w.Bytes()
}

func enterPacket(level string, since uint32) []byte {
	w := packet.NewWriterWithOpcode(packet.PLI_LEVELENTER)
	w.WriteS8(level)
	w.WriteDU(since)
	return w.Bytes()
}

func propsPacket(id int32, stream ...byte) []byte {
	w := packet.NewWriterWithOpcode(packet.PLI_NPCPROPS)
	w.WriteD(id)
	w.WriteBytes(stream)
	return w.Bytes()
}

func actionPacket(id int32, action string) []byte {
	w := packet.NewWriterWithOpcode(packet.PLI_NPCACTION)
	w.WriteD(id)
	w.WriteS8(action)
	return w.Bytes()
}

func TestRegisterAll(t *testing.T) {
	f := newFixture(t)
	if f.reg.Len() != 4 {
		t.Fatalf("registered %d handlers", f.reg.Len())
	}
}

func TestVersion(t *testing.T) {
	f := newFixture(t)
	if err := f.dispatch(t, versionPacket(npc.Version2_1)); err != nil {
		t.Fatal(err)
	}
	if f.sess.Version != npc.Version2_1 || f.sess.State() != packet.StateVersionOK {
		t.Fatalf("version=%v state=%v", f.sess.Version, f.sess.State())
	}
	if err := f.dispatch(t, versionPacket(npc.Version2_1)); err == nil {
		t.Fatal("second version packet accepted")
	}
}

func TestVersionRejectsUnknown(t *testing.T) {
	f := newFixture(t)
	if err := f.dispatch(t, versionPacket(npc.ClientVersion(999))); err != nil {
		t.Fatal(err)
	}
	if !f.sess.IsClosed() {
		t.Fatal("unknown version kept the session open")
	}
}

func TestLevelEnterSendsSnapshots(t *testing.T) {
	f := newFixture(t)
	sign := f.world.CreateNPC("sign", "house.nw", false, npc.Config{Image: "sign.png", X: 3, Y: 4})
	f.world.CreateNPC("", "elsewhere.nw", false, npc.Config{})

	f.dispatch(t, versionPacket(npc.Version2_1))
	if err := f.dispatch(t, enterPacket("house.nw", 0)); err != nil {
		t.Fatal(err)
	}
	if f.sess.State() != packet.StateInLevel || f.sess.LevelName != "house.nw" {
		t.Fatalf("state=%v level=%q", f.sess.State(), f.sess.LevelName)
	}

	out := f.drain()
	if len(out) != 2 {
		t.Fatalf("sent %d packets", len(out))
	}
	if !bytes.Equal(out[0], append([]byte{packet.PLO_LEVELNAME, 8}, "house.nw"...)) {
		t.Fatalf("level name = %v", out[0])
	}
	want := npc.PropsPacket(sign.ID(), sign.SnapshotSince(0, npc.Version2_1))
	if !bytes.Equal(out[1], want) {
		t.Fatalf("snapshot = %v", out[1])
	}
}

func TestNpcPropsForwarded(t *testing.T) {
	f := newFixture(t)
	n := f.world.CreateNPC("sign", "house.nw", false, npc.Config{})
	f.dispatch(t, versionPacket(npc.Version2_1))
	f.dispatch(t, enterPacket("house.nw", 0))
	f.drain()

	if err := f.dispatch(t, propsPacket(n.ID(), byte(npc.PropMessage), 2, 'h', 'i')); err != nil {
		t.Fatal(err)
	}
	if n.Message != "hi" {
		t.Fatalf("message = %q", n.Message)
	}
	if f.bus.Pending() != 1 {
		t.Fatalf("change events = %d", f.bus.Pending())
	}
	out := f.drain()
	if len(out) != 1 || out[0][0] != packet.PLO_NPCPROPS {
		t.Fatalf("forwarded = %v", out)
	}
	if int32(binary.LittleEndian.Uint32(out[0][1:5])) != n.ID() {
		t.Fatal("forward for wrong npc")
	}
}

func TestNpcPropsOutOfView(t *testing.T) {
	f := newFixture(t)
	far := f.world.CreateNPC("far", "cave.nw", false, npc.Config{})
	f.dispatch(t, versionPacket(npc.Version2_1))
	f.dispatch(t, enterPacket("house.nw", 0))
	f.drain()

	f.dispatch(t, propsPacket(far.ID(), byte(npc.PropMessage), 1, 'x'))
	if far.Message != "" || f.bus.Pending() != 0 {
		t.Fatal("npc on another level modified")
	}
	f.dispatch(t, propsPacket(12345, byte(npc.PropMessage), 1, 'x'))
	if len(f.drain()) != 0 {
		t.Fatal("packets sent for rejected writes")
	}
}

func TestNpcPropsNeedsLevel(t *testing.T) {
	f := newFixture(t)
	n := f.world.CreateNPC("", "house.nw", false, npc.Config{})
	f.dispatch(t, versionPacket(npc.Version2_1))
	if err := f.dispatch(t, propsPacket(n.ID(), byte(npc.PropMessage), 1, 'x')); err == nil {
		t.Fatal("props accepted before level entry")
	}
}

type queueHost struct{ created []string }

func (h *queueHost) RegisterTimer(*npc.NPC)    {}
func (h *queueHost) UnregisterTimer(*npc.NPC)  {}
func (h *queueHost) RegisterUpdate(*npc.NPC)   {}
func (h *queueHost) UnregisterUpdate(*npc.NPC) {}

func (h *queueHost) CreateAction(name string, n *npc.NPC, p npc.Player) npc.Action {
	h.created = append(h.created, name)
	return namedAction(name)
}

type namedAction string

func (a namedAction) Name() string { return string(a) }
func (a namedAction) Invoke()      {}

func TestNpcActionQueued(t *testing.T) {
	f := newFixture(t)
	host := &queueHost{}
	n := f.world.CreateNPC("", "house.nw", false, npc.Config{Host: host})
	f.dispatch(t, versionPacket(npc.Version2_1))
	f.dispatch(t, enterPacket("house.nw", 0))

	f.dispatch(t, actionPacket(n.ID(), "playertouchsme"))
	f.dispatch(t, actionPacket(n.ID(), ""))
	f.dispatch(t, actionPacket(n.ID()+1000, "created"))
	if n.PendingActions() != 1 || len(host.created) != 1 || host.created[0] != "playertouchsme" {
		t.Fatalf("pending = %d created = %v", n.PendingActions(), host.created)
	}
}
