package npc

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fullStream encodes every known property of n for v.
func fullStream(n *NPC, v ClientVersion) []byte {
	var b []byte
	for id := Prop(0); id < maxProp(v); id++ {
		if !Known(id) {
			continue
		}
		b = append(b, byte(id))
		b = append(b, n.Encode(id, v)...)
	}
	return b
}

func TestApplyUnknownIDAborts(t *testing.T) {
	n := New(Config{ID: 1})
	stream := []byte{byte(PropVisFlags), 0x01, 0xFF, byte(PropMessage), 2, 'h', 'i'}
	out := n.Apply(stream, Version2_1, false)
	if !bytes.Equal(out, []byte{byte(PropVisFlags), 0x01}) {
		t.Fatalf("accepted = %v", out)
	}
	if n.Message != "" {
		t.Fatalf("property after unknown id applied: %q", n.Message)
	}
}

func TestApplyBlockedPosition(t *testing.T) {
	n := New(Config{ID: 1, X: 10, Y: 10})
	n.BlockPositionUpdates = true

	out := n.Apply([]byte{byte(PropX), 0x10}, Version2_1, false)
	if len(out) != 0 {
		t.Fatalf("accepted = %v", out)
	}
	if n.X() != 10 {
		t.Fatalf("x moved to %v", n.X())
	}

	out = n.Apply([]byte{byte(PropX2), 0x10, 0x00, byte(PropVisFlags), 0}, Version2_1, false)
	if !bytes.Equal(out, []byte{byte(PropVisFlags), 0}) {
		t.Fatalf("stream misaligned after blocked x2: %v", out)
	}
	if n.X() != 10 {
		t.Fatalf("x moved to %v", n.X())
	}
}

func TestApplyIDNeverChanges(t *testing.T) {
	n := New(Config{ID: 9})
	out := n.Apply([]byte{byte(PropID), 0xE7, 0x03, 0, 0, byte(PropPower), 3}, Version2_1, false)
	if n.ID() != 9 {
		t.Fatalf("id = %d", n.ID())
	}
	if !bytes.Equal(out, []byte{byte(PropPower), 3}) {
		t.Fatalf("accepted = %v", out)
	}
}

func TestApplyStampsOnlyChanges(t *testing.T) {
	clock := &testClock{unix: 100}
	n, _ := newTestNPC(t, clock, nil)

	clock.unix = 200
	n.Apply([]byte{byte(PropVisFlags), VisFlagVisible}, Version2_1, false)
	if got := n.ModTime(PropVisFlags); got != 100 {
		t.Fatalf("identical write stamped: %d", got)
	}
	n.Apply([]byte{byte(PropVisFlags), 0}, Version2_1, false)
	if got := n.ModTime(PropVisFlags); got != 200 {
		t.Fatalf("change not stamped: %d", got)
	}

	clock.unix = 300
	n.Apply([]byte{byte(PropX), 20}, Version1_411, false)
	if n.ModTime(PropX) != 300 || n.ModTime(PropX2) != 300 {
		t.Fatalf("x stamps = %d,%d", n.ModTime(PropX), n.ModTime(PropX2))
	}
}

func TestApplyIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, v := range []ClientVersion{Version1_411, Version2_1, VersionGeneric} {
		t.Run(v.String(), func(t *testing.T) {
			src := New(Config{ID: 1})
			randomize(src, rng)
			stream := fullStream(src, v)

			clock := &testClock{unix: 100}
			dst := New(Config{ID: 2, Clock: clock.Now})
			first := dst.Apply(stream, v, false)
			state := dst.SnapshotSince(0, v)
			stamps := dst.modTime

			clock.unix = 200
			second := dst.Apply(stream, v, false)
			if !bytes.Equal(first, second) {
				t.Fatal("second apply accepted different bytes")
			}
			if !bytes.Equal(state, dst.SnapshotSince(0, v)) {
				t.Fatal("second apply changed state")
			}
			if stamps != dst.modTime {
				t.Fatal("second apply advanced timestamps")
			}
		})
	}
}

func TestApplyForward(t *testing.T) {
	clock := &testClock{unix: 1}
	n, lvl := newTestNPC(t, clock, nil)

	n.Apply([]byte{byte(PropPower), 5}, Version2_1, true)
	if len(lvl.broadcasts) != 1 {
		t.Fatalf("broadcasts = %d", len(lvl.broadcasts))
	}
	pkt := lvl.broadcasts[0]
	if pkt[0] != 3 || binary.LittleEndian.Uint32(pkt[1:5]) != 7 {
		t.Fatalf("envelope = %v", pkt[:5])
	}
	if !bytes.Equal(pkt[5:], []byte{byte(PropPower), 5}) {
		t.Fatalf("payload = %v", pkt[5:])
	}

	n.Apply([]byte{0xFF}, Version2_1, true)
	n.Apply([]byte{byte(PropPower), 6}, Version2_1, false)
	if len(lvl.broadcasts) != 1 {
		t.Fatalf("unexpected broadcast: %d", len(lvl.broadcasts))
	}
}

func TestSnapshotMonotonic(t *testing.T) {
	clock := &testClock{unix: 100}
	n, _ := newTestNPC(t, clock, nil)
	clock.unix = 200
	n.Apply([]byte{byte(PropPower), 1, byte(PropMessage), 1, 'a'}, Version2_1, false)
	clock.unix = 300
	n.Apply([]byte{byte(PropRupees), 1, 0, 0, 0, byte(PropMessage), 1, 'b'}, Version2_1, false)

	for _, v := range []ClientVersion{Version1_411, Version2_1} {
		var prev map[Prop][]byte
		for _, since := range []int64{0, 150, 250, 350} {
			_, cur := entries(t, n.SnapshotSince(since, v), v)
			if prev != nil {
				for id := range cur {
					if _, ok := prev[id]; !ok {
						t.Fatalf("%s: since %d has %s missing from an earlier snapshot", v, since, id)
					}
				}
			}
			prev = cur
		}
	}

	_, late := entries(t, n.SnapshotSince(250, Version2_1), Version2_1)
	if len(late) != 2 || late[PropRupees] == nil || late[PropMessage] == nil {
		t.Fatalf("since 250 = %v", late)
	}
}

func TestSnapshotLegacyPrefix(t *testing.T) {
	n := New(Config{ID: 1})
	ids, _ := entries(t, n.SnapshotSince(0, Version1_411), Version1_411)
	for _, id := range ids {
		if id >= legacyPropCount {
			t.Fatalf("legacy snapshot carries %s", id)
		}
	}
	_, modern := entries(t, n.SnapshotSince(0, Version2_1), Version2_1)
	if modern[PropX2] == nil || modern[PropGmapLevelX] == nil {
		t.Fatal("modern snapshot misses x2 or gmaplevelx")
	}
}

func TestSnapshotAlwaysVisibleFirstSync(t *testing.T) {
	clock := &testClock{unix: 100}
	n, _ := newTestNPC(t, clock, func(c *Config) {
		c.Settings.AlwaysVisibleFirstSync = true
	})
	n.Apply([]byte{byte(PropVisFlags), VisFlagDrawOver}, Version2_1, false)

	_, first := entries(t, n.SnapshotSince(0, Version2_1), Version2_1)
	if got := first[PropVisFlags]; len(got) != 1 || got[0] != VisFlagDrawOver|VisFlagVisible {
		t.Fatalf("first sync visflags = %v", got)
	}
	_, later := entries(t, n.SnapshotSince(50, Version2_1), Version2_1)
	if got := later[PropVisFlags]; len(got) != 1 || got[0] != VisFlagDrawOver {
		t.Fatalf("delta visflags = %v", got)
	}
	if n.VisFlags != VisFlagDrawOver {
		t.Fatal("snapshot changed stored visflags")
	}
}

func TestSnapshotIdleSynthesis(t *testing.T) {
	clock := &testClock{unix: 100}
	n, _ := newTestNPC(t, clock, func(c *Config) { c.Image = ImageScripted })

	_, modern := entries(t, n.SnapshotSince(0, Version2_1), Version2_1)
	if got := modern[PropGani]; string(got) != "\x04idle" {
		t.Fatalf("gani = %q", got)
	}
	_, legacy := entries(t, n.SnapshotSince(0, Version1_411), Version1_411)
	if _, ok := legacy[PropGani]; ok {
		t.Fatal("legacy snapshot synthesized gani")
	}

	plain := New(Config{ID: 2, Image: "door.png"})
	_, other := entries(t, plain.SnapshotSince(0, Version2_1), Version2_1)
	if _, ok := other[PropGani]; ok {
		t.Fatal("gani synthesized for non-scripted image")
	}

	n.Apply([]byte{byte(PropGani), 3, 'r', 'u', 'n'}, Version2_1, false)
	ids, set := entries(t, n.SnapshotSince(0, Version2_1), Version2_1)
	count := 0
	for _, id := range ids {
		if id == PropGani {
			count++
		}
	}
	if count != 1 || string(set[PropGani]) != "\x03run" {
		t.Fatalf("gani entries = %d value %q", count, set[PropGani])
	}
}

func TestRestore(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	src := New(Config{ID: 1})
	randomize(src, rng)
	src.ServerScript = "server-side"
	src.ServerScriptFormatted = "server-side\xa7"
	for id := Prop(0); id < PropCount; id++ {
		src.modTime.Touch(id, 10)
	}
	blob := src.Snapshot()

	dst := New(Config{ID: 2, Script: "own script"})
	dst.BlockPositionUpdates = true
	dst.Restore(blob)

	if dst.PixelX() != src.PixelX() || dst.PixelY() != src.PixelY() {
		t.Fatal("position not restored")
	}
	if dst.Message != src.Message || dst.Saves != src.Saves || dst.Attrs != src.Attrs {
		t.Fatal("props not restored")
	}
	if dst.ClientScript != "own script" {
		t.Fatalf("script overwritten: %q", dst.ClientScript)
	}
	if dst.ID() != 2 {
		t.Fatal("id overwritten")
	}
}

func TestApplyAbortDiagnostic(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := New(Config{ID: 5, X: 3, Y: 4, Log: zap.New(core)})
	n.Apply([]byte{byte(PropVisFlags), 0x01, 0xFF}, Version2_1, false)

	logged := logs.FilterMessage("NPC 屬性串流解析中止").All()
	if len(logged) != 1 {
		t.Fatalf("diagnostics = %d", len(logged))
	}
	ctx := logged[0].ContextMap()
	if ctx["prop"] != uint8(0xFF) || ctx["npc"] != int32(5) {
		t.Fatalf("prop=%v npc=%v", ctx["prop"], ctx["npc"])
	}
	if ctx["x"] != float64(3) || ctx["y"] != float64(4) {
		t.Fatalf("position = %v,%v", ctx["x"], ctx["y"])
	}
	if ctx["rest"] != "ff" {
		t.Fatalf("rest = %v", ctx["rest"])
	}
}

func TestApplyOversizedClientScriptWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := New(Config{ID: 1, Log: zap.New(core)})

	code := strings.Repeat("x", maxLegacyScriptLen+1)
	stream := []byte{byte(PropScript)}
	stream = binary.LittleEndian.AppendUint16(stream, uint16(len(code)))
	stream = append(stream, code...)
	n.Apply(stream, Version2_1, false)

	if n.ClientScript != code {
		t.Fatalf("client script length %d", len(n.ClientScript))
	}
	logged := logs.FilterMessage("客戶端腳本超過舊版客戶端上限").All()
	if len(logged) != 1 {
		t.Fatalf("warnings = %d", len(logged))
	}
	if got := logged[0].ContextMap()["size"]; got != int64(len(code)) {
		t.Fatalf("size = %v", got)
	}
}

func TestSnapshotStoresHiddenNPC(t *testing.T) {
	clock := &testClock{unix: 100}
	n, _ := newTestNPC(t, clock, func(c *Config) {
		c.Settings.AlwaysVisibleFirstSync = true
	})
	clock.unix = 200
	n.Modify(PropVisFlags, func() { n.VisFlags = 0 })

	_, first := entries(t, n.SnapshotSince(0, Version2_1), Version2_1)
	if got := first[PropVisFlags]; len(got) != 1 || got[0] != VisFlagVisible {
		t.Fatalf("first sync visflags = %v", got)
	}

	dst, _ := newTestNPC(t, clock, func(c *Config) {
		c.Settings.AlwaysVisibleFirstSync = true
	})
	dst.Restore(n.Snapshot())
	if dst.VisFlags != 0 {
		t.Fatalf("restored visflags = %d", dst.VisFlags)
	}
}

func TestSnapshotSkipsIdleSynthesis(t *testing.T) {
	n := New(Config{ID: 1, Image: ImageScripted})
	dst := New(Config{ID: 2})
	dst.Restore(n.Snapshot())
	if dst.ModTime(PropGani) != 0 {
		t.Fatal("restore stamped a synthesized gani")
	}
}

func TestSnapshotKeepsBow(t *testing.T) {
	src := New(Config{ID: 1})
	src.Apply([]byte{byte(PropGani), 3}, Version1_411, false)
	dst := New(Config{ID: 2})
	dst.Restore(src.Snapshot())
	if dst.BowPower != 3 || dst.BowImage != "" {
		t.Fatalf("bow = %d %q", dst.BowPower, dst.BowImage)
	}

	src.Apply([]byte{byte(PropGani), 13, 'a', 'r', 'c'}, Version1_411, false)
	src.Apply([]byte{byte(PropGani), 4, 'w', 'a', 'l', 'k'}, Version2_1, false)
	dst = New(Config{ID: 3})
	dst.Restore(src.Snapshot())
	if dst.BowImage != "arc.gif" || dst.Gani != "walk" {
		t.Fatalf("bow image %q gani %q", dst.BowImage, dst.Gani)
	}

	plain := New(Config{ID: 4}).Snapshot()
	size := binary.LittleEndian.Uint32(plain)
	if int(size) != len(plain)-4 {
		t.Fatalf("bow entry stored without a bow: %d of %d", size, len(plain))
	}
}

func TestRestoreMalformedBlob(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := New(Config{ID: 1, Image: "door.png", Log: zap.New(core)})
	n.Restore([]byte{0xFF})
	n.Restore([]byte{0x09, 0, 0, 0, byte(PropImage)})
	if n.Image != "door.png" {
		t.Fatalf("image = %q", n.Image)
	}
	if got := logs.FilterMessage("NPC 存檔格式錯誤").Len(); got != 2 {
		t.Fatalf("warnings = %d", got)
	}
}
