package npc

import (
	"errors"
	"fmt"
	"math"
	"path"
	"strconv"

	"github.com/gs2go/npcserver/internal/net/packet"
	"go.uber.org/zap"
)

// ErrUnknownProp is returned when a stream names an id with no decode rule.
var ErrUnknownProp = errors.New("unknown npc prop")

const (
	maxScriptLen  = 0x3FFF // u16-prefixed script field
	maxMessageLen = 200
	maxHeadName   = 0xFF - 100
	maxBowName    = 0xFF - 10

	swordPowerOffset  = 30
	shieldPowerOffset = 10
	headNameOffset    = 100
	bowNameOffset     = 10

	lastSwordCatalog  = 4
	lastShieldCatalog = 3
)

// Encode returns the payload of id as a client of version v expects it.
// Ids without a rule encode to nothing.
func (n *NPC) Encode(id Prop, v ClientVersion) []byte {
	w := packet.NewWriter()
	n.encodeTo(w, id, v)
	return w.Bytes()
}

func (n *NPC) encodeTo(w *packet.Writer, id Prop, v ClientVersion) {
	switch id {
	case PropImage:
		w.WriteS8(n.Image)

	case PropScript:
		if v == VersionGeneric {
			w.WriteDU(uint32(len(n.ServerScriptFormatted)))
			w.WriteString(n.ServerScriptFormatted)
			return
		}
		s := n.ClientScriptFormatted
		if len(s) > maxScriptLen {
			s = s[:maxScriptLen]
		}
		w.WriteH(uint16(len(s)))
		w.WriteString(s)

	case PropX:
		w.WriteC(halfTile(n.px))
	case PropY:
		w.WriteC(halfTile(n.py))

	case PropPower:
		w.WriteC(n.Power)
	case PropRupees:
		w.WriteDU(n.Rupees)
	case PropArrows:
		w.WriteC(n.Darts)
	case PropBombs:
		w.WriteC(n.Bombs)
	case PropGlovePower:
		w.WriteC(n.GlovePower)
	case PropBombPower:
		w.WriteC(n.BombPower)

	case PropSwordImage:
		if n.SwordPower == 0 {
			w.WriteC(0)
			return
		}
		w.WriteC(byte(n.SwordPower + swordPowerOffset))
		w.WriteS8(n.SwordImage)

	case PropShieldImage:
		if n.ShieldPower <= 0 {
			w.WriteC(0)
			return
		}
		w.WriteC(byte(n.ShieldPower + shieldPowerOffset))
		w.WriteS8(n.ShieldImage)

	case PropGani:
		if v.legacy() {
			if n.BowImage != "" {
				name := truncate(n.BowImage, maxBowName)
				w.WriteC(byte(len(name) + bowNameOffset))
				w.WriteString(name)
				return
			}
			w.WriteC(min(n.BowPower, bowNameOffset-1))
			return
		}
		w.WriteS8(n.Gani)

	case PropVisFlags:
		w.WriteC(n.VisFlags)
	case PropBlockFlags:
		w.WriteC(n.BlockFlags)

	case PropMessage:
		w.WriteS8(truncate(n.Message, maxMessageLen))

	case PropHurtDXDY:
		w.WriteC(hurtByte(n.HurtDX))
		w.WriteC(hurtByte(n.HurtDY))

	case PropID:
		w.WriteDU(uint32(n.id))

	case PropSprite:
		// Sprite once selected a frame; now it carries the direction in the
		// low two bits plus extra state above them.
		if v.legacy() {
			w.WriteC(n.Sprite)
		} else {
			w.WriteC(n.Sprite % 4)
		}

	case PropColors:
		w.WriteBytes(n.Colors[:])

	case PropNickname:
		w.WriteS8(n.Nickname)
	case PropHorseImage:
		w.WriteS8(n.HorseImage)

	case PropHeadImage:
		name := truncate(n.HeadImage, maxHeadName)
		w.WriteC(byte(len(name) + headNameOffset))
		w.WriteString(name)

	case PropAlignment:
		w.WriteC(n.Alignment)
	case PropImagePart:
		w.WriteBytes(n.ImagePart[:])
	case PropBodyImage:
		w.WriteS8(n.BodyImage)

	case PropGmapLevelX:
		w.WriteC(n.GmapLevelX)
	case PropGmapLevelY:
		w.WriteC(n.GmapLevelY)

	case PropClass:
		w.WriteH(0)

	case PropX2:
		w.WriteH(packPixels(n.px))
	case PropY2:
		w.WriteH(packPixels(n.py))

	default:
		if slot, ok := SaveSlot(id); ok {
			w.WriteC(n.Saves[slot])
		} else if slot, ok := AttrSlot(id); ok {
			w.WriteS8(n.Attrs[slot])
		}
	}
}

// decode reads the payload of id from r. It returns the state change
// without performing it; nil means the payload is consumed and ignored.
// Nothing is returned unless every field of the payload was present.
func (n *NPC) decode(r *packet.Reader, id Prop, v ClientVersion) (func(), error) {
	var apply func()

	switch id {
	case PropImage:
		img := withLegacyExt(r.ReadS8(), v)
		apply = func() { n.Image = img }

	case PropScript:
		if v == VersionGeneric {
			size := r.ReadDU()
			if uint64(size) > uint64(r.Remaining()) {
				return nil, fmt.Errorf("%s: %w", id, packet.ErrShortRead)
			}
			code := string(r.ReadBytes(int(size)))
			apply = func() {
				n.ServerScript = code
				n.ServerScriptFormatted = code
			}
			break
		}
		code := string(r.ReadBytes(int(r.ReadH())))
		apply = func() {
			n.ClientScript = code
			n.ClientScriptFormatted = code
			if len(code) > maxLegacyScriptLen {
				n.log.Warn("客戶端腳本超過舊版客戶端上限", zap.Int("size", len(code)))
			}
		}

	// A half-tile write that matches the current position keeps the
	// pixel-precise coordinate.
	case PropX:
		b := r.ReadC()
		apply = func() {
			if halfTile(n.px) != b {
				n.px = int(int8(b)) * 8
			}
		}
	case PropY:
		b := r.ReadC()
		apply = func() {
			if halfTile(n.py) != b {
				n.py = int(int8(b)) * 8
			}
		}

	case PropPower:
		b := r.ReadC()
		apply = func() { n.Power = b }
	case PropRupees:
		u := r.ReadDU()
		apply = func() { n.Rupees = u }
	case PropArrows:
		b := r.ReadC()
		apply = func() { n.Darts = b }
	case PropBombs:
		b := r.ReadC()
		apply = func() { n.Bombs = b }
	case PropGlovePower:
		b := r.ReadC()
		apply = func() { n.GlovePower = b }
	case PropBombPower:
		b := r.ReadC()
		apply = func() { n.BombPower = b }

	case PropSwordImage:
		sp := int(r.ReadC())
		var img string
		if sp <= lastSwordCatalog {
			img = "sword" + strconv.Itoa(sp) + imageExt(v)
		} else {
			sp -= swordPowerOffset
			img = withLegacyExt(r.ReadS8(), v)
		}
		apply = func() { n.SwordPower, n.SwordImage = sp, img }

	case PropShieldImage:
		sp := int(r.ReadC())
		var img string
		if sp <= lastShieldCatalog {
			img = "shield" + strconv.Itoa(sp) + imageExt(v)
		} else {
			sp -= shieldPowerOffset
			img = withLegacyExt(r.ReadS8(), v)
		}
		apply = func() { n.ShieldPower, n.ShieldImage = sp, img }

	case PropGani:
		if v.legacy() {
			b := r.ReadC()
			if b < bowNameOffset {
				apply = func() { n.BowPower, n.BowImage = b, "" }
				break
			}
			img := withLegacyExt(string(r.ReadBytes(int(b-bowNameOffset))), v)
			apply = func() { n.BowPower, n.BowImage = 0, img }
			break
		}
		gani := r.ReadS8()
		apply = func() { n.Gani = gani }

	case PropVisFlags:
		b := r.ReadC()
		apply = func() { n.VisFlags = b }
	case PropBlockFlags:
		b := r.ReadC()
		apply = func() { n.BlockFlags = b }

	case PropMessage:
		msg := r.ReadS8()
		apply = func() { n.Message = msg }

	case PropHurtDXDY:
		dx := hurtFloat(r.ReadC())
		dy := hurtFloat(r.ReadC())
		apply = func() { n.HurtDX, n.HurtDY = dx, dy }

	case PropID:
		r.ReadDU()

	case PropSprite:
		b := r.ReadC()
		apply = func() { n.Sprite = b }

	case PropColors:
		var c [5]byte
		copy(c[:], r.ReadBytes(len(c)))
		apply = func() { n.Colors = c }

	case PropNickname:
		s := r.ReadS8()
		apply = func() { n.Nickname = s }
	case PropHorseImage:
		img := withLegacyExt(r.ReadS8(), v)
		apply = func() { n.HorseImage = img }

	case PropHeadImage:
		b := int(r.ReadC())
		var img string
		if b < headNameOffset {
			img = "head" + strconv.Itoa(b) + imageExt(v)
		} else {
			img = withLegacyExt(string(r.ReadBytes(b-headNameOffset)), v)
		}
		apply = func() { n.HeadImage = img }

	case PropAlignment:
		ap := min(r.ReadC(), 100)
		apply = func() { n.Alignment = ap }

	case PropImagePart:
		var p [6]byte
		copy(p[:], r.ReadBytes(len(p)))
		apply = func() { n.ImagePart = p }

	case PropBodyImage:
		s := r.ReadS8()
		apply = func() { n.BodyImage = s }

	case PropGmapLevelX:
		b := r.ReadC()
		apply = func() { n.GmapLevelX = b }
	case PropGmapLevelY:
		b := r.ReadC()
		apply = func() { n.GmapLevelY = b }

	case PropClass:
		r.Skip(int(r.ReadH()))

	case PropX2:
		px := unpackPixels(r.ReadH())
		apply = func() { n.px = px }
	case PropY2:
		py := unpackPixels(r.ReadH())
		apply = func() { n.py = py }

	default:
		if slot, ok := SaveSlot(id); ok {
			b := r.ReadC()
			apply = func() { n.Saves[slot] = b }
		} else if slot, ok := AttrSlot(id); ok {
			s := r.ReadS8()
			apply = func() { n.Attrs[slot] = s }
		} else {
			return nil, fmt.Errorf("%w %d", ErrUnknownProp, uint8(id))
		}
	}

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return apply, nil
}

// halfTile is the legacy position byte: tiles*2 as a signed byte.
func halfTile(px int) byte {
	v := math.Round(float64(px) / 8)
	return byte(int8(max(math.MinInt8, min(math.MaxInt8, v))))
}

// packPixels stores |px| in bits 1-15 and the sign in bit 0.
func packPixels(px int) uint16 {
	mag := px
	if px < 0 {
		mag = -px
	}
	mag = min(mag, 0x7FFF)
	v := uint16(mag) << 1
	if px < 0 {
		v |= 0x0001
	}
	return v
}

func unpackPixels(v uint16) int {
	mag := int(v >> 1)
	if v&0x0001 != 0 {
		return -mag
	}
	return mag
}

func hurtByte(f float64) byte {
	v := math.Round(f*32) + 32
	return byte(max(0, min(255, v)))
}

func hurtFloat(b byte) float64 {
	return (float64(b) - 32) / 32
}

// withLegacyExt appends ".gif" to extensionless names for pre-2.1 clients.
func withLegacyExt(name string, v ClientVersion) string {
	if name != "" && v.legacy() && path.Ext(name) == "" {
		return name + ".gif"
	}
	return name
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
