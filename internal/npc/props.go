package npc

import "fmt"

// Prop is the one-byte wire identifier of an NPC attribute.
// The numbering is a wire contract shared with every client generation.
type Prop uint8

const (
	PropImage       Prop = 0
	PropScript      Prop = 1
	PropX           Prop = 2
	PropY           Prop = 3
	PropPower       Prop = 4
	PropRupees      Prop = 5
	PropArrows      Prop = 6
	PropBombs       Prop = 7
	PropGlovePower  Prop = 8
	PropBombPower   Prop = 9
	PropSwordImage  Prop = 10
	PropShieldImage Prop = 11
	PropGani        Prop = 12 // bow power / bow image before 2.1
	PropVisFlags    Prop = 13
	PropBlockFlags  Prop = 14
	PropMessage     Prop = 15
	PropHurtDXDY    Prop = 16
	PropID          Prop = 17
	PropSprite      Prop = 18
	PropColors      Prop = 19
	PropNickname    Prop = 20
	PropHorseImage  Prop = 21
	PropHeadImage   Prop = 22
	PropSave0       Prop = 23
	PropSave1       Prop = 24
	PropSave2       Prop = 25
	PropSave3       Prop = 26
	PropSave4       Prop = 27
	PropSave5       Prop = 28
	PropSave6       Prop = 29
	PropSave7       Prop = 30
	PropSave8       Prop = 31
	PropSave9       Prop = 32
	PropAlignment   Prop = 33
	PropImagePart   Prop = 34
	PropBodyImage   Prop = 35
	PropGattrib1    Prop = 36
	PropGattrib2    Prop = 37
	PropGattrib3    Prop = 38
	PropGattrib4    Prop = 39
	PropGattrib5    Prop = 40
	PropGmapLevelX  Prop = 41
	PropGmapLevelY  Prop = 42
	PropGattrib6    Prop = 44
	PropGattrib7    Prop = 45
	PropGattrib8    Prop = 46
	PropGattrib9    Prop = 47
	PropClass       Prop = 52
	PropGattrib10   Prop = 53
	PropGattrib30   Prop = 73
	PropX2          Prop = 75
	PropY2          Prop = 76

	// PropCount sizes the modification-time vector.
	PropCount = 77

	// legacyPropCount is the id space known to clients before 2.1.
	legacyPropCount = 36
)

// Visibility flag bits.
const (
	VisFlagVisible   byte = 0x01
	VisFlagDrawOver  byte = 0x02
	VisFlagDrawUnder byte = 0x04
)

// ImageScripted is the image name meaning "drawn by script".
const ImageScripted = "#c#"

// savePropIDs maps save slot index → wire id.
var savePropIDs = [10]Prop{23, 24, 25, 26, 27, 28, 29, 30, 31, 32}

// attrPropIDs maps gani attribute slot index → wire id.
var attrPropIDs = [30]Prop{
	36, 37, 38, 39, 40, 44, 45, 46, 47, 53,
	54, 55, 56, 57, 58, 59, 60, 61, 62, 63,
	64, 65, 66, 67, 68, 69, 70, 71, 72, 73,
}

const noSlot = -1

// saveSlots and attrSlots map wire id → slot; built once from the
// two tables above and never written afterwards.
var saveSlots, attrSlots = buildSlots()

func buildSlots() (saves, attrs [256]int8) {
	for i := range saves {
		saves[i] = noSlot
		attrs[i] = noSlot
	}
	for slot, id := range savePropIDs {
		saves[id] = int8(slot)
	}
	for slot, id := range attrPropIDs {
		attrs[id] = int8(slot)
	}
	return saves, attrs
}

// SaveSlot returns the save slot addressed by id.
func SaveSlot(id Prop) (int, bool) {
	s := saveSlots[id]
	return int(s), s != noSlot
}

// AttrSlot returns the gani attribute slot addressed by id.
func AttrSlot(id Prop) (int, bool) {
	s := attrSlots[id]
	return int(s), s != noSlot
}

// SaveProp returns the wire id of save slot i (0-9).
func SaveProp(i int) Prop { return savePropIDs[i] }

// AttrProp returns the wire id of gani attribute i (1-30).
func AttrProp(i int) Prop { return attrPropIDs[i-1] }

// Known reports whether id has an encode and decode rule.
func Known(id Prop) bool {
	if id >= PropCount {
		return false
	}
	switch id {
	case 43, 48, 49, 50, 51, 74:
		return false
	}
	return true
}

var propNames = map[Prop]string{
	PropImage: "image", PropScript: "script", PropX: "x", PropY: "y",
	PropPower: "power", PropRupees: "rupees", PropArrows: "arrows", PropBombs: "bombs",
	PropGlovePower: "glovepower", PropBombPower: "bombpower",
	PropSwordImage: "swordimage", PropShieldImage: "shieldimage", PropGani: "gani",
	PropVisFlags: "visflags", PropBlockFlags: "blockflags", PropMessage: "message",
	PropHurtDXDY: "hurtdxdy", PropID: "id", PropSprite: "sprite", PropColors: "colors",
	PropNickname: "nickname", PropHorseImage: "horseimage", PropHeadImage: "headimage",
	PropAlignment: "alignment", PropImagePart: "imagepart", PropBodyImage: "bodyimage",
	PropGmapLevelX: "gmaplevelx", PropGmapLevelY: "gmaplevely", PropClass: "class",
	PropX2: "x2", PropY2: "y2",
}

func (p Prop) String() string {
	if name, ok := propNames[p]; ok {
		return name
	}
	if slot, ok := SaveSlot(p); ok {
		return fmt.Sprintf("save%d", slot)
	}
	if slot, ok := AttrSlot(p); ok {
		return fmt.Sprintf("gattrib%d", slot+1)
	}
	return fmt.Sprintf("prop(%d)", uint8(p))
}
