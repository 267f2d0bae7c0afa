package npc

import "fmt"

// ClientVersion orders the protocol generations. Newer clients compare
// greater; VersionGeneric is the server-internal peer and sorts above all
// game clients.
type ClientVersion uint16

const (
	VersionUnknown ClientVersion = iota
	Version1_25
	Version1_27
	Version1_28
	Version1_31
	Version1_32
	Version1_33
	Version1_34
	Version1_35
	Version1_36
	Version1_37
	Version1_38
	Version1_39
	Version1_4
	Version1_41
	Version1_411
	Version2_1
	Version2_12
	Version2_13
	Version2_14
	Version2_15
	Version2_16
	Version2_17
	Version2_18
	Version2_19
	Version2_2
	Version2_21
	Version2_22
	Version2_3
	Version2_31
	Version4_0211
	Version4_034
	Version4_042
	Version5_07
	Version5_12
	Version6_015
	Version6_037

	// VersionGeneric is the NPC-server peer: exempt from legacy script limits.
	VersionGeneric ClientVersion = 1000
)

var versionNames = map[ClientVersion]string{
	Version1_25: "1.25", Version1_27: "1.27", Version1_28: "1.28", Version1_31: "1.31",
	Version1_32: "1.32", Version1_33: "1.33", Version1_34: "1.34", Version1_35: "1.35",
	Version1_36: "1.36", Version1_37: "1.37", Version1_38: "1.38", Version1_39: "1.39",
	Version1_4: "1.4", Version1_41: "1.41", Version1_411: "1.411",
	Version2_1: "2.1", Version2_12: "2.12", Version2_13: "2.13", Version2_14: "2.14",
	Version2_15: "2.15", Version2_16: "2.16", Version2_17: "2.17", Version2_18: "2.18",
	Version2_19: "2.19", Version2_2: "2.2", Version2_21: "2.21", Version2_22: "2.22",
	Version2_3: "2.3", Version2_31: "2.31", Version4_0211: "4.0211", Version4_034: "4.034",
	Version4_042: "4.042", Version5_07: "5.07", Version5_12: "5.12", Version6_015: "6.015",
	Version6_037: "6.037", VersionGeneric: "generic",
}

func (v ClientVersion) String() string {
	if s, ok := versionNames[v]; ok {
		return s
	}
	return fmt.Sprintf("version(%d)", uint16(v))
}

// ParseClientVersion accepts the dotted form ("2.1") or "generic".
func ParseClientVersion(s string) (ClientVersion, error) {
	for v, name := range versionNames {
		if name == s {
			return v, nil
		}
	}
	return VersionUnknown, fmt.Errorf("unknown client version %q", s)
}

// legacy reports whether v predates gani support (2.1).
func (v ClientVersion) legacy() bool {
	return v < Version2_1
}

func imageExt(v ClientVersion) string {
	if v.legacy() {
		return ".gif"
	}
	return ".png"
}

// maxProp is the first id a client of version v does not know.
func maxProp(v ClientVersion) Prop {
	if v.legacy() {
		return legacyPropCount
	}
	return PropCount
}

// Knows reports whether a client of version v understands id.
func (v ClientVersion) Knows(id Prop) bool {
	return id < maxProp(v)
}

// Valid reports whether v names a known protocol generation.
func (v ClientVersion) Valid() bool {
	_, ok := versionNames[v]
	return ok
}
