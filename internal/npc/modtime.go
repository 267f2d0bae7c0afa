package npc

// ModTimes holds the last-changed unix time of every property id.
// Zero means never changed; such properties are left out of snapshots.
type ModTimes [PropCount]int64

// Touch stamps id with t.
func (m *ModTimes) Touch(id Prop, t int64) {
	if int(id) < len(m) {
		m[id] = t
	}
}

// Get returns the stamp of id.
func (m *ModTimes) Get(id Prop) int64 {
	if int(id) >= len(m) {
		return 0
	}
	return m[id]
}

// Since reports whether id changed at or after since.
func (m *ModTimes) Since(id Prop, since int64) bool {
	t := m.Get(id)
	return t != 0 && t >= since
}

// alwaysSent are stamped at creation so a first sync carries them even
// if they never change afterwards.
var alwaysSent = [...]Prop{
	PropImage, PropScript, PropX, PropY, PropVisFlags, PropID, PropSprite,
	PropMessage, PropGmapLevelX, PropGmapLevelY, PropX2, PropY2,
}
