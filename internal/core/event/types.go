package event

// NpcPropsChanged fires after an NPC's properties were modified by a
// client or a script. The persistence system saves flagged NPCs.
type NpcPropsChanged struct {
	NpcID int32
	Level string
}

// SessionLeft fires when a client disconnects.
type SessionLeft struct {
	SessionID uint64
	Level     string // "" if the session never entered a level
}
