package packet

// Client → server opcodes.
const (
	PLI_VERSION    byte = 0 // [H clientVersion]
	PLI_LEVELENTER byte = 1 // [S8 level][DU since]
	PLI_NPCPROPS   byte = 3 // [DU npcID][prop stream]
	PLI_NPCACTION  byte = 4 // [DU npcID][S8 action]
)

// Server → client opcodes.
const (
	PLO_NPCPROPS  byte = 3  // [DU npcID][prop stream]
	PLO_LEVELNAME byte = 6  // [S8 level]
	PLO_NPCDEL    byte = 29 // [DU npcID]
)
