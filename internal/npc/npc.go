// Package npc holds the server-side record of a non-player entity and the
// versioned property codec used to synchronise it with clients.
//
// An NPC is owned by the game loop goroutine: the codec, the sync driver,
// the timer and the action queue all run there without locks.
package npc

import (
	"math"
	"time"

	"github.com/gs2go/npcserver/internal/source"
	"go.uber.org/zap"
)

// Legacy clients can only hold this much client script.
const maxLegacyScriptLen = 0x705F

// Level is the part of the world model an NPC talks to.
type Level interface {
	Name() string
	// GmapPosition returns the level's cell on its gmap, if it has one.
	GmapPosition() (x, y byte, ok bool)
	SetSparringZone(on bool)
	SetSingleplayer(on bool)
	// Broadcast sends pkt to every viewer of the level.
	Broadcast(pkt []byte)
}

// Settings are server-wide switches that change NPC behaviour.
type Settings struct {
	HasNPCServer bool
	TrimCode     bool
	// AlwaysVisibleFirstSync forces the visible bit on a client's first sync.
	AlwaysVisibleFirstSync bool
}

// Config describes a new NPC.
type Config struct {
	ID     int32
	Image  string
	Script string  // combined source, lines separated by source.LineSep
	X, Y   float64 // tiles
	Level  Level
	Host   ScriptHost
	Assets source.Loader

	Settings Settings
	Log      *zap.Logger
	Clock    func() time.Time
}

// NPC is the synchronised attribute set of one non-player entity.
type NPC struct {
	id       int32
	level    Level
	host     ScriptHost
	settings Settings
	log      *zap.Logger
	clock    func() time.Time

	// canonical position in pixels; the legacy half-tile and the full-pixel
	// wire forms are both derived from it.
	px, py int

	GmapLevelX byte
	GmapLevelY byte

	Image    string
	Gani     string
	BowPower byte   // pre-2.1 bow; used when BowImage is empty
	BowImage string // pre-2.1 custom bow
	Sprite   byte
	Colors   [5]byte

	HeadImage   string
	BodyImage   string
	HorseImage  string
	SwordImage  string
	SwordPower  int
	ShieldImage string
	ShieldPower int
	ImagePart   [6]byte

	Power      byte
	Rupees     uint32
	Darts      byte
	Bombs      byte
	GlovePower byte
	BombPower  byte
	Alignment  byte

	VisFlags   byte
	BlockFlags byte

	Nickname string
	Message  string

	HurtDX, HurtDY float64 // unit vector components in [-1, 1]

	Saves [10]byte
	Attrs [30]string

	ServerScript          string
	ClientScript          string
	ServerScriptFormatted string
	ClientScriptFormatted string
	WeaponName            string

	// BlockPositionUpdates drops position writes coming from the network.
	BlockPositionUpdates bool

	modTime ModTimes

	timeout int
	actions []Action
}

// New builds an NPC, preprocesses its script and marks the properties
// every first sync must carry.
func New(cfg Config) *NPC {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	host := cfg.Host
	if host == nil {
		host = nopHost{}
	}

	n := &NPC{
		id:        cfg.ID,
		level:     cfg.Level,
		host:      host,
		settings:  cfg.Settings,
		log:       log.With(zap.Int32("npc", cfg.ID)),
		clock:     clock,
		Image:     cfg.Image,
		Gani:      "idle",
		Sprite:    2,
		VisFlags:  VisFlagVisible,
		Alignment: 50,
	}
	n.px, n.py = toPixels(cfg.X), toPixels(cfg.Y)

	if n.level != nil {
		if gx, gy, ok := n.level.GmapPosition(); ok {
			n.GmapLevelX, n.GmapLevelY = gx, gy
		}
	}

	now := clock().Unix()
	for _, id := range alwaysSent {
		n.modTime.Touch(id, now)
	}

	src := source.Prepare(cfg.Script, source.Options{
		HasNPCServer: cfg.Settings.HasNPCServer,
		Trim:         cfg.Settings.TrimCode,
	}, cfg.Assets)
	if n.level != nil {
		if src.SparringZone {
			n.level.SetSparringZone(true)
		}
		if src.Singleplayer {
			n.level.SetSingleplayer(true)
		}
	}
	for _, name := range src.MissingJoins {
		n.log.Warn("join 檔案不存在", zap.String("file", name+".txt"))
	}

	n.ServerScript = src.Server
	n.ClientScript = src.Client
	n.ServerScriptFormatted = src.ServerFormatted
	n.ClientScriptFormatted = src.ClientFormatted
	n.WeaponName = src.WeaponName
	n.BlockPositionUpdates = src.BlockPositionUpdates

	if len(n.ClientScriptFormatted) > maxLegacyScriptLen {
		name := n.WeaponName
		if name == "" {
			name = n.Image
		}
		n.log.Warn("客戶端腳本超過舊版客戶端上限",
			zap.String("name", name),
			zap.Int("size", len(n.ClientScriptFormatted)),
			zap.Int("limit", maxLegacyScriptLen),
		)
	}
	return n
}

// ID returns the NPC's identity. It never changes after creation.
func (n *NPC) ID() int32 { return n.id }

// Level returns the level the NPC was created on.
func (n *NPC) Level() Level { return n.level }

// X returns the horizontal position in tiles.
func (n *NPC) X() float64 { return float64(n.px) / 16 }

// Y returns the vertical position in tiles.
func (n *NPC) Y() float64 { return float64(n.py) / 16 }

// PixelX returns the horizontal position in pixels.
func (n *NPC) PixelX() int { return n.px }

// PixelY returns the vertical position in pixels.
func (n *NPC) PixelY() int { return n.py }

// ModTime returns when id last changed (unix seconds, 0 = never).
func (n *NPC) ModTime(id Prop) int64 { return n.modTime.Get(id) }

// Modify runs fn and stamps id if its encoding changed. It is the trusted
// in-process setter used by scripts and the world.
func (n *NPC) Modify(id Prop, fn func()) {
	before := n.Encode(id, Version2_1)
	fn()
	if string(before) != string(n.Encode(id, Version2_1)) {
		n.modTime.Touch(id, n.clock().Unix())
	}
}

// SetPosition moves the NPC to (x, y) tiles and stamps both encodings.
func (n *NPC) SetPosition(x, y float64) {
	px, py := toPixels(x), toPixels(y)
	if px == n.px && py == n.py {
		return
	}
	now := n.clock().Unix()
	if px != n.px {
		n.px = px
		n.modTime.Touch(PropX, now)
		n.modTime.Touch(PropX2, now)
	}
	if py != n.py {
		n.py = py
		n.modTime.Touch(PropY, now)
		n.modTime.Touch(PropY2, now)
	}
}

// toPixels converts tiles to the nearest pixel.
func toPixels(tiles float64) int { return int(math.Round(tiles * 16)) }

// Close releases the NPC's registrations with the script host. Queued
// actions are dropped without running.
func (n *NPC) Close() {
	n.host.UnregisterTimer(n)
	n.host.UnregisterUpdate(n)
	n.actions = nil
	n.timeout = 0
}
