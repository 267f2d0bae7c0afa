package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gs2go/npcserver/internal/npc"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// actionEntry is the Lua global every NPC action is dispatched to:
//
//	function npc_action(name, npc, player) ... end
const actionEntry = "npc_action"

// World is what scripts may reach outside the NPC they run for.
type World interface {
	NPC(id int32) *npc.NPC
	SendProps(n *npc.NPC, ids ...npc.Prop)
}

// Engine wraps a single gopher-lua VM for NPC script execution.
// Single-goroutine access only (game loop).
type Engine struct {
	vm    *lua.LState
	world World
	log   *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, world World, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, world: world, log: log}
	e.registerAPI()

	// Top-level scripts first, then per-feature directories
	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "npc")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}

	return e, nil
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua in the engine's VM.
func (e *Engine) LoadString(code string) error {
	return e.vm.DoString(code)
}

// NewAction builds the action for event name on n. It returns nil when no
// script defines the dispatcher.
func (e *Engine) NewAction(name string, n *npc.NPC, p npc.Player) npc.Action {
	if e.vm.GetGlobal(actionEntry) == lua.LNil {
		return nil
	}
	a := &luaAction{engine: e, name: name, npcID: n.ID()}
	if p != nil {
		a.player, a.hasPlayer = p.PlayerID(), true
	}
	return a
}

// luaAction is a deferred call into npc_action. It holds ids rather than
// pointers so an NPC removed before the flush is simply skipped.
type luaAction struct {
	engine    *Engine
	name      string
	npcID     int32
	player    int32
	hasPlayer bool
}

func (a *luaAction) Name() string { return a.name }

func (a *luaAction) Invoke() {
	e := a.engine
	n := e.world.NPC(a.npcID)
	if n == nil {
		return
	}
	fn := e.vm.GetGlobal(actionEntry)
	if fn == lua.LNil {
		return
	}

	var player lua.LValue = lua.LNil
	if a.hasPlayer {
		player = lua.LNumber(a.player)
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LString(a.name), e.npcTable(n), player); err != nil {
		e.log.Error("Lua NPC 動作執行失敗",
			zap.Int32("npc", a.npcID),
			zap.String("action", a.name),
			zap.Error(err),
		)
	}
}

// npcTable packs the read-only view of n handed to scripts.
func (e *Engine) npcTable(n *npc.NPC) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(n.ID()))
	t.RawSetString("x", lua.LNumber(n.X()))
	t.RawSetString("y", lua.LNumber(n.Y()))
	t.RawSetString("image", lua.LString(n.Image))
	t.RawSetString("message", lua.LString(n.Message))
	t.RawSetString("nickname", lua.LString(n.Nickname))
	t.RawSetString("timeout", lua.LNumber(n.Timeout()))
	if lvl := n.Level(); lvl != nil {
		t.RawSetString("level", lua.LString(lvl.Name()))
	}
	saves := e.vm.NewTable()
	for i, v := range n.Saves {
		saves.RawSetInt(i, lua.LNumber(v))
	}
	t.RawSetString("save", saves)
	return t
}
