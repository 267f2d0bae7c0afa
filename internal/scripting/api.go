package scripting

import (
	"github.com/gs2go/npcserver/internal/npc"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerAPI exposes the Go side to scripts. Every function takes the NPC
// id first; unknown ids are ignored.
func (e *Engine) registerAPI() {
	e.vm.SetGlobal("npc_timeout", e.vm.NewFunction(e.luaTimeout))
	e.vm.SetGlobal("npc_say", e.vm.NewFunction(e.luaSay))
	e.vm.SetGlobal("npc_set_image", e.vm.NewFunction(e.luaSetImage))
	e.vm.SetGlobal("npc_move", e.vm.NewFunction(e.luaMove))
	e.vm.SetGlobal("npc_set_save", e.vm.NewFunction(e.luaSetSave))
	e.vm.SetGlobal("log_info", e.vm.NewFunction(e.luaLog))
}

func (e *Engine) argNPC(L *lua.LState) *npc.NPC {
	return e.world.NPC(int32(L.CheckInt(1)))
}

// npc_timeout(id, ticks)
func (e *Engine) luaTimeout(L *lua.LState) int {
	if n := e.argNPC(L); n != nil {
		n.SetTimeout(L.CheckInt(2))
	}
	return 0
}

// npc_say(id, text)
func (e *Engine) luaSay(L *lua.LState) int {
	n := e.argNPC(L)
	if n == nil {
		return 0
	}
	msg := L.CheckString(2)
	n.Modify(npc.PropMessage, func() { n.Message = msg })
	e.world.SendProps(n, npc.PropMessage)
	return 0
}

// npc_set_image(id, file)
func (e *Engine) luaSetImage(L *lua.LState) int {
	n := e.argNPC(L)
	if n == nil {
		return 0
	}
	img := L.CheckString(2)
	n.Modify(npc.PropImage, func() { n.Image = img })
	e.world.SendProps(n, npc.PropImage)
	return 0
}

// npc_move(id, x, y) in tiles
func (e *Engine) luaMove(L *lua.LState) int {
	n := e.argNPC(L)
	if n == nil {
		return 0
	}
	n.SetPosition(float64(L.CheckNumber(2)), float64(L.CheckNumber(3)))
	e.world.SendProps(n, npc.PropX, npc.PropY, npc.PropX2, npc.PropY2)
	return 0
}

// npc_set_save(id, slot, value)
func (e *Engine) luaSetSave(L *lua.LState) int {
	n := e.argNPC(L)
	if n == nil {
		return 0
	}
	slot, v := L.CheckInt(2), L.CheckInt(3)
	if slot < 0 || slot >= len(n.Saves) {
		L.ArgError(2, "save slot out of range")
		return 0
	}
	id := npc.SaveProp(slot)
	n.Modify(id, func() { n.Saves[slot] = byte(v) })
	e.world.SendProps(n, id)
	return 0
}

// log_info(text)
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info(L.CheckString(1), zap.String("source", "lua"))
	return 0
}
