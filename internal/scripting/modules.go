package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// RegisterModules registers the engine table into L:
//
//	engine.log(msg)     Info log
//	engine.warn(msg)    Warn log
//	engine.roll(expr)   dice total, or nil plus an error message
//	engine.actor(id)    actor snapshot table, or nil
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetFuncs(engine, map[string]lua.LGFunction{
		"log":   m.luaLog(zap.InfoLevel),
		"warn":  m.luaLog(zap.WarnLevel),
		"roll":  m.luaRoll,
		"actor": m.luaActor,
	})
	L.SetGlobal("engine", engine)
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		if ce := m.logger.Check(level, "lua: "+msg); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

func (m *Manager) luaRoll(L *lua.LState) int {
	expr, err := dice.Parse(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(m.roller.Roll(expr).Total()))
	return 1
}

func (m *Manager) luaActor(L *lua.LState) int {
	id := L.CheckString(1)
	if m.LookupActor == nil {
		L.Push(lua.LNil)
		return 1
	}
	info := m.LookupActor(id)
	if info == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(actorToTable(L, info))
	return 1
}

func actorToTable(L *lua.LState, a *ActorInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(a.ID))
	t.RawSetString("name", lua.LString(a.Name))
	t.RawSetString("archetype", lua.LString(a.Archetype))
	t.RawSetString("state", lua.LString(a.State))
	t.RawSetString("health", lua.LNumber(a.Health))
	t.RawSetString("max_health", lua.LNumber(a.MaxHealth))
	t.RawSetString("dead", lua.LBool(a.Dead))
	t.RawSetString("x", lua.LNumber(a.X))
	t.RawSetString("y", lua.LNumber(a.Y))
	return t
}
