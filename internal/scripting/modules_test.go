package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/scripting"
)

func TestEngineLog_WritesToLogger(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadSource("courtyard", `
		function speak() engine.log("wave incoming") engine.warn("low health") end
	`, 0))
	_, err := mgr.CallHook("courtyard", "speak")
	require.NoError(t, err)

	info := logs.FilterMessage("lua: wave incoming").All()
	require.Len(t, info, 1)
	assert.Equal(t, zap.InfoLevel, info[0].Level)
	warn := logs.FilterMessage("lua: low health").All()
	require.Len(t, warn, 1)
	assert.Equal(t, zap.WarnLevel, warn[0].Level)
}

func TestEngineRoll_ReturnsTotal(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadSource("courtyard", `
		function flat() return engine.roll("7") end
		function ranged() local n = engine.roll("2d6+1") return n >= 3 and n <= 13 end
		function broken() local n, err = engine.roll("nonsense") return err ~= nil and n == nil end
	`, 0))
	ret, err := mgr.CallHook("courtyard", "flat")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
	for _, hook := range []string{"ranged", "broken"} {
		ret, err = mgr.CallHook("courtyard", hook)
		require.NoError(t, err)
		assert.Equal(t, lua.LTrue, ret, hook)
	}
}

func TestEngineActor_NilLookupReturnsNil(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadSource("courtyard", `function probe() return engine.actor("x") == nil end`, 0))
	ret, err := mgr.CallHook("courtyard", "probe")
	require.NoError(t, err)
	assert.Equal(t, lua.LTrue, ret)
}

func TestEngineActor_WithLookup(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.LookupActor = func(id string) *scripting.ActorInfo {
		if id != "u1" {
			return nil
		}
		return &scripting.ActorInfo{ID: "u1", Name: "Grunt", Archetype: "melee", State: "idle", Health: 7, MaxHealth: 10, X: 3}
	}
	require.NoError(t, mgr.LoadSource("courtyard", `
		function describe(id)
			local a = engine.actor(id)
			if a == nil then return "none" end
			return a.name .. ":" .. a.state .. ":" .. a.health .. "/" .. a.max_health .. "@" .. a.x
		end
	`, 0))
	ret, err := mgr.CallHook("courtyard", "describe", lua.LString("u1"))
	require.NoError(t, err)
	assert.Equal(t, lua.LString("Grunt:idle:7/10@3"), ret)
	ret, err = mgr.CallHook("courtyard", "describe", lua.LString("u2"))
	require.NoError(t, err)
	assert.Equal(t, lua.LString("none"), ret)
}
