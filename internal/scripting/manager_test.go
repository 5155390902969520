package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(1), logger)
	return scripting.NewManager(roller, logger), logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0o644))
	return dir
}

func TestManager_LoadScope_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function test_hook(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.LoadScope("courtyard", dir, 0))
	ret, err := mgr.CallHook("courtyard", "test_hook", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
	assert.True(t, mgr.HasHook("courtyard", "test_hook"))
	assert.False(t, mgr.HasHook("courtyard", "other"))
}

func TestManager_LoadScope_RejectsEmptyScope(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.LoadScope("", t.TempDir(), 0))
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadSource("courtyard", `not_a_function = 3`, 0))
	ret, err := mgr.CallHook("courtyard", "nonexistent_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	ret, err = mgr.CallHook("courtyard", "not_a_function")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_UnknownScope_ReturnsNil(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret, err := mgr.CallHook("nowhere", "some_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: no VM for scope").Len())
}

func TestManager_CallHook_RuntimeError_WarnLogNoPanic(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadSource("courtyard", `function boom() error("kaboom") end`, 0))
	ret, err := mgr.CallHook("courtyard", "boom")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	warns := logs.FilterMessage("scripting: Lua runtime error").All()
	require.Len(t, warns, 1)
	assert.Equal(t, zap.WarnLevel, warns[0].Level)
}

func TestManager_CallHook_BudgetIsPerCall(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadSource("courtyard", `
		function spin() while true do end end
		function add(a, b) return a + b end
	`, 500))
	for i := 0; i < 50; i++ {
		ret, err := mgr.CallHook("courtyard", "add", lua.LNumber(i), lua.LNumber(1))
		require.NoError(t, err)
		assert.Equal(t, lua.LNumber(i+1), ret)
	}
	ret, err := mgr.CallHook("courtyard", "spin")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())

	ret, err = mgr.CallHook("courtyard", "add", lua.LNumber(1), lua.LNumber(1))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(2), ret, "the VM survives an exhausted budget")
}

func TestManager_LoadGlobal_CallHookFallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "global.lua", `function shared() return "global" end`)
	require.NoError(t, mgr.LoadGlobal(dir, 0))
	require.NoError(t, mgr.LoadSource("courtyard", `function local_only() return "local" end`, 0))

	ret, err := mgr.CallHook("unloaded", "shared")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("global"), ret)

	ret, err = mgr.CallHook("courtyard", "local_only")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("local"), ret)
	assert.Equal(t, []string{scripting.GlobalScope, "courtyard"}, mgr.Scopes())
}

func TestManager_LoadScope_EmptyDir_NoError(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.NoError(t, mgr.LoadScope("courtyard", t.TempDir(), 0))
}

func TestManager_LoadScope_MissingDir_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.LoadScope("courtyard", filepath.Join(t.TempDir(), "nope"), 0))
}

func TestManager_LoadScope_InvalidLua_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "bad.lua", `this is not lua`)
	assert.Error(t, mgr.LoadScope("courtyard", dir, 0))
	assert.Empty(t, mgr.Scopes())
}

func TestManager_LoadScope_MultipleFiles_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`value = "a"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`value = value .. "b" function get() return value end`), 0o644))
	require.NoError(t, mgr.LoadScope("courtyard", dir, 0))
	ret, err := mgr.CallHook("courtyard", "get")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("ab"), ret)
}

func TestManager_ReloadReplacesVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadSource("courtyard", `function v() return 1 end`, 0))
	require.NoError(t, mgr.LoadSource("courtyard", `function v() return 2 end`, 0))
	ret, err := mgr.CallHook("courtyard", "v")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(2), ret)
}

func TestNewManager_PanicsOnNilRoller(t *testing.T) {
	assert.Panics(t, func() { scripting.NewManager(nil, zap.NewNop()) })
}

func TestNewManager_PanicsOnNilLogger(t *testing.T) {
	roller := dice.NewLoggedRoller(dice.NewSeededSource(1), nil)
	assert.Panics(t, func() { scripting.NewManager(roller, nil) })
}

func TestManager_Close_ReleasesScopes(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadSource("courtyard", `function v() return 1 end`, 0))
	mgr.Close()
	assert.Empty(t, mgr.Scopes())
	ret, err := mgr.CallHook("courtyard", "v")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestProperty_CallHookMissingScopeNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t)
	rapid.Check(t, func(rt *rapid.T) {
		scope := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "scope")
		hook := rapid.StringMatching(`[a-z_]{1,20}`).Draw(rt, "hook")
		ret, err := mgr.CallHook(scope, hook)
		if err != nil || ret != lua.LNil {
			rt.Fatalf("unexpected result %v %v", ret, err)
		}
	})
}

func TestManager_CallHookConcurrentSameScope(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadSource("courtyard", `
		counter = 0
		function bump() counter = counter + 1 return counter end
	`, 0))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, _ = mgr.CallHook("courtyard", "bump")
			}
		}()
	}
	wg.Wait()
	ret, err := mgr.CallHook("courtyard", "bump")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(201), ret)
}
