// Package scripting provides sandboxed GopherLua VMs for encounter scripts:
// brute attack choice, wave and completion hooks, and HTN preconditions.
package scripting

import (
	"context"
	"strings"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one hook call when no
// override is configured.
const DefaultInstructionLimit = 100_000

// Globals removed from every VM. Randomness goes through engine.roll so that
// seeded runs replay exactly.
var strippedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

var strippedFields = map[string][]string{
	"math":   {"random", "randomseed"},
	"string": {"rep", "dump"},
}

// budget cancels itself once Done has been polled limit times. GopherLua polls
// Done once per opcode when a context is set.
type budget struct {
	context.Context
	cancel    context.CancelFunc
	remaining atomic.Int64
}

func (b *budget) Done() <-chan struct{} {
	if b.remaining.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// ArmBudget gives L a fresh budget of limit opcodes and returns the function
// that releases it.
//
// Precondition: limit <= 0 selects DefaultInstructionLimit.
func ArmBudget(L *lua.LState, limit int) context.CancelFunc {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &budget{Context: ctx, cancel: cancel}
	b.remaining.Store(int64(limit))
	L.SetContext(b)
	return cancel
}

// BudgetExhausted reports whether err is a Lua error raised because a call ran
// out of opcodes.
func BudgetExhausted(err error) bool {
	return err != nil && strings.Contains(err.Error(), context.Canceled.Error())
}

// NewSandboxedState creates an LState with only the base, table, string and
// math libraries, without file loading, module loading, GC control or
// unseeded randomness, and armed with an initial budget.
//
// Postcondition: The caller owns the LState and must Close it.
func NewSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	for lib, fields := range strippedFields {
		tbl, ok := L.GetGlobal(lib).(*lua.LTable)
		if !ok {
			continue
		}
		for _, f := range fields {
			tbl.RawSetString(f, lua.LNil)
		}
	}
	ArmBudget(L, instLimit)
	return L
}
