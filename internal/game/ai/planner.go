package ai

import (
	"errors"

	lua "github.com/yuin/gopher-lua"
)

// maxPlanSteps bounds decomposition so a self-referencing domain terminates.
const maxPlanSteps = 32

// ScriptCaller evaluates Lua preconditions. A missing function yields LNil.
type ScriptCaller interface {
	CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error)
}

// PlannedAction is one primitive action produced by the planner.
type PlannedAction struct {
	// Action is one of the Action constants.
	Action string
	// Target is the reposition anchor; empty otherwise.
	Target string
	// Method is the ID of the method whose decomposition produced the action.
	Method string
}

// Planner evaluates one HTN domain, running its preconditions in one script scope.
type Planner struct {
	domain *Domain
	caller ScriptCaller
	scope  string
}

// NewPlanner constructs a Planner.
//
// Precondition: domain and caller must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller, scope string) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	if caller == nil {
		panic("ai.NewPlanner: caller must not be nil")
	}
	return &Planner{domain: domain, caller: caller, scope: scope}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

type frame struct {
	id     string
	method string
}

// Plan decomposes RootTask depth first against state.
//
// Precondition: state and state.Unit must not be nil.
// Postcondition: Returns a non-nil slice, empty when no method applies. Lua
// failures count as a false precondition and never surface as errors.
func (p *Planner) Plan(state *WorldState) ([]PlannedAction, error) {
	if state == nil || state.Unit == nil {
		return nil, errors.New("ai.Planner.Plan: state and state.Unit must not be nil")
	}
	plan := []PlannedAction{}
	stack := []frame{{id: RootTask}}
	for steps := 0; len(stack) > 0 && steps < maxPlanSteps; steps++ {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if op, ok := p.domain.OperatorByID(top.id); ok {
			plan = append(plan, PlannedAction{Action: op.Action, Target: op.Target, Method: top.method})
			continue
		}
		m := p.applicable(top.id, state)
		if m == nil {
			continue
		}
		for i := len(m.Subtasks) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: m.Subtasks[i], method: m.ID})
		}
	}
	return plan, nil
}

// applicable returns the first method for taskID whose precondition holds.
func (p *Planner) applicable(taskID string, state *WorldState) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if m.Precondition == "" || p.holds(m.Precondition, state) {
			return m
		}
	}
	return nil
}

func (p *Planner) holds(fn string, state *WorldState) bool {
	ret, err := p.caller.CallHook(p.scope, fn,
		lua.LString(state.Unit.ID),
		lua.LNumber(state.DistanceToPlayer()),
		lua.LNumber(state.Unit.HealthPercent()),
		lua.LNumber(state.BusyAllies()),
	)
	return err == nil && ret == lua.LTrue
}
