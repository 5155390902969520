package ai_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
)

const skirmisherYAML = `
domain:
  id: skirmisher
  description: presses when close
  tasks:
    - id: behave
  methods:
    - task: behave
      id: press
      precondition: in_reach
      subtasks: [attack]
    - task: behave
      id: close_in
      subtasks: [approach]
  operators:
    - id: attack
      action: queue_attack
    - id: approach
      action: reposition
      target: close
`

func minimalDomain() *ai.Domain {
	return &ai.Domain{
		ID:        "minimal",
		Tasks:     []*ai.Task{{ID: ai.RootTask}},
		Methods:   []*ai.Method{{TaskID: ai.RootTask, ID: "wait", Subtasks: []string{"idle"}}},
		Operators: []*ai.Operator{{ID: "idle", Action: ai.ActionHold}},
	}
}

func TestDomain_Validate_AcceptsMinimal(t *testing.T) {
	assert.NoError(t, minimalDomain().Validate())
}

func TestDomain_Validate_Rejects(t *testing.T) {
	cases := map[string]func(d *ai.Domain){
		"empty id":          func(d *ai.Domain) { d.ID = "" },
		"no root task":      func(d *ai.Domain) { d.Tasks = []*ai.Task{{ID: "other"}}; d.Methods[0].TaskID = "other" },
		"duplicate task":    func(d *ai.Domain) { d.Tasks = append(d.Tasks, &ai.Task{ID: ai.RootTask}) },
		"unknown action":    func(d *ai.Domain) { d.Operators[0].Action = "flee" },
		"hold with target":  func(d *ai.Domain) { d.Operators[0].Target = "far" },
		"bad anchor":        func(d *ai.Domain) { d.Operators[0] = &ai.Operator{ID: "idle", Action: ai.ActionReposition, Target: "behind"} },
		"duplicate op":      func(d *ai.Domain) { d.Operators = append(d.Operators, &ai.Operator{ID: "idle", Action: ai.ActionHold}) },
		"method no task":    func(d *ai.Domain) { d.Methods[0].TaskID = "" },
		"unknown task":      func(d *ai.Domain) { d.Methods = append(d.Methods, &ai.Method{TaskID: "fight", ID: "x", Subtasks: []string{"idle"}}) },
		"no subtasks":       func(d *ai.Domain) { d.Methods[0].Subtasks = nil },
		"dangling subtask":  func(d *ai.Domain) { d.Methods[0].Subtasks = []string{"dance"} },
		"duplicate method":  func(d *ai.Domain) { d.Methods = append(d.Methods, d.Methods[0]) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := minimalDomain()
			mutate(d)
			assert.Error(t, d.Validate())
		})
	}
}

func TestDomain_Validate_ReportsEveryProblem(t *testing.T) {
	d := minimalDomain()
	d.Operators[0].Action = "flee"
	d.Methods[0].Subtasks = []string{"dance"}
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown action "flee"`)
	assert.Contains(t, err.Error(), `subtask "dance"`)
}

func TestLoadDomainFromBytes(t *testing.T) {
	d, err := ai.LoadDomainFromBytes([]byte(skirmisherYAML))
	require.NoError(t, err)
	assert.Equal(t, "skirmisher", d.ID)
	assert.Equal(t, []string{"in_reach"}, d.Preconditions())

	_, err = ai.LoadDomainFromBytes([]byte("id: x\n"))
	assert.Error(t, err, "document without domain key")
}

func TestDomain_MethodsForTask_KeepsDeclarationOrder(t *testing.T) {
	d, err := ai.LoadDomainFromBytes([]byte(skirmisherYAML))
	require.NoError(t, err)
	methods := d.MethodsForTask(ai.RootTask)
	require.Len(t, methods, 2)
	assert.Equal(t, "press", methods[0].ID)
	assert.Equal(t, "close_in", methods[1].ID)
	assert.Empty(t, d.MethodsForTask("missing"))
}

func TestLoadDomains(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skirmisher.yml"), []byte(skirmisherYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	domains, err := ai.LoadDomains(dir)
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "skirmisher", domains[0].ID)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "copy.yaml"), []byte(skirmisherYAML), 0o600))
	_, err = ai.LoadDomains(dir)
	assert.ErrorIs(t, err, ai.ErrDuplicateDomain)
}

func TestLoadDomains_MissingDir(t *testing.T) {
	_, err := ai.LoadDomains(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestProperty_Domain_OperatorByID_ConsistentLookup(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "n")
		d := &ai.Domain{}
		for i := 0; i < n; i++ {
			d.Operators = append(d.Operators, &ai.Operator{ID: fmt.Sprintf("op%d", i), Action: ai.ActionHold})
		}
		i := rapid.IntRange(0, n-1).Draw(rt, "i")
		op, ok := d.OperatorByID(fmt.Sprintf("op%d", i))
		require.True(rt, ok)
		assert.Equal(rt, fmt.Sprintf("op%d", i), op.ID)

		_, ok = d.OperatorByID(rapid.StringMatching(`[a-z_]{1,10}`).Draw(rt, "unknown"))
		assert.False(rt, ok, "ids without digits never match")
	})
}
