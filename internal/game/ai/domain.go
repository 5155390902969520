// Package ai implements the Hierarchical Task Network (HTN) planner that drives
// the think step of every hostile in an encounter.
//
// HTN planning decomposes abstract tasks into primitive operators via ordered methods.
// Method preconditions are evaluated as Lua hooks; operators map to squad orders.
package ai

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// RootTask is the task every plan starts from.
const RootTask = "behave"

// ErrDuplicateDomain is returned when two domain files share an ID.
var ErrDuplicateDomain = errors.New("duplicate ai domain")

// Task is an abstract goal that can be decomposed by methods.
type Task struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// Method decomposes a task into an ordered list of subtasks or operator IDs.
// Precondition names a Lua function called as fn(unit_id, distance,
// health_percent, busy_allies); empty means always applicable.
type Method struct {
	TaskID       string   `yaml:"task"`
	ID           string   `yaml:"id"`
	Precondition string   `yaml:"precondition"`
	Subtasks     []string `yaml:"subtasks"`
}

// Operator actions understood by the Brain.
const (
	ActionQueueAttack = "queue_attack"
	ActionReposition  = "reposition"
	ActionHold        = "hold"
)

// Reposition anchors.
const (
	AnchorClose = "close"
	AnchorFar   = "far"
	AnchorSelf  = "self"
)

// Operator is a primitive action that maps directly to a squad order.
// Target is only meaningful for reposition.
type Operator struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"`
	Target string `yaml:"target"`
}

// Domain holds the full HTN domain loaded from a YAML file.
//
// Invariant: all Task, Method, and Operator IDs are unique within their slice.
type Domain struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	Tasks       []*Task     `yaml:"tasks"`
	Methods     []*Method   `yaml:"methods"`
	Operators   []*Operator `yaml:"operators"`
}

// Validate checks required fields and cross references.
//
// Postcondition: Returns every violation joined, or nil when the domain has an
// ID, declares RootTask, has unique IDs, only known actions and anchors, and
// every method decomposes a declared task into declared tasks or operators.
func (d *Domain) Validate() error {
	if d.ID == "" {
		return errors.New("ai domain: id must not be empty")
	}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("ai domain %q: "+format, append([]any{d.ID}, args...)...))
	}

	tasks := make(map[string]bool, len(d.Tasks))
	for _, t := range d.Tasks {
		switch {
		case t.ID == "":
			fail("task with empty id")
		case tasks[t.ID]:
			fail("duplicate task %q", t.ID)
		}
		tasks[t.ID] = true
	}
	if !tasks[RootTask] {
		fail("root task %q is not declared", RootTask)
	}

	ops := make(map[string]bool, len(d.Operators))
	for _, op := range d.Operators {
		if op.ID == "" {
			fail("operator with empty id")
			continue
		}
		if ops[op.ID] {
			fail("duplicate operator %q", op.ID)
		}
		ops[op.ID] = true
		if err := op.validate(); err != nil {
			fail("operator %q: %v", op.ID, err)
		}
	}

	methods := make(map[string]bool, len(d.Methods))
	for _, m := range d.Methods {
		if m.ID == "" || m.TaskID == "" {
			fail("method needs both id and task")
			continue
		}
		if methods[m.ID] {
			fail("duplicate method %q", m.ID)
		}
		methods[m.ID] = true
		if !tasks[m.TaskID] {
			fail("method %q decomposes unknown task %q", m.ID, m.TaskID)
		}
		if len(m.Subtasks) == 0 {
			fail("method %q has no subtasks", m.ID)
		}
		for _, sub := range m.Subtasks {
			if !tasks[sub] && !ops[sub] {
				fail("method %q: subtask %q is neither a task nor an operator", m.ID, sub)
			}
		}
	}
	return errors.Join(errs...)
}

func (op *Operator) validate() error {
	switch op.Action {
	case ActionQueueAttack, ActionHold:
		if op.Target != "" {
			return fmt.Errorf("%s takes no target", op.Action)
		}
	case ActionReposition:
		switch op.Target {
		case AnchorClose, AnchorFar, AnchorSelf:
		default:
			return fmt.Errorf("unknown reposition anchor %q", op.Target)
		}
	default:
		return fmt.Errorf("unknown action %q", op.Action)
	}
	return nil
}

// OperatorByID returns the operator with the given ID, or false if not found.
func (d *Domain) OperatorByID(id string) (*Operator, bool) {
	for _, op := range d.Operators {
		if op.ID == id {
			return op, true
		}
	}
	return nil, false
}

// MethodsForTask returns all methods that decompose taskID, in declaration order.
func (d *Domain) MethodsForTask(taskID string) []*Method {
	var out []*Method
	for _, m := range d.Methods {
		if m.TaskID == taskID {
			out = append(out, m)
		}
	}
	return out
}

// Preconditions returns the distinct Lua function names the domain calls, sorted.
func (d *Domain) Preconditions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range d.Methods {
		if m.Precondition != "" && !seen[m.Precondition] {
			seen[m.Precondition] = true
			out = append(out, m.Precondition)
		}
	}
	sort.Strings(out)
	return out
}

type domainFile struct {
	Domain *Domain `yaml:"domain"`
}

// LoadDomains reads every .yaml or .yml file in dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns an error naming the file when one fails to parse or
// validate, and ErrDuplicateDomain when two files declare the same ID.
func LoadDomains(dir string) ([]*Domain, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ai domain dir %q: %w", dir, err)
	}
	seen := make(map[string]string)
	var domains []*Domain
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		d, err := LoadDomainFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if prev, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: %q in %q and %q", ErrDuplicateDomain, d.ID, prev, path)
		}
		seen[d.ID] = path
		domains = append(domains, d)
	}
	return domains, nil
}

// LoadDomainFromBytes parses and validates one domain document.
func LoadDomainFromBytes(data []byte) (*Domain, error) {
	var f domainFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing ai domain: %w", err)
	}
	if f.Domain == nil {
		return nil, errors.New("ai domain: missing top-level 'domain' key")
	}
	if err := f.Domain.Validate(); err != nil {
		return nil, err
	}
	return f.Domain, nil
}
