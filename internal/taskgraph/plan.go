package taskgraph

import "strings"

// PlanEntry is one task invocation in execution order.
type PlanEntry struct {
	Name   string
	Kind   TaskKind
	Parent string
	Depth  int
}

// Plan resolves the invocation order for name without running anything. Composites
// appear before their dependencies; dependencies are listed in declared order and are
// not de-duplicated. It fails with UnknownTaskError for any unregistered name reachable
// from name, and with CycleError when the dependency relation loops.
func (registry *Registry) Plan(name string) ([]PlanEntry, error) {
	requestedName := strings.TrimSpace(name)
	if len(requestedName) == 0 {
		requestedName = DefaultTaskName
	}

	planner := planBuilder{registry: registry, onStack: make(map[string]bool)}
	if planError := planner.visit(requestedName, "", 0); planError != nil {
		return nil, planError
	}
	return planner.entries, nil
}

type planBuilder struct {
	registry *Registry
	entries  []PlanEntry
	stack    []string
	onStack  map[string]bool
}

func (planner *planBuilder) visit(name string, parent string, depth int) error {
	task, exists := planner.registry.Lookup(name)
	if !exists {
		return UnknownTaskError{Name: name, RequiredBy: parent}
	}
	if planner.onStack[name] {
		cyclePath := append([]string(nil), planner.stack[indexOf(planner.stack, name):]...)
		return CycleError{Path: append(cyclePath, name)}
	}

	planner.entries = append(planner.entries, PlanEntry{Name: name, Kind: task.Kind(), Parent: parent, Depth: depth})
	if task.Kind() != TaskKindComposite {
		return nil
	}

	planner.onStack[name] = true
	planner.stack = append(planner.stack, name)
	for _, dependency := range task.Composite.Dependencies {
		if visitError := planner.visit(strings.TrimSpace(dependency), name, depth+1); visitError != nil {
			return visitError
		}
	}
	planner.stack = planner.stack[:len(planner.stack)-1]
	delete(planner.onStack, name)
	return nil
}

func indexOf(values []string, target string) int {
	for index, value := range values {
		if value == target {
			return index
		}
	}
	return 0
}
