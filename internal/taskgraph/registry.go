package taskgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds task definitions keyed by name. It is built once at start-up and then
// only read.
type Registry struct {
	mutex sync.RWMutex
	tasks map[string]Task
	order []string
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds task. Dependency existence and cycles are not checked here; Run checks them.
func (registry *Registry) Register(task Task) error {
	name := strings.TrimSpace(task.Name)
	if len(name) == 0 {
		return InvalidTaskError{Name: task.Name, Reason: "name is empty"}
	}
	if task.Pipeline != nil && task.Composite != nil {
		return InvalidTaskError{Name: name, Reason: "task cannot be both a pipeline and a composite"}
	}
	if task.Pipeline == nil && task.Composite == nil {
		return InvalidTaskError{Name: name, Reason: "task defines neither a pipeline nor dependencies"}
	}
	if task.Pipeline != nil {
		for stepIndex, step := range task.Pipeline.Steps {
			if step == nil {
				return InvalidTaskError{Name: name, Reason: fmt.Sprintf("step %d is nil", stepIndex)}
			}
		}
	}
	task.Name = name

	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if _, exists := registry.tasks[name]; exists {
		return DuplicateTaskError{Name: name}
	}
	registry.tasks[name] = task
	registry.order = append(registry.order, name)
	return nil
}

// MustRegister registers every task and panics on the first failure. Intended for
// fixed catalogs whose names are known to be unique.
func (registry *Registry) MustRegister(tasks ...Task) {
	for _, task := range tasks {
		if registrationError := registry.Register(task); registrationError != nil {
			panic(registrationError)
		}
	}
}

// Lookup returns the task registered under name.
func (registry *Registry) Lookup(name string) (Task, bool) {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	task, exists := registry.tasks[strings.TrimSpace(name)]
	return task, exists
}

// Names returns task names in registration order.
func (registry *Registry) Names() []string {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	return append([]string(nil), registry.order...)
}

// Tasks returns task definitions in registration order.
func (registry *Registry) Tasks() []Task {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	tasks := make([]Task, 0, len(registry.order))
	for _, name := range registry.order {
		tasks = append(tasks, registry.tasks[name])
	}
	return tasks
}
