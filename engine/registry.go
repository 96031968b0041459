package engine

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/becomeliminal/salesdesk/core"
)

// Registry maps task names to agents. Built-in kinds and extension names
// share one table. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[core.TaskType]core.Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[core.TaskType]core.Agent)}
}

// Register binds agent to task, replacing any previous binding.
func (r *Registry) Register(task core.TaskType, agent core.Agent) error {
	if strings.TrimSpace(string(task)) == "" {
		return fmt.Errorf("%w: empty task name", ErrInvalidTask)
	}
	if agent == nil {
		return fmt.Errorf("%w: nil agent for %s", ErrInvalidTask, task)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[task] = agent
	return nil
}

// RegisterExtension binds agent to a task name outside the built-in set.
func (r *Registry) RegisterExtension(name string, agent core.Agent) error {
	task, known := core.ParseTaskType(name)
	if known {
		return fmt.Errorf("%w: %s", ErrTaskCollision, name)
	}
	return r.Register(task, agent)
}

// Lookup returns the agent bound to task.
func (r *Registry) Lookup(task core.TaskType) (core.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[task]
	return a, ok
}

// Tasks returns the registered task names, sorted.
func (r *Registry) Tasks() []core.TaskType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]core.TaskType, 0, len(r.agents))
	for t := range r.agents {
		tasks = append(tasks, t)
	}
	slices.Sort(tasks)
	return tasks
}
