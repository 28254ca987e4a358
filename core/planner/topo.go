package planner

import (
	"sort"

	"github.com/pkg/errors"
)

// TopoSort orders tasks with Kahn's algorithm. Ready tasks are drained in
// (priority, task_id) order so the result is deterministic for a given plan.
func TopoSort(tasks []*Task) ([]string, error) {
	byID := make(map[string]*Task, len(tasks))
	inDegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string)

	for _, t := range tasks {
		if _, dup := byID[t.ID]; dup {
			return nil, errors.Errorf("planner: duplicate task id %q", t.ID)
		}
		byID[t.ID] = t
		inDegree[t.ID] = 0
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, errors.Errorf("planner: task %q depends on unknown task %q", t.ID, dep)
			}
			inDegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(tasks))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			a, b := byID[ready[i]], byID[ready[j]]
			if a.Priority != b.Priority {
				return a.Priority < b.Priority
			}
			return a.ID < b.ID
		})
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dep := range dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(tasks) {
		return nil, errors.New("planner: dependency cycle detected")
	}
	return order, nil
}

// ParallelGroups projects the plan into priority stages. Tasks inside one
// group have no dependency edges between them and may run concurrently.
func (p *Plan) ParallelGroups() [][]*Task {
	byID := make(map[string]*Task, len(p.Tasks))
	for _, t := range p.Tasks {
		byID[t.ID] = t
	}

	byPriority := make(map[int][]*Task)
	for _, id := range p.ExecutionOrder {
		t := byID[id]
		if t == nil {
			continue
		}
		byPriority[t.Priority] = append(byPriority[t.Priority], t)
	}

	priorities := make([]int, 0, len(byPriority))
	for pr := range byPriority {
		priorities = append(priorities, pr)
	}
	sort.Ints(priorities)

	groups := make([][]*Task, 0, len(priorities))
	for _, pr := range priorities {
		groups = append(groups, byPriority[pr])
	}
	return groups
}

// Task returns the task with the given id, or nil.
func (p *Plan) Task(id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
