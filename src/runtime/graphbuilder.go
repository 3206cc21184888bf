package runtime

import "fmt"

// TaskSpec is the host-side description of one task, supplied to a
// GraphBuilder before Build freezes it into an immutable Task. Host-side
// graph construction is otherwise out of scope for this core; TaskSpec and
// GraphBuilder exist only as the minimal surface tests and examples need to
// stand up a Graph.
type TaskSpec struct {
	ID       int
	CoreType CoreType
	Opcode   Opcode
	KernelID uint32
	Args     []int64
	Deps     []int
}

// GraphBuilder accumulates TaskSpecs and their dependency edges, the way
// OpGraph accumulated OpNodes, and freezes them into a Graph with fan-out
// lists and initial fan-in counts derived from Deps.
type GraphBuilder struct {
	specs      map[int]*TaskSpec
	successors map[int][]int
	order      []int
}

// NewGraphBuilder returns an empty builder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		specs:      make(map[int]*TaskSpec),
		successors: make(map[int][]int),
	}
}

// AddTask registers one task spec. IDs must be unique and positive.
func (b *GraphBuilder) AddTask(spec TaskSpec) error {
	if spec.ID <= 0 {
		return fmt.Errorf("taskcore/runtime: task id %d must be positive", spec.ID)
	}
	if _, exists := b.specs[spec.ID]; exists {
		return fmt.Errorf("taskcore/runtime: duplicate task id %d", spec.ID)
	}
	clone := spec
	clone.Deps = append([]int(nil), spec.Deps...)
	clone.Args = append([]int64(nil), spec.Args...)
	b.specs[spec.ID] = &clone
	b.order = append(b.order, spec.ID)
	for _, dep := range clone.Deps {
		b.successors[dep] = append(b.successors[dep], spec.ID)
	}
	return nil
}

// Build validates dependency edges, checks acyclicity via a Kahn-style
// traversal (a defensive check the core itself never repeats), and freezes
// the result into a Graph with per-task fan-in set to len(Deps).
func (b *GraphBuilder) Build() (*Graph, error) {
	if len(b.specs) == 0 {
		return nil, fmt.Errorf("taskcore/runtime: graph has no tasks")
	}
	if len(b.specs) > RuntimeMaxTasks {
		return nil, ErrTooManyTasks
	}

	for id, spec := range b.specs {
		for _, dep := range spec.Deps {
			if _, ok := b.specs[dep]; !ok {
				return nil, fmt.Errorf("%w: task %d depends on unknown task %d", ErrDanglingDependency, id, dep)
			}
		}
		for _, succ := range b.successors[id] {
			if _, ok := b.specs[succ]; !ok {
				return nil, fmt.Errorf("%w: task %d fans out to unknown task %d", ErrDanglingDependency, id, succ)
			}
		}
	}

	remaining := make(map[int]int, len(b.specs))
	for id, spec := range b.specs {
		remaining[id] = len(spec.Deps)
	}

	queue := make([]int, 0, len(b.specs))
	for _, id := range b.order {
		if remaining[id] == 0 {
			queue = append(queue, id)
		}
	}
	if len(queue) == 0 {
		// Every dependency resolves to a known task, so a non-empty graph
		// with no root must contain a cycle: both sentinels apply.
		return nil, fmt.Errorf("%w: %w", ErrEmptyReadySet, ErrGraphCycle)
	}

	visited := 0
	frontier := append([]int(nil), queue...)
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		visited++
		for _, succ := range b.successors[id] {
			remaining[succ]--
			if remaining[succ] == 0 {
				frontier = append(frontier, succ)
			}
		}
	}
	if visited != len(b.specs) {
		return nil, ErrGraphCycle
	}

	tasks := make([]*Task, 0, len(b.specs))
	byID := make(map[int]*Task, len(b.specs))
	initialReady := make([]int, 0, len(queue))

	for _, id := range b.order {
		spec := b.specs[id]
		task := &Task{
			ID:           spec.ID,
			CoreType:     spec.CoreType,
			Opcode:       spec.Opcode,
			KernelID:     spec.KernelID,
			Args:         spec.Args,
			Fanout:       append([]int(nil), b.successors[id]...),
			initialFanin: int32(len(spec.Deps)),
		}
		task.fanin.Store(task.initialFanin)
		tasks = append(tasks, task)
		byID[id] = task
		if len(spec.Deps) == 0 {
			initialReady = append(initialReady, id)
		}
	}

	return &Graph{tasks: tasks, byID: byID, initialReady: initialReady}, nil
}
