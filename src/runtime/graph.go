package runtime

import "go.uber.org/atomic"

// RuntimeMaxTasks bounds the number of tasks a Graph may hold, the role
// RUNTIME_MAX_TASKS plays on device: GraphBuilder.Build rejects a larger
// graph with ErrTooManyTasks. Ready-queue capacity is the graph's own task
// count and the register file is sized by worker count, not by this bound.
const RuntimeMaxTasks = 1 << 16

// Kernel is the uniform, indirected entry point a Task's KernelID resolves
// to. A kernel unpacks its own operands from args; the runtime never
// interprets them beyond passing them through verbatim.
type Kernel func(args []int64)

// Task is an immutable record describing one node of the task graph, plus
// the one piece of runtime-mutable state every task carries: its atomic
// fan-in counter. task_id is 1-based and fits comfortably in 31 bits.
type Task struct {
	ID       int
	CoreType CoreType
	Opcode   Opcode
	KernelID uint32
	Args     []int64
	Fanout   []int

	fanin        atomic.Int32
	initialFanin int32
}

// DecrementFanin performs the atomic fetch-sub required by the resolver. It
// reports whether this call observed the 1->0 transition; the caller that
// observes true is the unique enqueuer of this task.
func (t *Task) DecrementFanin() bool {
	previous := t.fanin.Add(-1) + 1
	return previous == 1
}

// Fanin returns the current fan-in count. Exposed for tests and metrics; the
// dispatch engine itself only ever decrements it.
func (t *Task) Fanin() int32 {
	return t.fanin.Load()
}

// Graph is a fixed topology plus the precomputed set of tasks whose initial
// fan-in is zero. It is built once by a GraphBuilder and is safe for
// concurrent read access; the only mutable state (per-task fan-in) is
// changed only through DecrementFanin during a launch and Reset between
// launches.
type Graph struct {
	tasks        []*Task
	byID         map[int]*Task
	initialReady []int
}

// TaskCount returns the number of tasks in the graph.
func (g *Graph) TaskCount() int {
	return len(g.tasks)
}

// GetTask resolves a task by id.
func (g *Graph) GetTask(id int) (*Task, bool) {
	t, ok := g.byID[id]
	return t, ok
}

// InitialReadyTasks returns the ids of tasks whose fan-in was zero at graph
// load, in the order the tasks were added to the GraphBuilder.
func (g *Graph) InitialReadyTasks() []int {
	out := make([]int, len(g.initialReady))
	copy(out, g.initialReady)
	return out
}

// Reset restores every task's fan-in counter to its graph-load value, so the
// same Graph can back a second Launch after a completed one. It must only be
// called when no dispatch is in flight.
func (g *Graph) Reset() {
	for _, t := range g.tasks {
		t.fanin.Store(t.initialFanin)
	}
}
