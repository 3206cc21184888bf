package runtime

import (
	"context"
	goruntime "runtime"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// DispatchEngine runs the per-scheduler-thread loop of §4.5: reclaim
// completions, decrement successors' fan-in, dispatch ready tasks to idle
// workers this thread owns. One DispatchEngine instance exists per
// scheduler thread for the lifetime of one Launch call.
type DispatchEngine struct {
	graph     *Graph
	ready     *ReadyQueues
	slots     []WorkerSlot
	transport TransportKind
	completed *atomic.Int32
	taskCount int
	log       zerolog.Logger

	idle    []bool
	inFlight int
}

// NewDispatchEngine builds the engine for one thread's owned slots. ready
// and completed are shared across every thread in the launch.
func NewDispatchEngine(graph *Graph, ready *ReadyQueues, slots []WorkerSlot, transport TransportKind, completed *atomic.Int32, log zerolog.Logger) *DispatchEngine {
	idle := make([]bool, len(slots))
	for i := range idle {
		idle[i] = true
	}
	return &DispatchEngine{
		graph:     graph,
		ready:     ready,
		slots:     slots,
		transport: transport,
		completed: completed,
		taskCount: graph.TaskCount(),
		log:       log,
		idle:      idle,
	}
}

// Run executes Phase A / Phase B until the global completed-tasks counter
// reaches task_count, or ctx is cancelled (an abandonment path this core's
// original design does not have, added only so a failed Launch cannot wedge
// goroutines forever — see DESIGN.md).
func (e *DispatchEngine) Run(ctx context.Context) {
	for e.completed.Load() < int32(e.taskCount) {
		if ctx.Err() != nil {
			return
		}
		e.reclaimPhase()
		e.dispatchPhase()
		goruntime.Gosched()
	}
}

func (e *DispatchEngine) reclaimPhase() {
	for i, slot := range e.slots {
		task, ok := slot.Reclaim()
		if !ok {
			continue
		}
		for _, succID := range task.Fanout {
			succ, ok := e.graph.GetTask(succID)
			if !ok {
				continue
			}
			if succ.DecrementFanin() {
				e.ready.Push(succ.CoreType, succID)
			}
		}
		e.idle[i] = true
		e.inFlight--
		e.completed.Add(1)
		e.log.Debug().Int("task_id", task.ID).Int("worker_index", i).Msg("task reclaimed")
	}
}

func (e *DispatchEngine) dispatchPhase() {
	// Back-pressure: shared-memory transport can skip the whole phase when
	// every owned worker is already in flight; register transport gains
	// nothing from the early exit since each idle check is already
	// register-local, so it always scans (§4.5).
	if e.transport == TransportSharedMemory && e.inFlight == len(e.slots) {
		return
	}
	for i, slot := range e.slots {
		if !e.idle[i] {
			continue
		}
		id, ok := e.ready.TryPop(slot.CoreType())
		if !ok {
			continue
		}
		task, ok := e.graph.GetTask(id)
		if !ok {
			continue
		}
		slot.Dispatch(task)
		e.idle[i] = false
		e.inFlight++
		e.log.Debug().Int("task_id", task.ID).Int("worker_index", i).Str("core_type", slot.CoreType().String()).Msg("task dispatched")
	}
}
