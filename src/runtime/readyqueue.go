package runtime

import (
	"sync"

	"go.uber.org/atomic"
)

// boundedStack is a bounded LIFO of task ids guarded by a mutex, with an
// atomic count giving a lock-free "is it empty" fast path. It plays the role
// the teacher's taskQueue played for BasicScheduler, generalized from an
// unsynchronized single-thread FIFO to a multi-producer/multi-consumer LIFO:
// LIFO for cache locality of recently produced work, mutex for correctness
// under concurrent push/pop from several scheduler threads.
type boundedStack struct {
	mu    sync.Mutex
	items []int
	count atomic.Int32
}

func newBoundedStack(capacity int) *boundedStack {
	return &boundedStack{items: make([]int, 0, capacity)}
}

func (s *boundedStack) push(id int) {
	s.mu.Lock()
	s.items = append(s.items, id)
	s.mu.Unlock()
	s.count.Add(1)
}

func (s *boundedStack) tryPop() (int, bool) {
	if s.count.Load() == 0 {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	if n == 0 {
		return 0, false
	}
	id := s.items[n-1]
	s.items = s.items[:n-1]
	s.count.Add(-1)
	return id, true
}

func (s *boundedStack) isEmpty() bool {
	return s.count.Load() == 0
}

// ReadyQueues holds the two bounded LIFOs keyed by core class described in
// §4.4: one for compute-class tasks, one for vector-class tasks. Ties among
// ready tasks are broken by arrival order within each queue's own LIFO
// discipline; there is no cross-queue fairness requirement.
type ReadyQueues struct {
	compute *boundedStack
	vector  *boundedStack
}

// NewReadyQueues allocates both queues with capacity equal to the graph
// size, the bound spec.md assigns them.
func NewReadyQueues(capacity int) *ReadyQueues {
	return &ReadyQueues{
		compute: newBoundedStack(capacity),
		vector:  newBoundedStack(capacity),
	}
}

// Push enqueues a ready task id onto the queue matching its core class.
func (q *ReadyQueues) Push(class CoreType, id int) {
	q.queueFor(class).push(id)
}

// TryPop attempts to dequeue a ready task id for the given core class.
func (q *ReadyQueues) TryPop(class CoreType) (int, bool) {
	return q.queueFor(class).tryPop()
}

// IsEmpty reports whether the queue for the given core class is empty.
func (q *ReadyQueues) IsEmpty(class CoreType) bool {
	return q.queueFor(class).isEmpty()
}

func (q *ReadyQueues) queueFor(class CoreType) *boundedStack {
	if class == CoreTypeVector {
		return q.vector
	}
	return q.compute
}

// SeedInitialReady partitions a graph's initial ready set by core class and
// pushes each id onto the matching queue. This is the seeding step §4.7
// assigns to the thread that wins the Init race.
func SeedInitialReady(q *ReadyQueues, graph *Graph, ids []int) {
	for _, id := range ids {
		task, ok := graph.GetTask(id)
		if !ok {
			continue
		}
		q.Push(task.CoreType, id)
	}
}
