package runtime

import (
	"context"
	goruntime "runtime"

	"go.uber.org/atomic"
)

const (
	taskStatusIdle int32 = 0
	taskStatusBusy int32 = 1
)

// WorkerSlot is the transport abstraction §9 calls for: one implementation
// per handshake mechanism (shared-memory cell, register file), each exposing
// the same scheduler-side and worker-side operations so DispatchEngine and
// the worker loop never need to know which transport backs a given worker.
type WorkerSlot interface {
	CoreType() CoreType

	// Scheduler-side.
	BringUp(ctx context.Context) (physicalID int, ok bool)
	Dispatch(task *Task)
	Reclaim() (*Task, bool)
	RequestQuit()

	// Worker-side. Only the goroutine simulating this core may call these.
	Advertise(physicalID int)
	AwaitReady(ctx context.Context) bool
	Poll() (task *Task, quit bool)
	Complete()
}

// HandshakeCell is the shared-memory transport's single-writer/single-reader
// slot between one scheduler thread and one worker. Field ownership is
// exactly as described in §3: the scheduler writes aicpuReady, task,
// taskStatus<-busy and control; the worker writes aicoreDone and
// taskStatus<-idle. All cross-thread access goes through atomics with at
// least acquire/release ordering, which go.uber.org/atomic's Load/Store
// provide via the underlying sync/atomic primitives.
type HandshakeCell struct {
	coreType CoreType

	aicpuReady atomic.Bool
	aicoreDone atomic.Int32
	task       atomic.Pointer[Task]
	taskStatus atomic.Int32
	control    atomic.Int32
}

// NewHandshakeCell returns a zero-initialized cell for the given core class.
func NewHandshakeCell(coreType CoreType) *HandshakeCell {
	return &HandshakeCell{coreType: coreType}
}

func (c *HandshakeCell) CoreType() CoreType { return c.coreType }

// BringUp is the scheduler's half of phase 1: spin reading aicoreDone until
// the worker has advertised, then publish aicpuReady. The convention chosen
// here polls the worker's ack before signalling readiness, unifying the two
// conventions the original design left ambiguous (see DESIGN.md).
func (c *HandshakeCell) BringUp(ctx context.Context) (int, bool) {
	for {
		if ack := c.aicoreDone.Load(); ack != 0 {
			c.aicpuReady.Store(true)
			return int(ack - 1), true
		}
		if ctx.Err() != nil {
			return 0, false
		}
		goruntime.Gosched()
	}
}

// Dispatch publishes a task assignment: write the pointer, then mark busy.
// Order matters — the worker only treats the slot as newly assigned once it
// observes taskStatus==busy alongside a non-nil task.
func (c *HandshakeCell) Dispatch(task *Task) {
	c.task.Store(task)
	c.taskStatus.Store(taskStatusBusy)
}

// Reclaim observes worker completion: taskStatus has gone back to idle while
// a task is still latched. On success the slot is cleared so it can be
// redispatched.
func (c *HandshakeCell) Reclaim() (*Task, bool) {
	if c.taskStatus.Load() != taskStatusIdle {
		return nil, false
	}
	task := c.task.Load()
	if task == nil {
		return nil, false
	}
	c.task.Store(nil)
	return task, true
}

// RequestQuit sets the shutdown control bit; the worker observes it on its
// next poll.
func (c *HandshakeCell) RequestQuit() {
	c.control.Store(1)
}

// Advertise is the worker's half of phase 1: publish physical_core_id+1 so
// zero remains an uninitialized sentinel.
func (c *HandshakeCell) Advertise(physicalID int) {
	c.aicoreDone.Store(int32(physicalID) + 1)
}

// AwaitReady spins until the scheduler has signalled aicpuReady, or ctx is
// cancelled.
func (c *HandshakeCell) AwaitReady(ctx context.Context) bool {
	for !c.aicpuReady.Load() {
		if ctx.Err() != nil {
			return false
		}
		goruntime.Gosched()
	}
	return true
}

// Poll is the worker's steady-state check: quit takes priority, then a fresh
// busy assignment. dcacheHint is a no-op on a cache-coherent host; it stands
// in for the device's dcci instruction.
func (c *HandshakeCell) Poll() (*Task, bool) {
	c.dcacheHint()
	if c.control.Load() != 0 {
		return nil, true
	}
	if c.taskStatus.Load() != taskStatusBusy {
		return nil, false
	}
	task := c.task.Load()
	if task == nil {
		return nil, false
	}
	return task, false
}

// Complete signals that the worker has finished executing the currently
// latched task.
func (c *HandshakeCell) Complete() {
	c.taskStatus.Store(taskStatusIdle)
}

func (c *HandshakeCell) dcacheHint() {
	// No-op on a cache-coherent host. A device build would issue dcci here.
}
