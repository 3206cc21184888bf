package runtime

import (
	"context"
	goruntime "runtime"
	goatomic "sync/atomic"

	"go.uber.org/atomic"
)

// Register offsets and sentinels from §4.6, kept as named constants rather
// than magic numbers so the mocked register file reads the same as a real
// MMIO aperture map would.
const (
	RegisterOffsetFastPathEnable uint32 = 0x18
	RegisterOffsetData           uint32 = 0xA0
	RegisterOffsetCondStatus     uint32 = 0x4C8

	fastPathOpen  int32 = 0xE
	fastPathClose int32 = 0xF

	// StopSentinel is the reserved data-register value meaning "exit the
	// worker loop".
	StopSentinel int32 = 0x7FFFFFF0
)

// RegisterFile is a mocked bank of per-physical-core memory-mapped control
// registers, standing in for the real MMIO aperture the host resolves via
// halGetDeviceInfoByBuff/halMemCtl (out of scope here, per §6). Each
// register is backed by an atomically-accessed int32, addressable by
// physical core id.
type RegisterFile struct {
	bases    []int64 // per-core base address; 0 means unresolved (ErrTransport)
	data     []atomic.Int32
	cond     []atomic.Int32
	fastPath []atomic.Int32
}

// NewRegisterFile allocates a register file for numCores physical cores. All
// bases default to a non-zero placeholder; SetBase can simulate an
// unresolved core for ErrTransport testing.
func NewRegisterFile(numCores int) *RegisterFile {
	rf := &RegisterFile{
		bases:    make([]int64, numCores),
		data:     make([]atomic.Int32, numCores),
		cond:     make([]atomic.Int32, numCores),
		fastPath: make([]atomic.Int32, numCores),
	}
	for i := range rf.bases {
		rf.bases[i] = 1
	}
	return rf
}

// SetBase overrides the resolved base address for a physical core; a zero
// base marks the core as transiently unresolved.
func (rf *RegisterFile) SetBase(physicalID int, base int64) {
	rf.bases[physicalID] = base
}

func (rf *RegisterFile) baseResolved(physicalID int) bool {
	return rf.bases[physicalID] != 0
}

// OpenFastPath writes the "open" sentinel to the fast-path enable register
// and initializes the data register, bracketing the steady-state phase.
func (rf *RegisterFile) OpenFastPath(physicalID int) {
	rf.fastPath[physicalID].Store(fastPathOpen)
	rf.data[physicalID].Store(0)
	fence()
}

// CloseFastPath writes the "close" sentinel before shutdown.
func (rf *RegisterFile) CloseFastPath(physicalID int) {
	rf.fastPath[physicalID].Store(fastPathClose)
	fence()
}

func (rf *RegisterFile) writeData(physicalID int, value int32) {
	rf.data[physicalID].Store(value)
	fence()
}

func (rf *RegisterFile) readData(physicalID int) int32 {
	return rf.data[physicalID].Load()
}

func (rf *RegisterFile) readCond(physicalID int) int32 {
	return rf.cond[physicalID].Load()
}

func (rf *RegisterFile) setCond(physicalID int, busy bool) {
	if busy {
		rf.cond[physicalID].Store(1)
	} else {
		rf.cond[physicalID].Store(0)
	}
}

// fence stands in for the full memory-order fence real register writes are
// bracketed by; sync/atomic operations already provide sequential
// consistency on every supported Go platform, so this is documentation of
// intent rather than an additional instruction.
func fence() {
	goatomic.StoreInt32(new(int32), 0)
}

// registerSlot is the register-transport WorkerSlot implementation. Unlike
// the shared-memory cell, the data register carries only a numeric task id,
// so the worker side resolves the *Task via the graph, and must compare
// against the last task id it processed to detect a fresh assignment (the
// cond register is worker-owned output, not a new-work signal).
type registerSlot struct {
	rf         *RegisterFile
	graph      *Graph
	coreType   CoreType
	physicalID int
	ackChan    atomic.Int32 // worker->scheduler ack for BringUp, 0 = not yet advertised
	current    atomic.Pointer[Task]
	accepted   atomic.Int32 // last data-register value the worker latched, published after cond is set busy
	lastTaskID int          // worker-goroutine-local, never touched by the scheduler
}

// NewRegisterWorkerSlot binds a register-transport slot to a physical core
// id within rf, for tasks of the given core class.
func NewRegisterWorkerSlot(rf *RegisterFile, graph *Graph, coreType CoreType, physicalID int) WorkerSlot {
	return &registerSlot{rf: rf, graph: graph, coreType: coreType, physicalID: physicalID}
}

func (s *registerSlot) CoreType() CoreType { return s.coreType }

func (s *registerSlot) BringUp(ctx context.Context) (int, bool) {
	for {
		if ack := s.ackChan.Load(); ack != 0 {
			s.rf.OpenFastPath(s.physicalID)
			return int(ack - 1), true
		}
		if ctx.Err() != nil {
			return 0, false
		}
		goruntime.Gosched()
	}
}

func (s *registerSlot) Dispatch(task *Task) {
	if !s.rf.baseResolved(s.physicalID) {
		s.current.Store(nil)
		return
	}
	s.current.Store(task)
	s.rf.writeData(s.physicalID, int32(task.ID)+1)
}

func (s *registerSlot) Reclaim() (*Task, bool) {
	current := s.current.Load()
	if current == nil {
		return nil, false
	}
	// An idle cond register only means completion once the worker has
	// latched this assignment; before that it has not started yet.
	if s.accepted.Load() != int32(current.ID)+1 {
		return nil, false
	}
	if s.rf.readCond(s.physicalID) != 0 {
		return nil, false
	}
	s.current.Store(nil)
	s.rf.writeData(s.physicalID, 0)
	return current, true
}

func (s *registerSlot) RequestQuit() {
	s.rf.CloseFastPath(s.physicalID)
	s.rf.writeData(s.physicalID, StopSentinel)
}

func (s *registerSlot) Advertise(physicalID int) {
	s.ackChan.Store(int32(physicalID) + 1)
}

func (s *registerSlot) AwaitReady(ctx context.Context) bool {
	for s.rf.fastPath[s.physicalID].Load() != fastPathOpen {
		if ctx.Err() != nil {
			return false
		}
		goruntime.Gosched()
	}
	return true
}

func (s *registerSlot) Poll() (*Task, bool) {
	value := s.rf.readData(s.physicalID)
	if value == StopSentinel {
		return nil, true
	}
	if value == 0 || int(value) == s.lastTaskID {
		return nil, false
	}
	s.lastTaskID = int(value)
	taskID := int(value) - 1
	s.rf.setCond(s.physicalID, true)
	s.accepted.Store(value)
	task, ok := s.graph.GetTask(taskID)
	if !ok {
		return nil, false
	}
	return task, false
}

func (s *registerSlot) Complete() {
	s.rf.setCond(s.physicalID, false)
}
