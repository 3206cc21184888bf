package runtime

import (
	"context"
	goruntime "runtime"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Runtime is the aggregate of a task graph and its launch configuration: the
// one-Runtime-instance-per-launch object described in §3. A single Runtime
// can be relaunched after a completed run; Launch rejects a concurrent
// caller with ErrAlreadyLaunching (via mu) so "one Runtime instance per
// launch" holds even under misuse.
type Runtime struct {
	graph   *Graph
	kernels *KernelRegistry
	log     zerolog.Logger

	mu sync.Mutex
}

// New constructs a Runtime over graph, using kernels to resolve Task
// KernelIDs and log for structured observability. kernels may be nil, in
// which case tasks with a non-zero KernelID are logged and skipped rather
// than executed.
func New(graph *Graph, kernels *KernelRegistry, log zerolog.Logger) (*Runtime, error) {
	if graph == nil {
		return nil, ErrNullArgument
	}
	if kernels == nil {
		kernels = NewKernelRegistry()
	}
	return &Runtime{graph: graph, kernels: kernels, log: log}, nil
}

// Graph returns the runtime's task graph.
func (r *Runtime) Graph() *Graph { return r.graph }

// launchState holds everything scoped to a single Launch call. It is
// allocated fresh each time, which is what makes relaunching a Runtime after
// a completed run behave identically: there is no persistent scheduler-side
// state left over for teardown to clean up beyond the Graph's fan-in counts.
type launchState struct {
	config    LaunchConfig
	ready     *ReadyQueues
	completed atomic.Int32
	taskCount int

	initClaimed atomic.Bool
	initDone    atomic.Bool
	initFailed  atomic.Bool
	initMu      sync.Mutex
	initErr     error

	finishedCount atomic.Int32
	threadSlots   [][]WorkerSlot
	registerFile  *RegisterFile

	log zerolog.Logger
}

// Launch validates config, spawns schedulerThreadNum scheduler goroutines
// and the workers they own, seeds the ready queues from the graph's initial
// ready set, and runs the dispatch loop to completion. It returns once every
// task has been retired and every worker has observed quit, or returns the
// first ConfigurationError/NullArgument encountered during Init — in which
// case no worker is ever unblocked, per §4.7.
//
// Launch is not reentrant: a second call while one is in flight returns
// ErrAlreadyLaunching.
func (r *Runtime) Launch(ctx context.Context, config LaunchConfig) error {
	if !r.mu.TryLock() {
		return ErrAlreadyLaunching
	}
	defer r.mu.Unlock()

	if r.graph == nil {
		return ErrNullArgument
	}
	r.graph.Reset()

	ls := &launchState{
		config:    config,
		ready:     NewReadyQueues(r.graph.TaskCount()),
		taskCount: r.graph.TaskCount(),
		log:       r.log,
	}
	if config.Transport == TransportRegister {
		ls.registerFile = NewRegisterFile(config.TotalWorkers())
	}

	group, gctx := errgroup.WithContext(ctx)
	var workers sync.WaitGroup

	for threadIdx := 0; threadIdx < max(config.ThreadNum, 1); threadIdx++ {
		threadIdx := threadIdx
		group.Go(func() error {
			return r.runSchedulerThread(gctx, ls, threadIdx, &workers)
		})
	}

	err := group.Wait()
	workers.Wait()
	return err
}

func (r *Runtime) runSchedulerThread(ctx context.Context, ls *launchState, threadIdx int, workers *sync.WaitGroup) error {
	if alreadyClaimed := ls.initClaimed.Swap(true); alreadyClaimed {
		for !ls.initDone.Load() && !ls.initFailed.Load() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			goruntime.Gosched()
		}
	} else {
		if err := r.runInit(ls, workers); err != nil {
			ls.initMu.Lock()
			ls.initErr = err
			ls.initMu.Unlock()
			ls.initFailed.Store(true)
			return err
		}
		ls.initDone.Store(true)
	}

	if ls.initFailed.Load() {
		ls.initMu.Lock()
		err := ls.initErr
		ls.initMu.Unlock()
		return err
	}

	mySlots := ls.threadSlots[threadIdx]
	for _, slot := range mySlots {
		if _, ok := slot.BringUp(ctx); !ok {
			return ctx.Err()
		}
	}

	engine := NewDispatchEngine(r.graph, ls.ready, mySlots, ls.config.Transport, &ls.completed, ls.log)
	engine.Run(ctx)

	for _, slot := range mySlots {
		slot.RequestQuit()
	}

	if ls.finishedCount.Add(1) == int32(ls.config.ThreadNum) {
		r.teardown(ls)
	}
	return nil
}

// runInit is executed exactly once per launch, by whichever scheduler
// thread wins the CAS race on initClaimed. It validates configuration,
// computes the thread-to-core assignment, allocates worker slots, spawns
// their goroutines, and seeds the ready queues.
func (r *Runtime) runInit(ls *launchState, workers *sync.WaitGroup) error {
	if err := ls.config.Validate(); err != nil {
		return err
	}

	threadNum := ls.config.ThreadNum
	blocksPerThread := ls.config.BlocksPerThread()
	blockDim := ls.config.BlockDim

	allSlots := make([]WorkerSlot, ls.config.TotalWorkers())
	ls.threadSlots = make([][]WorkerSlot, threadNum)

	makeSlot := func(coreType CoreType, physicalID int) WorkerSlot {
		if ls.config.Transport == TransportRegister {
			return NewRegisterWorkerSlot(ls.registerFile, r.graph, coreType, physicalID)
		}
		return NewHandshakeCell(coreType)
	}

	for threadIdx := 0; threadIdx < threadNum; threadIdx++ {
		blockStart := threadIdx * blocksPerThread
		blockEnd := blockStart + blocksPerThread

		var owned []WorkerSlot
		for b := blockStart; b < blockEnd; b++ {
			computeID := b
			slot := makeSlot(CoreTypeCompute, computeID)
			allSlots[computeID] = slot
			owned = append(owned, slot)
		}
		for b := blockStart; b < blockEnd; b++ {
			for v := 0; v < 2; v++ {
				vectorID := blockDim + 2*b + v
				slot := makeSlot(CoreTypeVector, vectorID)
				allSlots[vectorID] = slot
				owned = append(owned, slot)
			}
		}
		ls.threadSlots[threadIdx] = owned
	}

	for i, slot := range allSlots {
		i, slot := i, slot
		workers.Add(1)
		go func() {
			defer workers.Done()
			RunWorker(context.Background(), slot, i, r.kernels, ls.log)
		}()
	}

	initialReady := r.graph.InitialReadyTasks()
	if len(initialReady) == 0 {
		return ErrEmptyReadySet
	}
	SeedInitialReady(ls.ready, r.graph, initialReady)

	ls.log.Info().Int("thread_num", threadNum).Int("block_dim", blockDim).Str("transport", ls.config.Transport.String()).Msg("init complete")
	return nil
}

// teardown clears scheduler-owned launch state so the same Runtime can be
// relaunched; it is run by the last scheduler thread to finish, as §4.7
// requires. Because launchState is allocated fresh per Launch call, the only
// residual state to worry about lives on the Graph, and Launch resets that
// at entry — this just logs the transition.
func (r *Runtime) teardown(ls *launchState) {
	ls.log.Info().Int("completed", int(ls.completed.Load())).Msg("teardown complete")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
