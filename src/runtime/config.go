package runtime

import "fmt"

// TransportKind selects which handshake mechanism LaunchRuntime wires up.
type TransportKind int

const (
	TransportSharedMemory TransportKind = iota
	TransportRegister
)

func (k TransportKind) String() string {
	if k == TransportRegister {
		return "register"
	}
	return "shared_memory"
}

// CoresPerBlock is the fixed 1-compute/2-vector ratio a block provides. It
// is kept a named constant rather than a configuration knob: spec.md's
// design notes leave open whether this ratio is a platform constant or
// should be parameterized, and this rewrite resolves that in favor of
// "platform constant" (see DESIGN.md).
const CoresPerBlock = 3

// MaxAicpuThreads bounds thread_num, mirroring MAX_AICPU_THREADS.
const MaxAicpuThreads = 64

// MaxCoresPerThread bounds how many worker cores a single scheduler thread
// may own, mirroring MAX_CORES_PER_THREAD (MAX_AIC_PER_THREAD +
// MAX_AIV_PER_THREAD) in aicpu_executor.cpp.
const MaxCoresPerThread = 72

// LaunchConfig bundles the parameters LaunchRuntime validates and acts on.
type LaunchConfig struct {
	ThreadNum int
	BlockDim  int
	Transport TransportKind
}

// Validate enforces the ConfigurationError taxonomy from §7: thread count
// range, divisibility, a positive block dimension, and a per-thread core cap.
func (c LaunchConfig) Validate() error {
	if c.ThreadNum <= 0 || c.ThreadNum > MaxAicpuThreads {
		return fmt.Errorf("%w: thread_num %d out of [1, %d]", ErrConfiguration, c.ThreadNum, MaxAicpuThreads)
	}
	if c.BlockDim <= 0 {
		return fmt.Errorf("%w: block_dim %d must be positive", ErrConfiguration, c.BlockDim)
	}
	if c.BlockDim%c.ThreadNum != 0 {
		return fmt.Errorf("%w: block_dim %d not divisible by thread_num %d", ErrConfiguration, c.BlockDim, c.ThreadNum)
	}
	if coresPerThread := c.TotalWorkers() / c.ThreadNum; coresPerThread > MaxCoresPerThread {
		return fmt.Errorf("%w: cores_per_thread %d exceeds maximum %d", ErrConfiguration, coresPerThread, MaxCoresPerThread)
	}
	return nil
}

// BlocksPerThread returns block_dim/thread_num, valid only once Validate has
// passed.
func (c LaunchConfig) BlocksPerThread() int {
	return c.BlockDim / c.ThreadNum
}

// TotalWorkers returns the total number of worker cores the configuration
// spins up: one compute and two vector cores per block.
func (c LaunchConfig) TotalWorkers() int {
	return c.BlockDim * CoresPerBlock
}
