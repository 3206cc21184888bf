package abi

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"taskcore/src/runtime"
)

// device bundles one runtime.Runtime with the device memory arena and
// kernel registry it was built against. One process may hold several;
// SetDevice selects which one the unqualified ABI calls act on, mirroring
// the teacher's single-active-context convention in misc.RuntimePlatformMode.
type device struct {
	id      int
	arena   *arena
	kernels *runtime.KernelRegistry
	rt      *runtime.Runtime
	graph   *runtime.Graph
	log     zerolog.Logger
}

var (
	devicesMu sync.RWMutex
	devices   = map[int]*device{}
	nextID    atomic.Int32

	activeMu sync.RWMutex
	activeID = -1
)

// GetRuntimeSize always returns 0. In simulation there is no foreign struct
// to size; the constant stands in for what would otherwise be a
// sizeof(Runtime) call across a cgo boundary.
func GetRuntimeSize() int64 {
	return 0
}

// InitRuntime creates a device with deviceMemoryBytes of simulated device
// memory and graph as its task graph, registers it, and makes it the active
// device. It returns the device id a caller passes to subsequent calls, or
// 0 and an error.
func InitRuntime(graph *runtime.Graph, deviceMemoryBytes int64, log zerolog.Logger) (int, error) {
	if graph == nil {
		return 0, fmt.Errorf("%w: graph is nil", ErrInvalidArgument)
	}
	if deviceMemoryBytes <= 0 {
		return 0, fmt.Errorf("%w: device_memory_bytes %d must be positive", ErrInvalidArgument, deviceMemoryBytes)
	}

	kernels := runtime.NewKernelRegistry()
	rt, err := runtime.New(graph, kernels, log)
	if err != nil {
		return 0, err
	}

	id := int(nextID.Add(1))
	dev := &device{
		id:      id,
		arena:   newArena(deviceMemoryBytes),
		kernels: kernels,
		rt:      rt,
		graph:   graph,
		log:     log,
	}

	devicesMu.Lock()
	devices[id] = dev
	devicesMu.Unlock()

	SetDevice(id)
	return id, nil
}

// SetDevice makes deviceID the target of subsequent unqualified ABI calls.
func SetDevice(deviceID int) {
	activeMu.Lock()
	defer activeMu.Unlock()
	activeID = deviceID
}

func activeDevice() (*device, error) {
	activeMu.RLock()
	id := activeID
	activeMu.RUnlock()
	if id < 0 {
		return nil, ErrNoActiveDevice
	}
	devicesMu.RLock()
	defer devicesMu.RUnlock()
	dev, ok := devices[id]
	if !ok {
		return nil, ErrNoActiveDevice
	}
	return dev, nil
}

// DeviceMalloc allocates n bytes on the active device and returns an offset
// usable with CopyToDevice/CopyFromDevice.
func DeviceMalloc(n int64) (int64, error) {
	dev, err := activeDevice()
	if err != nil {
		return 0, err
	}
	return dev.arena.malloc(n)
}

// DeviceFree releases a prior DeviceMalloc allocation on the active device.
func DeviceFree(offset int64) error {
	dev, err := activeDevice()
	if err != nil {
		return err
	}
	return dev.arena.free(offset)
}

// CopyToDevice copies src into the active device's arena at offset.
func CopyToDevice(offset int64, src []byte) error {
	dev, err := activeDevice()
	if err != nil {
		return err
	}
	return dev.arena.copyFromHost(offset, src)
}

// CopyFromDevice copies len(dst) bytes from the active device's arena at
// offset into dst.
func CopyFromDevice(dst []byte, offset int64) error {
	dev, err := activeDevice()
	if err != nil {
		return err
	}
	return dev.arena.copyToHost(dst, offset)
}

// RegisterKernel binds name to one of the builtin simulation kernels,
// closing over the active device's arena viewed as a []float32, and returns
// the func_id later used as Task.KernelID. Real kernel binaries are out of
// scope for the simulation backend (§1 of the expanded spec); only the
// names the test scenarios in §8 exercise are recognized.
func RegisterKernel(name string, arenaOffset, arenaLen int64) (uint32, error) {
	dev, err := activeDevice()
	if err != nil {
		return 0, err
	}
	view, err := dev.arena.float32View(arenaOffset, arenaLen)
	if err != nil {
		return 0, err
	}

	var kernel runtime.Kernel
	switch name {
	case "add":
		kernel = runtime.NewKernelAdd(view)
	case "add_scalar":
		kernel = runtime.NewKernelAddScalar(view)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}
	return dev.kernels.RegisterNext(kernel), nil
}

// LaunchRuntime runs the active device's graph to completion under config.
func LaunchRuntime(ctx context.Context, config runtime.LaunchConfig) error {
	dev, err := activeDevice()
	if err != nil {
		return err
	}
	return dev.rt.Launch(ctx, config)
}

// FinalizeRuntime tears down the active device and removes it from the
// registry. SetDevice accepts a stale id without complaint, but every
// device call made after it then fails with ErrNoActiveDevice.
func FinalizeRuntime() error {
	dev, err := activeDevice()
	if err != nil {
		return err
	}
	devicesMu.Lock()
	delete(devices, dev.id)
	devicesMu.Unlock()

	activeMu.Lock()
	if activeID == dev.id {
		activeID = -1
	}
	activeMu.Unlock()
	return nil
}
