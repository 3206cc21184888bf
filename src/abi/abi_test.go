package abi

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskcore/src/runtime"
)

func buildSingleAddGraph(t *testing.T) *runtime.Graph {
	t.Helper()
	b := runtime.NewGraphBuilder()
	require.NoError(t, b.AddTask(runtime.TaskSpec{
		ID: 1, CoreType: runtime.CoreTypeCompute, Opcode: runtime.OpcodeKernelAdd,
		KernelID: 1, Args: []int64{0, 1, 2, 1},
	}))
	graph, err := b.Build()
	require.NoError(t, err)
	return graph
}

func TestInitRuntime_MakesDeviceActive(t *testing.T) {
	graph := buildSingleAddGraph(t)
	id, err := InitRuntime(graph, 64, zerolog.Nop())
	require.NoError(t, err)
	defer FinalizeRuntime()

	assert.NotZero(t, id)
	_, err = activeDevice()
	assert.NoError(t, err)
}

func TestDeviceMallocFreeRoundTrip(t *testing.T) {
	graph := buildSingleAddGraph(t)
	_, err := InitRuntime(graph, 64, zerolog.Nop())
	require.NoError(t, err)
	defer FinalizeRuntime()

	offset, err := DeviceMalloc(16)
	require.NoError(t, err)

	require.NoError(t, CopyToDevice(offset, []byte{1, 2, 3, 4}))
	out := make([]byte, 4)
	require.NoError(t, CopyFromDevice(out, offset))
	assert.Equal(t, []byte{1, 2, 3, 4}, out)

	assert.NoError(t, DeviceFree(offset))
	assert.Error(t, DeviceFree(offset), "double free must be rejected")
}

func TestDeviceMalloc_ExhaustionReturnsOutOfMemory(t *testing.T) {
	graph := buildSingleAddGraph(t)
	_, err := InitRuntime(graph, 8, zerolog.Nop())
	require.NoError(t, err)
	defer FinalizeRuntime()

	_, err = DeviceMalloc(16)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestNoActiveDeviceRejectsCalls(t *testing.T) {
	SetDevice(-1)
	_, err := DeviceMalloc(8)
	assert.ErrorIs(t, err, ErrNoActiveDevice)
}

func TestRegisterKernel_UnknownNameRejected(t *testing.T) {
	graph := buildSingleAddGraph(t)
	_, err := InitRuntime(graph, 64, zerolog.Nop())
	require.NoError(t, err)
	defer FinalizeRuntime()

	offset, err := DeviceMalloc(16)
	require.NoError(t, err)

	_, err = RegisterKernel("does_not_exist", offset, 4)
	assert.ErrorIs(t, err, ErrUnknownKernel)
}

func TestLaunchRuntime_EndToEnd(t *testing.T) {
	graph := buildSingleAddGraph(t)
	_, err := InitRuntime(graph, 16, zerolog.Nop())
	require.NoError(t, err)
	defer FinalizeRuntime()

	offset, err := DeviceMalloc(16)
	require.NoError(t, err)

	arena := float32sToBytesForTest([]float32{2, 3, 0, 0})
	require.NoError(t, CopyToDevice(offset, arena))

	funcID, err := RegisterKernel("add", offset, 4)
	require.NoError(t, err)
	assert.NotZero(t, funcID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, LaunchRuntime(ctx, runtime.LaunchConfig{ThreadNum: 1, BlockDim: 1, Transport: runtime.TransportSharedMemory}))

	out := make([]byte, 16)
	require.NoError(t, CopyFromDevice(out, offset))
	result := bytesToFloat32sForTest(out)
	assert.Equal(t, float32(5), result[2])
}

func float32sToBytesForTest(vals []float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		bits := runtime.Float32Bits(v)
		base := i * 4
		out[base] = byte(bits)
		out[base+1] = byte(bits >> 8)
		out[base+2] = byte(bits >> 16)
		out[base+3] = byte(bits >> 24)
	}
	return out
}

func bytesToFloat32sForTest(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		base := i * 4
		bits := uint32(raw[base]) | uint32(raw[base+1])<<8 | uint32(raw[base+2])<<16 | uint32(raw[base+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
