package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"

	"taskcore/src/abi"
	"taskcore/src/runtime"
)

func main() {
	threadNum := flag.Int("thread-num", 1, "number of scheduler threads")
	blockDim := flag.Int("block-dim", 1, "number of blocks; must be divisible by thread-num")
	transportName := flag.String("transport", "shared_memory", "handshake transport (shared_memory|register)")
	scenario := flag.String("scenario", "chain", "demo task graph to launch (single|chain|diamond)")
	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	flag.Parse()

	logLevel := zerolog.InfoLevel
	if *verbose {
		logLevel = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(logLevel).
		With().Timestamp().Logger()

	transport, err := parseTransport(*transportName)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid transport")
	}

	graph, arena, err := buildScenario(*scenario)
	if err != nil {
		log.Fatal().Err(err).Str("scenario", *scenario).Msg("invalid scenario")
	}

	deviceBytes := int64(len(arena)) * 4
	deviceID, err := abi.InitRuntime(graph, deviceBytes, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init_runtime failed")
	}
	defer func() {
		if err := abi.FinalizeRuntime(); err != nil {
			log.Error().Err(err).Msg("finalize_runtime failed")
		}
	}()
	log.Info().Int("device_id", deviceID).Msg("runtime initialized")

	offset, err := abi.DeviceMalloc(deviceBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("device_malloc failed")
	}
	if err := abi.CopyToDevice(offset, float32sToBytes(arena)); err != nil {
		log.Fatal().Err(err).Msg("copy_to_device failed")
	}
	if _, err := abi.RegisterKernel("add", offset, int64(len(arena))); err != nil {
		log.Fatal().Err(err).Msg("register_kernel failed")
	}

	config := runtime.LaunchConfig{ThreadNum: *threadNum, BlockDim: *blockDim, Transport: transport}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	if err := abi.LaunchRuntime(ctx, config); err != nil {
		log.Fatal().Err(err).Msg("launch_runtime failed")
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("launch complete")

	out := make([]byte, deviceBytes)
	if err := abi.CopyFromDevice(out, offset); err != nil {
		log.Fatal().Err(err).Msg("copy_from_device failed")
	}
	fmt.Println(bytesToFloat32s(out))
}

func parseTransport(name string) (runtime.TransportKind, error) {
	switch name {
	case "shared_memory", "":
		return runtime.TransportSharedMemory, nil
	case "register":
		return runtime.TransportRegister, nil
	default:
		return 0, fmt.Errorf("unknown transport %q", name)
	}
}

// buildScenario stands up one of the small task graphs used in the dispatch
// core's own tests, along with the flat float32 arena its "add" kernel
// operates on, so the CLI has something runnable without a host-side graph
// description format (out of scope for this core).
func buildScenario(name string) (*runtime.Graph, []float32, error) {
	b := runtime.NewGraphBuilder()
	var arena []float32

	addTask := func(spec runtime.TaskSpec) error { return b.AddTask(spec) }

	switch name {
	case "single":
		arena = []float32{1, 2, 0}
		if err := addTask(runtime.TaskSpec{ID: 1, CoreType: runtime.CoreTypeCompute, Opcode: runtime.OpcodeKernelAdd, KernelID: 1, Args: []int64{0, 1, 2, 1}}); err != nil {
			return nil, nil, err
		}
	case "chain", "":
		arena = []float32{1, 2, 0, 3, 0}
		if err := addTask(runtime.TaskSpec{ID: 1, CoreType: runtime.CoreTypeCompute, Opcode: runtime.OpcodeKernelAdd, KernelID: 1, Args: []int64{0, 1, 2, 1}}); err != nil {
			return nil, nil, err
		}
		if err := addTask(runtime.TaskSpec{ID: 2, CoreType: runtime.CoreTypeCompute, Opcode: runtime.OpcodeKernelAdd, KernelID: 1, Args: []int64{2, 3, 4, 1}, Deps: []int{1}}); err != nil {
			return nil, nil, err
		}
	case "diamond":
		arena = []float32{1, 2, 0, 0, 0}
		if err := addTask(runtime.TaskSpec{ID: 1, CoreType: runtime.CoreTypeCompute, Opcode: runtime.OpcodeKernelAdd, KernelID: 1, Args: []int64{0, 1, 2, 1}}); err != nil {
			return nil, nil, err
		}
		if err := addTask(runtime.TaskSpec{ID: 2, CoreType: runtime.CoreTypeCompute, Opcode: runtime.OpcodeKernelAdd, KernelID: 1, Args: []int64{2, 0, 3, 1}, Deps: []int{1}}); err != nil {
			return nil, nil, err
		}
		if err := addTask(runtime.TaskSpec{ID: 3, CoreType: runtime.CoreTypeVector, Opcode: runtime.OpcodeKernelAdd, KernelID: 1, Args: []int64{2, 1, 4, 1}, Deps: []int{1}}); err != nil {
			return nil, nil, err
		}
		if err := addTask(runtime.TaskSpec{ID: 4, CoreType: runtime.CoreTypeCompute, Opcode: runtime.OpcodeKernelAdd, KernelID: 1, Args: []int64{3, 4, 0, 1}, Deps: []int{2, 3}}); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown scenario %q", name)
	}

	graph, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return graph, arena, nil
}

func float32sToBytes(vals []float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		bits := math.Float32bits(v)
		base := i * 4
		out[base] = byte(bits)
		out[base+1] = byte(bits >> 8)
		out[base+2] = byte(bits >> 16)
		out[base+3] = byte(bits >> 24)
	}
	return out
}

func bytesToFloat32s(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		base := i * 4
		bits := uint32(raw[base]) | uint32(raw[base+1])<<8 | uint32(raw[base+2])<<16 | uint32(raw[base+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
