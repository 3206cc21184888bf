package runtime

// Opcode names the builtin kernel a task's KernelID conventionally maps to.
// It exists purely for logging/debugging clarity; dispatch itself never
// branches on Opcode, only on KernelID via the KernelRegistry.
type Opcode int

const (
	OpcodeInvalid Opcode = iota
	OpcodeKernelAdd
	OpcodeKernelAddScalar
	OpcodeSync
	OpcodeCustom
)

func (o Opcode) String() string {
	switch o {
	case OpcodeKernelAdd:
		return "kernel_add"
	case OpcodeKernelAddScalar:
		return "kernel_add_scalar"
	case OpcodeSync:
		return "sync"
	case OpcodeCustom:
		return "custom"
	default:
		return "invalid"
	}
}

// OpcodeFromString maps a textual opcode name back to its Opcode, the
// inverse of Opcode.String; unknown names map to OpcodeInvalid.
func OpcodeFromString(name string) Opcode {
	switch name {
	case "kernel_add":
		return OpcodeKernelAdd
	case "kernel_add_scalar":
		return OpcodeKernelAddScalar
	case "sync":
		return OpcodeSync
	case "custom":
		return OpcodeCustom
	default:
		return OpcodeInvalid
	}
}

// CoreType differentiates the two worker classes tasks are affinitized to.
type CoreType int

const (
	CoreTypeCompute CoreType = iota
	CoreTypeVector
)

func (c CoreType) String() string {
	switch c {
	case CoreTypeCompute:
		return "compute"
	case CoreTypeVector:
		return "vector"
	default:
		return "unknown"
	}
}
