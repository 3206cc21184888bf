package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcodeRoundTrip(t *testing.T) {
	for _, op := range []Opcode{OpcodeKernelAdd, OpcodeKernelAddScalar, OpcodeSync, OpcodeCustom} {
		assert.Equal(t, op, OpcodeFromString(op.String()))
	}
}

func TestOpcodeFromString_Unknown(t *testing.T) {
	assert.Equal(t, OpcodeInvalid, OpcodeFromString("does_not_exist"))
}

func TestCoreType_String(t *testing.T) {
	assert.Equal(t, "compute", CoreTypeCompute.String())
	assert.Equal(t, "vector", CoreTypeVector.String())
}
