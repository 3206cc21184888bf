package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWorker_ExecutesDispatchedTaskThenIdles(t *testing.T) {
	cell := NewHandshakeCell(CoreTypeCompute)
	kernels := NewKernelRegistry()
	arena := []float32{2, 3, 0}
	require.NoError(t, kernels.Register(1, NewKernelAdd(arena)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		RunWorker(ctx, cell, 0, kernels, testLogger())
	}()

	physicalID, ok := cell.BringUp(ctx)
	require.True(t, ok)
	assert.Equal(t, 0, physicalID)

	task := &Task{ID: 1, KernelID: 1, Args: []int64{0, 1, 2, 1}}
	cell.Dispatch(task)

	deadline := time.After(time.Second)
	for {
		if _, ok := cell.Reclaim(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker never completed dispatched task")
		default:
		}
	}
	assert.Equal(t, float32(5), arena[2])

	cell.RequestQuit()
	<-done
}

func TestRunWorker_AbandonsBringUpOnCancel(t *testing.T) {
	cell := NewHandshakeCell(CoreTypeCompute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		RunWorker(ctx, cell, 0, NewKernelRegistry(), testLogger())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunWorker did not return after context cancellation")
	}
}
