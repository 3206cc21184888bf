package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadyQueues_PushPopLIFO(t *testing.T) {
	q := NewReadyQueues(8)
	q.Push(CoreTypeCompute, 1)
	q.Push(CoreTypeCompute, 2)
	q.Push(CoreTypeCompute, 3)

	id, ok := q.TryPop(CoreTypeCompute)
	assert.True(t, ok)
	assert.Equal(t, 3, id)
}

func TestReadyQueues_SeparateClasses(t *testing.T) {
	q := NewReadyQueues(8)
	q.Push(CoreTypeCompute, 1)
	q.Push(CoreTypeVector, 2)

	assert.False(t, q.IsEmpty(CoreTypeCompute))
	assert.False(t, q.IsEmpty(CoreTypeVector))

	_, ok := q.TryPop(CoreTypeCompute)
	assert.True(t, ok)
	assert.True(t, q.IsEmpty(CoreTypeCompute))
	assert.False(t, q.IsEmpty(CoreTypeVector))
}

func TestReadyQueues_TryPopEmpty(t *testing.T) {
	q := NewReadyQueues(8)
	_, ok := q.TryPop(CoreTypeCompute)
	assert.False(t, ok)
}

func TestReadyQueues_ConcurrentPushPop(t *testing.T) {
	q := NewReadyQueues(1000)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.Push(CoreTypeCompute, id)
		}(i)
	}
	wg.Wait()

	popped := 0
	for {
		if _, ok := q.TryPop(CoreTypeCompute); !ok {
			break
		}
		popped++
	}
	assert.Equal(t, 100, popped)
}

func TestSeedInitialReady_PartitionsByClass(t *testing.T) {
	b := NewGraphBuilder()
	_ = b.AddTask(TaskSpec{ID: 1, CoreType: CoreTypeCompute})
	_ = b.AddTask(TaskSpec{ID: 2, CoreType: CoreTypeVector})
	g, err := b.Build()
	assert.NoError(t, err)

	q := NewReadyQueues(8)
	SeedInitialReady(q, g, g.InitialReadyTasks())

	_, computeOK := q.TryPop(CoreTypeCompute)
	_, vectorOK := q.TryPop(CoreTypeVector)
	assert.True(t, computeOK)
	assert.True(t, vectorOK)
}
