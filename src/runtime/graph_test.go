package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDiamond(t *testing.T) *Graph {
	t.Helper()
	b := NewGraphBuilder()
	require.NoError(t, b.AddTask(TaskSpec{ID: 1, CoreType: CoreTypeCompute}))
	require.NoError(t, b.AddTask(TaskSpec{ID: 2, CoreType: CoreTypeCompute, Deps: []int{1}}))
	require.NoError(t, b.AddTask(TaskSpec{ID: 3, CoreType: CoreTypeVector, Deps: []int{1}}))
	require.NoError(t, b.AddTask(TaskSpec{ID: 4, CoreType: CoreTypeCompute, Deps: []int{2, 3}}))
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestGraphBuilder_Diamond(t *testing.T) {
	g := buildDiamond(t)

	assert.Equal(t, 4, g.TaskCount())
	assert.Equal(t, []int{1}, g.InitialReadyTasks())

	task1, ok := g.GetTask(1)
	require.True(t, ok)
	assert.ElementsMatch(t, []int{2, 3}, task1.Fanout)
	assert.EqualValues(t, 0, task1.Fanin())

	task4, ok := g.GetTask(4)
	require.True(t, ok)
	assert.EqualValues(t, 2, task4.Fanin())
}

func TestGraphBuilder_DanglingDependencyRejected(t *testing.T) {
	b := NewGraphBuilder()
	require.NoError(t, b.AddTask(TaskSpec{ID: 1, Deps: []int{99}}))
	_, err := b.Build()
	assert.ErrorIs(t, err, ErrDanglingDependency)
}

func TestGraphBuilder_CycleRejected(t *testing.T) {
	b := NewGraphBuilder()
	require.NoError(t, b.AddTask(TaskSpec{ID: 1, Deps: []int{2}}))
	require.NoError(t, b.AddTask(TaskSpec{ID: 2, Deps: []int{1}}))
	_, err := b.Build()
	assert.ErrorIs(t, err, ErrGraphCycle)
}

func TestGraphBuilder_DuplicateIDRejected(t *testing.T) {
	b := NewGraphBuilder()
	require.NoError(t, b.AddTask(TaskSpec{ID: 1}))
	err := b.AddTask(TaskSpec{ID: 1})
	assert.Error(t, err)
}

func TestTask_DecrementFaninSingleTransition(t *testing.T) {
	g := buildDiamond(t)
	task4, _ := g.GetTask(4)

	first := task4.DecrementFanin()
	assert.False(t, first)
	second := task4.DecrementFanin()
	assert.True(t, second)
	assert.EqualValues(t, 0, task4.Fanin())
}

func TestGraph_Reset(t *testing.T) {
	g := buildDiamond(t)
	task4, _ := g.GetTask(4)
	task4.DecrementFanin()
	require.EqualValues(t, 1, task4.Fanin())

	g.Reset()
	assert.EqualValues(t, 2, task4.Fanin())
	assert.Equal(t, []int{1}, g.InitialReadyTasks())
}
