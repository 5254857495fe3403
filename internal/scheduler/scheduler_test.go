package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ringloop/ringloop/internal/task"
)

func TestRunBatchRunsTasksInFIFOOrder(t *testing.T) {
	s := New()
	var order []int

	for i := 0; i < 3; i++ {
		i := i
		tk := task.New(uint64(i), s, func() (any, error) {
			order = append(order, i)
			return i, nil
		})
		s.Ready(tk)
	}

	ran := s.RunBatch(DefaultBatch)
	require.Equal(t, 3, ran)
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestRunBatchRespectsBudget(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		tk := task.New(uint64(i), s, func() (any, error) { return nil, nil })
		s.Ready(tk)
	}

	ran := s.RunBatch(2)
	require.Equal(t, 2, ran)
	require.Equal(t, 3, s.Len())
}

func TestTaskYieldReenqueuesViaScheduler(t *testing.T) {
	s := New()
	resumed := false
	var tk *task.Task
	tk = task.New(1, s, func() (any, error) {
		tk.Yield()
		resumed = true
		return nil, nil
	})
	s.Ready(tk)

	s.RunBatch(1) // runs until Yield suspends it
	require.False(t, resumed)

	tk.Wake()
	require.Equal(t, 1, s.Len())
	s.RunBatch(1)
	require.True(t, resumed)
	require.True(t, tk.Completed())
}

func TestLenReflectsQueueDepth(t *testing.T) {
	s := New()
	require.Zero(t, s.Len())
	s.Ready(task.New(1, s, func() (any, error) { return nil, nil }))
	require.Equal(t, 1, s.Len())
}
