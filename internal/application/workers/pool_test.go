package workers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/internal/application/workers"
)

// recordingRunner collects execution ids handed to the pool
type recordingRunner struct {
	mu   sync.Mutex
	seen []string
}

func (r *recordingRunner) RunExecution(executionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, executionID)
}

func (r *recordingRunner) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.seen))
	copy(out, r.seen)
	return out
}

func TestPool_ConsumesQueue(t *testing.T) {
	queue := make(chan string, 10)
	runner := &recordingRunner{}

	pool := workers.NewPool(3, queue, runner, zap.NewNop(), time.Minute)
	require.NoError(t, pool.Start())

	queue <- "exec-1"
	queue <- "exec-2"
	queue <- "exec-3"

	require.Eventually(t, func() bool {
		return len(runner.ids()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.ElementsMatch(t, []string{"exec-1", "exec-2", "exec-3"}, runner.ids())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
}

func TestPool_EachIDClaimedOnce(t *testing.T) {
	queue := make(chan string, 100)
	runner := &recordingRunner{}

	pool := workers.NewPool(5, queue, runner, zap.NewNop(), time.Minute)
	require.NoError(t, pool.Start())

	for i := 0; i < 50; i++ {
		queue <- "exec-unique"
	}

	require.Eventually(t, func() bool {
		return len(runner.ids()) == 50
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
}

func TestPool_StatusAndShutdown(t *testing.T) {
	queue := make(chan string)
	runner := &recordingRunner{}

	pool := workers.NewPool(2, queue, runner, zap.NewNop(), time.Minute)
	require.NoError(t, pool.Start())

	require.Eventually(t, func() bool {
		status := pool.GetStatus()
		if len(status) != 2 {
			return false
		}
		for _, s := range status {
			if s != workers.WorkerStatusIdle {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	for _, s := range pool.GetStatus() {
		assert.Equal(t, workers.WorkerStatusStopped, s)
	}
}

func TestHealthMonitor_Check(t *testing.T) {
	queue := make(chan string)
	pool := workers.NewPool(3, queue, &recordingRunner{}, zap.NewNop(), time.Minute)
	require.NoError(t, pool.Start())

	monitor := workers.NewHealthMonitor(pool, time.Minute, zap.NewNop())

	require.Eventually(t, func() bool {
		status := monitor.Check()
		return status.TotalWorkers == 3 && status.IdleWorkers == 3 && status.Healthy
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	status := monitor.Check()
	assert.Equal(t, 3, status.StoppedWorkers)
	assert.False(t, status.Healthy)
}
