package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/internal/application/orchestrator"
	"github.com/mrwa-ai/mrwa/internal/application/service"
	eventsmemory "github.com/mrwa-ai/mrwa/pkg/adapters/events/memory"
	leasememory "github.com/mrwa-ai/mrwa/pkg/adapters/lease/memory"
	storagememory "github.com/mrwa-ai/mrwa/pkg/adapters/storage/memory"
	"github.com/mrwa-ai/mrwa/pkg/adapters/metrics"
	"github.com/mrwa-ai/mrwa/pkg/adapters/planner/fixture"
	"github.com/mrwa-ai/mrwa/pkg/domain"
	"github.com/mrwa-ai/mrwa/pkg/handlers"
	"github.com/mrwa-ai/mrwa/pkg/ports"
)

func newTestService(t *testing.T) (*service.Service, *storagememory.Store, *eventsmemory.Sink) {
	t.Helper()

	store := storagememory.NewStore()
	sink := eventsmemory.NewSink()

	engine := orchestrator.NewEngine(
		store, sink, leasememory.NewManager(), handlers.NewDemoRegistry(), metrics.NewNoop(),
		orchestrator.NewValidator(), orchestrator.NewCorrector(),
		zap.NewNop(),
		orchestrator.Options{
			WorkerID:       "test-worker",
			BackoffBase:    time.Millisecond,
			BackoffCap:     5 * time.Millisecond,
			PersistBackoff: time.Millisecond,
		},
	)

	svc := service.New(service.Config{
		Store:             store,
		Sink:              sink,
		Planner:           fixture.NewPlanner(),
		Engine:            engine,
		Metrics:           metrics.NewNoop(),
		Logger:            zap.NewNop(),
		DefaultMaxRetries: 3,
		QueueSize:         10,
	})

	return svc, store, sink
}

func TestService_CreateExecution(t *testing.T) {
	svc, store, sink := newTestService(t)

	exec, err := svc.CreateExecution(context.Background(), "alice",
		domain.InputDescriptor{Type: "pdf", Value: "quarterly.pdf"}, true, -1)

	require.NoError(t, err)
	assert.NotEmpty(t, exec.ID)
	assert.Equal(t, "alice", exec.Principal)
	assert.Equal(t, domain.ExecutionStatusPlanned, exec.Status)
	assert.Equal(t, 3, exec.MaxRetries)
	assert.NotEmpty(t, exec.Plan.Steps)
	assert.Equal(t, 0, exec.CurrentStep)

	stored, err := store.Get(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, exec.ID, stored.ID)

	history := sink.History(exec.ID)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Message, "execution planned")

	select {
	case queued := <-svc.Queue():
		assert.Equal(t, exec.ID, queued)
	default:
		t.Fatal("execution was not enqueued for dispatch")
	}
}

func TestService_CreateExecutionPlanningFailure(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.CreateExecution(context.Background(), "alice",
		domain.InputDescriptor{Type: "spreadsheet", Value: "numbers.xlsx"}, true, -1)

	require.Error(t, err)
	var planErr *domain.PlanningError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, "spreadsheet", planErr.InputType)

	// A failed planning leaves no record behind
	listed, listErr := store.ListByPrincipal(context.Background(), "alice", ports.ListFilter{})
	require.NoError(t, listErr)
	assert.Empty(t, listed)
}

func TestService_CreateExecutionRequiresPrincipal(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateExecution(context.Background(), "",
		domain.InputDescriptor{Type: "pdf", Value: "report.pdf"}, true, -1)
	assert.Error(t, err)
}

func TestService_GetExecutionNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetExecution(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_RunExecutionEndToEnd(t *testing.T) {
	svc, store, _ := newTestService(t)

	exec, err := svc.CreateExecution(context.Background(), "alice",
		domain.InputDescriptor{Type: "code", Value: "github.com/example/repo"}, true, -1)
	require.NoError(t, err)

	<-svc.Queue()
	svc.RunExecution(exec.ID)

	stored, err := store.Get(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusCompleted, stored.Status)
	assert.Equal(t, len(stored.Plan.Steps), stored.CurrentStep)
	for _, step := range stored.Plan.Steps {
		assert.Equal(t, domain.StepStatusSucceeded, step.Status)
	}
}

func TestService_StreamLogsReplaysAndCloses(t *testing.T) {
	svc, _, _ := newTestService(t)

	exec, err := svc.CreateExecution(context.Background(), "alice",
		domain.InputDescriptor{Type: "url", Value: "https://example.com"}, true, -1)
	require.NoError(t, err)

	<-svc.Queue()
	svc.RunExecution(exec.ID)

	// Subscribing after the run still yields the full ordered history
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := svc.StreamLogs(ctx, exec.ID)
	require.NoError(t, err)

	var received []domain.LogEvent
	for event := range events {
		received = append(received, event)
	}

	require.NotEmpty(t, received)
	assert.Contains(t, received[0].Message, "execution planned")
	last := received[len(received)-1]
	assert.True(t, last.Terminal)
	assert.Equal(t, "execution completed", last.Message)
}

func TestService_StreamLogsUnknownExecution(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.StreamLogs(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_CancelBeforeStart(t *testing.T) {
	svc, store, sink := newTestService(t)

	exec, err := svc.CreateExecution(context.Background(), "alice",
		domain.InputDescriptor{Type: "youtube", Value: "dQw4w9WgXcQ"}, true, -1)
	require.NoError(t, err)

	require.NoError(t, svc.CancelExecution(context.Background(), exec.ID))

	stored, err := store.Get(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusCancelled, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	history := sink.History(exec.ID)
	require.NotEmpty(t, history)
	assert.True(t, history[len(history)-1].Terminal)
}

// recordingMetrics captures terminal transitions for assertions
type recordingMetrics struct {
	mu       sync.Mutex
	finished []string
}

func (m *recordingMetrics) RecordExecutionCreated(inputType string) {}
func (m *recordingMetrics) RecordExecutionFinished(status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, status)
}
func (m *recordingMetrics) RecordStepExecuted(operation, status string, d time.Duration) {}
func (m *recordingMetrics) RecordCorrection(reason string)                               {}
func (m *recordingMetrics) RecordPersistenceFailure()                                    {}
func (m *recordingMetrics) SetActiveExecutions(n int)                                    {}

func TestService_CancelBeforeStartRecordsFinish(t *testing.T) {
	store := storagememory.NewStore()
	sink := eventsmemory.NewSink()
	recorder := &recordingMetrics{}

	engine := orchestrator.NewEngine(
		store, sink, leasememory.NewManager(), handlers.NewDemoRegistry(), metrics.NewNoop(),
		orchestrator.NewValidator(), orchestrator.NewCorrector(),
		zap.NewNop(),
		orchestrator.Options{WorkerID: "test-worker", BackoffBase: time.Millisecond},
	)

	svc := service.New(service.Config{
		Store:             store,
		Sink:              sink,
		Planner:           fixture.NewPlanner(),
		Engine:            engine,
		Metrics:           recorder,
		Logger:            zap.NewNop(),
		DefaultMaxRetries: 3,
		QueueSize:         10,
	})

	exec, err := svc.CreateExecution(context.Background(), "alice",
		domain.InputDescriptor{Type: "pdf", Value: "report.pdf"}, true, -1)
	require.NoError(t, err)

	require.NoError(t, svc.CancelExecution(context.Background(), exec.ID))

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.finished, 1)
	assert.Equal(t, string(domain.ExecutionStatusCancelled), recorder.finished[0])
}

func TestService_CancelIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t)

	exec, err := svc.CreateExecution(context.Background(), "alice",
		domain.InputDescriptor{Type: "pdf", Value: "report.pdf"}, true, -1)
	require.NoError(t, err)

	<-svc.Queue()
	svc.RunExecution(exec.ID)

	stored, err := store.Get(context.Background(), exec.ID)
	require.NoError(t, err)
	require.True(t, stored.Status.IsTerminal())

	// Cancelling a terminal execution changes nothing
	require.NoError(t, svc.CancelExecution(context.Background(), exec.ID))

	after, err := store.Get(context.Background(), exec.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Status, after.Status)
}

func TestService_CancelUnknownExecution(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.CancelExecution(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ListExecutionsFiltersByStatus(t *testing.T) {
	svc, _, _ := newTestService(t)

	first, err := svc.CreateExecution(context.Background(), "alice",
		domain.InputDescriptor{Type: "pdf", Value: "a.pdf"}, true, -1)
	require.NoError(t, err)
	_, err = svc.CreateExecution(context.Background(), "alice",
		domain.InputDescriptor{Type: "pdf", Value: "b.pdf"}, true, -1)
	require.NoError(t, err)

	<-svc.Queue()
	<-svc.Queue()
	svc.RunExecution(first.ID)

	all, err := svc.ListExecutions(context.Background(), "alice", ports.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := svc.ListExecutions(context.Background(), "alice", ports.ListFilter{
		Status: domain.ExecutionStatusCompleted,
	})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, first.ID, completed[0].ID)

	// Other principals see nothing
	other, err := svc.ListExecutions(context.Background(), "bob", ports.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}
