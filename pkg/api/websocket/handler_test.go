package websocket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/internal/application/orchestrator"
	"github.com/mrwa-ai/mrwa/internal/application/service"
	wsapi "github.com/mrwa-ai/mrwa/pkg/api/websocket"
	eventsmemory "github.com/mrwa-ai/mrwa/pkg/adapters/events/memory"
	leasememory "github.com/mrwa-ai/mrwa/pkg/adapters/lease/memory"
	storagememory "github.com/mrwa-ai/mrwa/pkg/adapters/storage/memory"
	"github.com/mrwa-ai/mrwa/pkg/adapters/metrics"
	"github.com/mrwa-ai/mrwa/pkg/adapters/planner/fixture"
	"github.com/mrwa-ai/mrwa/pkg/domain"
	"github.com/mrwa-ai/mrwa/pkg/handlers"
)

func newStreamFixture(t *testing.T) (*service.Service, *httptest.Server) {
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

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.GET("/api/v1/executions/:id/logs", wsapi.NewHandler(svc, zap.NewNop()).HandleLogStream)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return svc, server
}

func TestHandleLogStream_ReplaysFullHistoryAndCloses(t *testing.T) {
	svc, server := newStreamFixture(t)

	exec, err := svc.CreateExecution(context.Background(), "alice",
		domain.InputDescriptor{Type: "pdf", Value: "report.pdf"}, true, -1)
	require.NoError(t, err)

	<-svc.Queue()
	svc.RunExecution(exec.ID)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/executions/" + exec.ID + "/logs"
	conn, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var received []domain.LogEvent
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// Normal closure after the terminal event
			assert.True(t, gorilla.IsCloseError(err, gorilla.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		var event domain.LogEvent
		require.NoError(t, json.Unmarshal(data, &event))
		received = append(received, event)
	}

	require.NotEmpty(t, received)
	assert.Equal(t, exec.ID, received[0].ExecutionID)
	last := received[len(received)-1]
	assert.True(t, last.Terminal)
	assert.Equal(t, "execution completed", last.Message)
}

func TestHandleLogStream_UnknownExecution(t *testing.T) {
	_, server := newStreamFixture(t)

	resp, err := http.Get(server.URL + "/api/v1/executions/no-such-id/logs")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
