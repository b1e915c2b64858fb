package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
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
	"github.com/mrwa-ai/mrwa/pkg/handlers"
)

func newTestServer(t *testing.T) *Server {
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

	return NewServer(&Config{Port: 0, Service: svc, Logger: zap.NewNop()})
}

func doRequest(s *Server, method, path, principal string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		req.Header.Set("X-Principal-ID", principal)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func createExecution(t *testing.T, s *Server, principal string) string {
	t.Helper()

	w := doRequest(s, http.MethodPost, "/api/v1/executions", principal, map[string]interface{}{
		"input_type":   "pdf",
		"input_value":  "report.pdf",
		"auto_correct": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateExecutionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ExecutionID
}
func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestMissingPrincipalRejected(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/v1/executions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_PRINCIPAL")
}

func TestCreateExecution(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/v1/executions", "alice", map[string]interface{}{
		"input_type":   "pdf",
		"input_value":  "report.pdf",
		"auto_correct": true,
		"max_retries":  2,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateExecutionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ExecutionID)
	assert.Equal(t, "planned", resp.Status)
	require.NotNil(t, resp.Plan)
	assert.Len(t, resp.Plan.Steps, 4)
	assert.NotEmpty(t, resp.CreatedAt)
}

func TestCreateExecutionValidation(t *testing.T) {
	s := newTestServer(t)

	// Missing required fields
	w := doRequest(s, http.MethodPost, "/api/v1/executions", "alice", map[string]interface{}{
		"input_type": "pdf",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Negative retry budget
	w = doRequest(s, http.MethodPost, "/api/v1/executions", "alice", map[string]interface{}{
		"input_type":  "pdf",
		"input_value": "report.pdf",
		"max_retries": -2,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateExecutionPlanningFailure(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/v1/executions", "alice", map[string]interface{}{
		"input_type":  "spreadsheet",
		"input_value": "numbers.xlsx",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "PLANNING_FAILED")
}

func TestGetExecution(t *testing.T) {
	s := newTestServer(t)
	id := createExecution(t, s, "alice")

	w := doRequest(s, http.MethodGet, "/api/v1/executions/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w = doRequest(s, http.MethodGet, "/api/v1/executions/no-such-id", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestListExecutions(t *testing.T) {
	s := newTestServer(t)
	createExecution(t, s, "alice")
	createExecution(t, s, "alice")
	createExecution(t, s, "bob")

	w := doRequest(s, http.MethodGet, "/api/v1/executions", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)

	w = doRequest(s, http.MethodGet, "/api/v1/executions?status=completed", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
}

// stubLogStream satisfies the SetupLogStream handler contract
type stubLogStream struct{}

func (stubLogStream) HandleLogStream(c *gin.Context) {
	c.Status(http.StatusOK)
}

func TestLogStreamRouteRequiresPrincipal(t *testing.T) {
	s := newTestServer(t)
	s.SetupLogStream(stubLogStream{})

	w := doRequest(s, http.MethodGet, "/api/v1/executions/some-id/logs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_PRINCIPAL")

	w = doRequest(s, http.MethodGet, "/api/v1/executions/some-id/logs", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancelExecution(t *testing.T) {
	s := newTestServer(t)
	id := createExecution(t, s, "alice")

	w := doRequest(s, http.MethodPost, "/api/v1/executions/"+id+"/cancel", "alice", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = doRequest(s, http.MethodGet, "/api/v1/executions/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cancelled"`)

	w = doRequest(s, http.MethodPost, "/api/v1/executions/no-such-id/cancel", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
