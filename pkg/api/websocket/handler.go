package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/internal/application/service"
	"github.com/mrwa-ai/mrwa/pkg/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy enforced upstream
	},
}

// Handler streams execution log events over WebSocket connections
type Handler struct {
	service *service.Service
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
	}
}

// HandleLogStream streams an execution's ordered log events. The
// stream ends after the terminal event; the connection is then
// closed.
func (h *Handler) HandleLogStream(c *gin.Context) {
	executionID := c.Param("id")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.service.StreamLogs(ctx, executionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "execution not found"})
			return
		}
		h.logger.Error("failed to open log stream",
			zap.String("execution_id", executionID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open log stream"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("log stream established",
		zap.String("execution_id", executionID),
		zap.String("client", c.ClientIP()))

	// Drain reads so client close frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("failed to marshal event", zap.Error(err))
			continue
		}

		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("log stream client gone",
				zap.String("execution_id", executionID),
				zap.Error(err))
			return
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "execution finished"))
}
