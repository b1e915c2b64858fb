package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/pkg/domain"
	"github.com/mrwa-ai/mrwa/pkg/ports"
)

// CreateExecutionRequest represents an execution creation request
type CreateExecutionRequest struct {
	InputType   string `json:"input_type" binding:"required"`
	InputValue  string `json:"input_value" binding:"required"`
	AutoCorrect bool   `json:"auto_correct"`
	MaxRetries  *int   `json:"max_retries"`
}

// CreateExecutionResponse represents an execution creation response
type CreateExecutionResponse struct {
	ExecutionID string       `json:"execution_id"`
	Status      string       `json:"status"`
	Plan        *domain.Plan `json:"plan"`
	CreatedAt   string       `json:"created_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"checks": gin.H{
			"service": "ok",
		},
	})
}

// handleCreateExecution handles execution creation
func (s *Server) handleCreateExecution(c *gin.Context) {
	var req CreateExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	maxRetries := -1
	if req.MaxRetries != nil {
		if *req.MaxRetries < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "max_retries must be >= 0",
				},
			})
			return
		}
		maxRetries = *req.MaxRetries
	}

	exec, err := s.service.CreateExecution(
		c.Request.Context(),
		principalFrom(c),
		domain.InputDescriptor{Type: req.InputType, Value: req.InputValue},
		req.AutoCorrect,
		maxRetries,
	)
	if err != nil {
		var planErr *domain.PlanningError
		if errors.As(err, &planErr) {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error: ErrorDetail{
					Code:    "PLANNING_FAILED",
					Message: planErr.Error(),
				},
			})
			return
		}
		s.logger.Error("failed to create execution", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "failed to create execution",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, CreateExecutionResponse{
		ExecutionID: exec.ID,
		Status:      string(exec.Status),
		Plan:        exec.Plan,
		CreatedAt:   exec.CreatedAt.Format(time.RFC3339),
	})
}

// handleListExecutions handles listing the principal's executions
func (s *Server) handleListExecutions(c *gin.Context) {
	filter := ports.ListFilter{
		Status: domain.ExecutionStatus(c.Query("status")),
		Limit:  20,
	}

	executions, err := s.service.ListExecutions(c.Request.Context(), principalFrom(c), filter)
	if err != nil {
		s.logger.Error("failed to list executions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "failed to list executions",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"executions": executions,
		"total":      len(executions),
	})
}

// handleGetExecution handles getting an execution snapshot
func (s *Server) handleGetExecution(c *gin.Context) {
	exec, err := s.service.GetExecution(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: ErrorDetail{
					Code:    "NOT_FOUND",
					Message: "execution not found",
				},
			})
			return
		}
		s.logger.Error("failed to get execution", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "failed to get execution",
			},
		})
		return
	}

	c.JSON(http.StatusOK, exec)
}

// handleCancelExecution handles cancellation requests
func (s *Server) handleCancelExecution(c *gin.Context) {
	executionID := c.Param("id")

	if err := s.service.CancelExecution(c.Request.Context(), executionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: ErrorDetail{
					Code:    "NOT_FOUND",
					Message: "execution not found",
				},
			})
			return
		}
		s.logger.Error("failed to cancel execution", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "failed to cancel execution",
			},
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"execution_id": executionID,
		"cancelled":    true,
	})
}
