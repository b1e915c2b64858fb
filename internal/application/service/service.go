package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/internal/application/orchestrator"
	"github.com/mrwa-ai/mrwa/pkg/domain"
	"github.com/mrwa-ai/mrwa/pkg/ports"
)

// Service is the entry point for the execution core: it creates
// executions, exposes snapshots and log streams, and hands execution
// ids to the worker pool through a dispatch queue.
type Service struct {
	store   ports.StateStore
	sink    ports.EventSink
	planner ports.PlanGenerator
	engine  *orchestrator.Engine
	metrics ports.MetricsCollector
	logger  *zap.Logger

	executionTimeout  time.Duration
	defaultMaxRetries int

	queue chan string

	// Cancel funcs of executions currently driven by this node
	active sync.Map // map[string]context.CancelFunc
}

// Config holds service configuration
type Config struct {
	Store   ports.StateStore
	Sink    ports.EventSink
	Planner ports.PlanGenerator
	Engine  *orchestrator.Engine
	Metrics ports.MetricsCollector
	Logger  *zap.Logger

	ExecutionTimeout  time.Duration
	DefaultMaxRetries int
	QueueSize         int
}

// New creates a new execution service
func New(cfg Config) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = time.Hour
	}
	return &Service{
		store:             cfg.Store,
		sink:              cfg.Sink,
		planner:           cfg.Planner,
		engine:            cfg.Engine,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
		executionTimeout:  cfg.ExecutionTimeout,
		defaultMaxRetries: cfg.DefaultMaxRetries,
		queue:             make(chan string, cfg.QueueSize),
	}
}

// Queue exposes the dispatch queue consumed by the worker pool
func (s *Service) Queue() <-chan string {
	return s.queue
}

// CreateExecution generates a plan for the input and persists a new
// PLANNED execution. A planning failure leaves no record behind.
func (s *Service) CreateExecution(ctx context.Context, principal string, input domain.InputDescriptor, autoCorrect bool, maxRetries int) (*domain.Execution, error) {
	if principal == "" {
		return nil, fmt.Errorf("principal is required")
	}
	if maxRetries < 0 {
		maxRetries = s.defaultMaxRetries
	}

	steps, err := s.planner.GeneratePlan(ctx, input)
	if err != nil {
		s.logger.Error("plan generation failed",
			zap.String("principal", principal),
			zap.String("input_type", input.Type),
			zap.Error(err))
		return nil, domain.NewPlanningError(input.Type, err)
	}
	if len(steps) == 0 {
		return nil, domain.NewPlanningError(input.Type, fmt.Errorf("planner returned empty plan"))
	}

	exec := &domain.Execution{
		ID:        uuid.New().String(),
		Principal: principal,
		Input:     input,
		Plan: &domain.Plan{
			Version: "v1",
			Steps:   steps,
		},
		Status:      domain.ExecutionStatusPlanned,
		CreatedAt:   time.Now(),
		AutoCorrect: autoCorrect,
		MaxRetries:  maxRetries,
	}

	if err := s.store.Create(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to persist execution: %w", err)
	}

	s.publishEvent(ctx, exec.ID, domain.LogLevelInfo,
		fmt.Sprintf("execution planned with %d steps", len(steps)), nil)

	s.metrics.RecordExecutionCreated(input.Type)
	s.logger.Info("execution created",
		zap.String("execution_id", exec.ID),
		zap.String("principal", principal),
		zap.String("input_type", input.Type),
		zap.Int("steps", len(steps)),
		zap.Bool("auto_correct", autoCorrect),
		zap.Int("max_retries", maxRetries))

	select {
	case s.queue <- exec.ID:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return exec, nil
}

// GetExecution returns a snapshot of the execution or domain.ErrNotFound
func (s *Service) GetExecution(ctx context.Context, executionID string) (*domain.Execution, error) {
	return s.store.Get(ctx, executionID)
}

// ListExecutions returns executions owned by a principal
func (s *Service) ListExecutions(ctx context.Context, principal string, filter ports.ListFilter) ([]*domain.Execution, error) {
	return s.store.ListByPrincipal(ctx, principal, filter)
}

// StreamLogs returns the execution's ordered event stream. The channel
// closes after the terminal event.
func (s *Service) StreamLogs(ctx context.Context, executionID string) (<-chan domain.LogEvent, error) {
	if _, err := s.store.Get(ctx, executionID); err != nil {
		return nil, err
	}
	return s.sink.Subscribe(ctx, executionID)
}

// CancelExecution requests cancellation. Idempotent: a terminal
// execution is left untouched.
func (s *Service) CancelExecution(ctx context.Context, executionID string) error {
	exec, err := s.store.Get(ctx, executionID)
	if err != nil {
		return err
	}
	if exec.Status.IsTerminal() {
		return nil
	}

	// A locally running worker observes the context cancellation and
	// performs the CANCELLED transition itself
	if cancel, ok := s.active.Load(executionID); ok {
		cancel.(context.CancelFunc)()
		s.logger.Info("cancellation requested",
			zap.String("execution_id", executionID))
		return nil
	}

	// Not picked up yet (or driven elsewhere): mark it directly
	now := time.Now()
	exec.Status = domain.ExecutionStatusCancelled
	exec.CompletedAt = &now
	if err := s.store.UpdateStatus(ctx, exec); err != nil {
		return fmt.Errorf("failed to persist cancellation: %w", err)
	}

	s.publishTerminalEvent(ctx, executionID, "execution cancelled")
	s.metrics.RecordExecutionFinished(string(domain.ExecutionStatusCancelled), time.Since(exec.CreatedAt))
	s.logger.Info("execution cancelled before start",
		zap.String("execution_id", executionID))
	return nil
}

// RunExecution drives one execution to a terminal state. Called by
// worker goroutines; registers a cancel func so CancelExecution can
// reach the running loop.
func (s *Service) RunExecution(executionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.executionTimeout)
	defer cancel()

	s.active.Store(executionID, cancel)
	defer s.active.Delete(executionID)

	if err := s.engine.Run(ctx, executionID); err != nil {
		if err == domain.ErrLeaseHeld {
			s.logger.Warn("execution already leased",
				zap.String("execution_id", executionID))
			return
		}
		s.logger.Error("execution run failed",
			zap.String("execution_id", executionID),
			zap.Error(err))
	}
}

func (s *Service) publishEvent(ctx context.Context, executionID string, level domain.LogLevel, message string, metadata map[string]interface{}) {
	event := domain.LogEvent{
		ID:          uuid.New().String(),
		ExecutionID: executionID,
		Timestamp:   time.Now(),
		Level:       level,
		Message:     message,
		Metadata:    metadata,
	}
	if err := s.sink.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("execution_id", executionID),
			zap.Error(err))
	}
}

func (s *Service) publishTerminalEvent(ctx context.Context, executionID, message string) {
	event := domain.LogEvent{
		ID:          uuid.New().String(),
		ExecutionID: executionID,
		Timestamp:   time.Now(),
		Level:       domain.LogLevelWarning,
		Message:     message,
		Terminal:    true,
	}
	if err := s.sink.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish terminal event",
			zap.String("execution_id", executionID),
			zap.Error(err))
	}
}
