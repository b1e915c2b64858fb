package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/pkg/domain"
	"github.com/mrwa-ai/mrwa/pkg/ports"
)

// Options holds engine tuning
type Options struct {
	WorkerID        string
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	LeaseTTL        time.Duration
	StepTimeout     time.Duration
	PersistAttempts int
	PersistBackoff  time.Duration
}

// Engine drives one execution at a time through its state machine:
// PLANNED -> RUNNING -> {VALIDATING -> CORRECTING -> RUNNING}* ->
// COMPLETED, with FAILED and CANCELLED as the other terminal states.
type Engine struct {
	store     ports.StateStore
	sink      ports.EventSink
	leases    ports.LeaseManager
	registry  ports.HandlerRegistry
	metrics   ports.MetricsCollector
	validator *Validator
	corrector *Corrector
	logger    *zap.Logger
	opts      Options
}

// NewEngine creates a new orchestration engine
func NewEngine(
	store ports.StateStore,
	sink ports.EventSink,
	leases ports.LeaseManager,
	registry ports.HandlerRegistry,
	metrics ports.MetricsCollector,
	validator *Validator,
	corrector *Corrector,
	logger *zap.Logger,
	opts Options,
) *Engine {
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.BackoffCap < opts.BackoffBase {
		opts.BackoffCap = 30 * time.Second
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = time.Minute
	}
	if opts.PersistAttempts < 1 {
		opts.PersistAttempts = 3
	}
	if opts.PersistBackoff <= 0 {
		opts.PersistBackoff = 200 * time.Millisecond
	}
	return &Engine{
		store:     store,
		sink:      sink,
		leases:    leases,
		registry:  registry,
		metrics:   metrics,
		validator: validator,
		corrector: corrector,
		logger:    logger,
		opts:      opts,
	}
}

// Run advances the execution until it reaches a terminal state or ctx
// is cancelled. The lease guarantees single-writer discipline: a
// second Run for the same id returns domain.ErrLeaseHeld.
func (e *Engine) Run(ctx context.Context, executionID string) error {
	if err := e.leases.Acquire(ctx, executionID, e.opts.WorkerID, e.opts.LeaseTTL); err != nil {
		return err
	}
	defer func() {
		if err := e.leases.Release(context.Background(), executionID, e.opts.WorkerID); err != nil {
			e.logger.Warn("failed to release lease",
				zap.String("execution_id", executionID),
				zap.Error(err))
		}
	}()

	exec, err := e.store.Get(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution: %w", err)
	}

	// A reclaimed lease may point at an already finished execution
	if exec.Status.IsTerminal() {
		return nil
	}

	e.logger.Info("execution started",
		zap.String("execution_id", exec.ID),
		zap.String("principal", exec.Principal),
		zap.Int("steps", len(exec.Plan.Steps)),
		zap.Int("resume_at", exec.CurrentStep))

	if exec.StartedAt == nil {
		now := time.Now()
		exec.StartedAt = &now
	}

	e.runLoop(ctx, exec)
	return nil
}

// runLoop is the step iteration. Steps run strictly sequentially;
// CurrentStep only advances after a step's outcome is definitive, so a
// reclaimed lease never re-runs a succeeded step.
func (e *Engine) runLoop(ctx context.Context, exec *domain.Execution) {
	for exec.CurrentStep < len(exec.Plan.Steps) {
		if ctx.Err() != nil {
			e.cancel(exec)
			return
		}
		if e.finishedElsewhere(ctx, exec) {
			return
		}

		step := &exec.Plan.Steps[exec.CurrentStep]

		output, execErr := e.executeStep(ctx, exec, step)
		if ctx.Err() != nil {
			e.cancel(exec)
			return
		}

		if execErr != nil {
			if !e.handleExecutionError(ctx, exec, step, execErr) {
				return
			}
			continue
		}

		result := e.validateStep(ctx, exec, step, output)
		if result.Valid {
			e.succeedStep(ctx, exec, step, output)
			continue
		}

		if !e.handleValidationFailure(ctx, exec, step, output, result) {
			return
		}
	}

	e.complete(ctx, exec)
}

// executeStep runs one attempt of the current step against the
// handler registry
func (e *Engine) executeStep(ctx context.Context, exec *domain.Execution, step *domain.Step) (interface{}, error) {
	e.transition(ctx, exec, domain.ExecutionStatusRunning)

	now := time.Now()
	step.Status = domain.StepStatusRunning
	step.Attempts++
	step.StartedAt = &now
	e.persistStep(ctx, exec, step)

	e.emit(ctx, exec, domain.LogLevelInfo,
		fmt.Sprintf("executing step %d: %s (attempt %d)", step.Index, step.Operation, step.Attempts),
		&step.Index, nil)

	stepCtx := ctx
	if e.opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, e.opts.StepTimeout)
		defer cancel()
	}

	start := time.Now()
	output, err := e.registry.Invoke(stepCtx, step.Operation, step.Params, e.priorOutputs(exec))
	elapsed := time.Since(start)
	step.DurationMS += elapsed.Milliseconds()

	status := string(domain.StepStatusSucceeded)
	if err != nil {
		status = string(domain.StepStatusFailed)
	}
	e.metrics.RecordStepExecuted(step.Operation, status, elapsed)

	return output, err
}

// validateStep checks the raw output against the step's declared shape
func (e *Engine) validateStep(ctx context.Context, exec *domain.Execution, step *domain.Step, output interface{}) domain.ValidationResult {
	e.transition(ctx, exec, domain.ExecutionStatusValidating)
	step.Status = domain.StepStatusValidating
	e.persistStep(ctx, exec, step)

	result := e.validator.Validate(step.Index, step.Operation, step.Expect, output)

	for _, warning := range result.Warnings {
		e.emit(ctx, exec, domain.LogLevelWarning, warning, &step.Index, nil)
	}

	return result
}

func (e *Engine) succeedStep(ctx context.Context, exec *domain.Execution, step *domain.Step, output interface{}) {
	now := time.Now()
	step.Status = domain.StepStatusSucceeded
	step.Output = output
	step.Error = ""
	step.CompletedAt = &now
	exec.CurrentStep++

	e.persistStep(ctx, exec, step)
	e.persist(ctx, exec)

	e.emit(ctx, exec, domain.LogLevelInfo,
		fmt.Sprintf("step %d succeeded: %s", step.Index, step.Operation),
		&step.Index, map[string]interface{}{
			"attempts":    step.Attempts,
			"duration_ms": step.DurationMS,
		})
}

// handleExecutionError reacts to a handler error. Returns true when
// the loop should retry the step, false when the execution reached a
// terminal state.
func (e *Engine) handleExecutionError(ctx context.Context, exec *domain.Execution, step *domain.Step, execErr error) bool {
	transient := e.registry.IsTransient(execErr)
	step.Error = execErr.Error()

	e.emit(ctx, exec, domain.LogLevelError,
		fmt.Sprintf("step %d failed: %v", step.Index, execErr),
		&step.Index, map[string]interface{}{"transient": transient})

	if !transient {
		e.fail(ctx, exec, step, fmt.Sprintf("step %d: permanent error: %v", step.Index, execErr))
		return false
	}

	if !exec.AutoCorrect || exec.CorrectionBudgetRemaining() == 0 {
		e.fail(ctx, exec, step, fmt.Sprintf("step %d: transient error, corrections exhausted: %v", step.Index, execErr))
		return false
	}

	return e.correct(ctx, exec, step, FailureContext{
		Step:            *step,
		Params:          step.Params,
		ExecError:       execErr.Error(),
		Transient:       true,
		BudgetRemaining: exec.CorrectionBudgetRemaining(),
	})
}

// handleValidationFailure reacts to a failed validation. Same return
// convention as handleExecutionError.
func (e *Engine) handleValidationFailure(ctx context.Context, exec *domain.Execution, step *domain.Step, output interface{}, result domain.ValidationResult) bool {
	step.Error = validationSummary(result)

	e.emit(ctx, exec, domain.LogLevelWarning,
		fmt.Sprintf("step %d failed validation: %s", step.Index, step.Error),
		&step.Index, map[string]interface{}{"reason_code": result.FirstReasonCode()})

	if !exec.AutoCorrect || exec.CorrectionBudgetRemaining() == 0 {
		e.fail(ctx, exec, step, fmt.Sprintf("step %d: validation failed, corrections exhausted", step.Index))
		return false
	}

	return e.correct(ctx, exec, step, FailureContext{
		Step:            *step,
		Params:          step.Params,
		Reasons:         result.Reasons,
		BudgetRemaining: exec.CorrectionBudgetRemaining(),
	})
}

// correct runs the corrector and either schedules a retry (with
// backoff) or fails the execution
func (e *Engine) correct(ctx context.Context, exec *domain.Execution, step *domain.Step, fc FailureContext) bool {
	e.transition(ctx, exec, domain.ExecutionStatusCorrecting)

	action := e.corrector.Decide(fc)

	if action.Kind == domain.CorrectionAbort {
		e.fail(ctx, exec, step, fmt.Sprintf("step %d: %s", step.Index, action.Reason))
		return false
	}

	exec.Corrections++
	step.Params = action.Params
	step.Status = domain.StepStatusCorrected
	e.persistStep(ctx, exec, step)
	e.persist(ctx, exec)
	e.metrics.RecordCorrection(fc.firstReason())

	e.emit(ctx, exec, domain.LogLevelInfo,
		fmt.Sprintf("step %d corrected, retrying (correction %d/%d)", step.Index, exec.Corrections, exec.MaxRetries),
		&step.Index, map[string]interface{}{"adjusted_params": action.Params})

	if !e.backoff(ctx, step.Attempts) {
		e.cancel(exec)
		return false
	}

	return true
}

func (fc FailureContext) firstReason() string {
	if fc.Transient {
		return "transient_error"
	}
	return firstCode(fc.Reasons)
}

// backoff sleeps base * 2^(attempt-1) capped at the configured
// maximum. Returns false when ctx was cancelled during the wait; the
// delay never blocks cancellation handling.
func (e *Engine) backoff(ctx context.Context, attempt int) bool {
	delay := e.opts.BackoffBase
	for i := 1; i < attempt && delay < e.opts.BackoffCap; i++ {
		delay *= 2
	}
	if delay > e.opts.BackoffCap {
		delay = e.opts.BackoffCap
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// finishedElsewhere reports whether another writer already moved the
// execution to a terminal state, such as a cancel acknowledged on a
// node that is not driving the run. The local copy adopts the stored
// status; no further transitions are made here and the writer that
// performed the transition owns its metrics and terminal event.
func (e *Engine) finishedElsewhere(ctx context.Context, exec *domain.Execution) bool {
	stored, err := e.store.Get(ctx, exec.ID)
	if err != nil || !stored.Status.IsTerminal() {
		return false
	}

	exec.Status = stored.Status
	e.logger.Info("execution finished externally",
		zap.String("execution_id", exec.ID),
		zap.String("status", string(exec.Status)))
	return true
}

func (e *Engine) complete(ctx context.Context, exec *domain.Execution) {
	if e.finishedElsewhere(ctx, exec) {
		return
	}

	now := time.Now()
	exec.Status = domain.ExecutionStatusCompleted
	exec.CompletedAt = &now
	e.persist(ctx, exec)

	var artifact interface{}
	if n := len(exec.Plan.Steps); n > 0 {
		artifact = exec.Plan.Steps[n-1].Output
	}

	e.emitTerminal(ctx, exec, domain.LogLevelInfo, "execution completed", map[string]interface{}{
		"artifact": map[string]interface{}{
			"type":   exec.Input.Type,
			"name":   fmt.Sprintf("%s-result", exec.Input.Type),
			"output": artifact,
		},
		"corrections": exec.Corrections,
	})

	e.metrics.RecordExecutionFinished(string(exec.Status), time.Since(exec.CreatedAt))
	e.logger.Info("execution completed",
		zap.String("execution_id", exec.ID),
		zap.Int("corrections", exec.Corrections))
}

func (e *Engine) fail(ctx context.Context, exec *domain.Execution, step *domain.Step, message string) {
	if e.finishedElsewhere(ctx, exec) {
		return
	}

	now := time.Now()
	step.Status = domain.StepStatusFailed
	step.CompletedAt = &now
	exec.Status = domain.ExecutionStatusFailed
	exec.ErrorMessage = message
	exec.CompletedAt = &now

	e.persistStep(ctx, exec, step)
	e.persist(ctx, exec)
	e.emitTerminal(ctx, exec, domain.LogLevelError, message, nil)

	e.metrics.RecordExecutionFinished(string(exec.Status), time.Since(exec.CreatedAt))
	e.logger.Warn("execution failed",
		zap.String("execution_id", exec.ID),
		zap.String("error", message))
}

// cancel moves the execution to CANCELLED. Completed steps keep their
// artifacts; the in-flight step is left as-is.
func (e *Engine) cancel(exec *domain.Execution) {
	// The run context is already cancelled at this point
	ctx := context.Background()

	now := time.Now()
	exec.Status = domain.ExecutionStatusCancelled
	exec.CompletedAt = &now

	e.persist(ctx, exec)
	e.emitTerminal(ctx, exec, domain.LogLevelWarning, "execution cancelled", nil)

	e.metrics.RecordExecutionFinished(string(exec.Status), time.Since(exec.CreatedAt))
	e.logger.Info("execution cancelled", zap.String("execution_id", exec.ID))
}

// transition updates the overall status; idempotent when already in
// the target state
func (e *Engine) transition(ctx context.Context, exec *domain.Execution, status domain.ExecutionStatus) {
	if exec.Status == status {
		return
	}
	exec.Status = status
	e.persist(ctx, exec)
}

// persist writes execution state with bounded retries. A persistently
// failing store does not roll back the in-memory transition; the
// execution is flagged for operator visibility instead.
func (e *Engine) persist(ctx context.Context, exec *domain.Execution) {
	e.persistWithRetry(ctx, exec, func(c context.Context) error {
		return e.store.UpdateStatus(c, exec)
	})
}

func (e *Engine) persistStep(ctx context.Context, exec *domain.Execution, step *domain.Step) {
	e.persistWithRetry(ctx, exec, func(c context.Context) error {
		return e.store.AppendStepHistory(c, exec.ID, step)
	})
}

func (e *Engine) persistWithRetry(ctx context.Context, exec *domain.Execution, write func(context.Context) error) {
	// Writes must survive run-context cancellation so the terminal
	// CANCELLED transition still lands in the store
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	var err error
	delay := e.opts.PersistBackoff
	for attempt := 1; attempt <= e.opts.PersistAttempts; attempt++ {
		if err = write(ctx); err == nil {
			return
		}
		// The record reached a terminal state through another writer;
		// retrying cannot succeed and the run loop will observe it
		if errors.Is(err, domain.ErrTerminalState) {
			e.logger.Debug("write skipped, execution already terminal",
				zap.String("execution_id", exec.ID))
			return
		}
		if attempt < e.opts.PersistAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}

	exec.PersistenceError = true
	e.metrics.RecordPersistenceFailure()
	e.logger.Error("state store write kept failing",
		zap.String("execution_id", exec.ID),
		zap.Error(err))
}

// priorOutputs collects succeeded steps' outputs keyed by ordinal
func (e *Engine) priorOutputs(exec *domain.Execution) map[int]interface{} {
	outputs := make(map[int]interface{})
	for i := range exec.Plan.Steps {
		step := &exec.Plan.Steps[i]
		if step.Status == domain.StepStatusSucceeded {
			outputs[step.Index] = step.Output
		}
	}
	return outputs
}

func (e *Engine) emit(ctx context.Context, exec *domain.Execution, level domain.LogLevel, message string, stepIndex *int, metadata map[string]interface{}) {
	e.publish(ctx, domain.LogEvent{
		ID:          uuid.New().String(),
		ExecutionID: exec.ID,
		Timestamp:   time.Now(),
		Level:       level,
		Message:     message,
		StepIndex:   stepIndex,
		Metadata:    metadata,
	})
}

func (e *Engine) emitTerminal(ctx context.Context, exec *domain.Execution, level domain.LogLevel, message string, metadata map[string]interface{}) {
	e.publish(ctx, domain.LogEvent{
		ID:          uuid.New().String(),
		ExecutionID: exec.ID,
		Timestamp:   time.Now(),
		Level:       level,
		Message:     message,
		Metadata:    metadata,
		Terminal:    true,
	})
}

func (e *Engine) publish(ctx context.Context, event domain.LogEvent) {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := e.sink.Publish(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Error("failed to publish log event",
			zap.String("execution_id", event.ExecutionID),
			zap.Error(err))
	}
}

func validationSummary(result domain.ValidationResult) string {
	if len(result.Reasons) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("%s: %s", result.Reasons[0].Code, result.Reasons[0].Message)
}
