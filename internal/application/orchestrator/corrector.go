package orchestrator

import (
	"github.com/mrwa-ai/mrwa/pkg/domain"
)

const (
	defaultWindow = 256
	maxWindow     = 8192
	defaultDepth  = 1
	maxDepth      = 5
)

// FailureContext carries everything the corrector needs to decide
// between retrying and aborting
type FailureContext struct {
	Step            domain.Step
	Params          map[string]interface{}
	Reasons         []domain.ValidationReason
	ExecError       string
	Transient       bool
	BudgetRemaining int
}

// Corrector maps failure reasons to correction strategies. Decide is
// total and pure: it always returns exactly one action, never panics,
// and never mutates its input.
type Corrector struct{}

// NewCorrector creates a new corrector
func NewCorrector() *Corrector {
	return &Corrector{}
}

// Decide picks the correction action for a failed step. An exhausted
// budget always aborts; a transient execution error retries with
// unchanged parameters (the backoff delay is the adjustment); each
// validation reason code maps to a fixed parameter adjustment; any
// unknown reason aborts.
func (c *Corrector) Decide(fc FailureContext) domain.CorrectionAction {
	if fc.BudgetRemaining <= 0 {
		return domain.AbortFor("correction budget exhausted")
	}

	if fc.Transient {
		return domain.RetryWith(cloneParams(fc.Params))
	}

	switch code := firstCode(fc.Reasons); code {
	case domain.ReasonOutputEmpty, domain.ReasonOutputTruncated:
		params := cloneParams(fc.Params)
		params["window"] = widen(intParam(params, "window", defaultWindow))
		params["depth"] = deepen(intParam(params, "depth", defaultDepth))
		return domain.RetryWith(params)

	case domain.ReasonOutputMissing:
		params := cloneParams(fc.Params)
		params["parse_mode"] = "thorough"
		return domain.RetryWith(params)

	case domain.ReasonMissingField, domain.ReasonWrongType:
		params := cloneParams(fc.Params)
		params["strict"] = false
		params["parse_mode"] = "thorough"
		return domain.RetryWith(params)

	case domain.ReasonFormatMismatch:
		params := cloneParams(fc.Params)
		params["format"] = "relaxed"
		return domain.RetryWith(params)

	default:
		return domain.AbortFor("no correction strategy")
	}
}

func firstCode(reasons []domain.ValidationReason) string {
	if len(reasons) == 0 {
		return ""
	}
	return reasons[0].Code
}

func cloneParams(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	return out
}

// intParam reads a numeric parameter, tolerating the float64 values
// JSON round-trips produce
func intParam(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func widen(window int) int {
	if window <= 0 {
		window = defaultWindow
	}
	if window*2 > maxWindow {
		return maxWindow
	}
	return window * 2
}

func deepen(depth int) int {
	if depth < defaultDepth {
		depth = defaultDepth
	}
	if depth+1 > maxDepth {
		return maxDepth
	}
	return depth + 1
}
