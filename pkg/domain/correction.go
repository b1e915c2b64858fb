package domain

// CorrectionKind discriminates the corrector's decision
type CorrectionKind string

const (
	CorrectionRetry CorrectionKind = "retry"
	CorrectionAbort CorrectionKind = "abort"
)

// CorrectionAction is the corrector's decision for a failed step:
// retry with adjusted parameters, or abort the execution.
type CorrectionAction struct {
	Kind   CorrectionKind         `json:"kind"`
	Params map[string]interface{} `json:"params,omitempty"`
	Reason string                 `json:"reason,omitempty"`
}

// RetryWith builds a retry action carrying adjusted parameters
func RetryWith(params map[string]interface{}) CorrectionAction {
	return CorrectionAction{Kind: CorrectionRetry, Params: params}
}

// AbortFor builds an abort action with a human-readable reason
func AbortFor(reason string) CorrectionAction {
	return CorrectionAction{Kind: CorrectionAbort, Reason: reason}
}
