package domain

// Validation reason codes form a closed set; the corrector's strategy
// table is keyed by these.
const (
	ReasonOutputMissing   = "output_missing"
	ReasonOutputEmpty     = "output_empty"
	ReasonOutputTruncated = "output_truncated"
	ReasonMissingField    = "missing_field"
	ReasonWrongType       = "wrong_type"
	ReasonFormatMismatch  = "format_mismatch"
)

// FieldType is the expected primitive type of an output field
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeNumber FieldType = "number"
	FieldTypeBool   FieldType = "bool"
	FieldTypeList   FieldType = "list"
	FieldTypeMap    FieldType = "map"
	FieldTypeAny    FieldType = "any"
)

// OutputShape declares what a step's raw output must look like
type OutputShape struct {
	// Required fields and their primitive types, checked when the
	// output is a map. Empty means any shape is acceptable.
	Fields map[string]FieldType `json:"fields,omitempty"`

	// MinLength applies to string outputs and to list outputs
	// (element count). Zero disables the completeness check.
	MinLength int `json:"min_length,omitempty"`
}

// ValidationReason is one structured failure reason
type ValidationReason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the validator's verdict for one step output.
// Not persisted on its own; embedded in the step's history.
type ValidationResult struct {
	Valid     bool               `json:"valid"`
	Reasons   []ValidationReason `json:"reasons,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
	StepIndex int                `json:"step_index"`
}

// FirstReasonCode returns the code of the first hard failure, or ""
func (r ValidationResult) FirstReasonCode() string {
	if len(r.Reasons) == 0 {
		return ""
	}
	return r.Reasons[0].Code
}
