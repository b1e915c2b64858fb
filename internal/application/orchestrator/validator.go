package orchestrator

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mrwa-ai/mrwa/pkg/domain"
)

// FormatCheck is an optional per-operation output check. A nil return
// means the output passed.
type FormatCheck func(output interface{}) *domain.ValidationReason

// Validator checks a step's raw output against its declared shape.
// Deterministic: identical (expectation, output) pairs always yield
// the same result.
type Validator struct {
	formats map[string]FormatCheck
}

// NewValidator creates a new output validator
func NewValidator() *Validator {
	return &Validator{
		formats: make(map[string]FormatCheck),
	}
}

// RegisterFormat attaches a format-specific check to an operation
// name. Must be called before validation starts; the format table is
// read-only afterwards.
func (v *Validator) RegisterFormat(operation string, check FormatCheck) {
	v.formats[operation] = check
}

// Validate runs, in order: presence/schema check, completeness check,
// then the operation's format check if one is registered. It returns
// on the first hard failure; soft warnings never fail validation.
func (v *Validator) Validate(stepIndex int, operation string, expect domain.OutputShape, output interface{}) domain.ValidationResult {
	result := domain.ValidationResult{Valid: true, StepIndex: stepIndex}

	if output == nil {
		return fail(result, domain.ReasonOutputMissing, "output is missing")
	}

	if reason := checkSchema(expect, output); reason != nil {
		result.Valid = false
		result.Reasons = append(result.Reasons, *reason)
		return result
	}

	if reason := checkCompleteness(expect, output); reason != nil {
		result.Valid = false
		result.Reasons = append(result.Reasons, *reason)
		return result
	}

	result.Warnings = append(result.Warnings, softWarnings(output)...)

	if check, ok := v.formats[operation]; ok {
		if reason := check(output); reason != nil {
			result.Valid = false
			result.Reasons = append(result.Reasons, *reason)
			return result
		}
	}

	return result
}

func fail(result domain.ValidationResult, code, message string) domain.ValidationResult {
	result.Valid = false
	result.Reasons = append(result.Reasons, domain.ValidationReason{Code: code, Message: message})
	return result
}

// checkSchema verifies required fields exist and match their declared
// primitive types
func checkSchema(expect domain.OutputShape, output interface{}) *domain.ValidationReason {
	if len(expect.Fields) == 0 {
		return nil
	}

	m, ok := output.(map[string]interface{})
	if !ok {
		return &domain.ValidationReason{
			Code:    domain.ReasonWrongType,
			Message: fmt.Sprintf("expected structured output, got %T", output),
		}
	}

	for _, field := range sortedFieldNames(expect.Fields) {
		want := expect.Fields[field]
		value, present := m[field]
		if !present || value == nil {
			return &domain.ValidationReason{
				Code:    domain.ReasonMissingField,
				Message: fmt.Sprintf("required field %q is missing", field),
			}
		}
		if !matchesType(want, value) {
			return &domain.ValidationReason{
				Code:    domain.ReasonWrongType,
				Message: fmt.Sprintf("field %q: expected %s, got %T", field, want, value),
			}
		}
	}

	return nil
}

// checkCompleteness verifies the output is non-empty and not truncated
func checkCompleteness(expect domain.OutputShape, output interface{}) *domain.ValidationReason {
	switch out := output.(type) {
	case string:
		if out == "" {
			return &domain.ValidationReason{
				Code:    domain.ReasonOutputEmpty,
				Message: "output string is empty",
			}
		}
		if expect.MinLength > 0 && len(out) < expect.MinLength {
			return &domain.ValidationReason{
				Code:    domain.ReasonOutputTruncated,
				Message: fmt.Sprintf("output length %d below minimum %d", len(out), expect.MinLength),
			}
		}
	case []interface{}:
		if len(out) == 0 {
			return &domain.ValidationReason{
				Code:    domain.ReasonOutputEmpty,
				Message: "output list is empty",
			}
		}
		if expect.MinLength > 0 && len(out) < expect.MinLength {
			return &domain.ValidationReason{
				Code:    domain.ReasonOutputTruncated,
				Message: fmt.Sprintf("output has %d elements, minimum is %d", len(out), expect.MinLength),
			}
		}
	case map[string]interface{}:
		if len(out) == 0 {
			return &domain.ValidationReason{
				Code:    domain.ReasonOutputEmpty,
				Message: "output map is empty",
			}
		}
	}

	return nil
}

// softWarnings returns quality hints that are logged but never fail
// validation
func softWarnings(output interface{}) []string {
	var warnings []string

	if s, ok := output.(string); ok {
		if strings.Count(s, " ") < 5 {
			warnings = append(warnings, "output may lack detail")
		}
		if len(s) > 100000 {
			warnings = append(warnings, "output is very large")
		}
	}

	return warnings
}

func matchesType(want domain.FieldType, value interface{}) bool {
	switch want {
	case domain.FieldTypeAny, "":
		return true
	case domain.FieldTypeString:
		_, ok := value.(string)
		return ok
	case domain.FieldTypeBool:
		_, ok := value.(bool)
		return ok
	case domain.FieldTypeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case domain.FieldTypeList:
		kind := reflect.ValueOf(value).Kind()
		return kind == reflect.Slice || kind == reflect.Array
	case domain.FieldTypeMap:
		return reflect.ValueOf(value).Kind() == reflect.Map
	}
	return false
}

// sortedFieldNames keeps the check order stable so the first failing
// rule is deterministic
func sortedFieldNames(fields map[string]domain.FieldType) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
