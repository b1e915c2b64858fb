package fixture

import (
	"context"
	"fmt"

	"github.com/mrwa-ai/mrwa/pkg/domain"
)

// stepSpec is one row of the static plan tables
type stepSpec struct {
	operation string
	name      string
	expect    domain.OutputShape
}

// Static plan tables per input type. Deterministic by construction:
// identical input descriptors always yield identical plans.
var plans = map[string][]stepSpec{
	"pdf": {
		{"document.extract", "Extract document structure", domain.OutputShape{Fields: map[string]domain.FieldType{"sections": domain.FieldTypeList}}},
		{"document.analyze", "Analyze content", domain.OutputShape{Fields: map[string]domain.FieldType{"concepts": domain.FieldTypeList}}},
		{"document.summarize", "Generate summary", domain.OutputShape{Fields: map[string]domain.FieldType{"summary": domain.FieldTypeString}}},
		{"artifact.compose", "Create final artifact", domain.OutputShape{Fields: map[string]domain.FieldType{"type": domain.FieldTypeString, "content": domain.FieldTypeString}}},
	},
	"code": {
		{"code.parse", "Parse code", domain.OutputShape{Fields: map[string]domain.FieldType{"tree": domain.FieldTypeMap}}},
		{"code.dependencies", "Analyze dependencies", domain.OutputShape{Fields: map[string]domain.FieldType{"imports": domain.FieldTypeList}}},
		{"code.patterns", "Detect patterns", domain.OutputShape{Fields: map[string]domain.FieldType{"patterns": domain.FieldTypeList}}},
		{"artifact.compose", "Create final artifact", domain.OutputShape{Fields: map[string]domain.FieldType{"type": domain.FieldTypeString, "content": domain.FieldTypeString}}},
	},
	"url": {
		{"web.fetch", "Fetch content", domain.OutputShape{Fields: map[string]domain.FieldType{"content": domain.FieldTypeString}, MinLength: 1}},
		{"web.extract", "Extract data", domain.OutputShape{Fields: map[string]domain.FieldType{"data": domain.FieldTypeMap}}},
		{"web.rank", "Analyze relevance", domain.OutputShape{Fields: map[string]domain.FieldType{"ranked": domain.FieldTypeList}}},
		{"artifact.compose", "Create final artifact", domain.OutputShape{Fields: map[string]domain.FieldType{"type": domain.FieldTypeString, "content": domain.FieldTypeString}}},
	},
	"youtube": {
		{"media.metadata", "Extract metadata", domain.OutputShape{Fields: map[string]domain.FieldType{"title": domain.FieldTypeString}}},
		{"media.transcript", "Process transcript", domain.OutputShape{Fields: map[string]domain.FieldType{"transcript": domain.FieldTypeString}}},
		{"media.keypoints", "Identify key points", domain.OutputShape{Fields: map[string]domain.FieldType{"points": domain.FieldTypeList}}},
		{"artifact.compose", "Create final artifact", domain.OutputShape{Fields: map[string]domain.FieldType{"type": domain.FieldTypeString, "content": domain.FieldTypeString}}},
	},
}

// Planner implements ports.PlanGenerator with static plan tables.
// Used in tests and as the fallback when no reasoning provider is
// configured.
type Planner struct{}

// NewPlanner creates a new fixture planner
func NewPlanner() *Planner {
	return &Planner{}
}

// GeneratePlan returns the static plan for the input type
func (p *Planner) GeneratePlan(ctx context.Context, input domain.InputDescriptor) ([]domain.Step, error) {
	if input.Value == "" {
		return nil, fmt.Errorf("input value is required")
	}
	return Plan(input)
}

// Plan builds the static plan for an input descriptor. Shared with
// the anthropic planner's fallback path.
func Plan(input domain.InputDescriptor) ([]domain.Step, error) {
	specs, ok := plans[input.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported input type: %s", input.Type)
	}

	steps := make([]domain.Step, len(specs))
	for i, spec := range specs {
		steps[i] = domain.Step{
			Index:     i,
			Operation: spec.operation,
			Params: map[string]interface{}{
				"name":  spec.name,
				"input": input.Value,
			},
			Expect: spec.expect,
			Status: domain.StepStatusPending,
		}
	}
	return steps, nil
}

// SupportedTypes lists the input types the fixture tables cover
func SupportedTypes() []string {
	return []string{"pdf", "code", "url", "youtube"}
}
