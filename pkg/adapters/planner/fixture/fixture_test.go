package fixture_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrwa-ai/mrwa/pkg/adapters/planner/fixture"
	"github.com/mrwa-ai/mrwa/pkg/domain"
)

func TestPlanner_GeneratePlan(t *testing.T) {
	p := fixture.NewPlanner()
	ctx := context.Background()

	for _, inputType := range fixture.SupportedTypes() {
		t.Run(inputType, func(t *testing.T) {
			steps, err := p.GeneratePlan(ctx, domain.InputDescriptor{Type: inputType, Value: "something"})
			require.NoError(t, err)
			require.Len(t, steps, 4)

			for i, step := range steps {
				assert.Equal(t, i, step.Index)
				assert.NotEmpty(t, step.Operation)
				assert.Equal(t, domain.StepStatusPending, step.Status)
				assert.Equal(t, "something", step.Params["input"])
				assert.NotEmpty(t, step.Expect.Fields)
			}

			// Every plan ends with artifact composition
			assert.Equal(t, "artifact.compose", steps[len(steps)-1].Operation)
		})
	}
}

func TestPlanner_Deterministic(t *testing.T) {
	p := fixture.NewPlanner()
	ctx := context.Background()
	input := domain.InputDescriptor{Type: "pdf", Value: "report.pdf"}

	first, err := p.GeneratePlan(ctx, input)
	require.NoError(t, err)
	second, err := p.GeneratePlan(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPlanner_UnsupportedType(t *testing.T) {
	p := fixture.NewPlanner()

	_, err := p.GeneratePlan(context.Background(), domain.InputDescriptor{Type: "spreadsheet", Value: "x.xlsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input type")
}

func TestPlanner_EmptyValue(t *testing.T) {
	p := fixture.NewPlanner()

	_, err := p.GeneratePlan(context.Background(), domain.InputDescriptor{Type: "pdf"})
	assert.Error(t, err)
}
