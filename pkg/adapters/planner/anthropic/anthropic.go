package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/pkg/adapters/planner/fixture"
	"github.com/mrwa-ai/mrwa/pkg/domain"
)

const planPrompt = `You are an autonomous workflow planner.

Input Type: %s
Input Value: %s

Create 4-6 execution steps.

Format:
Step N: Action - Expected outcome`

// Planner implements ports.PlanGenerator using the Anthropic API. The
// model names and describes the steps; operations and output shapes
// come from the static tables so downstream validation stays
// deterministic. On any model or parsing failure the static plan is
// used as-is, matching the demo-mode fallback of the original system.
type Planner struct {
	client    anthropic.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewPlanner creates a new Anthropic-backed planner
func NewPlanner(apiKey, model string, maxTokens int, logger *zap.Logger) *Planner {
	return &Planner{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// GeneratePlan produces a plan for the input descriptor
func (p *Planner) GeneratePlan(ctx context.Context, input domain.InputDescriptor) ([]domain.Step, error) {
	steps, err := fixture.Plan(input)
	if err != nil {
		// Unsupported input types fail planning outright
		return nil, err
	}

	descriptions, err := p.describeSteps(ctx, input)
	if err != nil {
		p.logger.Warn("model plan generation failed, using default plan",
			zap.String("input_type", input.Type),
			zap.Error(err))
		return steps, nil
	}

	for i := range steps {
		if i < len(descriptions) {
			steps[i].Params["name"] = descriptions[i].name
			steps[i].Params["description"] = descriptions[i].description
		}
	}

	p.logger.Info("plan generated",
		zap.String("input_type", input.Type),
		zap.Int("steps", len(steps)))

	return steps, nil
}

type stepLine struct {
	name        string
	description string
}

func (p *Planner) describeSteps(ctx context.Context, input domain.InputDescriptor) ([]stepLine, error) {
	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(
				fmt.Sprintf(planPrompt, input.Type, input.Value))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("message request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	lines := parsePlanText(text.String())
	if len(lines) == 0 {
		return nil, fmt.Errorf("no plan steps in model response")
	}
	return lines, nil
}

// parsePlanText extracts "Step N: Action - Outcome" lines
func parsePlanText(text string) []stepLine {
	var out []stepLine

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if !strings.HasPrefix(strings.ToLower(parts[0]), "step") {
			continue
		}

		content := strings.TrimSpace(parts[1])
		name, description := content, "Execute step"
		if idx := strings.Index(content, "-"); idx >= 0 {
			name = strings.TrimSpace(content[:idx])
			description = strings.TrimSpace(content[idx+1:])
		}
		if name == "" {
			continue
		}

		out = append(out, stepLine{name: name, description: description})
		if len(out) >= 6 {
			break
		}
	}

	return out
}
