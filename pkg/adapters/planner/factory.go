package planner

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mrwa-ai/mrwa/pkg/adapters/planner/anthropic"
	"github.com/mrwa-ai/mrwa/pkg/adapters/planner/fixture"
	"github.com/mrwa-ai/mrwa/pkg/ports"
)

// Config holds plan generator configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

// New creates a plan generator based on provider
func New(cfg *Config) (ports.PlanGenerator, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewPlanner(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Logger), nil
	case "fixture":
		return fixture.NewPlanner(), nil
	default:
		return nil, fmt.Errorf("unsupported planner provider: %s", cfg.Provider)
	}
}
