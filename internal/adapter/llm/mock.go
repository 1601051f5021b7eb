package llm

import (
	"context"
	"fmt"
)

// MockGenerator echoes a truncated view of the prompt. Useful for offline
// runs where the pipeline matters more than answer quality.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (g *MockGenerator) Generate(_ context.Context, _, userPrompt string) (string, error) {
	preview := userPrompt
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return fmt.Sprintf("[mock answer] prompt received (%d chars): %s", len(userPrompt), preview), nil
}

func (g *MockGenerator) ModelName() string {
	return "mock"
}
