package port

import "context"

// Generator is a language model used to produce answers.
type Generator interface {
	// Generate produces text from a system prompt and a user prompt.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
