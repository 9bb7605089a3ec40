package ai

import "context"

// Advice is the generated answer for a single prompt.
type Advice struct {
	Text     string
	Provider string
	Model    string
}

// Advisor turns a free-text prompt into generated advice.
type Advisor interface {
	Advise(ctx context.Context, prompt string) (*Advice, error)
}
