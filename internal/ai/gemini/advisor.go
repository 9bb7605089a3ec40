package gemini

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/pathfinder/internal/ai"
	"github.com/spigell/pathfinder/internal/apperrors"
	"github.com/spigell/pathfinder/internal/logger"
	"github.com/spigell/pathfinder/internal/utils"
)

// NoPromptMessage is returned to callers that send a blank prompt.
const NoPromptMessage = "No prompt provided. Please send a 'prompt' key in your JSON body."

const defaultMaxLogLength = 200

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Advisor relays prompts to Gemini. Provider errors are logged in full and
// surfaced only as a sanitized provider-unavailable error.
type Advisor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Advisor = (*Advisor)(nil)

// NewAdvisor creates an Advisor over generator.
func NewAdvisor(generator contentGenerator, log *zap.Logger, maxLogLength int) *Advisor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Advisor{
		generator: generator,
		logger:    logger.WithCommonFields(log, provider, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// Advise returns the generated text for prompt verbatim.
func (a *Advisor) Advise(ctx context.Context, prompt string) (*ai.Advice, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.NewValidation(NoPromptMessage)
	}

	a.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	text, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		a.logger.Error("gemini generate content failed", zap.Error(err))
		return nil, apperrors.NewProviderUnavailable(provider, err)
	}

	a.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, a.maxLogLen)),
	)

	return &ai.Advice{
		Text:     text,
		Provider: provider,
		Model:    a.generator.Model(),
	}, nil
}
