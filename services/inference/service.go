package inference

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/upb/llm-fallback-proxy/services"
	"github.com/upb/llm-fallback-proxy/services/fallback"
	"go.uber.org/zap"
)

// InferenceService runs prompts through the fallback invoker
type InferenceService struct {
	invoker *fallback.Invoker
	logger  *zap.Logger
}

// NewInferenceService creates a new inference service
func NewInferenceService(invoker *fallback.Invoker, logger *zap.Logger) *InferenceService {
	return &InferenceService{
		invoker: invoker,
		logger:  logger,
	}
}

// Chat generates plain text for prompt
func (s *InferenceService) Chat(ctx context.Context, prompt string) (*ChatResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, services.ErrEmptyPrompt
	}

	start := time.Now()
	result, err := fallback.Invoke[string](ctx, s.invoker, TextOperation{Prompt: prompt})
	if err != nil {
		s.logFailure("chat", result.Attempts, err)
		return nil, err
	}

	s.logger.Debug("chat generated",
		zap.String("model", result.Model),
		zap.Int("attempts", len(result.Attempts)),
		zap.Int("text_length", len(result.Value)))

	return &ChatResult{
		Text:     result.Value,
		Model:    result.Model,
		Attempts: len(result.Attempts),
		Latency:  time.Since(start),
	}, nil
}

// Evaluate generates a JSON document for prompt
func (s *InferenceService) Evaluate(ctx context.Context, prompt string) (*EvaluateResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, services.ErrEmptyPrompt
	}

	start := time.Now()
	result, err := fallback.Invoke[json.RawMessage](ctx, s.invoker, StructuredOperation{Prompt: prompt})
	if err != nil {
		s.logFailure("evaluate", result.Attempts, err)
		return nil, err
	}

	s.logger.Debug("evaluation generated",
		zap.String("model", result.Model),
		zap.Int("attempts", len(result.Attempts)))

	return &EvaluateResult{
		Value:    result.Value,
		Model:    result.Model,
		Attempts: len(result.Attempts),
		Latency:  time.Since(start),
	}, nil
}

func (s *InferenceService) logFailure(operation string, attempts []fallback.Attempt, err error) {
	models := make([]string, 0, len(attempts))
	for _, a := range attempts {
		models = append(models, a.Model)
	}
	s.logger.Error("all candidate models failed",
		zap.String("operation", operation),
		zap.Strings("models", models),
		zap.String("error_type", string(services.GetErrorType(err))),
		zap.Error(err))
}
