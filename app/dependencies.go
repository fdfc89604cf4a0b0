package app

import (
	"context"
	"fmt"

	"github.com/upb/llm-fallback-proxy/config"
	"github.com/upb/llm-fallback-proxy/services/fallback"
	"github.com/upb/llm-fallback-proxy/services/inference"
	"github.com/upb/llm-fallback-proxy/services/providers"
	"github.com/upb/llm-fallback-proxy/services/providers/gemini"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Remote model API
	Provider providers.Provider

	// Candidate iteration
	Invoker *fallback.Invoker

	// Services
	Inference *inference.InferenceService
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initProvider(cfg)

	if err := deps.initInvoker(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize fallback invoker: %w", err)
	}

	deps.Inference = inference.NewInferenceService(deps.Invoker, logger)

	logger.Info("all dependencies initialized successfully",
		zap.String("provider", deps.Provider.Name()),
		zap.Strings("models", deps.Invoker.Candidates()),
		zap.String("fallback_policy", cfg.Fallback.Policy))
	return deps, nil
}

// initProvider builds the Gemini adapter
func (d *Dependencies) initProvider(cfg *config.Config) {
	d.Provider = gemini.NewGeminiAdapter(providers.ProviderConfig{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	})
}

// initInvoker builds the fallback invoker over the configured candidates
func (d *Dependencies) initInvoker(cfg *config.Config) error {
	policy, err := fallback.PolicyByName(cfg.Fallback.Policy)
	if err != nil {
		return err
	}

	invoker, err := fallback.New(cfg.Fallback.Models, d.Provider, d.Logger, fallback.WithRetryPolicy(policy))
	if err != nil {
		return err
	}

	d.Invoker = invoker
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	if d.Logger == nil {
		return nil
	}

	d.Logger.Info("shutting down dependencies")

	// Sync logger
	_ = d.Logger.Sync()

	return nil
}
