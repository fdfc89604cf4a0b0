package handlers

import (
	"net/http"

	"github.com/upb/llm-fallback-proxy/app"
)

// ChatHandler wires POST /api/chat to the application's inference service
func ChatHandler(deps *app.Dependencies) http.HandlerFunc {
	return NewGenerationHandler(deps.Inference, deps.Logger).HandleChat
}

// EvaluateHandler wires POST /api/evaluate to the application's inference service
func EvaluateHandler(deps *app.Dependencies) http.HandlerFunc {
	return NewGenerationHandler(deps.Inference, deps.Logger).HandleEvaluate
}

// HealthCheck returns the liveness check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return NewHealthHandler(deps.Logger).HandleHealth
}
