package handlers

import (
	"net/http"

	"github.com/upb/llm-fallback-proxy/services"
	"github.com/upb/llm-fallback-proxy/utils"
	"go.uber.org/zap"
)

// Public error messages
const (
	msgPromptRequired     = "Prompt is required"
	msgInvalidRequestBody = "Invalid request body"
	msgBodyTooLarge       = "Request body too large"
	msgGenerateFailed     = "Failed to generate content"
	msgEvaluateFailed     = "Failed to evaluate conversation"
)

// HandleServiceError maps domain errors to HTTP responses. Validation errors
// become 400; every other failure becomes 500 carrying message as the error
// and the underlying error text as details.
func HandleServiceError(w http.ResponseWriter, err error, message string, logger *zap.Logger) {
	if err == nil {
		return
	}

	switch {
	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, msgPromptRequired, nil); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}
		return

	case services.IsGenerationError(err), services.IsParseError(err):
		logger.Debug("handled service error",
			zap.String("type", string(services.GetErrorType(err))))

	default:
		logger.Warn("unclassified service error", zap.Error(err))
	}

	if err := utils.WriteInternalServerError(w, message, err.Error()); err != nil {
		logger.Error("failed to write internal error response", zap.Error(err))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var details interface{}
	if fields := utils.GetValidationFields(err); len(fields) > 0 {
		details = fields
	}

	if err := utils.WriteBadRequest(w, msgPromptRequired, details); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
