package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/upb/llm-fallback-proxy/middleware"
	"github.com/upb/llm-fallback-proxy/services/inference"
	"github.com/upb/llm-fallback-proxy/utils"
	"go.uber.org/zap"
)

// ModelHeader names the model that produced a response
const ModelHeader = "X-Model"

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

var errTrailingData = errors.New("unexpected data after request body")

// GenerateRequest is the body accepted by /api/chat and /api/evaluate
type GenerateRequest struct {
	Prompt string `json:"prompt" validate:"required,notblank"`
}

// ChatResponse is the body returned by /api/chat
type ChatResponse struct {
	Text string `json:"text"`
}

// InferenceService defines the generation operations the handler depends on
type InferenceService interface {
	// Chat returns free-form text for a prompt
	Chat(ctx context.Context, prompt string) (*inference.ChatResult, error)

	// Evaluate returns the JSON document the model produced for a prompt
	Evaluate(ctx context.Context, prompt string) (*inference.EvaluateResult, error)
}

// GenerationHandler handles the prompt-forwarding endpoints
type GenerationHandler struct {
	service InferenceService
	logger  *zap.Logger
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(service InferenceService, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChat handles POST /api/chat
func (h *GenerationHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.Chat(ctx, req.Prompt)
	if err != nil {
		h.logger.Error("chat generation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		h.writeFailure(w, r, err, msgGenerateFailed)
		return
	}

	h.logger.Info("chat completed",
		zap.String("request_id", requestID),
		zap.String("model", result.Model),
		zap.Int("attempts", result.Attempts),
		zap.Duration("latency", result.Latency))

	w.Header().Set(ModelHeader, result.Model)
	if err := utils.WriteOK(w, ChatResponse{Text: result.Text}); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleEvaluate handles POST /api/evaluate. The parsed JSON document is
// returned as the response body without an envelope.
func (h *GenerationHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.Evaluate(ctx, req.Prompt)
	if err != nil {
		h.logger.Error("evaluation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		h.writeFailure(w, r, err, msgEvaluateFailed)
		return
	}

	h.logger.Info("evaluation completed",
		zap.String("request_id", requestID),
		zap.String("model", result.Model),
		zap.Int("attempts", result.Attempts),
		zap.Duration("latency", result.Latency))

	w.Header().Set(ModelHeader, result.Model)
	if err := utils.WriteOK(w, result.Value); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// writeFailure reports a service error. Once the request deadline has passed
// nothing is written and the timeout middleware answers 504.
func (h *GenerationHandler) writeFailure(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		h.logger.Warn("request deadline exceeded, leaving response to timeout handler",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		return
	}

	HandleServiceError(w, err, message, h.logger)
}

// decodeRequest parses and validates the request body. On failure it writes
// the 400 (or 413) response and returns false.
func (h *GenerationHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*GenerateRequest, bool) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	// An empty body is treated as an empty object so it reports the missing prompt
	var req GenerateRequest
	err := dec.Decode(&req)
	if err == nil {
		// Exactly one JSON value is accepted
		if extra := dec.Decode(&struct{}{}); !errors.Is(extra, io.EOF) {
			err = errTrailingData
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = utils.WriteError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge, nil)
			return nil, false
		}
		_ = utils.WriteBadRequest(w, msgInvalidRequestBody, nil)
		return nil, false
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return nil, false
	}

	return &req, true
}
