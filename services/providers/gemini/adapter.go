package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/upb/llm-fallback-proxy/services"
	"github.com/upb/llm-fallback-proxy/services/providers"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	apiKeyHeader   = "x-goog-api-key"
	providerName   = "gemini"
)

var (
	_ providers.Provider = (*GeminiAdapter)(nil)
	_ providers.Model    = (*Model)(nil)
)

// GeminiAdapter implements the Provider interface for the Generative Language API
type GeminiAdapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

// NewGeminiAdapter creates a new Gemini adapter
func NewGeminiAdapter(config providers.ProviderConfig) *GeminiAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &GeminiAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *GeminiAdapter) Name() string {
	return providerName
}

// Model returns a handle bound to the given model identifier
func (a *GeminiAdapter) Model(name string) providers.Model {
	return &Model{adapter: a, name: name}
}

// Model is a handle to a single Gemini model
type Model struct {
	adapter *GeminiAdapter
	name    string
}

// Name returns the model identifier
func (m *Model) Name() string {
	return m.name
}

// GenerateContent calls models/{name}:generateContent once. No retries are
// attempted here; falling back to another model is the caller's decision.
func (m *Model) GenerateContent(ctx context.Context, req *providers.GenerateRequest) (*providers.GenerateResponse, error) {
	a := m.adapter

	reqBody, err := json.Marshal(buildGenerateRequest(req))
	if err != nil {
		return nil, m.providerError("MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.config.BaseURL, url.PathEscape(m.name))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, m.providerError("REQUEST_ERROR", "Failed to create request", 0, false, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(apiKeyHeader, a.config.APIKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		// Context cancellation is the caller giving up, not a model failure
		retryable := !errors.Is(err, context.Canceled)
		return nil, m.providerError("HTTP_ERROR", "HTTP request failed", 0, retryable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, m.providerError("READ_ERROR", "Failed to read response", httpResp.StatusCode, true, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, m.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var apiResp GenerateContentResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, m.providerError("UNMARSHAL_ERROR", "Failed to unmarshal response", httpResp.StatusCode, false, err)
	}

	if len(apiResp.Candidates) == 0 {
		msg := "Response contained no candidates"
		if apiResp.PromptFeedback != nil && apiResp.PromptFeedback.BlockReason != "" {
			msg = "Prompt blocked: " + apiResp.PromptFeedback.BlockReason
		}
		return nil, m.providerError("EMPTY_RESPONSE", msg, 0, true, services.ErrEmptyResponse)
	}

	resp := convertToUnifiedResponse(&apiResp)

	// A candidate without text (SAFETY, RECITATION, MAX_TOKENS before any
	// output) is a failed generation
	if resp.Text == "" {
		msg := fmt.Sprintf("Candidate returned no text (finishReason: %s)", resp.FinishReason)
		return nil, m.providerError("EMPTY_RESPONSE", msg, 0, true, services.ErrEmptyResponse)
	}

	return resp, nil
}

// buildGenerateRequest converts a unified request to the Gemini wire format
func buildGenerateRequest(req *providers.GenerateRequest) *GenerateContentRequest {
	return &GenerateContentRequest{
		Contents: []Content{
			{
				Role:  "user",
				Parts: []Part{{Text: req.Prompt}},
			},
		},
	}
}

// convertToUnifiedResponse flattens the first candidate's text parts
func convertToUnifiedResponse(apiResp *GenerateContentResponse) *providers.GenerateResponse {
	candidate := apiResp.Candidates[0]

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	return &providers.GenerateResponse{
		Text:         text.String(),
		FinishReason: candidate.FinishReason,
	}
}

// handleErrorResponse handles Gemini error responses
func (m *Model) handleErrorResponse(statusCode int, body []byte) error {
	retryable := providers.IsRetryableStatus(statusCode)

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return m.providerError("UNKNOWN_ERROR", strings.TrimSpace(string(body)), statusCode, retryable, nil)
	}

	return m.providerError(
		errResp.Error.Status,
		errResp.Error.Message,
		statusCode,
		retryable,
		errors.New(errResp.Error.Message),
	)
}

func (m *Model) providerError(code, message string, statusCode int, retryable bool, cause error) *providers.ProviderError {
	return providers.NewProviderError(providerName, m.name, code, message, statusCode, retryable, cause)
}

// Gemini-specific request/response types

type GenerateContentRequest struct {
	Contents []Content `json:"contents"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text,omitempty"`
}

type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
