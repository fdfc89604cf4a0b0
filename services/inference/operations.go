package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/upb/llm-fallback-proxy/services"
	"github.com/upb/llm-fallback-proxy/services/fallback"
	"github.com/upb/llm-fallback-proxy/services/providers"
)

var (
	_ fallback.Operation[string]          = TextOperation{}
	_ fallback.Operation[json.RawMessage] = StructuredOperation{}
)

// TextOperation sends a prompt and returns the model's raw text
type TextOperation struct {
	Prompt string
}

// Run implements fallback.Operation
func (op TextOperation) Run(ctx context.Context, model providers.Model) (string, error) {
	return generate(ctx, model, op.Prompt)
}

// StructuredOperation sends a prompt and parses the reply as a JSON document,
// optionally wrapped in a markdown code fence
type StructuredOperation struct {
	Prompt string
}

// Run implements fallback.Operation
func (op StructuredOperation) Run(ctx context.Context, model providers.Model) (json.RawMessage, error) {
	text, err := generate(ctx, model, op.Prompt)
	if err != nil {
		return nil, err
	}
	return ParseFencedJSON(text)
}

func generate(ctx context.Context, model providers.Model, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, &providers.GenerateRequest{Prompt: prompt})
	if err != nil {
		return "", services.WrapGeneration(fmt.Sprintf("model %s failed", model.Name()), err)
	}
	return resp.Text, nil
}

// StripCodeFence removes a leading ``` or ```json fence line and a trailing
// ``` fence, then trims surrounding whitespace. Text without fences is only
// trimmed.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseFencedJSON strips code fences from text and validates the remainder as
// a single JSON value
func ParseFencedJSON(text string) (json.RawMessage, error) {
	body := StripCodeFence(text)

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, services.ErrMalformedOutput.Wrap(err)
	}
	return raw, nil
}
