package inference

import (
	"encoding/json"
	"time"
)

// ChatResult is the outcome of a plain-text generation
type ChatResult struct {
	// Text is the raw text produced by the answering model
	Text string

	// Model that produced the text
	Model string

	// Attempts is the number of candidate models tried, including the successful one
	Attempts int

	// Latency across all attempts
	Latency time.Duration
}

// EvaluateResult is the outcome of a structured-data generation
type EvaluateResult struct {
	// Value is the JSON document extracted from the model's fenced output
	Value json.RawMessage

	// Model that produced the value
	Model string

	// Attempts is the number of candidate models tried, including the successful one
	Attempts int

	// Latency across all attempts
	Latency time.Duration
}
