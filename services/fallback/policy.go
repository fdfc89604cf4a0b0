package fallback

import (
	"fmt"

	"github.com/upb/llm-fallback-proxy/services/providers"
)

// RetryPolicy decides whether a failed attempt should move on to the next
// candidate. Returning false ends the invocation with that failure.
type RetryPolicy func(err error) bool

// RetryAll treats every failure alike and always tries the next candidate.
func RetryAll(error) bool {
	return true
}

// RetryTransient only moves on for provider failures a different model may
// not share: rate limits, overload, unknown model, transport errors. Anything
// else, including malformed output, ends the loop.
func RetryTransient(err error) bool {
	return providers.IsRetryable(err)
}

// PolicyByName maps a configured policy name to a RetryPolicy
func PolicyByName(name string) (RetryPolicy, error) {
	switch name {
	case "", "all":
		return RetryAll, nil
	case "transient":
		return RetryTransient, nil
	default:
		return nil, fmt.Errorf("unknown fallback policy %q", name)
	}
}
