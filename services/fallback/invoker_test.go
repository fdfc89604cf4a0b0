package fallback

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-fallback-proxy/services/providers"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// scriptedProvider hands out models whose outcome is keyed by model name
type scriptedProvider struct {
	failures map[string]error
	built    []string
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Model(name string) providers.Model {
	p.built = append(p.built, name)
	return &scriptedModel{name: name, err: p.failures[name]}
}

type scriptedModel struct {
	name string
	err  error
}

func (m *scriptedModel) Name() string { return m.name }

func (m *scriptedModel) GenerateContent(ctx context.Context, req *providers.GenerateRequest) (*providers.GenerateResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &providers.GenerateResponse{Text: m.name + ": " + req.Prompt}, nil
}

// echo generates with the model and records which models it ran against
type echo struct {
	calls []string
}

func (e *echo) Run(ctx context.Context, model providers.Model) (string, error) {
	e.calls = append(e.calls, model.Name())
	resp, err := model.GenerateContent(ctx, &providers.GenerateRequest{Prompt: "hi"})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

type opFunc[T any] func(ctx context.Context, model providers.Model) (T, error)

func (f opFunc[T]) Run(ctx context.Context, model providers.Model) (T, error) {
	return f(ctx, model)
}

var candidates = []string{"model-a", "model-b", "model-c"}

func TestNew(t *testing.T) {
	t.Run("empty candidate list", func(t *testing.T) {
		inv, err := New(nil, &scriptedProvider{}, zap.NewNop())
		assert.ErrorIs(t, err, ErrNoCandidates)
		assert.Nil(t, inv)
	})

	t.Run("nil provider", func(t *testing.T) {
		inv, err := New(candidates, nil, zap.NewNop())
		assert.ErrorIs(t, err, ErrNilProvider)
		assert.Nil(t, inv)
	})

	t.Run("nil logger is tolerated", func(t *testing.T) {
		inv, err := New(candidates, &scriptedProvider{}, nil)
		require.NoError(t, err)
		assert.NotNil(t, inv.logger)
	})

	t.Run("candidate list is copied", func(t *testing.T) {
		list := []string{"x", "y"}
		inv, err := New(list, &scriptedProvider{}, zap.NewNop())
		require.NoError(t, err)

		list[0] = "mutated"
		assert.Equal(t, []string{"x", "y"}, inv.Candidates())

		got := inv.Candidates()
		got[1] = "mutated"
		assert.Equal(t, []string{"x", "y"}, inv.Candidates())
	})
}

func TestInvoke_FirstCandidateSucceeds(t *testing.T) {
	provider := &scriptedProvider{}
	inv, err := New(candidates, provider, zaptest.NewLogger(t))
	require.NoError(t, err)

	op := &echo{}
	result, err := Invoke[string](context.Background(), inv, op)

	require.NoError(t, err)
	assert.Equal(t, "model-a: hi", result.Value)
	assert.Equal(t, "model-a", result.Model)
	assert.Equal(t, []string{"model-a"}, op.calls)
	assert.Equal(t, []string{"model-a"}, provider.built)
	require.Len(t, result.Attempts, 1)
	assert.NoError(t, result.Attempts[0].Err)
}

func TestInvoke_FallsBackInOrder(t *testing.T) {
	for k := 1; k < len(candidates); k++ {
		t.Run(fmt.Sprintf("%d failures", k), func(t *testing.T) {
			failures := make(map[string]error)
			for _, name := range candidates[:k] {
				failures[name] = errors.New(name + " unavailable")
			}
			provider := &scriptedProvider{failures: failures}
			inv, err := New(candidates, provider, zaptest.NewLogger(t))
			require.NoError(t, err)

			op := &echo{}
			result, err := Invoke[string](context.Background(), inv, op)

			require.NoError(t, err)
			assert.Equal(t, candidates[:k+1], op.calls)
			assert.Equal(t, candidates[:k+1], provider.built)
			assert.Equal(t, candidates[k]+": hi", result.Value)
			assert.Equal(t, candidates[k], result.Model)
			require.Len(t, result.Attempts, k+1)
			for i := 0; i < k; i++ {
				assert.Error(t, result.Attempts[i].Err)
			}
		})
	}
}

func TestInvoke_AllCandidatesFail(t *testing.T) {
	lastErr := errors.New("model-c unavailable")
	provider := &scriptedProvider{failures: map[string]error{
		"model-a": errors.New("model-a unavailable"),
		"model-b": errors.New("model-b unavailable"),
		"model-c": lastErr,
	}}
	inv, err := New(candidates, provider, zaptest.NewLogger(t))
	require.NoError(t, err)

	op := &echo{}
	result, err := Invoke[string](context.Background(), inv, op)

	require.Error(t, err)
	assert.Same(t, lastErr, err)
	assert.Equal(t, candidates, op.calls)
	assert.Empty(t, result.Value)
	assert.Empty(t, result.Model)
	assert.Len(t, result.Attempts, 3)
}

func TestInvoke_DuplicateCandidates(t *testing.T) {
	provider := &scriptedProvider{failures: map[string]error{"dup": errors.New("down")}}
	inv, err := New([]string{"dup", "dup", "ok"}, provider, zap.NewNop())
	require.NoError(t, err)

	op := &echo{}
	result, err := Invoke[string](context.Background(), inv, op)

	require.NoError(t, err)
	assert.Equal(t, []string{"dup", "dup", "ok"}, op.calls)
	assert.Equal(t, "ok", result.Model)
}

func TestInvoke_NonStringValue(t *testing.T) {
	inv, err := New(candidates, &scriptedProvider{}, zap.NewNop())
	require.NoError(t, err)

	result, err := Invoke[int](context.Background(), inv, opFunc[int](func(ctx context.Context, model providers.Model) (int, error) {
		if model.Name() != "model-b" {
			return 0, errors.New("not this one")
		}
		return 42, nil
	}))

	require.NoError(t, err)
	assert.Equal(t, 42, result.Value)
	assert.Equal(t, "model-b", result.Model)
}

func TestInvoke_RetryTransient(t *testing.T) {
	t.Run("stops on non-retryable failure", func(t *testing.T) {
		badRequest := providers.NewProviderError("scripted", "model-a", "INVALID_ARGUMENT", "bad", 400, false, nil)
		provider := &scriptedProvider{failures: map[string]error{"model-a": badRequest}}
		inv, err := New(candidates, provider, zaptest.NewLogger(t), WithRetryPolicy(RetryTransient))
		require.NoError(t, err)

		op := &echo{}
		_, err = Invoke[string](context.Background(), inv, op)

		assert.Same(t, badRequest, err)
		assert.Equal(t, []string{"model-a"}, op.calls)
	})

	t.Run("moves on after rate limit", func(t *testing.T) {
		rateLimited := providers.NewProviderError("scripted", "model-a", "RESOURCE_EXHAUSTED", "quota", 429, true, nil)
		provider := &scriptedProvider{failures: map[string]error{"model-a": rateLimited}}
		inv, err := New(candidates, provider, zaptest.NewLogger(t), WithRetryPolicy(RetryTransient))
		require.NoError(t, err)

		op := &echo{}
		result, err := Invoke[string](context.Background(), inv, op)

		require.NoError(t, err)
		assert.Equal(t, "model-b", result.Model)
		assert.Equal(t, []string{"model-a", "model-b"}, op.calls)
	})
}

func TestInvoke_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	inv, err := New(candidates, &scriptedProvider{}, zap.NewNop())
	require.NoError(t, err)

	var calls []string
	_, err = Invoke[string](ctx, inv, opFunc[string](func(ctx context.Context, model providers.Model) (string, error) {
		calls = append(calls, model.Name())
		cancel()
		return "", errors.New("interrupted")
	}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"model-a"}, calls)
}

func TestWithRetryPolicy_NilKeepsDefault(t *testing.T) {
	inv, err := New(candidates, &scriptedProvider{}, zap.NewNop(), WithRetryPolicy(nil))
	require.NoError(t, err)
	assert.True(t, inv.retry(errors.New("anything")))
}
