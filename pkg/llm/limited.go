package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

// RateLimited wraps a Provider so that concurrent runs sharing one API key
// stay under a requests-per-second ceiling. Waiting respects ctx.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimited returns p unchanged when rps is not positive.
func NewRateLimited(p Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (r *RateLimited) Complete(ctx context.Context, messages []types.Message) (*types.Message, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Complete(ctx, messages)
}

func (r *RateLimited) CompleteWithTools(ctx context.Context, messages []types.Message, tools []ToolSpec) (*Completion, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.CompleteWithTools(ctx, messages, tools)
}

func (r *RateLimited) CompleteStructured(ctx context.Context, messages []types.Message, format ResponseFormat) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.inner.CompleteStructured(ctx, messages, format)
}

func (r *RateLimited) GetModelInfo() *types.ModelInfo {
	return r.inner.GetModelInfo()
}

func (r *RateLimited) GetModel() string {
	return r.inner.GetModel()
}

// CloneWithModel clones the wrapped provider for model. The clone shares
// this wrapper's limiter.
func (r *RateLimited) CloneWithModel(model string) Provider {
	return &RateLimited{inner: WithModel(r.inner, model), limiter: r.limiter}
}
