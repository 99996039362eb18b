package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// LimitedCompleter wraps a Completer with a token-bucket rate limiter so a
// burst of concurrent requests cannot overload the inference backend.
type LimitedCompleter struct {
	inner   Completer
	limiter *rate.Limiter
}

// NewLimitedCompleter wraps inner with the given sustained rate and burst.
func NewLimitedCompleter(inner Completer, requestsPerSecond float64, burst int) *LimitedCompleter {
	return &LimitedCompleter{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Complete blocks until the limiter admits the call, then delegates.
func (l *LimitedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("completion rate limit: %w", err)
	}
	return l.inner.Complete(ctx, prompt)
}
