package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/audiophile-commerce/storefront-backend/api/responses"
	pkgerrors "github.com/audiophile-commerce/storefront-backend/pkg/errors"
	"github.com/audiophile-commerce/storefront-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	CounterKey(name string) string
}

// SubmitRateLimitPolicy throttles checkout submissions per session.
type SubmitRateLimitPolicy struct {
	window time.Duration
	limit  int
}

// NewSubmitRateLimitPolicy builds a policy with the supplied window and limit.
func NewSubmitRateLimitPolicy(window time.Duration, limit int) SubmitRateLimitPolicy {
	return SubmitRateLimitPolicy{window: window, limit: limit}
}

func (p SubmitRateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

// SubmitRateLimit caps how many checkout submissions a session may make per
// window. The counter expires with the window, so a quiet session resets.
func SubmitRateLimit(policy SubmitRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sessionID := SessionIDFromContext(ctx)
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := store.CounterKey(fmt.Sprintf("checkout-submit:%s", sessionID))
			count, err := store.IncrWithTTL(ctx, key, policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if count > int64(policy.limit) {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"count": count,
						"limit": policy.limit,
					}), "checkout.submit.rate_limited")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many checkout attempts"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
