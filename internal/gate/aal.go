package gate

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lendfast/dealready/internal/pkg/idp"
	"github.com/lendfast/dealready/internal/pkg/jwt"
)

const (
	aalCachePrefix = "aal:"
	aalCacheTTL    = 60 * time.Second
)

// ProviderAALResolver derives the assurance level from verified token
// claims and confirms the session is still live with the provider.
// Confirmations are cached briefly in redis so the gate does not hit
// the provider on every request.
type ProviderAALResolver struct {
	provider idp.Provider
	cache    redis.Cmdable
}

// NewProviderAALResolver builds the default resolver. cache may be nil,
// which disables caching.
func NewProviderAALResolver(provider idp.Provider, cache redis.Cmdable) *ProviderAALResolver {
	return &ProviderAALResolver{provider: provider, cache: cache}
}

// Resolve returns the caller's current assurance level. An aal2 claim
// is trusted as-is since the token signature was already verified; an
// aal1 claim is confirmed against the provider so a revoked session
// does not keep passing the gate.
func (r *ProviderAALResolver) Resolve(ctx context.Context, sess *Session) (string, error) {
	if sess.Claims.AtAAL2() {
		return jwt.AAL2, nil
	}

	cacheKey := aalCachePrefix + sess.UserID
	if r.cache != nil {
		level, err := r.cache.Get(ctx, cacheKey).Result()
		if err == nil && level != "" {
			return level, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			// Cache trouble is not a resolve failure, the provider
			// remains authoritative.
			err = nil
		}
	}

	if _, err := r.provider.GetUser(ctx, sess.AccessToken); err != nil {
		// A definitive rejection still answers the question: the
		// session is not elevated. Anything else is a lookup failure.
		if apiErr, ok := idp.AsAPIError(err); ok && apiErr.Status < 500 {
			return jwt.AAL1, nil
		}
		return "", err
	}

	level := jwt.AAL1
	if r.cache != nil {
		_ = r.cache.Set(ctx, cacheKey, level, aalCacheTTL).Err()
	}
	return level, nil
}
