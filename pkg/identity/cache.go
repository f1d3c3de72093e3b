package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookwell/notify/pkg/notify"
)

const cacheKeyPrefix = "notify:contact:"

// CachedResolver decorates a Resolver with a Redis contact cache. A
// dispatch fanning out to three channels would otherwise hit the user
// service three times for the same recipient.
//
// Cache misses and cache write failures fall through to the inner resolver;
// only resolution itself can fail. Negative results are not cached so a
// recipient created moments later resolves immediately.
type CachedResolver struct {
	inner  notify.Resolver
	client *redis.Client
	ttl    time.Duration
}

// CachedResolverOption configures a CachedResolver.
type CachedResolverOption func(*CachedResolver)

// WithContactTTL overrides how long resolved contacts are cached.
func WithContactTTL(ttl time.Duration) CachedResolverOption {
	return func(r *CachedResolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewCachedResolver wraps a resolver with a Redis contact cache.
func NewCachedResolver(inner notify.Resolver, client *redis.Client, opts ...CachedResolverOption) *CachedResolver {
	r := &CachedResolver{
		inner:  inner,
		client: client,
		ttl:    5 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CachedResolver) Resolve(ctx context.Context, recipientID string) (*notify.Contact, error) {
	key := cacheKeyPrefix + recipientID

	if payload, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var contact notify.Contact
		if err := json.Unmarshal(payload, &contact); err == nil {
			return &contact, nil
		}
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	contact, err := r.inner.Resolve(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(contact); err == nil {
		// Best effort; a failed cache write must not fail resolution.
		_ = r.client.Set(ctx, key, payload, r.ttl).Err()
	}

	return contact, nil
}

// Invalidate drops a recipient's cached contact, for callers that learn of
// a contact change out of band.
func (r *CachedResolver) Invalidate(ctx context.Context, recipientID string) error {
	return r.client.Del(ctx, cacheKeyPrefix+recipientID).Err()
}
