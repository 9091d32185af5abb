package geo

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"solar-estimate/db/cache"
)

// DefaultSharedCallTimeout bounds a provider call shared by concurrent
// callers. The call is detached from any single caller's cancellation.
const DefaultSharedCallTimeout = 10 * time.Second

// CachedGeocoder memoizes successful lookups and collapses concurrent
// requests for the same address into one provider call.
type CachedGeocoder struct {
	next    Geocoder
	cache   cache.Cache
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
}

// NewCachedGeocoder wraps next.
func NewCachedGeocoder(next Geocoder, c cache.Cache, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{next: next, cache: c, ttl: ttl, timeout: DefaultSharedCallTimeout}
}

// WithTimeout sets the bound on the shared provider call.
func (g *CachedGeocoder) WithTimeout(d time.Duration) *CachedGeocoder {
	if d > 0 {
		g.timeout = d
	}
	return g
}

func (g *CachedGeocoder) Resolve(ctx context.Context, address string) (Location, error) {
	key := "geocode:" + strings.ToLower(strings.Join(strings.Fields(address), " "))

	if raw, ok := g.cache.Get(ctx, key); ok {
		var loc Location
		if err := json.Unmarshal(raw, &loc); err == nil {
			return loc, nil
		}
	}

	return shared(ctx, &g.group, key, g.timeout, func(ctx context.Context) (Location, error) {
		loc, err := g.next.Resolve(ctx, address)
		if err != nil {
			return Location{}, err
		}
		store(ctx, g.cache, key, loc, g.ttl)
		return loc, nil
	})
}

// CachedSolar memoizes solar-potential lookups by rounded coordinates.
type CachedSolar struct {
	next    SolarPotentialProvider
	cache   cache.Cache
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
}

// NewCachedSolar wraps next.
func NewCachedSolar(next SolarPotentialProvider, c cache.Cache, ttl time.Duration) *CachedSolar {
	return &CachedSolar{next: next, cache: c, ttl: ttl, timeout: DefaultSharedCallTimeout}
}

// WithTimeout sets the bound on the shared provider call.
func (s *CachedSolar) WithTimeout(d time.Duration) *CachedSolar {
	if d > 0 {
		s.timeout = d
	}
	return s
}

func (s *CachedSolar) Potential(ctx context.Context, at Coordinates) (*SolarPotential, error) {
	key := "solar:" + at.String()

	if raw, ok := s.cache.Get(ctx, key); ok {
		var p SolarPotential
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
	}

	v, err := shared(ctx, &s.group, key, s.timeout, func(ctx context.Context) (*SolarPotential, error) {
		p, err := s.next.Potential(ctx, at)
		if err != nil {
			return nil, err
		}
		store(ctx, s.cache, key, p, s.ttl)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v
	return &p, nil
}

// shared runs fn once per key for all concurrent callers. fn gets a
// context detached from the caller that started it, so one caller giving
// up does not fail the others; each caller still honours its own ctx.
func shared[T any](ctx context.Context, g *singleflight.Group, key string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ch := g.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return fn(cctx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}

func store(ctx context.Context, c cache.Cache, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("provider cache write failed")
	}
}
